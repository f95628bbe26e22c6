package repository

import (
	"context"

	"isintu/internal/models"
	"isintu/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository covers comments, their one-level replies and the
// per-item like counters.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]models.Comment, error)
	CreateReply(ctx context.Context, reply *models.Reply) error
	ListReplies(ctx context.Context, commentIDs []uint) ([]models.Reply, error)
	IncrementLikes(ctx context.Context, id uint) (int, error)
	IncrementReplyLikes(ctx context.Context, id uint) (int, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository returns a CommentRepository bound to db, which may be a transaction.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("insert", "comments")()
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	defer observability.TrackQuery("select", "comments")()
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, notFoundOr(err, "Comment", id)
	}
	return &comment, nil
}

// ListByPost returns a post's comments oldest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	defer observability.TrackQuery("select", "comments")()
	comments := []models.Comment{}
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) CreateReply(ctx context.Context, reply *models.Reply) error {
	defer observability.TrackQuery("insert", "replies")()
	if err := r.db.WithContext(ctx).Create(reply).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListReplies returns the replies of every listed comment, oldest first.
func (r *commentRepository) ListReplies(ctx context.Context, commentIDs []uint) ([]models.Reply, error) {
	replies := []models.Reply{}
	if len(commentIDs) == 0 {
		return replies, nil
	}
	defer observability.TrackQuery("select", "replies")()
	err := r.db.WithContext(ctx).
		Where("comment_id IN ?", commentIDs).
		Order("created_at ASC, id ASC").
		Find(&replies).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return replies, nil
}

// IncrementLikes adds one to a comment's counter in SQL and returns the stored value.
func (r *commentRepository) IncrementLikes(ctx context.Context, id uint) (int, error) {
	return r.increment(ctx, &models.Comment{}, "Comment", id)
}

// IncrementReplyLikes adds one to a reply's counter in SQL and returns the stored value.
func (r *commentRepository) IncrementReplyLikes(ctx context.Context, id uint) (int, error) {
	return r.increment(ctx, &models.Reply{}, "Reply", id)
}

func (r *commentRepository) increment(ctx context.Context, model interface{}, resource string, id uint) (int, error) {
	defer observability.TrackQuery("increment", resource)()
	db := r.db.WithContext(ctx)

	res := db.Model(model).Where("id = ?", id).UpdateColumn("likes", gorm.Expr("likes + ?", 1))
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, models.NewNotFoundError(resource, id)
	}

	var likes []int
	if err := db.Model(model).Where("id = ?", id).Pluck("likes", &likes).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	if len(likes) == 0 {
		return 0, models.NewNotFoundError(resource, id)
	}
	return likes[0], nil
}
