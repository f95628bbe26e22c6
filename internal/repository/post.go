package repository

import (
	"context"

	"isintu/internal/models"
	"isintu/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post, feed and post-like operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Feed(ctx context.Context, viewerID uint, limit, offset int) ([]models.PostAggregate, error)
	Aggregate(ctx context.Context, postID, viewerID uint) (*models.PostAggregate, error)
	Pending(ctx context.Context) ([]models.PendingPost, error)
	Publish(ctx context.Context, id uint) (bool, error)
	DeletePending(ctx context.Context, id uint) (bool, error)
	Delete(ctx context.Context, id uint) error

	DeleteLike(ctx context.Context, postID, userID uint) (bool, error)
	InsertLike(ctx context.Context, postID, userID uint) (bool, error)
	RecountLikes(ctx context.Context, postID uint) (int, error)
	Likers(ctx context.Context, postID uint) ([]models.Liker, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a PostRepository bound to db, which may be a transaction.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// aggregateColumns selects a post with live like and comment counts, the
// viewer's liked flag and the author's name. The single bind parameter is
// the viewer id; 0 never matches a like row.
const aggregateColumns = `posts.id, posts.user_id, posts.text, posts.image, posts.video, posts.status,
posts.created_at, posts.updated_at,
(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id) AS like_count,
(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count,
EXISTS (SELECT 1 FROM post_likes WHERE post_likes.post_id = posts.id AND post_likes.user_id = ?) AS liked,
COALESCE(profiles.full_name, '') AS author_name`

func (r *postRepository) aggregates(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Model(&models.Post{}).
		Select(aggregateColumns, viewerID).
		Joins("LEFT JOIN profiles ON profiles.id = posts.user_id").
		Where("posts.status = ?", models.PostStatusPublished)
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insert", "posts")()
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	defer observability.TrackQuery("select", "posts")()
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

// Feed returns published posts newest first with live counts.
func (r *postRepository) Feed(ctx context.Context, viewerID uint, limit, offset int) ([]models.PostAggregate, error) {
	defer observability.TrackQuery("feed", "posts")()
	rows := make([]models.PostAggregate, 0, limit)
	err := r.aggregates(readDB(r.db).WithContext(ctx), viewerID).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

// Aggregate returns the feed row for one published post. It reads the
// primary so callers see their own writes.
func (r *postRepository) Aggregate(ctx context.Context, postID, viewerID uint) (*models.PostAggregate, error) {
	defer observability.TrackQuery("aggregate", "posts")()
	var rows []models.PostAggregate
	err := r.aggregates(r.db.WithContext(ctx), viewerID).
		Where("posts.id = ?", postID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(rows) == 0 {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return &rows[0], nil
}

// Pending returns the moderation queue, oldest submission first, joined
// with the submitter's profile.
func (r *postRepository) Pending(ctx context.Context) ([]models.PendingPost, error) {
	defer observability.TrackQuery("pending", "posts")()
	rows := []models.PendingPost{}
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Post{}).
		Select("posts.*, COALESCE(profiles.full_name, '') AS full_name, COALESCE(profiles.email, '') AS email").
		Joins("LEFT JOIN profiles ON profiles.id = posts.user_id").
		Where("posts.status = ?", models.PostStatusPending).
		Order("posts.created_at ASC, posts.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

// Publish moves a pending post to published. It reports false when no
// pending post with id exists, which covers both "missing" and "already
// published".
func (r *postRepository) Publish(ctx context.Context, id uint) (bool, error) {
	defer observability.TrackQuery("update", "posts")()
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND status = ?", id, models.PostStatusPending).
		Update("status", models.PostStatusPublished)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeletePending hard-deletes a post only while it is pending.
func (r *postRepository) DeletePending(ctx context.Context, id uint) (bool, error) {
	defer observability.TrackQuery("delete", "posts")()
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.PostStatusPending).
		Delete(&models.Post{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Delete removes a post together with its replies, comments and likes. It
// must run inside a transaction.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "posts")()
	db := r.db.WithContext(ctx)

	commentIDs := db.Model(&models.Comment{}).Select("id").Where("post_id = ?", id)
	if err := db.Where("comment_id IN (?)", commentIDs).Delete(&models.Reply{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := db.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := db.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
		return models.NewInternalError(err)
	}

	res := db.Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// DeleteLike removes the (post, user) like row and reports whether one existed.
func (r *postRepository) DeleteLike(ctx context.Context, postID, userID uint) (bool, error) {
	defer observability.TrackQuery("delete", "post_likes")()
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.PostLike{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// InsertLike adds the (post, user) like row. The unique index decides races:
// it reports false when a concurrent request already inserted the row.
func (r *postRepository) InsertLike(ctx context.Context, postID, userID uint) (bool, error) {
	defer observability.TrackQuery("insert", "post_likes")()
	like := models.PostLike{PostID: postID, UserID: userID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&like)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RecountLikes recomputes like_count from the like rows, stores it on the
// post and returns it.
func (r *postRepository) RecountLikes(ctx context.Context, postID uint) (int, error) {
	defer observability.TrackQuery("recount", "post_likes")()
	db := r.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	res := db.Model(&models.Post{}).Where("id = ?", postID).Update("like_count", count)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, models.NewNotFoundError("Post", postID)
	}
	return int(count), nil
}

// Likers lists who liked a post, oldest like first. Likes whose profile no
// longer exists are reported as "Unknown".
func (r *postRepository) Likers(ctx context.Context, postID uint) ([]models.Liker, error) {
	defer observability.TrackQuery("select", "post_likes")()
	likers := []models.Liker{}
	err := readDB(r.db).WithContext(ctx).
		Model(&models.PostLike{}).
		Select("post_likes.user_id, COALESCE(profiles.full_name, 'Unknown') AS full_name").
		Joins("LEFT JOIN profiles ON profiles.id = post_likes.user_id").
		Where("post_likes.post_id = ?", postID).
		Order("post_likes.created_at ASC, post_likes.id ASC").
		Scan(&likers).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return likers, nil
}
