package service

import (
	"context"
	"strings"

	"isintu/internal/cache"
	"isintu/internal/middleware"
	"isintu/internal/models"
	"isintu/internal/observability"
	"isintu/internal/repository"
	"isintu/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const maxMediaPerPost = 10

// SubmitInput is a new post. Image and Video hold object paths returned by
// the media upload endpoint.
type SubmitInput struct {
	UserID uint     `json:"-"`
	Text   string   `json:"text" validate:"required"`
	Image  []string `json:"image" validate:"max=10,dive,required,startswith=image/"`
	Video  []string `json:"video" validate:"max=10,dive,required,startswith=video/"`
}

// ApproveResult reports whether this call made the post visible.
type ApproveResult struct {
	Post             *models.Post `json:"post"`
	AlreadyPublished bool         `json:"already_published"`
}

// ModerationService runs the pending → published | deleted workflow.
// Admin checks happen here as well as in the HTTP middleware.
type ModerationService struct {
	db            *gorm.DB
	profiles      repository.ProfileRepository
	posts         repository.PostRepository
	notifications *NotificationService
}

func NewModerationService(db *gorm.DB, notifications *NotificationService) *ModerationService {
	return &ModerationService{
		db:            db,
		profiles:      repository.NewProfileRepository(db),
		posts:         repository.NewPostRepository(db),
		notifications: notifications,
	}
}

func (s *ModerationService) requireAdmin(ctx context.Context, actorID uint) error {
	actor, err := s.profiles.GetByID(ctx, actorID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewUnauthorizedError("Unknown user")
		}
		return err
	}
	if !actor.IsAdmin() {
		return models.NewForbiddenError("Admin access required")
	}
	return nil
}

// Submit stores a post. Posts by ordinary users wait in the queue; admin
// posts are published and announced in the same transaction.
func (s *ModerationService) Submit(ctx context.Context, in SubmitInput) (*models.Post, error) {
	text, err := validation.CleanBody(in.Text, validation.MaxPostLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	in.Text = text
	if err := validation.Struct(in); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if len(in.Image)+len(in.Video) > maxMediaPerPost {
		return nil, models.NewValidationError("too many attachments")
	}
	for _, p := range append(append([]string{}, in.Image...), in.Video...) {
		if strings.Contains(p, "..") {
			return nil, models.NewValidationError("invalid media path")
		}
	}

	author, err := s.profiles.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID: in.UserID,
		Text:   in.Text,
		Image:  models.StringList(in.Image),
		Video:  models.StringList(in.Video),
		Status: models.PostStatusPending,
	}
	if !author.IsAdmin() {
		if err := s.posts.Create(ctx, post); err != nil {
			return nil, err
		}
		observability.PostsSubmitted.WithLabelValues(string(post.Status)).Inc()
		return post, nil
	}

	post.Status = models.PostStatusPublished
	message := PublishedMessage(post.Text)
	var recipients int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewPostRepository(tx).Create(ctx, post); err != nil {
			return err
		}
		recipients, err = s.notifications.fanOut(ctx, tx, message)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.PostsSubmitted.WithLabelValues(string(post.Status)).Inc()
	s.notifications.announce(ctx, post.ID, recipients, message)
	return post, nil
}

// Approve publishes a pending post. The conditional update makes a second
// approval a no-op, so fan-out happens once per post.
func (s *ModerationService) Approve(ctx context.Context, actorID, postID uint) (_ *ApproveResult, err error) {
	ctx, end := observability.StartSpan(ctx, "moderation.approve", attribute.Int64("post.id", int64(postID)))
	defer end(&err)

	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	var (
		post       *models.Post
		published  bool
		recipients int
		message    string
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := repository.NewPostRepository(tx)
		var err error
		published, err = posts.Publish(ctx, postID)
		if err != nil {
			return err
		}
		post, err = posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if !published {
			return nil
		}
		message = PublishedMessage(post.Text)
		recipients, err = s.notifications.fanOut(ctx, tx, message)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !published {
		observability.ModerationDecisions.WithLabelValues("approve", "noop").Inc()
		return &ApproveResult{Post: post, AlreadyPublished: true}, nil
	}

	observability.ModerationDecisions.WithLabelValues("approve", "published").Inc()
	middleware.Logger.InfoContext(ctx, "post approved", "post_id", postID, "admin_id", actorID, "recipients", recipients)
	s.notifications.announce(ctx, postID, recipients, message)
	return &ApproveResult{Post: post}, nil
}

// Reject deletes a pending post without notifying anyone.
func (s *ModerationService) Reject(ctx context.Context, actorID, postID uint) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := repository.NewPostRepository(tx)
		post, err := posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if post.IsPublished() {
			return models.NewValidationError("Published posts cannot be rejected")
		}
		deleted, err := posts.DeletePending(ctx, postID)
		if err != nil {
			return err
		}
		if !deleted {
			return models.NewNotFoundError("Post", postID)
		}
		return nil
	})
	if err != nil {
		observability.ModerationDecisions.WithLabelValues("reject", "refused").Inc()
		return err
	}

	observability.ModerationDecisions.WithLabelValues("reject", "deleted").Inc()
	middleware.Logger.InfoContext(ctx, "post rejected", "post_id", postID, "admin_id", actorID)
	return nil
}

// Queue lists pending posts oldest first with the submitter's name and email.
func (s *ModerationService) Queue(ctx context.Context, actorID uint) ([]models.PendingPost, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.posts.Pending(ctx)
}

// DeletePost removes any post with its comments, replies and likes.
func (s *ModerationService) DeletePost(ctx context.Context, actorID, postID uint) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repository.NewPostRepository(tx).Delete(ctx, postID)
	})
	if err != nil {
		return err
	}
	cache.InvalidatePostLikers(ctx, postID)
	observability.ModerationDecisions.WithLabelValues("delete", "deleted").Inc()
	middleware.Logger.InfoContext(ctx, "post deleted", "post_id", postID, "admin_id", actorID)
	return nil
}
