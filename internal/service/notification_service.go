package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"isintu/internal/cache"
	"isintu/internal/middleware"
	"isintu/internal/models"
	"isintu/internal/observability"
	"isintu/internal/repository"

	"gorm.io/gorm"
)

const (
	notificationPreviewRunes = 140
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
)

// EventPublisher announces committed notification writes to other instances.
type EventPublisher interface {
	PublishFanout(ctx context.Context, postID uint, recipients int, message string) error
	PublishMarkRead(ctx context.Context, userID uint) error
}

type NotificationService struct {
	db     *gorm.DB
	events EventPublisher
}

func NewNotificationService(db *gorm.DB, events EventPublisher) *NotificationService {
	return &NotificationService{db: db, events: events}
}

// PublishedMessage is the notification text for a newly published post.
func PublishedMessage(text string) string {
	if utf8.RuneCountInString(text) > notificationPreviewRunes {
		r := []rune(text)
		text = string(r[:notificationPreviewRunes]) + "…"
	}
	return "New post published: " + text
}

// NotifyAllUsers records one unread notification per profile and returns
// how many were written.
func (s *NotificationService) NotifyAllUsers(ctx context.Context, message string) (int, error) {
	var n int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		n, err = s.fanOut(ctx, tx, message)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.announce(ctx, 0, n, message)
	return n, nil
}

// fanOut writes the rows through tx so the caller's publish and the
// notifications commit or roll back together.
func (s *NotificationService) fanOut(ctx context.Context, tx *gorm.DB, message string) (int, error) {
	ids, err := repository.NewProfileRepository(tx).ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	rows := make([]models.Notification, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.Notification{
			UserID:  id,
			Message: message,
			Status:  models.NotificationStatusUnread,
		})
	}
	if err := repository.NewNotificationRepository(tx).BulkCreate(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// announce runs after commit. Failures only cost cache freshness elsewhere.
func (s *NotificationService) announce(ctx context.Context, postID uint, recipients int, message string) {
	observability.NotificationsFannedOut.Add(float64(recipients))
	cache.InvalidateAllUnreadCounts(ctx)
	if s.events == nil {
		return
	}
	if err := s.events.PublishFanout(ctx, postID, recipients, message); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish fan-out event", "post_id", postID, "error", err)
	}
}

// MarkRead flips every unread notification of userID and returns the count.
func (s *NotificationService) MarkRead(ctx context.Context, userID uint) (int64, error) {
	n, err := repository.NewNotificationRepository(s.db).MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	cache.InvalidateUnreadCounts(ctx, userID)
	if n > 0 && s.events != nil {
		if err := s.events.PublishMarkRead(ctx, userID); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish mark-read event", "user_id", userID, "error", err)
		}
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID uint, limit, offset int) (*models.NotificationPage, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	if offset < 0 {
		offset = 0
	}

	repo := repository.NewNotificationRepository(s.db)
	items, err := repo.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	unread, err := cache.Aside(ctx, cache.UnreadCountKey(userID), cache.UnreadCountTTL, func() (int64, error) {
		return repo.CountUnread(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return &models.NotificationPage{Items: items, UnreadCount: unread}, nil
}

// PurgeRead deletes read notifications older than retention.
func (s *NotificationService) PurgeRead(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %s", retention)
	}
	n, err := repository.NewNotificationRepository(s.db).PurgeRead(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	observability.NotificationsPurged.Add(float64(n))
	return n, nil
}
