package repository

import (
	"context"
	"time"

	"isintu/internal/models"
	"isintu/internal/observability"

	"gorm.io/gorm"
)

const notificationBatchSize = 500

// NotificationRepository defines the interface for notification rows
type NotificationRepository interface {
	BulkCreate(ctx context.Context, notifications []models.Notification) error
	List(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	PurgeRead(ctx context.Context, before time.Time) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository returns a NotificationRepository bound to db, which may be a transaction.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// BulkCreate inserts the rows in batches.
func (r *notificationRepository) BulkCreate(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	defer observability.TrackQuery("insert", "notifications")()
	if err := r.db.WithContext(ctx).CreateInBatches(notifications, notificationBatchSize).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// List returns a user's notifications newest first.
func (r *notificationRepository) List(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error) {
	defer observability.TrackQuery("select", "notifications")()
	rows := []models.Notification{}
	err := readDB(r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	defer observability.TrackQuery("count", "notifications")()
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND status = ?", userID, models.NotificationStatusUnread).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// MarkAllRead flips every unread row of the user in one statement and
// returns how many changed.
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	defer observability.TrackQuery("update", "notifications")()
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND status = ?", userID, models.NotificationStatusUnread).
		Update("status", models.NotificationStatusRead)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

// PurgeRead deletes read notifications created before the cutoff.
func (r *notificationRepository) PurgeRead(ctx context.Context, before time.Time) (int64, error) {
	defer observability.TrackQuery("delete", "notifications")()
	res := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.NotificationStatusRead, before).
		Delete(&models.Notification{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
