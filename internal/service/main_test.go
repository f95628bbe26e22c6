package service

import (
	"context"
	"sync"
	"testing"

	"isintu/internal/models"
	"isintu/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// eventRecorder is a stub for EventPublisher.
type eventRecorder struct {
	mu       sync.Mutex
	fanouts  []uint
	markRead []uint
	err      error
}

func (r *eventRecorder) PublishFanout(_ context.Context, postID uint, _ int, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fanouts = append(r.fanouts, postID)
	return r.err
}

func (r *eventRecorder) PublishMarkRead(_ context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markRead = append(r.markRead, userID)
	return r.err
}

type fixture struct {
	db            *gorm.DB
	events        *eventRecorder
	notifications *NotificationService
	moderation    *ModerationService
	engagement    *EngagementService
	admin         *models.Profile
	user          *models.Profile
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	events := &eventRecorder{}
	notifications := NewNotificationService(db, events)
	return &fixture{
		db:            db,
		events:        events,
		notifications: notifications,
		moderation:    NewModerationService(db, notifications),
		engagement:    NewEngagementService(db),
		admin:         testutil.CreateProfile(t, db, "Admin", models.RoleAdmin),
		user:          testutil.CreateProfile(t, db, "Reader", models.RoleUser),
	}
}

func (f *fixture) countNotifications(t *testing.T, userID uint, contains string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Notification{}).
		Where("user_id = ? AND message LIKE ?", userID, "%"+contains+"%").
		Count(&n).Error)
	return n
}

func (f *fixture) likeRows(t *testing.T, postID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&n).Error)
	return n
}
