package service

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"isintu/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishedMessage(t *testing.T) {
	assert.Equal(t, "New post published: hello", PublishedMessage("hello"))

	long := PublishedMessage(strings.Repeat("ü", 200))
	body := strings.TrimPrefix(long, "New post published: ")
	assert.Equal(t, notificationPreviewRunes+1, utf8.RuneCountInString(body))
	assert.True(t, strings.HasSuffix(body, "…"))
}

func TestNotifyAllUsers_OneRowPerProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.notifications.NotifyAllUsers(ctx, "maintenance tonight")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(1), f.countNotifications(t, f.admin.ID, "maintenance"))
	assert.Equal(t, int64(1), f.countNotifications(t, f.user.ID, "maintenance"))
	assert.Equal(t, []uint{0}, f.events.fanouts)
}

func TestMarkRead_OnlyTargetUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.notifications.NotifyAllUsers(ctx, "one")
	require.NoError(t, err)
	_, err = f.notifications.NotifyAllUsers(ctx, "two")
	require.NoError(t, err)

	changed, err := f.notifications.MarkRead(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)
	assert.Equal(t, []uint{f.user.ID}, f.events.markRead)

	page, err := f.notifications.List(ctx, f.user.ID, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, page.UnreadCount)
	require.Len(t, page.Items, 2)
	for _, n := range page.Items {
		assert.Equal(t, models.NotificationStatusRead, n.Status)
	}

	adminPage, err := f.notifications.List(ctx, f.admin.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), adminPage.UnreadCount)

	changed, err = f.notifications.MarkRead(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, changed)
	assert.Len(t, f.events.markRead, 1)
}

func TestList_ClampsPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.notifications.NotifyAllUsers(ctx, "n")
		require.NoError(t, err)
	}

	page, err := f.notifications.List(ctx, f.user.ID, 0, -5)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, int64(3), page.UnreadCount)

	page, err = f.notifications.List(ctx, f.user.ID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestPurgeRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := time.Now().Add(-60 * 24 * time.Hour)
	require.NoError(t, f.db.Create(&[]models.Notification{
		{UserID: f.user.ID, Message: "old", Status: models.NotificationStatusRead, CreatedAt: old},
		{UserID: f.user.ID, Message: "fresh", Status: models.NotificationStatusRead},
	}).Error)

	n, err := f.notifications.PurgeRead(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.notifications.PurgeRead(ctx, 0)
	assert.Error(t, err)
}
