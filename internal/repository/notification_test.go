package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"isintu/internal/models"
	"isintu/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepository_MarkAllReadScopedToUser(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	repo := NewNotificationRepository(db)

	a := testutil.CreateProfile(t, db, "A", models.RoleUser)
	b := testutil.CreateProfile(t, db, "B", models.RoleUser)

	require.NoError(t, repo.BulkCreate(ctx, []models.Notification{
		{UserID: a.ID, Message: "1", Status: models.NotificationStatusUnread},
		{UserID: a.ID, Message: "2", Status: models.NotificationStatusUnread},
		{UserID: b.ID, Message: "3", Status: models.NotificationStatusUnread},
	}))

	changed, err := repo.MarkAllRead(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	unreadA, err := repo.CountUnread(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, unreadA)

	unreadB, err := repo.CountUnread(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unreadB)

	items, err := repo.List(ctx, a.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "2", items[0].Message)
	for _, n := range items {
		assert.Equal(t, models.NotificationStatusRead, n.Status)
	}
}

func TestNotificationRepository_PurgeRead(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	repo := NewNotificationRepository(db)
	u := testutil.CreateProfile(t, db, "U", models.RoleUser)

	old := time.Now().Add(-90 * 24 * time.Hour)
	require.NoError(t, repo.BulkCreate(ctx, []models.Notification{
		{UserID: u.ID, Message: "old read", Status: models.NotificationStatusRead, CreatedAt: old},
		{UserID: u.ID, Message: "old unread", Status: models.NotificationStatusUnread, CreatedAt: old},
		{UserID: u.ID, Message: "new read", Status: models.NotificationStatusRead},
	}))

	purged, err := repo.PurgeRead(ctx, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	var left int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&left).Error)
	assert.Equal(t, int64(2), left)
}

func TestNotificationRepository_MarkAllReadStatement(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewNotificationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "notifications" SET "status"=$1 WHERE user_id = $2 AND status = $3`)).
		WithArgs(models.NotificationStatusRead, 3, models.NotificationStatusUnread).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	n, err := repo.MarkAllRead(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_BulkCreateEmptyIsNoop(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewNotificationRepository(db)

	require.NoError(t, repo.BulkCreate(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
