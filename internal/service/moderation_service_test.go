package service

import (
	"context"
	"strings"
	"testing"

	"isintu/internal/models"
	"isintu/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedIDs(t *testing.T, f *fixture) []uint {
	t.Helper()
	rows, err := f.engagement.Feed(context.Background(), 0, 50, 0)
	require.NoError(t, err)
	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}

func queueIDs(t *testing.T, f *fixture) []uint {
	t.Helper()
	rows, err := f.moderation.Queue(context.Background(), f.admin.ID)
	require.NoError(t, err)
	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestModeration_SubmitApproveRejectScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.moderation.Submit(ctx, SubmitInput{UserID: f.user.ID, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPending, post.Status)
	assert.NotContains(t, feedIDs(t, f), post.ID)
	assert.Contains(t, queueIDs(t, f), post.ID)

	queue, err := f.moderation.Queue(ctx, f.admin.ID)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "Reader", queue[0].FullName)
	assert.Equal(t, f.user.Email, queue[0].Email)

	res, err := f.moderation.Approve(ctx, f.admin.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyPublished)
	assert.Equal(t, models.PostStatusPublished, res.Post.Status)
	assert.Contains(t, feedIDs(t, f), post.ID)
	assert.NotContains(t, queueIDs(t, f), post.ID)

	for _, p := range []*models.Profile{f.admin, f.user} {
		assert.Equal(t, int64(1), f.countNotifications(t, p.ID, "hello"), "profile %d", p.ID)
	}
	assert.Equal(t, []uint{post.ID}, f.events.fanouts)

	other, err := f.moderation.Submit(ctx, SubmitInput{UserID: f.user.ID, Text: "spam"})
	require.NoError(t, err)
	require.NoError(t, f.moderation.Reject(ctx, f.admin.ID, other.ID))

	var count int64
	require.NoError(t, f.db.Model(&models.Post{}).Where("id = ?", other.ID).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, f.countNotifications(t, f.user.ID, "spam"))
}

func TestModeration_ApproveTwiceFansOutOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := testutil.CreatePost(t, f.db, f.user.ID, "twice", models.PostStatusPending)

	first, err := f.moderation.Approve(ctx, f.admin.ID, pending.ID)
	require.NoError(t, err)
	assert.False(t, first.AlreadyPublished)

	second, err := f.moderation.Approve(ctx, f.admin.ID, pending.ID)
	require.NoError(t, err)
	assert.True(t, second.AlreadyPublished)
	assert.Equal(t, models.PostStatusPublished, second.Post.Status)

	assert.Equal(t, int64(1), f.countNotifications(t, f.user.ID, "twice"))
	assert.Equal(t, int64(1), f.countNotifications(t, f.admin.ID, "twice"))
	assert.Len(t, f.events.fanouts, 1)
}

func TestModeration_ApproveMissingPost(t *testing.T) {
	f := newFixture(t)
	_, err := f.moderation.Approve(context.Background(), f.admin.ID, 777)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	assert.Empty(t, f.events.fanouts)
}

func TestModeration_AdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := testutil.CreatePost(t, f.db, f.user.ID, "mine", models.PostStatusPending)

	_, err := f.moderation.Approve(ctx, f.user.ID, pending.ID)
	assert.True(t, models.IsCode(err, models.CodeForbidden))
	assert.True(t, models.IsCode(f.moderation.Reject(ctx, f.user.ID, pending.ID), models.CodeForbidden))
	assert.True(t, models.IsCode(f.moderation.DeletePost(ctx, f.user.ID, pending.ID), models.CodeForbidden))
	_, err = f.moderation.Queue(ctx, f.user.ID)
	assert.True(t, models.IsCode(err, models.CodeForbidden))

	_, err = f.moderation.Queue(ctx, 4242)
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	var stored models.Post
	require.NoError(t, f.db.First(&stored, pending.ID).Error)
	assert.Equal(t, models.PostStatusPending, stored.Status)
}

func TestModeration_RejectPublishedRefused(t *testing.T) {
	f := newFixture(t)
	published := testutil.CreatePost(t, f.db, f.admin.ID, "live", models.PostStatusPublished)

	err := f.moderation.Reject(context.Background(), f.admin.ID, published.ID)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	err = f.moderation.Reject(context.Background(), f.admin.ID, 999)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestModeration_AdminSubmitPublishesWithFanout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.moderation.Submit(ctx, SubmitInput{
		UserID: f.admin.ID,
		Text:   "announcement",
		Image:  []string{"image/1/abc.webp"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, post.Status)
	assert.Contains(t, feedIDs(t, f), post.ID)
	assert.Equal(t, int64(1), f.countNotifications(t, f.user.ID, "announcement"))
	assert.Equal(t, int64(1), f.countNotifications(t, f.admin.ID, "announcement"))

	var stored models.Post
	require.NoError(t, f.db.First(&stored, post.ID).Error)
	assert.Equal(t, models.StringList{"image/1/abc.webp"}, stored.Image)
	assert.Equal(t, models.StringList{}, stored.Video)
}

func TestModeration_SubmitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []SubmitInput{
		{UserID: f.user.ID, Text: "  "},
		{UserID: f.user.ID, Text: strings.Repeat("x", 10001)},
		{UserID: f.user.ID, Text: "ok", Image: []string{"video/1/a.mp4"}},
		{UserID: f.user.ID, Text: "ok", Video: []string{"video/../secret"}},
	}
	for i, in := range cases {
		_, err := f.moderation.Submit(ctx, in)
		assert.True(t, models.IsCode(err, models.CodeValidation), "case %d: %v", i, err)
	}
}

func TestModeration_DeletePostRemovesEngagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := testutil.CreatePost(t, f.db, f.admin.ID, "bye", models.PostStatusPublished)

	_, err := f.engagement.ToggleLike(ctx, post.ID, f.user.ID)
	require.NoError(t, err)
	_, err = f.engagement.AddComment(ctx, post.ID, f.user.ID, "c")
	require.NoError(t, err)

	require.NoError(t, f.moderation.DeletePost(ctx, f.admin.ID, post.ID))
	assert.Zero(t, f.likeRows(t, post.ID))

	var comments int64
	require.NoError(t, f.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments).Error)
	assert.Zero(t, comments)

	err = f.moderation.DeletePost(ctx, f.admin.ID, post.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
