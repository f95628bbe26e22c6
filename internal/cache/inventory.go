package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ProfileKeyPrefix     = "profile:%d"
	PostLikersKeyPrefix  = "post:%d:likers"
	UnreadCountKeyPrefix = "notifications:%d:unread"
	FollowersKeyPrefix   = "profile:%d:followers"
)

const (
	ProfileTTL     = 5 * time.Minute
	PostLikersTTL  = 2 * time.Minute
	UnreadCountTTL = time.Minute
	FollowersTTL   = 2 * time.Minute
)

func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func PostLikersKey(postID uint) string {
	return fmt.Sprintf(PostLikersKeyPrefix, postID)
}

func UnreadCountKey(userID uint) string {
	return fmt.Sprintf(UnreadCountKeyPrefix, userID)
}

func FollowersKey(userID uint) string {
	return fmt.Sprintf(FollowersKeyPrefix, userID)
}

// Invalidate deletes keys. It is a no-op without Redis.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

func InvalidateProfile(ctx context.Context, userID uint) {
	Invalidate(ctx, ProfileKey(userID))
}

func InvalidatePostLikers(ctx context.Context, postID uint) {
	Invalidate(ctx, PostLikersKey(postID))
}

func InvalidateFollowers(ctx context.Context, userID uint) {
	Invalidate(ctx, FollowersKey(userID))
}

// InvalidateUnreadCounts drops the cached unread totals for every listed user.
func InvalidateUnreadCounts(ctx context.Context, userIDs ...uint) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, UnreadCountKey(id))
	}
	Invalidate(ctx, keys...)
}

// InvalidateAllUnreadCounts drops every cached unread total by key scan.
func InvalidateAllUnreadCounts(ctx context.Context) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, "notifications:*:unread", 500).Iterator()
	batch := make([]string, 0, 500)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			client.Del(ctx, batch...)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		client.Del(ctx, batch...)
	}
}
