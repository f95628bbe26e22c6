package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"isintu/internal/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	channel string
	payload string
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, "x"))
	assert.NoError(t, n.PublishFanout(context.Background(), 1, 3, "m"))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.PublishMarkRead(context.Background(), 1))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "notifications:user:1", UserChannel(1))
	assert.Equal(t, "notifications:user:100", UserChannel(100))
}

func TestNotifier_SubscriberReceivesEvents(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan received, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		got <- received{channel, payload}
	}))

	require.NoError(t, n.PublishFanout(context.Background(), 42, 3, "New post published: hello"))

	select {
	case msg := <-got:
		assert.Equal(t, BroadcastChannel, msg.channel)
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.payload), &ev))
		assert.Equal(t, EventFanout, ev.Type)
		assert.Equal(t, uint(42), ev.PostID)
		assert.Equal(t, 3, ev.Recipients)
	case <-time.After(time.Second):
		t.Fatal("fan-out event not received")
	}

	require.NoError(t, n.PublishMarkRead(context.Background(), 7))
	select {
	case msg := <-got:
		assert.Equal(t, UserChannel(7), msg.channel)
	case <-time.After(time.Second):
		t.Fatal("mark-read event not received")
	}
}

func TestCacheInvalidator(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	defer func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	}()

	ctx := context.Background()
	require.NoError(t, mr.Set(cache.UnreadCountKey(1), "4"))
	require.NoError(t, mr.Set(cache.UnreadCountKey(2), "9"))

	onMessage := CacheInvalidator(ctx)

	onMessage(UserChannel(1), `{"type":"notification.read","user_id":1}`)
	assert.False(t, mr.Exists(cache.UnreadCountKey(1)))
	assert.True(t, mr.Exists(cache.UnreadCountKey(2)))

	onMessage(BroadcastChannel, "not json")
	assert.True(t, mr.Exists(cache.UnreadCountKey(2)))

	onMessage(BroadcastChannel, `{"type":"notification.fanout","post_id":3}`)
	assert.False(t, mr.Exists(cache.UnreadCountKey(2)))
}
