// Package notifications publishes domain events over Redis pub/sub so every
// API instance can react to writes made by another one. Clients still poll
// the notifications table; nothing here pushes to browsers.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"isintu/internal/cache"
	"isintu/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	// BroadcastChannel carries events that concern every profile.
	BroadcastChannel = "notifications:broadcast"
	userChannelPrefix = "notifications:user:"
)

// Event types published by the services.
const (
	EventFanout   = "notification.fanout"
	EventMarkRead = "notification.read"
)

// Event is the JSON payload written to the channels.
type Event struct {
	Type       string    `json:"type"`
	PostID     uint      `json:"post_id,omitempty"`
	UserID     uint      `json:"user_id,omitempty"`
	Recipients int       `json:"recipients,omitempty"`
	Message    string    `json:"message,omitempty"`
	At         time.Time `json:"at"`
}

// Notifier provides helpers to publish notification events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends a payload to every instance.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, BroadcastChannel, payload).Err()
}

// PublishFanout announces that a post's notifications were recorded.
func (n *Notifier) PublishFanout(ctx context.Context, postID uint, recipients int, message string) error {
	payload, err := encode(Event{
		Type:       EventFanout,
		PostID:     postID,
		Recipients: recipients,
		Message:    message,
		At:         time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return n.PublishBroadcast(ctx, payload)
}

// PublishMarkRead announces that userID read their notifications.
func (n *Notifier) PublishMarkRead(ctx context.Context, userID uint) error {
	payload, err := encode(Event{Type: EventMarkRead, UserID: userID, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	return n.PublishUser(ctx, userID, payload)
}

func encode(ev Event) (string, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	return string(b), nil
}

// StartPatternSubscriber subscribes to every user channel and the broadcast
// channel and calls onMessage for each incoming message until ctx is done.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", BroadcastChannel)
	// Wait for the subscription so publishes right after start are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// CacheInvalidator returns a subscriber callback that drops cached unread
// counts affected by an event published on another instance.
func CacheInvalidator(ctx context.Context) func(channel, payload string) {
	return func(channel, payload string) {
		var ev Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			middleware.Logger.Warn("dropping malformed notification event",
				"channel", channel, "error", err)
			return
		}
		switch {
		case channel == BroadcastChannel && ev.Type == EventFanout:
			cache.InvalidateAllUnreadCounts(ctx)
		case strings.HasPrefix(channel, userChannelPrefix):
			if id, err := strconv.ParseUint(strings.TrimPrefix(channel, userChannelPrefix), 10, 64); err == nil {
				cache.InvalidateUnreadCounts(ctx, uint(id))
			}
		}
	}
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}
