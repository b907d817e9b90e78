// Package notifications fans post events out to live feed WebSocket clients through Redis.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"inkwell/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// PostsChannel carries post lifecycle events between instances.
const PostsChannel = "events:posts"

// EventPostCreated is the type of the event published after a post is stored.
const EventPostCreated = "post_created"

// PostEvent is the JSON payload published on PostsChannel.
type PostEvent struct {
	Type      string    `json:"type"`
	PostID    uint      `json:"post_id"`
	AuthorID  uint      `json:"author_id"`
	GroupSlug string    `json:"group_slug,omitempty"`
	PubDate   time.Time `json:"pub_date"`
}

// Notifier publishes events into Redis. A nil client turns every call into a no-op.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events actually leave the process.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishPostCreated announces a new post.
func (n *Notifier) PublishPostCreated(ctx context.Context, ev PostEvent) error {
	if !n.Enabled() {
		return nil
	}
	ev.Type = EventPostCreated
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, PostsChannel, string(payload)).Err()
}

// Subscribe listens on PostsChannel until ctx is done and calls onMessage for
// each payload. The subscription is confirmed before Subscribe returns.
func (n *Notifier) Subscribe(ctx context.Context, onMessage func(payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, PostsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", PostsChannel, err)
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
							middleware.Logger.Error("panic in posts subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
