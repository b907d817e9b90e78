package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishPostCreated(context.Background(), PostEvent{PostID: 1}))
	assert.NoError(t, n.Subscribe(context.Background(), func(string) { t.Fatal("unexpected message") }))
}

func TestNotifier_PublishAndSubscribe(t *testing.T) {
	n := NewNotifier(newTestRedis(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := make(chan string, 1)
	require.NoError(t, n.Subscribe(ctx, func(p string) { payloads <- p }))

	pub := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, n.PublishPostCreated(ctx, PostEvent{PostID: 7, AuthorID: 3, GroupSlug: "cats", PubDate: pub}))

	select {
	case p := <-payloads:
		var ev PostEvent
		require.NoError(t, json.Unmarshal([]byte(p), &ev))
		assert.Equal(t, EventPostCreated, ev.Type)
		assert.Equal(t, uint(7), ev.PostID)
		assert.Equal(t, uint(3), ev.AuthorID)
		assert.Equal(t, "cats", ev.GroupSlug)
		assert.True(t, pub.Equal(ev.PubDate))
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestNotifier_SubscriberSurvivesPanic(t *testing.T) {
	n := NewNotifier(newTestRedis(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 2)
	require.NoError(t, n.Subscribe(ctx, func(p string) {
		got <- p
		panic("boom")
	}))

	require.NoError(t, n.PublishPostCreated(ctx, PostEvent{PostID: 1}))
	require.NoError(t, n.PublishPostCreated(ctx, PostEvent{PostID: 2}))

	for i := 0; i < 2; i++ {
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatalf("message %d not delivered", i+1)
		}
	}
}
