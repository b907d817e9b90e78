package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upload(body string) *ImageUpload {
	return &ImageUpload{Filename: "pic.png", ContentType: "image/png", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestPostService_CreateRequiresAuthentication(t *testing.T) {
	f := newFixture(t)

	_, err := f.posts.Create(context.Background(), auth.Anonymous, CreatePostInput{Text: "hi"})
	assertCode(t, err, models.CodeAuthentication)
	assert.Zero(t, testutil.Count(t, f.db, &models.Post{}, ""))
}

func TestPostService_CreateValidates(t *testing.T) {
	f := newFixture(t)
	leo := testutil.CreateUser(t, f.db, "leo")
	missing := uint(404)

	_, err := f.posts.Create(context.Background(), identity(leo), CreatePostInput{Text: "   "})
	assertCode(t, err, models.CodeValidation)

	_, err = f.posts.Create(context.Background(), identity(leo), CreatePostInput{Text: "x", GroupID: &missing})
	assertCode(t, err, models.CodeValidation)

	_, err = f.posts.Create(context.Background(), identity(leo), CreatePostInput{Text: "x", Image: upload(strings.Repeat("a", 2048))})
	assertCode(t, err, models.CodeValidation)

	assert.Zero(t, testutil.Count(t, f.db, &models.Post{}, ""))
}

func TestPostService_CreateInvalidatesIndex(t *testing.T) {
	f := newFixture(t)
	leo := testutil.CreateUser(t, f.db, "leo")
	cats := testutil.CreateGroup(t, f.db, "cats")
	k := f.warmIndex(t)

	post, err := f.posts.Create(context.Background(), identity(leo), CreatePostInput{Text: "  hello  ", GroupID: &cats.ID})
	require.NoError(t, err)
	assert.Equal(t, "hello", post.Text)
	assert.Equal(t, "leo", post.Author.Username)
	require.NotNil(t, post.Group)
	assert.Equal(t, "cats", post.Group.Slug)
	assert.False(t, post.PubDate.IsZero())

	f.assertIndexInvalidated(t, k)

	page, err := f.feed.ListGlobal(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, post.ID, page.Items[0].ID)
}

func TestPostService_CreateWithImage(t *testing.T) {
	f := newFixture(t)
	leo := testutil.CreateUser(t, f.db, "leo")

	post, err := f.posts.Create(context.Background(), identity(leo), CreatePostInput{Text: "pic", Image: upload("PNGDATA")})
	require.NoError(t, err)
	require.NotEmpty(t, post.Image)
	assert.True(t, strings.HasPrefix(post.Image, "posts/"))
	assert.Equal(t, "/media/"+post.Image, post.ImageURL)

	data, err := os.ReadFile(filepath.Join(f.store.Root, filepath.FromSlash(post.Image)))
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(data))
}

func TestPostService_Edit(t *testing.T) {
	f := newFixture(t)
	leo := testutil.CreateUser(t, f.db, "leo")
	ann := testutil.CreateUser(t, f.db, "ann")
	cats := testutil.CreateGroup(t, f.db, "cats")
	post := testutil.CreatePost(t, f.db, leo, cats, "original")
	ctx := context.Background()

	_, err := f.posts.Edit(ctx, auth.Anonymous, EditPostInput{PostID: post.ID, Text: "x"})
	assertCode(t, err, models.CodeAuthentication)

	_, err = f.posts.Edit(ctx, identity(ann), EditPostInput{PostID: post.ID, Text: "hijacked"})
	assertCode(t, err, models.CodeForbidden)

	_, err = f.posts.GetForEdit(ctx, identity(ann), post.ID)
	assertCode(t, err, models.CodeForbidden)

	k := f.warmIndex(t)
	edited, err := f.posts.Edit(ctx, identity(leo), EditPostInput{PostID: post.ID, Text: "revised"})
	require.NoError(t, err)
	assert.Equal(t, "revised", edited.Text)
	assert.Nil(t, edited.GroupID, "omitting the group clears it")
	assert.True(t, post.PubDate.Equal(edited.PubDate), "pub_date is immutable")
	f.assertIndexInvalidated(t, k)

	_, err = f.posts.Edit(ctx, identity(leo), EditPostInput{PostID: 9999, Text: "x"})
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_EditReplacesImage(t *testing.T) {
	f := newFixture(t)
	leo := testutil.CreateUser(t, f.db, "leo")
	ann := testutil.CreateUser(t, f.db, "ann")
	ctx := context.Background()

	post, err := f.posts.Create(ctx, identity(leo), CreatePostInput{Text: "pic", Image: upload("one")})
	require.NoError(t, err)
	oldPath := filepath.Join(f.store.Root, filepath.FromSlash(post.Image))

	_, err = f.posts.Edit(ctx, identity(ann), EditPostInput{PostID: post.ID, Text: "x", Image: upload("evil")})
	assertCode(t, err, models.CodeForbidden)
	entries, err := os.ReadDir(filepath.Join(f.store.Root, "posts"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "rejected upload is removed")

	edited, err := f.posts.Edit(ctx, identity(leo), EditPostInput{PostID: post.ID, Text: "pic", Image: upload("two")})
	require.NoError(t, err)
	assert.NotEqual(t, post.Image, edited.Image)
	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err), "old image is removed")
}

func TestPostService_Delete(t *testing.T) {
	f := newFixture(t)
	leo := testutil.CreateUser(t, f.db, "leo")
	ann := testutil.CreateUser(t, f.db, "ann")
	post := testutil.CreatePost(t, f.db, leo, nil, "bye")
	testutil.CreateComment(t, f.db, post, ann, "nice")
	ctx := context.Background()

	assertCode(t, f.posts.Delete(ctx, identity(ann), post.ID), models.CodeForbidden)
	assertCode(t, f.posts.Delete(ctx, auth.Anonymous, post.ID), models.CodeAuthentication)

	k := f.warmIndex(t)
	require.NoError(t, f.posts.Delete(ctx, identity(leo), post.ID))
	f.assertIndexInvalidated(t, k)
	assert.Zero(t, testutil.Count(t, f.db, &models.Post{}, ""))
	assert.Zero(t, testutil.Count(t, f.db, &models.Comment{}, ""))

	assertCode(t, f.posts.Delete(ctx, identity(leo), post.ID), models.CodeNotFound)
}

func TestPostService_PublishesWhenLiveFeedEnabled(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	notifier := notifications.NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan string, 1)
	require.NoError(t, notifier.Subscribe(ctx, func(p string) { got <- p }))

	f := newFixture(t, withNotifier(notifier, "live_feed=on"))
	leo := testutil.CreateUser(t, f.db, "leo")
	cats := testutil.CreateGroup(t, f.db, "cats")

	post, err := f.posts.Create(ctx, identity(leo), CreatePostInput{Text: "news", GroupID: &cats.ID})
	require.NoError(t, err)

	select {
	case payload := <-got:
		var ev notifications.PostEvent
		require.NoError(t, json.Unmarshal([]byte(payload), &ev))
		assert.Equal(t, notifications.EventPostCreated, ev.Type)
		assert.Equal(t, post.ID, ev.PostID)
		assert.Equal(t, leo.ID, ev.AuthorID)
		assert.Equal(t, "cats", ev.GroupSlug)
	case <-time.After(2 * time.Second):
		t.Fatal("post_created not published")
	}
}

func TestPostService_NoPublishWhenFlagOff(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	notifier := notifications.NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan string, 1)
	require.NoError(t, notifier.Subscribe(ctx, func(p string) { got <- p }))

	f := newFixture(t, withNotifier(notifier, "live_feed=off"))
	leo := testutil.CreateUser(t, f.db, "leo")
	_, err := f.posts.Create(ctx, identity(leo), CreatePostInput{Text: "quiet"})
	require.NoError(t, err)

	select {
	case <-got:
		t.Fatal("event published with live_feed off")
	case <-time.After(100 * time.Millisecond):
	}
}
