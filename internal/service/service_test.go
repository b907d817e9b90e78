package service

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/featureflags"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"
	"inkwell/internal/storage"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	store    *storage.DiskStorage
	pages    *cache.PageCache
	feed     *FeedService
	posts    *PostService
	comments *CommentService
	follows  *FollowService
	groups   *GroupService
	users    *UserService
}

type fixtureOption func(*PostServiceConfig)

func withNotifier(n *notifications.Notifier, flags string) fixtureOption {
	return func(c *PostServiceConfig) {
		c.Notifier = n
		c.Flags = featureflags.NewManager(flags)
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)

	postRepo := repository.NewPostRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	store := storage.NewDiskStorage(t.TempDir(), "/media/")
	pages := cache.NewPageCache(cache.NewMemoryBackend(), time.Minute)

	cfg := PostServiceConfig{
		Posts:         postRepo,
		Groups:        groupRepo,
		Store:         store,
		Pages:         pages,
		MaxImageBytes: 1024,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &fixture{
		db:       db,
		store:    store,
		pages:    pages,
		feed:     NewFeedService(postRepo, groupRepo, userRepo, followRepo, commentRepo, store, 10),
		posts:    NewPostService(cfg),
		comments: NewCommentService(commentRepo),
		follows:  NewFollowService(userRepo, followRepo),
		groups:   NewGroupService(groupRepo, userRepo, pages),
		users:    NewUserService(userRepo, pages),
	}
}

func identity(u *models.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Username: u.Username}
}

// warmIndex stores a page of the global feed and returns its key.
func (f *fixture) warmIndex(t *testing.T) cache.Key {
	t.Helper()
	k := cache.Key{Route: cache.RouteIndex, Variant: "1"}
	_, cached, err := f.pages.Fetch(context.Background(), k, func() ([]byte, error) { return []byte("stale"), nil })
	require.NoError(t, err)
	require.False(t, cached)
	_, _, hit := f.pages.Get(context.Background(), k)
	require.True(t, hit)
	return k
}

func (f *fixture) assertIndexInvalidated(t *testing.T, k cache.Key) {
	t.Helper()
	_, _, hit := f.pages.Get(context.Background(), k)
	assert.False(t, hit, "global feed should be invalidated")
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.ErrorCode(err), "unexpected error: %v", err)
}
