// Package seed loads group fixtures and generates demo content for development.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// Options configures a demo seeding run.
type Options struct {
	Groups          []GroupFixture
	Users           int
	PostsPerUser    int
	CommentsPerPost int
	FollowsPerUser  int
	Seed            int64
	SkipBcrypt      bool
	// Clean removes all content before seeding.
	Clean bool
}

// Result counts what a run created.
type Result struct {
	Groups   int
	Users    int
	Posts    int
	Comments int
	Follows  int
}

// Run seeds groups, then users with posts, comments and follow edges.
func Run(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	db = db.WithContext(ctx)
	res := &Result{}

	if opts.Clean {
		if err := Clean(db); err != nil {
			return nil, err
		}
	}

	fixtures := opts.Groups
	if fixtures == nil {
		fixtures = DefaultGroups
	}
	groups, err := Groups(db, fixtures)
	if err != nil {
		return nil, err
	}
	res.Groups = len(groups)

	if opts.Users <= 0 {
		return res, nil
	}

	f, err := NewFactory(db, opts.Seed, opts.SkipBcrypt)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	res.Users = len(users)

	var posts []*models.Post
	for _, u := range users {
		for i := 0; i < opts.PostsPerUser; i++ {
			var group *models.Group
			// roughly a third of the posts stay outside any group
			if len(groups) > 0 && f.Pick(3) > 0 {
				group = &groups[f.Pick(len(groups))]
			}
			p, err := f.CreatePost(u, group)
			if err != nil {
				return nil, fmt.Errorf("create post: %w", err)
			}
			posts = append(posts, p)
		}
	}
	res.Posts = len(posts)

	for _, p := range posts {
		for i := 0; i < opts.CommentsPerPost; i++ {
			if _, err := f.CreateComment(p, users[f.Pick(len(users))]); err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			res.Comments++
		}
	}

	for idx, u := range users {
		want := min(opts.FollowsPerUser, len(users)-1)
		// walk forward from the user so edges are distinct and never self-directed
		for step := 1; step <= want; step++ {
			author := users[(idx+step)%len(users)]
			edge := &models.Follow{UserID: u.ID, AuthorID: author.ID}
			if err := db.Omit("User", "Author").Create(edge).Error; err != nil {
				return nil, fmt.Errorf("create follow: %w", err)
			}
			res.Follows++
		}
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		slog.Int("groups", res.Groups),
		slog.Int("users", res.Users),
		slog.Int("posts", res.Posts),
		slog.Int("comments", res.Comments),
		slog.Int("follows", res.Follows),
	)
	return res, nil
}

// Clean deletes all content rows, dependents first.
func Clean(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&models.Comment{}, &models.Follow{}, &models.Post{}, &models.Group{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("clean %T: %w", m, err)
			}
		}
		return nil
	})
}
