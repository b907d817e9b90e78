// Package service holds the read and write operations behind the HTTP routes.
package service

import (
	"context"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/storage"
)

// GroupFeed is one page of a group's posts.
type GroupFeed struct {
	Group *models.Group            `json:"group"`
	Posts models.Page[models.Post] `json:"posts"`
}

// ProfileFeed is one page of an author's posts plus the profile header.
type ProfileFeed struct {
	Author    *models.User             `json:"author"`
	PostCount int64                    `json:"post_count"`
	Followers int64                    `json:"followers"`
	Following bool                     `json:"following"`
	Posts     models.Page[models.Post] `json:"posts"`
}

// PostDetail is a post with its comments, oldest first.
type PostDetail struct {
	Post            *models.Post     `json:"post"`
	AuthorPostCount int64            `json:"author_post_count"`
	Comments        []models.Comment `json:"comments"`
}

// FeedService serves the paginated listings. Every list is newest first.
type FeedService struct {
	posts    repository.PostRepository
	groups   repository.GroupRepository
	users    repository.UserRepository
	follows  repository.FollowRepository
	comments repository.CommentRepository
	store    storage.Storage
	perPage  int
}

func NewFeedService(
	posts repository.PostRepository,
	groups repository.GroupRepository,
	users repository.UserRepository,
	follows repository.FollowRepository,
	comments repository.CommentRepository,
	store storage.Storage,
	perPage int,
) *FeedService {
	if perPage < 1 {
		perPage = 10
	}
	return &FeedService{
		posts:    posts,
		groups:   groups,
		users:    users,
		follows:  follows,
		comments: comments,
		store:    store,
		perPage:  perPage,
	}
}

// PerPage returns the configured page size.
func (s *FeedService) PerPage() int {
	return s.perPage
}

type listFunc func(limit, offset int) ([]models.Post, int64, error)

func (s *FeedService) paginate(page int, list listFunc) (models.Page[models.Post], error) {
	page = models.ClampPage(page)
	items, total, err := list(s.perPage, models.Offset(page, s.perPage))
	if err != nil {
		return models.Page[models.Post]{}, err
	}
	for i := range items {
		attachImageURL(s.store, &items[i])
	}
	return models.NewPage(items, total, page, s.perPage), nil
}

// ListGlobal returns one page of every post.
func (s *FeedService) ListGlobal(ctx context.Context, page int) (models.Page[models.Post], error) {
	return s.paginate(page, func(limit, offset int) ([]models.Post, int64, error) {
		return s.posts.List(ctx, limit, offset)
	})
}

// ListGroup returns one page of the group's posts.
func (s *FeedService) ListGroup(ctx context.Context, slug string, page int) (*GroupFeed, error) {
	group, err := s.groups.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	posts, err := s.paginate(page, func(limit, offset int) ([]models.Post, int64, error) {
		return s.posts.ListByGroup(ctx, group.ID, limit, offset)
	})
	if err != nil {
		return nil, err
	}
	return &GroupFeed{Group: group, Posts: posts}, nil
}

// ListProfile returns one page of the author's posts. Following is only
// ever true for a signed-in viewer.
func (s *FeedService) ListProfile(ctx context.Context, viewer auth.Identity, username string, page int) (*ProfileFeed, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	posts, err := s.paginate(page, func(limit, offset int) ([]models.Post, int64, error) {
		return s.posts.ListByAuthor(ctx, author.ID, limit, offset)
	})
	if err != nil {
		return nil, err
	}
	followers, err := s.follows.CountFollowers(ctx, author.ID)
	if err != nil {
		return nil, err
	}

	feed := &ProfileFeed{
		Author:    author,
		PostCount: posts.Total,
		Followers: followers,
		Posts:     posts,
	}
	if viewer.Authenticated() && viewer.UserID != author.ID {
		if feed.Following, err = s.follows.Exists(ctx, viewer.UserID, author.ID); err != nil {
			return nil, err
		}
	}
	return feed, nil
}

// ListFollow returns posts by the authors the viewer follows.
func (s *FeedService) ListFollow(ctx context.Context, viewer auth.Identity, page int) (models.Page[models.Post], error) {
	if !viewer.Authenticated() {
		return models.Page[models.Post]{}, models.NewAuthenticationRequiredError()
	}
	return s.paginate(page, func(limit, offset int) ([]models.Post, int64, error) {
		return s.posts.ListFollowed(ctx, viewer.UserID, limit, offset)
	})
}

// GetPost returns the post, its comments and the author's post count.
func (s *FeedService) GetPost(ctx context.Context, id uint) (*PostDetail, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, id)
	if err != nil {
		return nil, err
	}
	authorPosts, err := s.posts.CountByAuthor(ctx, post.AuthorID)
	if err != nil {
		return nil, err
	}

	attachImageURL(s.store, post)
	post.CommentsCount = int64(len(comments))
	return &PostDetail{Post: post, AuthorPostCount: authorPosts, Comments: comments}, nil
}

func attachImageURL(store storage.Storage, p *models.Post) {
	if store != nil && p.Image != "" {
		p.ImageURL = store.URL(p.Image)
	}
}
