package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/featureflags"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/storage"
	"inkwell/internal/validation"
)

// ImageUpload is an attachment as received from a multipart form. The
// bytes are stored as-is.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type CreatePostInput struct {
	Text    string
	GroupID *uint
	Image   *ImageUpload
}

type EditPostInput struct {
	PostID  uint
	Text    string
	GroupID *uint
	// Image replaces the current attachment when set.
	Image *ImageUpload
}

// PostService creates, edits and deletes posts. Every successful write
// invalidates the cached global feed before returning.
type PostService struct {
	posts         repository.PostRepository
	groups        repository.GroupRepository
	store         storage.Storage
	pages         *cache.PageCache
	notifier      *notifications.Notifier
	flags         *featureflags.Manager
	maxImageBytes int64
}

type PostServiceConfig struct {
	Posts         repository.PostRepository
	Groups        repository.GroupRepository
	Store         storage.Storage
	Pages         *cache.PageCache
	Notifier      *notifications.Notifier
	Flags         *featureflags.Manager
	MaxImageBytes int64
}

func NewPostService(cfg PostServiceConfig) *PostService {
	return &PostService{
		posts:         cfg.Posts,
		groups:        cfg.Groups,
		store:         cfg.Store,
		pages:         cfg.Pages,
		notifier:      cfg.Notifier,
		flags:         cfg.Flags,
		maxImageBytes: cfg.MaxImageBytes,
	}
}

// Create stores a new post authored by who.
func (s *PostService) Create(ctx context.Context, who auth.Identity, in CreatePostInput) (*models.Post, error) {
	if !who.Authenticated() {
		return nil, models.NewAuthenticationRequiredError()
	}
	text, err := validation.NormalizeText("text", in.Text, validation.MaxPostText)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	group, err := s.resolveGroup(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}

	imageKey, err := s.saveImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	post := &models.Post{Text: text, AuthorID: who.UserID, GroupID: in.GroupID, Image: imageKey}
	if err := s.posts.Create(ctx, post); err != nil {
		s.discardImage(ctx, imageKey)
		return nil, err
	}
	observability.ContentWrites.WithLabelValues("post", "create").Inc()
	s.invalidateFeeds(ctx)

	ev := notifications.PostEvent{PostID: post.ID, AuthorID: post.AuthorID, PubDate: post.PubDate}
	if group != nil {
		ev.GroupSlug = group.Slug
	}
	s.publish(ctx, ev)

	created, err := s.posts.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	attachImageURL(s.store, created)
	return created, nil
}

// GetForEdit returns the post when who may edit it.
func (s *PostService) GetForEdit(ctx context.Context, who auth.Identity, postID uint) (*models.Post, error) {
	if !who.Authenticated() {
		return nil, models.NewAuthenticationRequiredError()
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != who.UserID {
		return nil, models.NewForbiddenError("only the author can edit this post")
	}
	attachImageURL(s.store, post)
	return post, nil
}

// Edit replaces the text and group of a post, and its image when one is
// uploaded. The authorship check runs against the row read inside the
// update transaction.
func (s *PostService) Edit(ctx context.Context, who auth.Identity, in EditPostInput) (*models.Post, error) {
	if !who.Authenticated() {
		return nil, models.NewAuthenticationRequiredError()
	}
	text, err := validation.NormalizeText("text", in.Text, validation.MaxPostText)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if _, err := s.resolveGroup(ctx, in.GroupID); err != nil {
		return nil, err
	}

	newImage, err := s.saveImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	var oldImage string
	post, err := s.posts.Update(ctx, in.PostID, func(p *models.Post) error {
		if p.AuthorID != who.UserID {
			return models.NewForbiddenError("only the author can edit this post")
		}
		p.Text = text
		p.GroupID = in.GroupID
		if newImage != "" {
			oldImage, p.Image = p.Image, newImage
		}
		return nil
	})
	if err != nil {
		s.discardImage(ctx, newImage)
		return nil, err
	}
	s.discardImage(ctx, oldImage)

	observability.ContentWrites.WithLabelValues("post", "edit").Inc()
	s.invalidateFeeds(ctx)
	attachImageURL(s.store, post)
	return post, nil
}

// Delete removes an author's post together with its comments.
func (s *PostService) Delete(ctx context.Context, who auth.Identity, postID uint) error {
	if !who.Authenticated() {
		return models.NewAuthenticationRequiredError()
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != who.UserID {
		return models.NewForbiddenError("only the author can delete this post")
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}
	s.discardImage(ctx, post.Image)

	observability.ContentWrites.WithLabelValues("post", "delete").Inc()
	s.invalidateFeeds(ctx)
	return nil
}

func (s *PostService) resolveGroup(ctx context.Context, id *uint) (*models.Group, error) {
	if id == nil {
		return nil, nil
	}
	group, err := s.groups.GetByID(ctx, *id)
	if models.IsCode(err, models.CodeNotFound) {
		return nil, models.NewValidationError(fmt.Sprintf("group %d does not exist", *id))
	}
	return group, err
}

func (s *PostService) saveImage(ctx context.Context, img *ImageUpload) (string, error) {
	if img == nil || img.Body == nil {
		return "", nil
	}
	if s.store == nil {
		return "", models.NewValidationError("image uploads are disabled")
	}
	if s.maxImageBytes > 0 && img.Size > s.maxImageBytes {
		return "", models.NewValidationError(fmt.Sprintf("image must be at most %d bytes", s.maxImageBytes))
	}
	key := storage.NewImageKey(img.Filename)
	if err := s.store.Save(ctx, key, img.Body, img.ContentType); err != nil {
		return "", models.NewInternalError(err)
	}
	return key, nil
}

func (s *PostService) discardImage(ctx context.Context, key string) {
	if key == "" || s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to delete image",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *PostService) invalidateFeeds(ctx context.Context) {
	invalidateIndex(ctx, s.pages)
}

func (s *PostService) publish(ctx context.Context, ev notifications.PostEvent) {
	if !s.notifier.Enabled() || !s.flags.Enabled(featureflags.LiveFeed, 0) {
		return
	}
	if err := s.notifier.PublishPostCreated(ctx, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish post event",
			slog.Uint64("post_id", uint64(ev.PostID)), slog.String("error", err.Error()))
	}
}

// invalidateIndex drops every cached page of the global feed. A backend
// failure is logged; stale pages then live until their TTL.
func invalidateIndex(ctx context.Context, pages *cache.PageCache) {
	if err := pages.Invalidate(ctx, cache.RouteIndex); err != nil {
		middleware.Logger.ErrorContext(ctx, "page cache invalidation failed",
			slog.String("route", cache.RouteIndex), slog.String("error", err.Error()))
	}
}
