package service

import (
	"context"
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

type CreateGroupInput struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// GroupService manages groups. Writes are restricted to administrators.
type GroupService struct {
	groups repository.GroupRepository
	users  repository.UserRepository
	pages  *cache.PageCache
}

func NewGroupService(groups repository.GroupRepository, users repository.UserRepository, pages *cache.PageCache) *GroupService {
	return &GroupService{groups: groups, users: users, pages: pages}
}

func (s *GroupService) List(ctx context.Context) ([]models.Group, error) {
	return s.groups.List(ctx)
}

// Create adds a group. The slug must be unique.
func (s *GroupService) Create(ctx context.Context, who auth.Identity, in CreateGroupInput) (*models.Group, error) {
	if err := requireAdmin(ctx, s.users, who); err != nil {
		return nil, err
	}
	return s.CreateUnchecked(ctx, in)
}

// CreateUnchecked validates and stores a group without an authorization check.
// Used by the seeder.
func (s *GroupService) CreateUnchecked(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	title := strings.TrimSpace(in.Title)
	slug := strings.TrimSpace(in.Slug)
	if err := validation.ValidateGroupTitle(title); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateGroupSlug(slug); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	group := &models.Group{Title: title, Slug: slug, Description: strings.TrimSpace(in.Description)}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, err
	}
	observability.ContentWrites.WithLabelValues("group", "create").Inc()
	return group, nil
}

// Delete removes the group and detaches its posts, which stay in the global feed.
func (s *GroupService) Delete(ctx context.Context, who auth.Identity, id uint) (int64, error) {
	if err := requireAdmin(ctx, s.users, who); err != nil {
		return 0, err
	}
	detached, err := s.groups.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	observability.ContentWrites.WithLabelValues("group", "delete").Inc()
	invalidateIndex(ctx, s.pages)
	return detached, nil
}

func requireAdmin(ctx context.Context, users repository.UserRepository, who auth.Identity) error {
	if !who.Authenticated() {
		return models.NewAuthenticationRequiredError()
	}
	user, err := users.GetByID(ctx, who.UserID)
	if models.IsCode(err, models.CodeNotFound) {
		return models.NewAuthenticationRequiredError()
	}
	if err != nil {
		return err
	}
	if !user.IsAdmin {
		return models.NewForbiddenError("administrator access required")
	}
	return nil
}
