package service

import (
	"context"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
)

type FollowService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
}

func NewFollowService(users repository.UserRepository, follows repository.FollowRepository) *FollowService {
	return &FollowService{users: users, follows: follows}
}

// Follow adds an edge from who to the author named username and returns the author.
func (s *FollowService) Follow(ctx context.Context, who auth.Identity, username string) (*models.User, error) {
	if !who.Authenticated() {
		return nil, models.NewAuthenticationRequiredError()
	}
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if _, err := s.follows.Create(ctx, who.UserID, author.ID); err != nil {
		return author, err
	}
	observability.ContentWrites.WithLabelValues("follow", "create").Inc()
	return author, nil
}

// Unfollow removes the edge if it exists.
func (s *FollowService) Unfollow(ctx context.Context, who auth.Identity, username string) (*models.User, error) {
	if !who.Authenticated() {
		return nil, models.NewAuthenticationRequiredError()
	}
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.follows.Delete(ctx, who.UserID, author.ID); err != nil {
		return author, err
	}
	observability.ContentWrites.WithLabelValues("follow", "delete").Inc()
	return author, nil
}
