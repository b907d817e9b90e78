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

type SignupInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type UserService struct {
	users repository.UserRepository
	pages *cache.PageCache
}

func NewUserService(users repository.UserRepository, pages *cache.PageCache) *UserService {
	return &UserService{users: users, pages: pages}
}

// Signup validates the input and stores a new user with a hashed password.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  hash,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	observability.ContentWrites.WithLabelValues("user", "create").Inc()
	return user, nil
}

// Login checks the credentials. Unknown users and wrong passwords fail the same way.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewValidationError("invalid username or password")
		}
		return nil, err
	}
	if !auth.CheckPassword(user.Password, password) {
		return nil, models.NewValidationError("invalid username or password")
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// Delete removes a user with their posts, comments and follow edges. Users may
// delete themselves; administrators may delete anyone.
// TODO: remove stored images of the deleted posts once posts expose their keys in bulk.
func (s *UserService) Delete(ctx context.Context, who auth.Identity, id uint) (*repository.DeleteUserResult, error) {
	if !who.Authenticated() {
		return nil, models.NewAuthenticationRequiredError()
	}
	if who.UserID != id {
		if err := requireAdmin(ctx, s.users, who); err != nil {
			return nil, err
		}
	}
	res, err := s.users.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	observability.ContentWrites.WithLabelValues("user", "delete").Inc()
	invalidateIndex(ctx, s.pages)
	return res, nil
}
