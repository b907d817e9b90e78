package repository

import (
	"context"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// DeleteUserResult reports how many dependents a user deletion removed.
type DeleteUserResult struct {
	Posts    int64
	Comments int64
	Follows  int64
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Delete(ctx context.Context, id uint) (*DeleteUserResult, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("username or email already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, lookupError(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, lookupError(err, "User", username)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, lookupError(err, "User", email)
	}
	return &user, nil
}

// Delete removes the user and everything the user owns in one transaction:
// comments written by them, comments on their posts, their posts and every
// follow edge that touches them.
func (r *userRepository) Delete(ctx context.Context, id uint) (*DeleteUserResult, error) {
	res := &DeleteUserResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id").First(&user, id).Error; err != nil {
			return lookupError(err, "User", id)
		}

		ownPosts := tx.Model(&models.Post{}).Select("id").Where("author_id = ?", id)
		del := tx.Where("author_id = ? OR post_id IN (?)", id, ownPosts).Delete(&models.Comment{})
		if del.Error != nil {
			return del.Error
		}
		res.Comments = del.RowsAffected

		del = tx.Where("author_id = ?", id).Delete(&models.Post{})
		if del.Error != nil {
			return del.Error
		}
		res.Posts = del.RowsAffected

		del = tx.Where("user_id = ? OR author_id = ?", id, id).Delete(&models.Follow{})
		if del.Error != nil {
			return del.Error
		}
		res.Follows = del.RowsAffected

		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return nil, passThrough(err)
	}

	middleware.Logger.InfoContext(ctx, "user deleted",
		slog.Uint64("deleted_user_id", uint64(id)),
		slog.Int64("posts", res.Posts),
		slog.Int64("comments", res.Comments),
		slog.Int64("follows", res.Follows),
	)
	return res, nil
}
