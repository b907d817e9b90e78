package repository

import (
	"context"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// FollowRepository defines the interface for follow-edge operations
type FollowRepository interface {
	// Create inserts the edge. Self-follow is a ValidationError and a duplicate edge a ConflictError.
	Create(ctx context.Context, userID, authorID uint) (*models.Follow, error)
	// Delete removes the edge if present; removing a missing edge is not an error.
	Delete(ctx context.Context, userID, authorID uint) error
	Exists(ctx context.Context, userID, authorID uint) (bool, error)
	CountFollowers(ctx context.Context, authorID uint) (int64, error)
	CountFollowing(ctx context.Context, userID uint) (int64, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Create(ctx context.Context, userID, authorID uint) (*models.Follow, error) {
	if userID == authorID {
		return nil, models.NewValidationError("you cannot follow yourself")
	}

	follow := &models.Follow{UserID: userID, AuthorID: authorID}
	db := r.db.WithContext(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := requireWriter(tx, userID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Follow{}).
			Where("user_id = ? AND author_id = ?", userID, authorID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return models.NewConflictError("already following this author")
		}
		return tx.Omit("User", "Author").Create(follow).Error
	})
	if err != nil {
		// the unique index catches a concurrent insert that slipped past the check
		if isUniqueConstraintError(err) {
			return nil, models.NewConflictError("already following this author")
		}
		return nil, writeError(db, userID, err)
	}
	return follow, nil
}

func (r *followRepository) Delete(ctx context.Context, userID, authorID uint) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *followRepository) Exists(ctx context.Context, userID, authorID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *followRepository) CountFollowers(ctx context.Context, authorID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("author_id = ?", authorID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *followRepository) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
