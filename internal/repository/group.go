package repository

import (
	"context"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// GroupRepository defines the interface for group data operations
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id uint) (*models.Group, error)
	GetBySlug(ctx context.Context, slug string) (*models.Group, error)
	List(ctx context.Context) ([]models.Group, error)
	// Delete detaches the group's posts and removes the group. It returns the number of detached posts.
	Delete(ctx context.Context, id uint) (int64, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("group slug already exists: " + group.Slug)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, lookupError(err, "Group", id)
	}
	return &group, nil
}

func (r *groupRepository) GetBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		return nil, lookupError(err, "Group", slug)
	}
	return &group, nil
}

func (r *groupRepository) List(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&groups).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return groups, nil
}

func (r *groupRepository) Delete(ctx context.Context, id uint) (int64, error) {
	var detached int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.Select("id").First(&group, id).Error; err != nil {
			return lookupError(err, "Group", id)
		}

		upd := tx.Model(&models.Post{}).Where("group_id = ?", id).Update("group_id", nil)
		if upd.Error != nil {
			return upd.Error
		}
		detached = upd.RowsAffected

		return tx.Delete(&models.Group{}, id).Error
	})
	if err != nil {
		return 0, passThrough(err)
	}

	middleware.Logger.InfoContext(ctx, "group deleted",
		slog.Uint64("group_id", uint64(id)),
		slog.Int64("detached_posts", detached),
	)
	return detached, nil
}
