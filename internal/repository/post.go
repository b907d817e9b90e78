package repository

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations.
// List methods return one page of posts, newest first, plus the total row count.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// Update re-reads the post inside a transaction, applies fn and saves text, group and image.
	Update(ctx context.Context, id uint, fn func(post *models.Post) error) (*models.Post, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, limit, offset int) ([]models.Post, int64, error)
	ListByGroup(ctx context.Context, groupID uint, limit, offset int) ([]models.Post, int64, error)
	ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]models.Post, int64, error)
	ListFollowed(ctx context.Context, userID uint, limit, offset int) ([]models.Post, int64, error)
	CountByAuthor(ctx context.Context, authorID uint) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	db := r.db.WithContext(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := requireWriter(tx, post.AuthorID); err != nil {
			return err
		}
		return tx.Omit("Author", "Group").Create(post).Error
	})
	if err != nil {
		return writeError(db, post.AuthorID, err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").Preload("Group").First(&post, id).Error; err != nil {
		return nil, lookupError(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) Update(ctx context.Context, id uint, fn func(post *models.Post) error) (*models.Post, error) {
	var post models.Post

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&post, id).Error; err != nil {
			return lookupError(err, "Post", id)
		}
		if err := fn(&post); err != nil {
			return err
		}
		return tx.Model(&post).Select("text", "group_id", "image").Updates(map[string]interface{}{
			"text":     post.Text,
			"group_id": post.GroupID,
			"image":    post.Image,
		}).Error
	})
	if err != nil {
		return nil, passThrough(err)
	}

	return r.GetByID(ctx, id)
}

// Delete removes the post and its comments.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		return passThrough(err)
	}
	return nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]models.Post, int64, error) {
	return r.page(ctx, "List", func(db *gorm.DB) *gorm.DB { return db }, limit, offset)
}

func (r *postRepository) ListByGroup(ctx context.Context, groupID uint, limit, offset int) ([]models.Post, int64, error) {
	return r.page(ctx, "ListByGroup", func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.group_id = ?", groupID)
	}, limit, offset)
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]models.Post, int64, error) {
	return r.page(ctx, "ListByAuthor", func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.author_id = ?", authorID)
	}, limit, offset)
}

// ListFollowed returns posts by authors userID follows. The user's own posts
// never appear because self-follow edges cannot exist.
func (r *postRepository) ListFollowed(ctx context.Context, userID uint, limit, offset int) ([]models.Post, int64, error) {
	return r.page(ctx, "ListFollowed", func(db *gorm.DB) *gorm.DB {
		followed := r.db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", userID)
		return db.Where("posts.author_id IN (?)", followed)
	}, limit, offset)
}

func (r *postRepository) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("author_id = ?", authorID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *postRepository) page(ctx context.Context, method string, scope func(*gorm.DB) *gorm.DB, limit, offset int) ([]models.Post, int64, error) {
	ctx, span := observability.StartRepositorySpan(ctx, method, "posts")
	defer observability.TrackQuery(method, "posts")()

	var total int64
	if err := scope(r.db.WithContext(ctx).Model(&models.Post{})).Count(&total).Error; err != nil {
		observability.EndSpan(span, err)
		return nil, 0, models.NewInternalError(err)
	}

	posts := []models.Post{}
	if total > 0 && offset >= 0 && int64(offset) < total {
		err := scope(r.db.WithContext(ctx).Model(&models.Post{})).
			Preload("Author").
			Preload("Group").
			Order("posts.pub_date DESC").
			Order("posts.id DESC").
			Limit(limit).
			Offset(offset).
			Find(&posts).Error
		if err != nil {
			observability.EndSpan(span, err)
			return nil, 0, models.NewInternalError(err)
		}
	}

	observability.EndSpan(span, nil)
	return posts, total, nil
}
