package repository

import (
	"context"
	"errors"

	"feedhub/internal/cache"
	"feedhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines persistence operations for posts and the owning
// user's post list.
type PostRepository interface {
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	Count(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// Create inserts post and appends it to its creator's post list atomically.
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	// Delete removes post and its creator back-reference atomically.
	Delete(ctx context.Context, post *models.Post) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func postNotFound() *models.AppError {
	return models.NewNotFoundError("Could not find post.")
}

func withCreator(db *gorm.DB) *gorm.DB {
	return db.Preload("Creator", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "name")
	})
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, limit)
	err := withCreator(r.db.WithContext(ctx)).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&total).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return total, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		return withCreator(r.db.WithContext(ctx)).First(&post, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, postNotFound()
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return err
		}
		link := models.UserPost{UserID: post.CreatorID, PostID: post.ID}
		return tx.Create(&link).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	res := r.db.WithContext(ctx).
		Model(post).
		Select("title", "content", "image_url", "updated_at").
		Updates(post)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return postNotFound()
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND post_id = ?", post.CreatorID, post.ID).
			Delete(&models.UserPost{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, post.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return postNotFound()
		}
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}
