package repository

import (
	"context"
	"errors"

	"threadline/internal/cache"
	"threadline/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, post *models.Post, ownerID uint) error
	Delete(ctx context.Context, id, ownerID uint) ([]models.Image, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// applyPostDetails adds the comments_count subquery so listings resolve the
// count in a single query. Only top-level comments count; replies live under
// their parent, not under the post.
func (r *postRepository) applyPostDetails(db *gorm.DB) *gorm.DB {
	return db.Select("posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id " +
		"AND comments.parent_comment_id IS NULL AND comments.deleted_at IS NULL) AS comments_count")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Create(post).Error
	if err == nil {
		cache.InvalidatePostsList(ctx)
	}
	return err
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		return r.applyPostDetails(r.db.WithContext(ctx)).
			Preload("User").
			First(&post, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post not found")
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx)).
		Preload("User").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&count).Error
	return count, err
}

// Update saves the post after re-verifying ownership inside the same
// transaction, so a racing edit cannot slip between check and write.
func (r *postRepository) Update(ctx context.Context, post *models.Post, ownerID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Post
		if err := tx.Select("id", "user_id").First(&current, post.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post not found")
			}
			return err
		}
		if current.UserID != ownerID {
			return models.NewForbiddenError("You can only edit your own posts")
		}
		return tx.Save(post).Error
	})
	if err == nil {
		cache.InvalidatePost(ctx, post.ID)
		cache.InvalidatePostsList(ctx)
	}
	return err
}

// Delete removes the post and every comment under it in one transaction and
// returns the media references released by the cascade.
func (r *postRepository) Delete(ctx context.Context, id, ownerID uint) ([]models.Image, error) {
	var released []models.Image

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post not found")
			}
			return err
		}
		if post.UserID != ownerID {
			return models.NewForbiddenError("You can only delete your own posts")
		}

		if !post.Image.IsZero() {
			released = append(released, post.Image)
		}

		var commentImages []models.Image
		if err := tx.Model(&models.Comment{}).
			Select("image_public_id AS public_id, image_url AS url").
			Where("post_id = ? AND image_public_id <> ''", id).
			Scan(&commentImages).Error; err != nil {
			return err
		}
		released = append(released, commentImages...)

		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidatePost(ctx, id)
	cache.InvalidatePostsList(ctx)
	return released, nil
}
