package repository

import (
	"context"
	"errors"
	"time"

	"fambam/internal/models"
	"fambam/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit int, before *time.Time) ([]models.Post, error)
	ListByUser(ctx context.Context, userID string, limit int, before *time.Time) ([]models.Post, error)
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]models.Post, error)
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if len(post.MediaURLs) == 0 {
		post.MediaURLs = nil
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return err
	}
	r.log.LogCreate(ctx, map[string]any{"post_id": post.ID, "user_id": post.UserID, "media": len(post.MediaURLs)})

	var author models.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", post.UserID).First(&author).Error; err == nil {
		post.Author = author
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) feed(ctx context.Context, limit int, before *time.Time) *gorm.DB {
	q := r.db.WithContext(ctx).Preload("Author")
	if before != nil {
		q = q.Where("created_at < ?", *before)
	}
	return q.Order("created_at DESC").Order("id DESC").Limit(limit)
}

func (r *postRepository) List(ctx context.Context, limit int, before *time.Time) ([]models.Post, error) {
	defer observability.TrackQuery("list", "posts")()

	var posts []models.Post
	err := r.feed(ctx, limit, before).Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListByUser(ctx context.Context, userID string, limit int, before *time.Time) ([]models.Post, error) {
	defer observability.TrackQuery("list_by_user", "posts")()

	var posts []models.Post
	err := r.feed(ctx, limit, before).Where("user_id = ?", userID).Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListOlderThan(ctx context.Context, cutoff time.Time) ([]models.Post, error) {
	defer observability.TrackQuery("list_older_than", "posts")()

	var posts []models.Post
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&posts).Error
	return posts, err
}

// Delete removes the post row together with its comments and reactions.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Reaction{}).Error; err != nil {
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
		if !models.HasCode(err, models.CodeNotFound) {
			r.log.LogError(ctx, err, "delete")
		}
		return err
	}
	r.log.LogDelete(ctx, map[string]any{"post_id": id})
	return nil
}
