package repository

import (
	"context"
	"errors"

	"director-buy-trader/internal/entity"

	"gorm.io/gorm"
)

// DirectorPostRepository persists scraped disclosure posts.
type DirectorPostRepository interface {
	Create(ctx context.Context, post *entity.DirectorPost) error
	FindByPostID(ctx context.Context, postID string) (*entity.DirectorPost, error)
	FindByID(ctx context.Context, id uint) (*entity.DirectorPost, error)
	GetRecent(ctx context.Context, limit int) ([]entity.DirectorPost, error)
}

type directorPostRepository struct {
	db *gorm.DB
}

// NewDirectorPostRepository creates a new DirectorPostRepository.
func NewDirectorPostRepository(db *gorm.DB) DirectorPostRepository {
	return &directorPostRepository{db: db}
}

func (r *directorPostRepository) Create(ctx context.Context, post *entity.DirectorPost) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// FindByPostID returns nil without error when no post matches; the
// caller uses that as the dedup signal.
func (r *directorPostRepository) FindByPostID(ctx context.Context, postID string) (*entity.DirectorPost, error) {
	var post entity.DirectorPost
	err := r.db.WithContext(ctx).Where("post_id = ?", postID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *directorPostRepository) FindByID(ctx context.Context, id uint) (*entity.DirectorPost, error) {
	var post entity.DirectorPost
	err := r.db.WithContext(ctx).First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *directorPostRepository) GetRecent(ctx context.Context, limit int) ([]entity.DirectorPost, error) {
	var posts []entity.DirectorPost
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
