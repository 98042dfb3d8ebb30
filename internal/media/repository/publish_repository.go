package repository

import (
	"media_share_service/internal/media/domain"

	"gorm.io/gorm"
)

// PublishRepository definition public_videos access
type PublishRepository interface {
	AutoMigrate() error
	Create(video *domain.PublicVideo) error
	GetByID(id uint) (*domain.PublicVideo, error)
	ListByUser(userID string, limit int) ([]domain.PublicVideo, error)
}

type publishRepository struct {
	db *gorm.DB
}

// NewPublishRepository create PublishRepository
func NewPublishRepository(db *gorm.DB) PublishRepository {
	return &publishRepository{db: db}
}

// AutoMigrate 依照 PublicVideo 建立/更新 public_videos
func (r *publishRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.PublicVideo{})
}

func (r *publishRepository) Create(video *domain.PublicVideo) error {
	return r.db.Create(video).Error
}

func (r *publishRepository) GetByID(id uint) (*domain.PublicVideo, error) {
	var v domain.PublicVideo
	if err := r.db.First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByUser 最新的在前
func (r *publishRepository) ListByUser(userID string, limit int) ([]domain.PublicVideo, error) {
	var videos []domain.PublicVideo
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Limit(limit).Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}
