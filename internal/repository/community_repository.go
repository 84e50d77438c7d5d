package repository

import (
	"context"

	"campus_relay/internal/models"
	"campus_relay/internal/storage"
)

type CommunityRepository interface {
	Create(ctx context.Context, community *models.Community) error
	FindByID(ctx context.Context, id uint) (*models.Community, error)
	UpdateStatus(ctx context.Context, id uint, status models.CommunityStatus) error
}

type communityRepository struct {
	baseRepository[models.Community]
	db *storage.DB
}

func NewCommunityRepository(db *storage.DB) CommunityRepository {
	return &communityRepository{baseRepository: newBaseRepository[models.Community](db), db: db}
}

func (r *communityRepository) UpdateStatus(ctx context.Context, id uint, status models.CommunityStatus) error {
	return r.db.WithContext(ctx).Model(&models.Community{}).Where("id = ?", id).Update("status", status).Error
}
