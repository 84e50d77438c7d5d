package repository

import (
	"context"

	"campus_relay/internal/models"
	"campus_relay/internal/storage"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// FindIDsByRole 角色為空時回傳所有用戶
	FindIDsByRole(ctx context.Context, role models.UserRole) ([]uint, error)
}

type userRepository struct {
	baseRepository[models.User]
	db *storage.DB
}

func NewUserRepository(db *storage.DB) UserRepository {
	return &userRepository{baseRepository: newBaseRepository[models.User](db), db: db}
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) FindIDsByRole(ctx context.Context, role models.UserRole) ([]uint, error) {
	var ids []uint
	query := r.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	err := query.Order("id asc").Pluck("id", &ids).Error
	return ids, err
}
