package repository

import (
	"context"

	"campus_relay/internal/models"
	"campus_relay/internal/storage"
)

// NotificationRepository 所有修改操作都以 userID 作為條件，不能動到別人的通知
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, id uint) (int64, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, userID, id uint) (int64, error)
}

type notificationRepository struct {
	baseRepository[models.Notification]
	db *storage.DB
}

func NewNotificationRepository(db *storage.DB) NotificationRepository {
	return &notificationRepository{baseRepository: newBaseRepository[models.Notification](db), db: db}
}

func (r *notificationRepository) FindByUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	err := query.Order("created_at desc, id desc").Limit(limit).Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, id uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *notificationRepository) Delete(ctx context.Context, userID, id uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
