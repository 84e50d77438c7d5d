package repository

import (
	"context"

	"campus_relay/internal/models"
	"campus_relay/internal/storage"
)

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	FindByID(ctx context.Context, id uint) (*models.Message, error)
	// DeleteFromCommunity 硬刪除，只會刪到屬於該社群的消息
	DeleteFromCommunity(ctx context.Context, id, communityID uint) (int64, error)
	// FindByCommunity 最新的 limit 筆社群消息，由舊到新排序
	FindByCommunity(ctx context.Context, communityID uint, limit int) ([]models.Message, error)
	// FindConversation 兩個用戶之間最新的 limit 筆私訊，由舊到新排序
	FindConversation(ctx context.Context, userID, otherID uint, limit int) ([]models.Message, error)
	// MarkConversationRead 把 senderID 寄給 receiverID 的未讀私訊標為已讀
	MarkConversationRead(ctx context.Context, receiverID, senderID uint) (int64, error)
}

type messageRepository struct {
	baseRepository[models.Message]
	db *storage.DB
}

func NewMessageRepository(db *storage.DB) MessageRepository {
	return &messageRepository{baseRepository: newBaseRepository[models.Message](db), db: db}
}

func (r *messageRepository) DeleteFromCommunity(ctx context.Context, id, communityID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND community_id = ?", id, communityID).
		Delete(&models.Message{})
	return result.RowsAffected, result.Error
}

func (r *messageRepository) FindByCommunity(ctx context.Context, communityID uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&messages).Error
	return oldestFirst(messages), err
}

func (r *messageRepository) FindConversation(ctx context.Context, userID, otherID uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherID, otherID, userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&messages).Error
	return oldestFirst(messages), err
}

func (r *messageRepository) MarkConversationRead(ctx context.Context, receiverID, senderID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", receiverID, senderID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// oldestFirst 查詢取最新的 limit 筆，回傳前翻轉成時間順序
func oldestFirst(messages []models.Message) []models.Message {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages
}
