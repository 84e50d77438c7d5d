package models

import (
	"time"
)

// MessageStatus 定義消息狀態的類型
type MessageStatus string

const (
	MessageApproved MessageStatus = "approved"
)

// Message 代表一條社群消息或私訊。
//
// CommunityID 與 ReceiverID 恰好有一個不為空：社群消息只有 CommunityID，私訊只有 ReceiverID。
// 刪除為硬刪除，所以這裡不使用 gorm.Model。
type Message struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	CommunityID *uint         `gorm:"index" json:"community_id"`
	SenderID    uint          `gorm:"index;not null" json:"sender_id"`
	ReceiverID  *uint         `gorm:"index" json:"receiver_id"`
	Content     string        `gorm:"type:text;not null" json:"content"`
	Status      MessageStatus `gorm:"type:varchar(20);not null" json:"status"`
	IsAnonymous bool          `gorm:"not null;default:false" json:"is_anonymous"`
	IsRead      bool          `gorm:"not null;default:false" json:"is_read"`
	CreatedAt   time.Time     `gorm:"index" json:"created_at"`
}

// IsDirect 判斷是否為私訊
func (m *Message) IsDirect() bool {
	return m.ReceiverID != nil
}

// NewCommunityMessage 創建一條社群消息
func NewCommunityMessage(communityID, senderID uint, content string) *Message {
	return &Message{
		CommunityID: &communityID,
		SenderID:    senderID,
		Content:     content,
		Status:      MessageApproved,
	}
}

// NewDirectMessage 創建一條私訊
func NewDirectMessage(senderID, receiverID uint, content string, anonymous bool) *Message {
	return &Message{
		SenderID:    senderID,
		ReceiverID:  &receiverID,
		Content:     content,
		Status:      MessageApproved,
		IsAnonymous: anonymous,
		IsRead:      false,
	}
}
