package models

import (
	"time"
)

// Notification 每個接收者一筆，廣播給 N 個人就有 N 筆獨立的資料
type Notification struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index:idx_notification_user_read,priority:1;not null" json:"user_id"`
	SenderID   *uint     `json:"sender_id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Message    string    `gorm:"type:text" json:"message"`
	Type       string    `gorm:"size:50;index" json:"type"`
	IsRead     bool      `gorm:"index:idx_notification_user_read,priority:2;not null;default:false" json:"is_read"`
	TargetRole *string   `gorm:"size:50" json:"target_role"`
	CourseID   *uint     `gorm:"index" json:"course_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// 通知類型
const (
	NotificationGeneral   = "general"
	NotificationWelcome   = "welcome"
	NotificationCommunity = "community_message"
	NotificationAnnounce  = "announcement"
)

// AllModels 回傳需要自動遷移的模型
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&Enrollment{},
		&Community{},
		&Message{},
		&Notification{},
	}
}
