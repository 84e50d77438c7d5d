package models

import (
	"gorm.io/gorm"
)

// Community 表示一個聊天社群
type Community struct {
	gorm.Model
	Name     string          `gorm:"not null" json:"name"`
	CourseID *uint           `gorm:"index" json:"course_id"` // 所屬課程，可以為空
	Status   CommunityStatus `gorm:"not null;default:active" json:"status"`
}

// CommunityStatus 定義社群狀態的類型
type CommunityStatus string

const (
	CommunityActive   CommunityStatus = "active"
	CommunityInactive CommunityStatus = "inactive"
)
