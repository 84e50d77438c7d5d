package models

import (
	"gorm.io/gorm"
)

// User 表示系統中的用戶
type User struct {
	gorm.Model          // 內嵌 gorm.Model，提供 ID、CreatedAt、UpdatedAt 和 DeletedAt 字段
	Username   string   `gorm:"uniqueIndex;not null" json:"username"` // 用戶名，必須唯一
	Password   string   `gorm:"not null" json:"-"`                    // 密碼，json 序列化時會被忽略
	Name       string   `json:"name"`                                 // 顯示名稱
	Role       UserRole `gorm:"index;not null" json:"role"`           // 用戶角色
}

// DisplayName 回傳顯示名稱，沒有設定時退回用戶名
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// UserRole 定義用戶角色的類型
type UserRole string

const (
	RoleStudent        UserRole = "Student"
	RoleTeacher        UserRole = "Teacher"
	RoleHOD            UserRole = "HOD"
	RoleProgramManager UserRole = "Program Manager"
	RoleAdmin          UserRole = "Admin"
)

// Valid 檢查角色是否為已知角色
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleHOD, RoleProgramManager, RoleAdmin:
		return true
	}
	return false
}
