package models

import (
	"gorm.io/gorm"
)

// Course 表示一門課程，社群可以掛在課程底下
type Course struct {
	gorm.Model
	Name      string `gorm:"not null" json:"name"`
	TeacherID *uint  `gorm:"index" json:"teacher_id"` // 授課老師，可以為空
}

// Enrollment 表示學生選修課程的關係
type Enrollment struct {
	gorm.Model
	CourseID  uint `gorm:"uniqueIndex:idx_course_student;not null" json:"course_id"`
	StudentID uint `gorm:"uniqueIndex:idx_course_student;index;not null" json:"student_id"`
}
