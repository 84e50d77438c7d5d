package repository

import (
	"context"

	"campus_relay/internal/models"
	"campus_relay/internal/storage"
)

type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id uint) (*models.Course, error)
	Enroll(ctx context.Context, courseID, studentID uint) error
	// EnrolledStudentIDs 回傳選修該課程的學生（去重），排除 excludeUserID
	EnrolledStudentIDs(ctx context.Context, courseID, excludeUserID uint) ([]uint, error)
}

type courseRepository struct {
	baseRepository[models.Course]
	db *storage.DB
}

func NewCourseRepository(db *storage.DB) CourseRepository {
	return &courseRepository{baseRepository: newBaseRepository[models.Course](db), db: db}
}

func (r *courseRepository) Enroll(ctx context.Context, courseID, studentID uint) error {
	return r.db.WithContext(ctx).Create(&models.Enrollment{CourseID: courseID, StudentID: studentID}).Error
}

func (r *courseRepository) EnrolledStudentIDs(ctx context.Context, courseID, excludeUserID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Joins("JOIN users ON users.id = enrollments.student_id AND users.deleted_at IS NULL").
		Where("enrollments.course_id = ? AND enrollments.student_id <> ?", courseID, excludeUserID).
		Where("users.role = ?", models.RoleStudent).
		Distinct().
		Order("enrollments.student_id asc").
		Pluck("enrollments.student_id", &ids).Error
	return ids, err
}
