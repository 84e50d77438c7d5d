package repository

import "campus_relay/internal/storage"

type Repositories struct {
	User         UserRepository
	Course       CourseRepository
	Community    CommunityRepository
	Message      MessageRepository
	Notification NotificationRepository
}

func NewRepositories(db *storage.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Course:       NewCourseRepository(db),
		Community:    NewCommunityRepository(db),
		Message:      NewMessageRepository(db),
		Notification: NewNotificationRepository(db),
	}
}
