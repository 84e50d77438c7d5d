package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"campus_relay/internal/models"
	"campus_relay/internal/repository"
	"campus_relay/internal/utils"
)

type UserService struct {
	userRepo repository.UserRepository
	notifier *NotificationService
	logger   *slog.Logger
}

func NewUserService(userRepo repository.UserRepository, notifier *NotificationService, logger *slog.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "user")),
	}
}

// CreateUser 建立用戶並寄送歡迎通知，通知失敗不影響註冊
func (s *UserService) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.userRepo.Create(ctx, user); err != nil {
		return err
	}

	_, err := s.notifier.NotifyUser(ctx, user.ID, NotificationInput{
		Title:   "Welcome",
		Message: fmt.Sprintf("Welcome to the campus platform, %s!", user.DisplayName()),
		Type:    models.NotificationWelcome,
	})
	if err != nil {
		s.logger.Warn("failed to send welcome notification", slog.Uint64("userID", uint64(user.ID)), slog.Any("error", err))
	}
	return nil
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userRepo.FindByUsername(ctx, username)
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

// EnsureAdmin 帳號不存在時建立管理員，已存在則不做任何事
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user = &models.User{Username: username, Password: hashed, Name: username, Role: models.RoleAdmin}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("admin account created", slog.String("username", username))
	return user, nil
}
