package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"campus_relay/internal/models"
	"campus_relay/internal/repository"
)

// NotificationInput 是一次通知的內容，分發時每個接收者各自寫一筆
type NotificationInput struct {
	SenderID   *uint
	Title      string
	Message    string
	Type       string
	TargetRole *string
	CourseID   *uint
}

// DeliveryFailure 記錄單一接收者寫入失敗
type DeliveryFailure struct {
	UserID uint
	Err    error
}

// FanoutResult 是一次分發的彙總，單一接收者失敗不影響其他人
type FanoutResult struct {
	Notifications []models.Notification
	Pushed        int
	Failures      []DeliveryFailure
}

func (r *FanoutResult) Created() int {
	return len(r.Notifications)
}

type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	courses       repository.CourseRepository
	hub           *Hub
	registry      *Registry
	concurrency   int
	logger        *slog.Logger
}

func NewNotificationService(repos *repository.Repositories, hub *Hub, registry *Registry, concurrency int, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		notifications: repos.Notification,
		users:         repos.User,
		courses:       repos.Course,
		hub:           hub,
		registry:      registry,
		concurrency:   concurrency,
		logger:        logger.With(slog.String("component", "notification")),
	}
}

// NotifyUser 發給單一用戶，例如管理員建立的通知或註冊歡迎訊息
func (s *NotificationService) NotifyUser(ctx context.Context, userID uint, in NotificationInput) (*models.Notification, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, storeErr(err, fmt.Sprintf("user %d", userID))
	}

	notification, _, err := s.deliver(ctx, userID, in)
	if err != nil {
		s.logger.Error("failed to create notification", slog.Uint64("userID", uint64(userID)), slog.Any("error", err))
		return nil, fmt.Errorf("%w: notification for user %d: %v", ErrPersistence, userID, err)
	}
	return &notification, nil
}

// BroadcastToRole 發給指定角色的所有用戶，角色為空時發給所有人
func (s *NotificationService) BroadcastToRole(ctx context.Context, role models.UserRole, in NotificationInput) (*FanoutResult, error) {
	recipients, err := s.users.FindIDsByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("%w: users with role %q: %v", ErrPersistence, role, err)
	}

	if role != "" {
		target := string(role)
		in.TargetRole = &target
	}
	return s.Fanout(ctx, recipients, in), nil
}

// NotifyCommunity 發給社群所屬課程的學生與授課老師，排除發送者
func (s *NotificationService) NotifyCommunity(ctx context.Context, community *models.Community, senderID uint, in NotificationInput) (*FanoutResult, error) {
	recipients, err := s.communityRecipients(ctx, community, senderID)
	if err != nil {
		return nil, err
	}

	in.CourseID = community.CourseID
	return s.Fanout(ctx, recipients, in), nil
}

func (s *NotificationService) communityRecipients(ctx context.Context, community *models.Community, senderID uint) ([]uint, error) {
	if community.CourseID == nil {
		return nil, nil
	}

	course, err := s.courses.FindByID(ctx, *community.CourseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("community references a missing course",
				slog.Uint64("communityID", uint64(community.ID)),
				slog.Uint64("courseID", uint64(*community.CourseID)),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: course %d: %v", ErrPersistence, *community.CourseID, err)
	}

	recipients, err := s.courses.EnrolledStudentIDs(ctx, course.ID, senderID)
	if err != nil {
		return nil, fmt.Errorf("%w: students of course %d: %v", ErrPersistence, course.ID, err)
	}

	if course.TeacherID != nil && *course.TeacherID != senderID {
		teacher := *course.TeacherID
		duplicate := false
		for _, id := range recipients {
			if id == teacher {
				duplicate = true
				break
			}
		}
		if !duplicate {
			recipients = append(recipients, teacher)
		}
	}
	return recipients, nil
}

// Fanout 每個接收者獨立寫入與推送，並行數量受 concurrency 限制
func (s *NotificationService) Fanout(ctx context.Context, recipients []uint, in NotificationInput) *FanoutResult {
	type outcome struct {
		notification models.Notification
		pushed       bool
		err          error
	}
	outcomes := make([]outcome, len(recipients))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, userID := range recipients {
		i, userID := i, userID
		g.Go(func() error {
			n, pushed, err := s.deliver(ctx, userID, in)
			outcomes[i] = outcome{notification: n, pushed: pushed, err: err}
			// 不回傳錯誤，避免一個失敗影響其他接收者
			return nil
		})
	}
	_ = g.Wait()

	result := &FanoutResult{}
	for i, o := range outcomes {
		if o.err != nil {
			result.Failures = append(result.Failures, DeliveryFailure{UserID: recipients[i], Err: o.err})
			s.logger.Warn("notification delivery failed",
				slog.Uint64("userID", uint64(recipients[i])),
				slog.Any("error", o.err),
			)
			continue
		}
		result.Notifications = append(result.Notifications, o.notification)
		if o.pushed {
			result.Pushed++
		}
	}

	s.logger.Info("notification fanout",
		slog.String("title", in.Title),
		slog.Int("recipients", len(recipients)),
		slog.Int("created", result.Created()),
		slog.Int("pushed", result.Pushed),
		slog.Int("failed", len(result.Failures)),
	)
	return result
}

// deliver 寫入一筆通知，在線時立即推送
func (s *NotificationService) deliver(ctx context.Context, userID uint, in NotificationInput) (models.Notification, bool, error) {
	notification := models.Notification{
		UserID:     userID,
		SenderID:   in.SenderID,
		Title:      in.Title,
		Message:    in.Message,
		Type:       in.Type,
		TargetRole: in.TargetRole,
		CourseID:   in.CourseID,
	}
	if notification.Type == "" {
		notification.Type = models.NotificationGeneral
	}

	if err := s.notifications.Create(ctx, &notification); err != nil {
		return models.Notification{}, false, err
	}

	pushed := false
	if s.registry.IsOnline(userID) {
		pushed = s.hub.Broadcast(UserChannel(userID), EventNewNotification, notification) > 0
	}
	return notification, pushed, nil
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	return s.notifications.FindByUser(ctx, userID, unreadOnly, limit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.notifications.CountUnread(ctx, userID)
}

// MarkRead 不屬於該用戶或不存在的通知回傳 0
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) (int64, error) {
	return s.notifications.MarkRead(ctx, userID, id)
}

// MarkAllRead 只影響該用戶目前未讀的通知
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.notifications.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uint) (int64, error) {
	return s.notifications.Delete(ctx, userID, id)
}
