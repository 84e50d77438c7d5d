package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"campus_relay/internal/models"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type UserStatusPayload struct {
	UserID uint   `json:"userId"`
	Status string `json:"status"`
}

// ErrorPayload 是 message-error 事件的內容，只送給發出事件的連線
type ErrorPayload struct {
	Code  string `json:"code"`
	Error string `json:"error"`
	Event string `json:"event,omitempty"`
}

// dispatch 解碼一個訊框並執行，失敗時回 message-error 給這條連線
func (s *WebSocketService) dispatch(client *Client, raw []byte, logger *slog.Logger) {
	evt, err := DecodeEvent(raw)
	if err != nil {
		s.replyError(client, "", err, logger)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.HandlerTimeout)
	defer cancel()

	if err := s.handle(ctx, client, evt); err != nil {
		s.replyError(client, evt.EventName(), err, logger)
	}
}

func (s *WebSocketService) handle(ctx context.Context, client *Client, evt Event) error {
	if e, ok := evt.(*RegisterEvent); ok {
		return s.register(ctx, client, e.UserID)
	}

	userID := client.UserID()
	if userID == 0 {
		return ErrNotRegistered
	}

	switch e := evt.(type) {
	case *JoinCommunityEvent:
		s.hub.Join(client, CommunityChannel(e.CommunityID))
		return nil

	case *LeaveCommunityEvent:
		s.hub.Leave(client, CommunityChannel(e.CommunityID))
		return nil

	case *SendMessageEvent:
		if err := sameUser(userID, e.SenderID); err != nil {
			return err
		}
		var body CommunityBody = Post{Content: e.Message, Subject: e.Subject}
		if e.NotificationOnly {
			body = Announce{Content: e.Message, Subject: e.Subject}
		}
		_, err := s.relay.SendCommunityMessage(ctx, e.CommunityID, userID, body)
		return err

	case *DeleteMessageEvent:
		message, err := s.messages.FindByID(ctx, e.MessageID)
		if err != nil {
			return storeErr(err, fmt.Sprintf("message %d", e.MessageID))
		}
		if message.CommunityID == nil || *message.CommunityID != e.CommunityID {
			return fmt.Errorf("%w: message %d in community %d", ErrNotFound, e.MessageID, e.CommunityID)
		}
		if err := s.gate.AdmitDelete(userID, client.Role(), message); err != nil {
			return err
		}
		return s.relay.DeleteCommunityMessage(ctx, e.MessageID, e.CommunityID)

	case *TypingEvent:
		s.relay.CommunityTyping(client, e.CommunityID, e.UserName, e.IsTyping)
		return nil

	case *SendDirectMessageEvent:
		if err := sameUser(userID, e.SenderID); err != nil {
			return err
		}
		var identity DirectIdentity = Identified{}
		if e.IsAnonymous {
			identity = Anonymous{}
		}
		_, err := s.relay.SendDirectMessage(ctx, userID, e.ReceiverID, e.Message, identity)
		return err

	case *DMTypingEvent:
		s.relay.DirectTyping(userID, e.ReceiverID, e.SenderName, e.IsTyping)
		return nil

	case *SendNotificationEvent:
		if err := sameUser(userID, e.SenderID); err != nil {
			return err
		}
		if err := s.gate.AdmitNotify(client.Role()); err != nil {
			return err
		}
		_, err := s.notifier.NotifyUser(ctx, e.UserID, NotificationInput{
			SenderID: &userID,
			Title:    e.Title,
			Message:  e.Message,
			Type:     e.Type,
		})
		return err

	case *BroadcastNotificationEvent:
		if err := sameUser(userID, e.SenderID); err != nil {
			return err
		}
		if err := s.gate.AdmitBroadcast(client.Role()); err != nil {
			return err
		}
		_, err := s.notifier.BroadcastToRole(ctx, models.UserRole(e.Role), NotificationInput{
			SenderID: &userID,
			Title:    e.Title,
			Message:  e.Message,
			Type:     e.Type,
		})
		return err

	case *MarkDMReadEvent:
		_, err := s.relay.MarkDirectRead(ctx, userID, e.SenderID)
		return err

	default:
		return fmt.Errorf("%w: unhandled event %s", ErrMalformedEvent, evt.EventName())
	}
}

// register 綁定連線與用戶，加入個人頻道，管理員另外加入 admins 頻道
func (s *WebSocketService) register(ctx context.Context, client *Client, userID uint) error {
	if userID != client.authUserID {
		return fmt.Errorf("%w: cannot register as user %d", ErrUnauthorized, userID)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return storeErr(err, fmt.Sprintf("user %d", userID))
	}

	client.bind(user.ID, user.Role)
	// 被取代的舊連線離開個人頻道，之後的私訊與通知只送到新連線
	if previous, ok := s.registry.Lookup(user.ID); ok && previous != client {
		s.hub.Leave(previous, UserChannel(user.ID))
		s.hub.Leave(previous, AdminChannel)
	}
	s.registry.Register(user.ID, client)
	s.hub.Join(client, UserChannel(user.ID))
	if s.gate.IsPrivileged(user.Role) {
		s.hub.Join(client, AdminChannel)
	}

	s.hub.BroadcastAll(EventUserStatus, UserStatusPayload{UserID: user.ID, Status: StatusOnline})
	return nil
}

// sameUser 不信任客戶端宣稱的 senderId
func sameUser(registered, claimed uint) error {
	if registered != claimed {
		return fmt.Errorf("%w: sender %d does not match registered user %d", ErrUnauthorized, claimed, registered)
	}
	return nil
}

func (s *WebSocketService) replyError(client *Client, event string, err error, logger *slog.Logger) {
	code := ErrorCode(err)
	message := err.Error()
	if errors.Is(err, ErrPersistence) || code == CodeInternal {
		// 不把資料庫細節送給客戶端
		message = "the message could not be processed, please try again"
		logger.Error("event failed", slog.String("event", event), slog.Any("error", err))
	} else {
		logger.Debug("event rejected", slog.String("event", event), slog.String("code", code), slog.Any("error", err))
	}

	if emitErr := client.Emit(EventMessageError, ErrorPayload{Code: code, Error: message, Event: event}); emitErr != nil {
		logger.Warn("failed to send message-error", slog.Any("error", emitErr))
	}
}
