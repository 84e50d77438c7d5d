package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"campus_relay/internal/models"
	"campus_relay/internal/repository"
)

// CommunityBody 社群發送的兩種形式：Post 寫入聊天紀錄，Announce 只發通知
type CommunityBody interface {
	communityBody()
}

// Post 一般聊天消息，Subject 只在觸發通知時作為標題
type Post struct {
	Content string
	Subject string
}

// Announce 不寫入聊天紀錄，只通知課程成員
type Announce struct {
	Content string
	Subject string
}

func (Post) communityBody()     {}
func (Announce) communityBody() {}

// DirectIdentity 私訊對接收者呈現的身分
type DirectIdentity interface {
	directIdentity()
}

// Identified 接收者看到發送者的名字
type Identified struct{}

// Anonymous 接收者只看到固定的匿名名稱，資料庫仍保存真正的發送者
type Anonymous struct{}

func (Identified) directIdentity() {}
func (Anonymous) directIdentity()  {}

// CommunityMessagePayload 是 new-message 事件的內容
type CommunityMessagePayload struct {
	ID          uint                 `json:"id"`
	CommunityID uint                 `json:"community_id"`
	SenderID    uint                 `json:"sender_id"`
	SenderName  string               `json:"sender_name"`
	Content     string               `json:"content"`
	Status      models.MessageStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
}

// DirectMessagePayload 是 new-direct-message 與 direct-message-sent 的內容
type DirectMessagePayload struct {
	ID          uint                 `json:"id"`
	SenderID    uint                 `json:"sender_id"`
	ReceiverID  uint                 `json:"receiver_id"`
	SenderName  string               `json:"sender_name"`
	Content     string               `json:"content"`
	Status      models.MessageStatus `json:"status"`
	IsAnonymous bool                 `json:"is_anonymous"`
	IsRead      bool                 `json:"is_read"`
	CreatedAt   time.Time            `json:"created_at"`
}

type MessageDeletedPayload struct {
	MessageID   uint `json:"messageId"`
	CommunityID uint `json:"communityId"`
}

type TypingPayload struct {
	CommunityID uint   `json:"communityId"`
	UserID      uint   `json:"userId"`
	UserName    string `json:"userName"`
	IsTyping    bool   `json:"isTyping"`
}

type DMTypingPayload struct {
	SenderID   uint   `json:"senderId"`
	SenderName string `json:"senderName"`
	IsTyping   bool   `json:"isTyping"`
}

type DMReadPayload struct {
	ReaderID uint  `json:"readerId"`
	Count    int64 `json:"count"`
}

func newCommunityMessagePayload(m *models.Message, senderName string) CommunityMessagePayload {
	return CommunityMessagePayload{
		ID:          m.ID,
		CommunityID: *m.CommunityID,
		SenderID:    m.SenderID,
		SenderName:  senderName,
		Content:     m.Content,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
	}
}

func newDirectMessagePayload(m *models.Message, senderName string) DirectMessagePayload {
	return DirectMessagePayload{
		ID:          m.ID,
		SenderID:    m.SenderID,
		ReceiverID:  *m.ReceiverID,
		SenderName:  senderName,
		Content:     m.Content,
		Status:      m.Status,
		IsAnonymous: m.IsAnonymous,
		IsRead:      m.IsRead,
		CreatedAt:   m.CreatedAt,
	}
}

// RelayOptions 是 Relay 的可調參數
type RelayOptions struct {
	AnonymousName    string
	MaxContentLength int
}

// Relay 驗證、持久化並轉發社群消息與私訊。
//
// 同一次呼叫內一定先寫入再廣播；不同呼叫之間沒有順序保證，客戶端依 created_at 排序。
type Relay struct {
	users       repository.UserRepository
	communities repository.CommunityRepository
	messages    repository.MessageRepository
	gate        *Gate
	notifier    *NotificationService
	hub         *Hub
	registry    *Registry
	opts        RelayOptions
	logger      *slog.Logger
}

func NewRelay(repos *repository.Repositories, gate *Gate, notifier *NotificationService, hub *Hub, registry *Registry, opts RelayOptions, logger *slog.Logger) *Relay {
	return &Relay{
		users:       repos.User,
		communities: repos.Community,
		messages:    repos.Message,
		gate:        gate,
		notifier:    notifier,
		hub:         hub,
		registry:    registry,
		opts:        opts,
		logger:      logger.With(slog.String("component", "relay")),
	}
}

// SendCommunityMessage 發送社群消息。Announce 時不寫入消息，回傳的 message 為 nil。
func (r *Relay) SendCommunityMessage(ctx context.Context, communityID, senderID uint, body CommunityBody) (*models.Message, error) {
	sender, err := r.users.FindByID(ctx, senderID)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("sender %d", senderID))
	}
	community, err := r.communities.FindByID(ctx, communityID)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("community %d", communityID))
	}

	if err := r.gate.AdmitCommunitySend(sender.Role, community.Status); err != nil {
		r.logger.Info("community message rejected",
			slog.Uint64("communityID", uint64(communityID)),
			slog.Uint64("senderID", uint64(senderID)),
			slog.Any("error", err),
		)
		return nil, err
	}

	switch b := body.(type) {
	case Post:
		content, err := r.checkContent(b.Content)
		if err != nil {
			return nil, err
		}

		message := models.NewCommunityMessage(communityID, senderID, content)
		if err := r.messages.Create(ctx, message); err != nil {
			r.logger.Error("failed to persist community message",
				slog.Uint64("communityID", uint64(communityID)),
				slog.Uint64("senderID", uint64(senderID)),
				slog.Any("error", err),
			)
			return nil, fmt.Errorf("%w: community message: %v", ErrPersistence, err)
		}

		r.hub.Broadcast(CommunityChannel(communityID), EventNewMessage, newCommunityMessagePayload(message, sender.DisplayName()))

		if r.gate.IsPrivileged(sender.Role) {
			in := r.communityNotification(community, sender, content, b.Subject, models.NotificationCommunity)
			if _, err := r.notifier.NotifyCommunity(ctx, community, sender.ID, in); err != nil {
				// 消息已經送出，通知失敗只記錄
				r.logger.Warn("community notification failed", slog.Uint64("communityID", uint64(communityID)), slog.Any("error", err))
			}
		}
		return message, nil

	case Announce:
		// 只發通知的公告限管理員與教學角色
		if err := r.gate.AdmitNotify(sender.Role); err != nil {
			r.logger.Info("announcement rejected",
				slog.Uint64("communityID", uint64(communityID)),
				slog.Uint64("senderID", uint64(senderID)),
			)
			return nil, err
		}
		content, err := r.checkContent(b.Content)
		if err != nil {
			return nil, err
		}

		in := r.communityNotification(community, sender, content, b.Subject, models.NotificationAnnounce)
		if _, err := r.notifier.NotifyCommunity(ctx, community, sender.ID, in); err != nil {
			return nil, err
		}
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: unsupported community body %T", ErrMalformedEvent, body)
	}
}

func (r *Relay) communityNotification(community *models.Community, sender *models.User, content, subject, kind string) NotificationInput {
	title := subject
	if title == "" {
		if kind == models.NotificationAnnounce {
			title = fmt.Sprintf("Announcement in %s", community.Name)
		} else {
			title = fmt.Sprintf("New message in %s", community.Name)
		}
	}
	senderID := sender.ID
	return NotificationInput{
		SenderID: &senderID,
		Title:    title,
		Message:  content,
		Type:     kind,
	}
}

// DeleteCommunityMessage 硬刪除並通知社群。權限由上游檢查。
func (r *Relay) DeleteCommunityMessage(ctx context.Context, messageID, communityID uint) error {
	if _, err := r.messages.DeleteFromCommunity(ctx, messageID, communityID); err != nil {
		r.logger.Error("failed to delete community message",
			slog.Uint64("messageID", uint64(messageID)),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: delete message %d: %v", ErrPersistence, messageID, err)
	}

	r.hub.Broadcast(CommunityChannel(communityID), EventMessageDeleted, MessageDeletedPayload{
		MessageID:   messageID,
		CommunityID: communityID,
	})
	return nil
}

// SendDirectMessage 發送私訊，接收者在線時推送，發送者收到帶真實名字的回執
func (r *Relay) SendDirectMessage(ctx context.Context, senderID, receiverID uint, content string, identity DirectIdentity) (*models.Message, error) {
	sender, err := r.users.FindByID(ctx, senderID)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("sender %d", senderID))
	}
	receiver, err := r.users.FindByID(ctx, receiverID)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("receiver %d", receiverID))
	}

	var anonymous bool
	switch identity.(type) {
	case Anonymous:
		if err := r.gate.AdmitAnonymous(sender.Role, receiver.Role); err != nil {
			r.logger.Info("anonymous message rejected",
				slog.Uint64("senderID", uint64(senderID)),
				slog.Uint64("receiverID", uint64(receiverID)),
			)
			return nil, err
		}
		anonymous = true
	case Identified:
	default:
		return nil, fmt.Errorf("%w: unsupported identity %T", ErrMalformedEvent, identity)
	}

	content, err = r.checkContent(content)
	if err != nil {
		return nil, err
	}

	message := models.NewDirectMessage(senderID, receiverID, content, anonymous)
	if err := r.messages.Create(ctx, message); err != nil {
		r.logger.Error("failed to persist direct message",
			slog.Uint64("senderID", uint64(senderID)),
			slog.Uint64("receiverID", uint64(receiverID)),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: direct message: %v", ErrPersistence, err)
	}

	shownName := sender.DisplayName()
	if anonymous {
		shownName = r.opts.AnonymousName
	}
	r.emitToUser(receiverID, EventNewDirectMessage, newDirectMessagePayload(message, shownName))
	r.emitToUser(senderID, EventDirectMessageSent, newDirectMessagePayload(message, sender.DisplayName()))
	return message, nil
}

// CommunityTyping 廣播給社群內其他連線，不寫入也不檢查
func (r *Relay) CommunityTyping(from *Client, communityID uint, userName string, isTyping bool) int {
	return r.hub.BroadcastExcept(CommunityChannel(communityID), from, EventUserTyping, TypingPayload{
		CommunityID: communityID,
		UserID:      from.UserID(),
		UserName:    userName,
		IsTyping:    isTyping,
	})
}

// DirectTyping 接收者在線時才送出
func (r *Relay) DirectTyping(senderID, receiverID uint, senderName string, isTyping bool) bool {
	return r.emitToUser(receiverID, EventDMUserTyping, DMTypingPayload{
		SenderID:   senderID,
		SenderName: senderName,
		IsTyping:   isTyping,
	})
}

// MarkDirectRead 讀者把 senderID 寄來的私訊標為已讀，並告知在線的發送者
func (r *Relay) MarkDirectRead(ctx context.Context, readerID, senderID uint) (int64, error) {
	count, err := r.messages.MarkConversationRead(ctx, readerID, senderID)
	if err != nil {
		return 0, fmt.Errorf("%w: mark direct messages read: %v", ErrPersistence, err)
	}
	if count > 0 {
		r.emitToUser(senderID, EventDMRead, DMReadPayload{ReaderID: readerID, Count: count})
	}
	return count, nil
}

// CommunityTranscript 讀取社群聊天紀錄並附上發送者名字
func (r *Relay) CommunityTranscript(ctx context.Context, communityID uint, limit int) ([]CommunityMessagePayload, error) {
	if _, err := r.communities.FindByID(ctx, communityID); err != nil {
		return nil, storeErr(err, fmt.Sprintf("community %d", communityID))
	}

	messages, err := r.messages.FindByCommunity(ctx, communityID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: community transcript: %v", ErrPersistence, err)
	}

	names := r.displayNames(ctx, messages)
	payloads := make([]CommunityMessagePayload, 0, len(messages))
	for i := range messages {
		payloads = append(payloads, newCommunityMessagePayload(&messages[i], names[messages[i].SenderID]))
	}
	return payloads, nil
}

// Conversation 讀取兩人之間的私訊。viewer 是接收者時，匿名消息的名字會被遮蔽。
func (r *Relay) Conversation(ctx context.Context, viewerID, otherID uint, limit int) ([]DirectMessagePayload, error) {
	messages, err := r.messages.FindConversation(ctx, viewerID, otherID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: conversation: %v", ErrPersistence, err)
	}

	names := r.displayNames(ctx, messages)
	payloads := make([]DirectMessagePayload, 0, len(messages))
	for i := range messages {
		m := &messages[i]
		name := names[m.SenderID]
		if m.IsAnonymous && m.SenderID != viewerID {
			name = r.opts.AnonymousName
		}
		payloads = append(payloads, newDirectMessagePayload(m, name))
	}
	return payloads, nil
}

func (r *Relay) displayNames(ctx context.Context, messages []models.Message) map[uint]string {
	names := make(map[uint]string)
	for _, m := range messages {
		if _, ok := names[m.SenderID]; ok {
			continue
		}
		user, err := r.users.FindByID(ctx, m.SenderID)
		if err != nil {
			names[m.SenderID] = ""
			continue
		}
		names[m.SenderID] = user.DisplayName()
	}
	return names
}

// emitToUser 透過 registry 判斷是否在線，在線才推送到用戶頻道
func (r *Relay) emitToUser(userID uint, event string, data interface{}) bool {
	if !r.registry.IsOnline(userID) {
		return false
	}
	return r.hub.Broadcast(UserChannel(userID), event, data) > 0
}

func (r *Relay) checkContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: message is empty", ErrInvalidContent)
	}
	if r.opts.MaxContentLength > 0 && utf8.RuneCountInString(content) > r.opts.MaxContentLength {
		return "", fmt.Errorf("%w: message exceeds %d characters", ErrInvalidContent, r.opts.MaxContentLength)
	}
	return content, nil
}
