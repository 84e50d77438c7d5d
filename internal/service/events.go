package service

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
)

// 客戶端送來的事件
const (
	EventRegister              = "register"
	EventJoinCommunity         = "join-community"
	EventLeaveCommunity        = "leave-community"
	EventSendMessage           = "send-message"
	EventDeleteMessage         = "delete-message"
	EventTyping                = "typing"
	EventSendDirectMessage     = "send-direct-message"
	EventDMTyping              = "dm-typing"
	EventSendNotification      = "send-notification"
	EventBroadcastNotification = "broadcast-notification"
	EventMarkDMRead            = "mark-dm-read"
)

// 伺服器推送的事件
const (
	EventNewMessage        = "new-message"
	EventMessageDeleted    = "message-deleted"
	EventUserTyping        = "user-typing"
	EventNewDirectMessage  = "new-direct-message"
	EventDirectMessageSent = "direct-message-sent"
	EventDMUserTyping      = "dm-user-typing"
	EventNewNotification   = "new-notification"
	EventUserStatus        = "user-status"
	EventMessageError      = "message-error"
	EventDMRead            = "dm-read"
)

// Event 是解碼並驗證過的入站事件
type Event interface {
	EventName() string
}

type RegisterEvent struct {
	UserID uint `json:"userId" validate:"required"`
}

type JoinCommunityEvent struct {
	CommunityID uint `json:"communityId" validate:"required"`
}

type LeaveCommunityEvent struct {
	CommunityID uint `json:"communityId" validate:"required"`
}

type SendMessageEvent struct {
	CommunityID      uint   `json:"communityId" validate:"required"`
	Message          string `json:"message" validate:"required"`
	SenderID         uint   `json:"senderId" validate:"required"`
	SenderName       string `json:"senderName" validate:"max=100"`
	NotificationOnly bool   `json:"notificationOnly"`
	Subject          string `json:"subject" validate:"max=255"`
}

type DeleteMessageEvent struct {
	MessageID   uint `json:"messageId" validate:"required"`
	CommunityID uint `json:"communityId" validate:"required"`
}

type TypingEvent struct {
	CommunityID uint   `json:"communityId" validate:"required"`
	UserName    string `json:"userName" validate:"max=100"`
	IsTyping    bool   `json:"isTyping"`
}

type SendDirectMessageEvent struct {
	SenderID    uint   `json:"senderId" validate:"required"`
	ReceiverID  uint   `json:"receiverId" validate:"required,nefield=SenderID"`
	Message     string `json:"message" validate:"required"`
	SenderName  string `json:"senderName" validate:"max=100"`
	IsAnonymous bool   `json:"isAnonymous"`
}

type DMTypingEvent struct {
	ReceiverID uint   `json:"receiverId" validate:"required"`
	SenderName string `json:"senderName" validate:"max=100"`
	IsTyping   bool   `json:"isTyping"`
}

type SendNotificationEvent struct {
	UserID   uint   `json:"userId" validate:"required"`
	Title    string `json:"title" validate:"required,max=255"`
	Message  string `json:"message"`
	Type     string `json:"type" validate:"max=50"`
	SenderID uint   `json:"senderId" validate:"required"`
}

type BroadcastNotificationEvent struct {
	Role     string `json:"role" validate:"omitempty,oneof=Student Teacher HOD 'Program Manager' Admin"`
	Title    string `json:"title" validate:"required,max=255"`
	Message  string `json:"message"`
	Type     string `json:"type" validate:"max=50"`
	SenderID uint   `json:"senderId" validate:"required"`
}

// MarkDMReadEvent 讀者把 SenderID 寄來的私訊標為已讀
type MarkDMReadEvent struct {
	SenderID uint `json:"senderId" validate:"required"`
}

func (*RegisterEvent) EventName() string              { return EventRegister }
func (*JoinCommunityEvent) EventName() string         { return EventJoinCommunity }
func (*LeaveCommunityEvent) EventName() string        { return EventLeaveCommunity }
func (*SendMessageEvent) EventName() string           { return EventSendMessage }
func (*DeleteMessageEvent) EventName() string         { return EventDeleteMessage }
func (*TypingEvent) EventName() string                { return EventTyping }
func (*SendDirectMessageEvent) EventName() string     { return EventSendDirectMessage }
func (*DMTypingEvent) EventName() string              { return EventDMTyping }
func (*SendNotificationEvent) EventName() string      { return EventSendNotification }
func (*BroadcastNotificationEvent) EventName() string { return EventBroadcastNotification }
func (*MarkDMReadEvent) EventName() string            { return EventMarkDMRead }

var validate = validator.New()

// DecodeEvent 解析 {"event": ..., "data": ...} 訊框。
//
// register、join-community、leave-community 的 data 可以直接是數字。
// 格式錯誤或驗證失敗都回傳包裝過的 ErrMalformedEvent。
func DecodeEvent(raw []byte) (Event, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedEvent)
	}

	name := gjson.GetBytes(raw, "event")
	if name.Type != gjson.String {
		return nil, fmt.Errorf("%w: missing event name", ErrMalformedEvent)
	}
	data := gjson.GetBytes(raw, "data")

	var (
		evt Event
		err error
	)
	switch name.Str {
	case EventRegister:
		e := &RegisterEvent{}
		err = decodeShorthand(data, &e.UserID, e)
		evt = e
	case EventJoinCommunity:
		e := &JoinCommunityEvent{}
		err = decodeShorthand(data, &e.CommunityID, e)
		evt = e
	case EventLeaveCommunity:
		e := &LeaveCommunityEvent{}
		err = decodeShorthand(data, &e.CommunityID, e)
		evt = e
	case EventSendMessage:
		evt = &SendMessageEvent{}
		err = decodeObject(data, evt)
	case EventDeleteMessage:
		evt = &DeleteMessageEvent{}
		err = decodeObject(data, evt)
	case EventTyping:
		evt = &TypingEvent{}
		err = decodeObject(data, evt)
	case EventSendDirectMessage:
		evt = &SendDirectMessageEvent{}
		err = decodeObject(data, evt)
	case EventDMTyping:
		evt = &DMTypingEvent{}
		err = decodeObject(data, evt)
	case EventSendNotification:
		evt = &SendNotificationEvent{}
		err = decodeObject(data, evt)
	case EventBroadcastNotification:
		evt = &BroadcastNotificationEvent{}
		err = decodeObject(data, evt)
	case EventMarkDMRead:
		evt = &MarkDMReadEvent{}
		err = decodeObject(data, evt)
	default:
		return nil, fmt.Errorf("%w: unknown event %q", ErrMalformedEvent, name.Str)
	}
	if err != nil {
		return nil, err
	}

	if err := validate.Struct(evt); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, name.Str, err)
	}
	return evt, nil
}

func decodeObject(data gjson.Result, dst interface{}) error {
	if !data.IsObject() {
		return fmt.Errorf("%w: data must be an object", ErrMalformedEvent)
	}
	if err := json.Unmarshal([]byte(data.Raw), dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}

// decodeShorthand data 是數字時直接寫入 id，否則當成物件解到 dst
func decodeShorthand(data gjson.Result, id *uint, dst interface{}) error {
	if data.Type != gjson.Number {
		return decodeObject(data, dst)
	}
	if data.Num < 1 || data.Num != float64(uint64(data.Num)) {
		return fmt.Errorf("%w: id must be a positive integer", ErrMalformedEvent)
	}
	*id = uint(data.Uint())
	return nil
}
