package service

import (
	"errors"
	"fmt"

	"campus_relay/internal/repository"
)

// 策略拒絕：只回傳給發送者，不會廣播
var (
	ErrPolicyDenied        = errors.New("policy denied")
	ErrCommunityInactive   = fmt.Errorf("%w: community is inactive", ErrPolicyDenied)
	ErrAnonymousNotAllowed = fmt.Errorf("%w: anonymous messages are only allowed from students to teaching staff", ErrPolicyDenied)
	ErrForbidden           = fmt.Errorf("%w: role is not allowed to perform this action", ErrPolicyDenied)
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotRegistered  = errors.New("connection is not registered")
	ErrMalformedEvent = errors.New("malformed event")
	ErrInvalidContent = errors.New("invalid message content")
	ErrPersistence    = errors.New("persistence failure")
	ErrNotFound       = errors.New("not found")
)

// 連線相關錯誤
var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrClientClosed   = errors.New("client closed")
)

// message-error 事件使用的錯誤代碼
const (
	CodePolicyDenied       = "policy_denied"
	CodePersistenceFailure = "persistence_failure"
	CodeInvalidEvent       = "invalid_event"
	CodeUnauthorized       = "unauthorized"
	CodeNotFound           = "not_found"
	CodeNotRegistered      = "not_registered"
	CodeInternal           = "internal"
)

// ErrorCode 把錯誤對應到 message-error 的代碼
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrPolicyDenied):
		return CodePolicyDenied
	case errors.Is(err, ErrPersistence):
		return CodePersistenceFailure
	case errors.Is(err, ErrMalformedEvent), errors.Is(err, ErrInvalidContent):
		return CodeInvalidEvent
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNotRegistered):
		return CodeNotRegistered
	default:
		return CodeInternal
	}
}

// storeErr 把 repository 的錯誤分成 NotFound 與 PersistenceFailure
func storeErr(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("%w: %s: %v", ErrPersistence, what, err)
}
