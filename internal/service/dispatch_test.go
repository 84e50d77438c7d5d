package service

import (
	"context"
	"errors"
	"testing"

	"campus_relay/internal/models"
)

func TestDispatch_RequiresRegistration(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", models.RoleStudent)
	client := NewClient(nil, alice.ID, 8)

	err := env.services.WebSocket.handle(context.Background(), client, &JoinCommunityEvent{CommunityID: 1})
	if !errors.Is(err, ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
}

func TestDispatch_RegisterMustMatchToken(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", models.RoleStudent)
	bob := env.user(t, "bob", models.RoleStudent)
	client := NewClient(nil, alice.ID, 8)

	err := env.services.WebSocket.handle(context.Background(), client, &RegisterEvent{UserID: bob.ID})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if env.services.Registry.IsOnline(bob.ID) {
		t.Error("impersonated user must not be registered")
	}
}

func TestDispatch_RegisterJoinsChannels(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", models.RoleAdmin)
	student := env.user(t, "student", models.RoleStudent)

	observer := env.connect(t, student)
	ca := env.connect(t, admin)

	hub := env.services.Hub
	if !hub.InChannel(ca, UserChannel(admin.ID)) || !hub.InChannel(ca, AdminChannel) {
		t.Error("admin should join its user channel and the admins channel")
	}
	if hub.InChannel(observer, AdminChannel) {
		t.Error("student must not join the admins channel")
	}
	if got, _ := env.services.Registry.Lookup(admin.ID); got != ca {
		t.Error("registry should hold the admin connection")
	}

	status := only(drain(observer), EventUserStatus)
	if len(status) != 1 {
		t.Fatalf("expected one user-status event, got %d", len(status))
	}
	var payload UserStatusPayload
	decodeData(t, status[0], &payload)
	if payload.UserID != admin.ID || payload.Status != StatusOnline {
		t.Errorf("unexpected status payload %+v", payload)
	}
}

func TestDispatch_SenderMustBeRegisteredUser(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", models.RoleStudent)
	bob := env.user(t, "bob", models.RoleTeacher)
	env.community(t, 5, nil, models.CommunityActive)
	ca := env.connect(t, alice)

	ctx := context.Background()
	ws := env.services.WebSocket
	if err := ws.handle(ctx, ca, &SendMessageEvent{CommunityID: 5, Message: "x", SenderID: bob.ID}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("send-message: expected ErrUnauthorized, got %v", err)
	}
	if err := ws.handle(ctx, ca, &SendDirectMessageEvent{SenderID: bob.ID, ReceiverID: alice.ID, Message: "x"}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("send-direct-message: expected ErrUnauthorized, got %v", err)
	}
}

func TestDispatch_DeletePermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.user(t, "owner", models.RoleStudent)
	other := env.user(t, "other", models.RoleTeacher)
	admin := env.user(t, "admin", models.RoleAdmin)
	env.community(t, 5, nil, models.CommunityActive)
	env.community(t, 6, nil, models.CommunityActive)

	co := env.connect(t, owner)
	cx := env.connect(t, other)
	cadm := env.connect(t, admin)
	ws := env.services.WebSocket

	first, err := env.services.Relay.SendCommunityMessage(ctx, 5, owner.ID, Post{Content: "first"})
	if err != nil {
		t.Fatalf("SendCommunityMessage failed: %v", err)
	}
	second, err := env.services.Relay.SendCommunityMessage(ctx, 5, owner.ID, Post{Content: "second"})
	if err != nil {
		t.Fatalf("SendCommunityMessage failed: %v", err)
	}

	if err := ws.handle(ctx, cx, &DeleteMessageEvent{MessageID: first.ID, CommunityID: 5}); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-owner delete: expected ErrForbidden, got %v", err)
	}
	if err := ws.handle(ctx, co, &DeleteMessageEvent{MessageID: first.ID, CommunityID: 6}); !errors.Is(err, ErrNotFound) {
		t.Errorf("wrong community: expected ErrNotFound, got %v", err)
	}
	if err := ws.handle(ctx, co, &DeleteMessageEvent{MessageID: first.ID, CommunityID: 5}); err != nil {
		t.Errorf("owner delete failed: %v", err)
	}
	if err := ws.handle(ctx, cadm, &DeleteMessageEvent{MessageID: second.ID, CommunityID: 5}); err != nil {
		t.Errorf("admin delete failed: %v", err)
	}
}

func TestDispatch_NotificationPermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.user(t, "teacher", models.RoleTeacher)
	student := env.user(t, "student", models.RoleStudent)
	ct := env.connect(t, teacher)
	cs := env.connect(t, student)
	ws := env.services.WebSocket

	if err := ws.handle(ctx, ct, &BroadcastNotificationEvent{Title: "x", SenderID: teacher.ID}); !errors.Is(err, ErrForbidden) {
		t.Errorf("teacher broadcast: expected ErrForbidden, got %v", err)
	}
	if err := ws.handle(ctx, cs, &SendNotificationEvent{UserID: teacher.ID, Title: "x", SenderID: student.ID}); !errors.Is(err, ErrForbidden) {
		t.Errorf("student notification: expected ErrForbidden, got %v", err)
	}
	if err := ws.handle(ctx, ct, &SendNotificationEvent{UserID: student.ID, Title: "Homework", SenderID: teacher.ID}); err != nil {
		t.Fatalf("teacher notification failed: %v", err)
	}

	got := only(drain(cs), EventNewNotification)
	if len(got) != 1 {
		t.Fatalf("expected one pushed notification, got %d", len(got))
	}
	var n models.Notification
	decodeData(t, got[0], &n)
	if n.SenderID == nil || *n.SenderID != teacher.ID {
		t.Errorf("notification should record the sender, got %+v", n)
	}
}

func TestDispatch_MarkDMRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice", models.RoleStudent)
	bob := env.user(t, "bob", models.RoleStudent)
	cb := env.connect(t, bob)

	if _, err := env.services.Relay.SendDirectMessage(ctx, alice.ID, bob.ID, "hello", Identified{}); err != nil {
		t.Fatalf("SendDirectMessage failed: %v", err)
	}
	if err := env.services.WebSocket.handle(ctx, cb, &MarkDMReadEvent{SenderID: alice.ID}); err != nil {
		t.Fatalf("mark-dm-read failed: %v", err)
	}

	conversation, err := env.services.Relay.Conversation(ctx, bob.ID, alice.ID, 10)
	if err != nil {
		t.Fatalf("Conversation failed: %v", err)
	}
	if len(conversation) != 1 || !conversation[0].IsRead {
		t.Errorf("message should be read, got %+v", conversation)
	}
}

func TestDispatch_RawFramesReplyWithErrors(t *testing.T) {
	env := newTestEnv(t)
	student := env.user(t, "student", models.RoleStudent)
	env.community(t, 9, nil, models.CommunityInactive)
	cs := env.connect(t, student)
	ws := env.services.WebSocket

	tests := []struct {
		raw      string
		wantCode string
	}{
		{`{"event":"send-message","data":{"communityId":9,"message":"hi","senderId":` + itoa(student.ID) + `}}`, CodePolicyDenied},
		{`not json`, CodeInvalidEvent},
		{`{"event":"send-message","data":{"communityId":9}}`, CodeInvalidEvent},
		{`{"event":"register","data":` + itoa(student.ID+100) + `}`, CodeUnauthorized},
	}

	for _, tt := range tests {
		ws.dispatch(cs, []byte(tt.raw), discardLogger())

		got := only(drain(cs), EventMessageError)
		if len(got) != 1 {
			t.Fatalf("%s: expected one message-error, got %d", tt.raw, len(got))
		}
		var payload ErrorPayload
		decodeData(t, got[0], &payload)
		if payload.Code != tt.wantCode {
			t.Errorf("%s: code = %q, want %q", tt.raw, payload.Code, tt.wantCode)
		}
	}
}

func TestDispatch_DisconnectBroadcastsOffline(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", models.RoleStudent)
	bob := env.user(t, "bob", models.RoleStudent)
	cb := env.connect(t, bob)
	ca := env.connect(t, alice)
	drain(cb)

	env.services.WebSocket.disconnect(ca, discardLogger())

	if env.services.Registry.IsOnline(alice.ID) {
		t.Error("alice should be offline after disconnect")
	}
	got := only(drain(cb), EventUserStatus)
	if len(got) != 1 {
		t.Fatalf("expected one user-status event, got %d", len(got))
	}
	var payload UserStatusPayload
	decodeData(t, got[0], &payload)
	if payload.UserID != alice.ID || payload.Status != StatusOffline {
		t.Errorf("unexpected status payload %+v", payload)
	}
}

func TestDispatch_StaleDisconnectKeepsNewConnection(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", models.RoleStudent)
	bob := env.user(t, "bob", models.RoleStudent)
	cb := env.connect(t, bob)

	first := env.connect(t, alice)
	second := env.connect(t, alice)
	drain(cb)

	env.services.WebSocket.disconnect(first, discardLogger())

	if got, _ := env.services.Registry.Lookup(alice.ID); got != second {
		t.Error("stale disconnect must not evict the newer connection")
	}
	if got := only(drain(cb), EventUserStatus); len(got) != 0 {
		t.Errorf("no offline status expected while alice is still connected, got %d", len(got))
	}
}

func TestDispatch_ReconnectMovesUserPushesToNewConnection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice", models.RoleAdmin)
	bob := env.user(t, "bob", models.RoleStudent)

	stale := env.connect(t, alice)
	live := env.connect(t, alice)
	drain(stale)

	hub := env.services.Hub
	if hub.InChannel(stale, UserChannel(alice.ID)) || hub.InChannel(stale, AdminChannel) {
		t.Error("superseded connection should leave the personal and admins channels")
	}
	if !hub.InChannel(live, UserChannel(alice.ID)) || !hub.InChannel(live, AdminChannel) {
		t.Error("new connection should hold the personal and admins channels")
	}

	if _, err := env.services.Relay.SendDirectMessage(ctx, bob.ID, alice.ID, "hi", Identified{}); err != nil {
		t.Fatalf("SendDirectMessage failed: %v", err)
	}
	if _, err := env.services.Notification.NotifyUser(ctx, alice.ID, NotificationInput{Title: "ping"}); err != nil {
		t.Fatalf("NotifyUser failed: %v", err)
	}

	staleFrames := drain(stale)
	liveFrames := drain(live)
	for _, event := range []string{EventNewDirectMessage, EventNewNotification} {
		if got := only(staleFrames, event); len(got) != 0 {
			t.Errorf("superseded connection got %d %s", len(got), event)
		}
		if got := only(liveFrames, event); len(got) != 1 {
			t.Errorf("live connection expected one %s, got %d", event, len(got))
		}
	}
}
