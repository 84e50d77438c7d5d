package service

import (
	"log/slog"

	"campus_relay/internal/repository"
	"campus_relay/pkg/config"
)

type Services struct {
	User         *UserService
	Notification *NotificationService
	Relay        *Relay
	WebSocket    *WebSocketService
	Hub          *Hub
	Registry     *Registry
	Gate         *Gate
}

// NewServices 建立整個行程共用的 registry 與 hub，並注入到各個服務
func NewServices(repos *repository.Repositories, cfg *config.Config, logger *slog.Logger) *Services {
	hub := NewHub(logger)
	registry := NewRegistry()
	gate := NewGate(cfg.Relay.TeachingRoles)

	notifier := NewNotificationService(repos, hub, registry, cfg.Relay.FanoutConcurrency, logger)
	relay := NewRelay(repos, gate, notifier, hub, registry, RelayOptions{
		AnonymousName:    cfg.Relay.AnonymousName,
		MaxContentLength: cfg.Relay.MaxContentLength,
	}, logger)
	wsService := NewWebSocketService(repos, hub, registry, relay, notifier, gate, WebSocketOptions{
		ReadLimit:      cfg.WebSocket.ReadLimit,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingPeriod,
		WriteWait:      cfg.WebSocket.WriteWait,
		SendBuffer:     cfg.WebSocket.SendBuffer,
		HandlerTimeout: cfg.Relay.HandlerTimeout,
	}, logger)

	return &Services{
		User:         NewUserService(repos.User, notifier, logger),
		Notification: notifier,
		Relay:        relay,
		WebSocket:    wsService,
		Hub:          hub,
		Registry:     registry,
		Gate:         gate,
	}
}
