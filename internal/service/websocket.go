package service

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"campus_relay/internal/repository"
)

// WebSocketOptions 控制每條連線的讀寫參數
type WebSocketOptions struct {
	ReadLimit      int64
	PongWait       time.Duration
	PingPeriod     time.Duration
	WriteWait      time.Duration
	SendBuffer     int
	HandlerTimeout time.Duration
}

// WebSocketService 管理所有的 WebSocket 連接，把入站事件分派給 relay 與通知服務
type WebSocketService struct {
	hub      *Hub
	registry *Registry
	relay    *Relay
	notifier *NotificationService
	gate     *Gate
	users    repository.UserRepository
	messages repository.MessageRepository
	opts     WebSocketOptions
	logger   *slog.Logger
}

func NewWebSocketService(repos *repository.Repositories, hub *Hub, registry *Registry, relay *Relay, notifier *NotificationService, gate *Gate, opts WebSocketOptions, logger *slog.Logger) *WebSocketService {
	return &WebSocketService{
		hub:      hub,
		registry: registry,
		relay:    relay,
		notifier: notifier,
		gate:     gate,
		users:    repos.User,
		messages: repos.Message,
		opts:     opts,
		logger:   logger.With(slog.String("component", "websocket")),
	}
}

// HandleConnection 處理一條已升級的連線，直到連線關閉才返回
func (s *WebSocketService) HandleConnection(conn *websocket.Conn, authUserID uint) {
	client := NewClient(conn, authUserID, s.opts.SendBuffer)
	s.hub.Add(client)

	logger := s.logger.With(
		slog.String("connID", client.ID.String()),
		slog.Uint64("authUserID", uint64(authUserID)),
	)
	logger.Info("connection established")

	// 確保連接關閉時清理資源
	defer s.disconnect(client, logger)

	go s.writePump(client, logger)
	s.readPump(client, logger)
}

// readPump 持續監聽並處理從客戶端接收的消息，事件依序處理
func (s *WebSocketService) readPump(client *Client, logger *slog.Logger) {
	client.conn.SetReadLimit(s.opts.ReadLimit)
	client.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket unexpected close error", slog.Any("error", err))
			}
			return
		}

		s.dispatch(client, message, logger)
	}
}

// writePump 處理向客戶端發送消息的邏輯
func (s *WebSocketService) writePump(client *Client, logger *slog.Logger) {
	// 設置心跳檢查計時器
	ticker := time.NewTicker(s.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case frame := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Debug("write failed", slog.Any("error", err))
				return
			}

		case <-ticker.C:
			// 發送心跳包
			client.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.Done():
			return
		}
	}
}

// disconnect 只有 registry 裡仍是這條連線時才會廣播離線
func (s *WebSocketService) disconnect(client *Client, logger *slog.Logger) {
	client.Close()
	s.hub.Remove(client)

	if userID := client.UserID(); userID != 0 {
		if s.registry.Unregister(userID, client) {
			s.hub.BroadcastAll(EventUserStatus, UserStatusPayload{UserID: userID, Status: StatusOffline})
		}
	}
	logger.Info("connection closed")
}
