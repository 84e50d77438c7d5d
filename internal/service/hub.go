package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// AdminChannel 管理員連線額外加入的頻道
const AdminChannel = "admins"

// CommunityChannel 社群聊天頻道名稱
func CommunityChannel(communityID uint) string {
	return fmt.Sprintf("community-%d", communityID)
}

// UserChannel 每個用戶自己的頻道，用於私訊與通知
func UserChannel(userID uint) string {
	return fmt.Sprintf("user-%d", userID)
}

// Hub 管理連線與頻道的多對多關係，並負責對頻道廣播
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]map[string]struct{} // client -> 已加入的頻道
	channels map[string]map[*Client]struct{} // 頻道 -> 成員

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:  make(map[*Client]map[string]struct{}),
		channels: make(map[string]map[*Client]struct{}),
		logger:   logger.With(slog.String("component", "hub")),
	}
}

// Add 登記一個新連線
func (h *Hub) Add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		h.clients[client] = make(map[string]struct{})
	}
}

// Remove 移除連線，並離開它加入的所有頻道
func (h *Hub) Remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channel := range h.clients[client] {
		h.leaveLocked(client, channel)
	}
	delete(h.clients, client)
}

func (h *Hub) Join(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.clients[client]
	if !ok {
		joined = make(map[string]struct{})
		h.clients[client] = joined
	}
	joined[channel] = struct{}{}

	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*Client]struct{})
	}
	h.channels[channel][client] = struct{}{}
}

func (h *Hub) Leave(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, channel)
}

func (h *Hub) leaveLocked(client *Client, channel string) {
	if joined, ok := h.clients[client]; ok {
		delete(joined, channel)
	}
	if members, ok := h.channels[channel]; ok {
		delete(members, client)
		// 頻道空了就刪除
		if len(members) == 0 {
			delete(h.channels, channel)
		}
	}
}

func (h *Hub) InChannel(client *Client, channel string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.channels[channel][client]
	return ok
}

// Members 回傳頻道內的連線數
func (h *Hub) Members(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Broadcast 對頻道內所有連線發送事件，回傳成功放入佇列的數量
func (h *Hub) Broadcast(channel, event string, data interface{}) int {
	return h.BroadcastExcept(channel, nil, event, data)
}

// BroadcastExcept 對頻道廣播，但略過 except
func (h *Hub) BroadcastExcept(channel string, except *Client, event string, data interface{}) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.channels[channel]))
	for client := range h.channels[channel] {
		if client != except {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	return h.deliver(targets, event, data)
}

// BroadcastAll 對所有連線廣播
func (h *Hub) BroadcastAll(event string, data interface{}) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	return h.deliver(targets, event, data)
}

func (h *Hub) deliver(targets []*Client, event string, data interface{}) int {
	if len(targets) == 0 {
		return 0
	}

	frame, err := encodeFrame(event, data)
	if err != nil {
		h.logger.Error("failed to encode frame", slog.String("event", event), slog.Any("error", err))
		return 0
	}

	delivered := 0
	for _, client := range targets {
		if err := client.enqueue(frame); err != nil {
			// 佇列已滿或連線已關閉，這個連線就收不到這一則
			if !errors.Is(err, ErrClientClosed) {
				h.logger.Warn("dropping frame",
					slog.String("event", event),
					slog.String("connID", client.ID.String()),
					slog.Any("error", err),
				)
			}
			continue
		}
		delivered++
	}
	return delivered
}

// CloseAll 關閉所有連線，用於伺服器關機
func (h *Hub) CloseAll() int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.Close()
	}
	return len(targets)
}
