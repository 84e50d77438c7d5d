package service

import "sync"

// Registry 是在線狀態表：userID -> 目前的連線。
//
// 每個用戶同時只保留一個連線，後註冊的覆蓋先前的。
// 資料只存在記憶體，重啟後全部遺失。
type Registry struct {
	mu      sync.RWMutex
	clients map[uint]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[uint]*Client),
	}
}

// Register 保存或覆蓋用戶的連線
func (r *Registry) Register(userID uint, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[userID] = client
}

func (r *Registry) Lookup(userID uint) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[userID]
	return client, ok
}

// Unregister 只有在保存的仍是同一個連線時才移除，
// 舊連線晚到的斷線不會把新連線踢掉。回傳是否真的移除。
func (r *Registry) Unregister(userID uint, client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.clients[userID]
	if !ok || current != client {
		return false
	}
	delete(r.clients, userID)
	return true
}

func (r *Registry) IsOnline(userID uint) bool {
	_, ok := r.Lookup(userID)
	return ok
}

// Count 回傳在線用戶數
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
