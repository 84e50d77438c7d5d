package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"campus_relay/internal/models"
)

// Envelope 是所有進出 WebSocket 的訊框格式
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

func encodeFrame(event string, data interface{}) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Data: data})
}

// Client 代表一個 WebSocket 客戶端連接，也是 registry 裡保存的連線把手
type Client struct {
	ID   uuid.UUID
	conn *websocket.Conn
	send chan []byte // 消息發送通道，由 writePump 消費

	// 從 JWT 取得，register 事件的 userId 必須和它一致
	authUserID uint

	mu     sync.RWMutex
	userID uint
	role   models.UserRole

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, authUserID uint, buffer int) *Client {
	return &Client{
		ID:         uuid.New(),
		conn:       conn,
		send:       make(chan []byte, buffer),
		authUserID: authUserID,
		done:       make(chan struct{}),
	}
}

// UserID 回傳 register 之後綁定的用戶，未綁定時為 0
func (c *Client) UserID() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) Role() models.UserRole {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

func (c *Client) bind(userID uint, role models.UserRole) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.role = role
}

// Emit 把事件放進發送佇列，不會阻塞
func (c *Client) Emit(event string, data interface{}) error {
	frame, err := encodeFrame(event, data)
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

func (c *Client) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

// Close 可以重複呼叫
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			// WriteControl 可以和 writePump 的寫入並行
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			c.conn.Close()
		}
	})
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}
