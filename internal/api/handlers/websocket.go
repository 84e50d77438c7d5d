package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"campus_relay/internal/service"
)

// WebSocketHandler 處理 WebSocket 連接
type WebSocketHandler struct {
	wsService *service.WebSocketService
	upgrader  websocket.Upgrader
}

// NewWebSocketHandler 建立 handler，allowedOrigins 為空時不檢查 origin
func NewWebSocketHandler(wsService *service.WebSocketService, allowedOrigins []string) *WebSocketHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &WebSocketHandler{
		wsService: wsService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// HandleWebSocket 處理 WebSocket 連接請求
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	// 升級前先確認身分，失敗時還能回 JSON
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失敗時已經寫好回應
		c.Error(err)
		return
	}

	h.wsService.HandleConnection(conn, userID)
}
