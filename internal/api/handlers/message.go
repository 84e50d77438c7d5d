package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus_relay/internal/service"
)

// MessageHandler 提供社群聊天紀錄與私訊紀錄
type MessageHandler struct {
	relay *service.Relay
}

func NewMessageHandler(relay *service.Relay) *MessageHandler {
	return &MessageHandler{relay: relay}
}

// CommunityMessages 社群聊天紀錄，依時間排序
func (h *MessageHandler) CommunityMessages(c *gin.Context) {
	communityID, ok := paramID(c, "id")
	if !ok {
		return
	}

	messages, err := h.relay.CommunityTranscript(c.Request.Context(), communityID, queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// Conversation 與另一個用戶的私訊紀錄，自己是接收者時匿名消息會被遮蔽
func (h *MessageHandler) Conversation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	otherID, ok := paramID(c, "userId")
	if !ok {
		return
	}

	messages, err := h.relay.Conversation(c.Request.Context(), userID, otherID, queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// MarkConversationRead 把對方寄來的私訊標為已讀
func (h *MessageHandler) MarkConversationRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	senderID, ok := paramID(c, "userId")
	if !ok {
		return
	}

	count, err := h.relay.MarkDirectRead(c.Request.Context(), userID, senderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}
