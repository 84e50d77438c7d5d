package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus_relay/internal/models"
	"campus_relay/internal/service"
)

// NotificationHandler 處理通知的查詢、已讀與管理員發送
type NotificationHandler struct {
	notifier *service.NotificationService
}

func NewNotificationHandler(notifier *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// CreateNotificationInput 管理員發給單一用戶
type CreateNotificationInput struct {
	UserID  uint   `json:"user_id" binding:"required"`
	Title   string `json:"title" binding:"required,max=255"`
	Message string `json:"message"`
	Type    string `json:"type" binding:"max=50"`
}

// BroadcastNotificationInput 角色為空時發給所有用戶
type BroadcastNotificationInput struct {
	Role    string `json:"role" binding:"omitempty,oneof=Student Teacher HOD 'Program Manager' Admin"`
	Title   string `json:"title" binding:"required,max=255"`
	Message string `json:"message"`
	Type    string `json:"type" binding:"max=50"`
}

// List 列出自己的通知，?unread=true 只列未讀
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	notifications, err := h.notifier.List(c.Request.Context(), userID, c.Query("unread") == "true", queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	count, err := h.notifier.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	changed, err := h.notifier.MarkRead(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	// 已讀或不屬於自己的通知 updated 為 0
	c.JSON(http.StatusOK, gin.H{"updated": changed})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	changed, err := h.notifier.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": changed})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.notifier.Delete(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if deleted == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "找不到該通知"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "通知已刪除"})
}

// Create 管理員發送單一通知
func (h *NotificationHandler) Create(c *gin.Context) {
	senderID, ok := currentUserID(c)
	if !ok {
		return
	}
	var input CreateNotificationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notification, err := h.notifier.NotifyUser(c.Request.Context(), input.UserID, service.NotificationInput{
		SenderID: &senderID,
		Title:    input.Title,
		Message:  input.Message,
		Type:     input.Type,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, notification)
}

// Broadcast 管理員依角色群發，單一用戶失敗不影響其他人
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	senderID, ok := currentUserID(c)
	if !ok {
		return
	}
	var input BroadcastNotificationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.notifier.BroadcastToRole(c.Request.Context(), models.UserRole(input.Role), service.NotificationInput{
		SenderID: &senderID,
		Title:    input.Title,
		Message:  input.Message,
		Type:     input.Type,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	failed := make([]uint, 0, len(result.Failures))
	for _, f := range result.Failures {
		failed = append(failed, f.UserID)
	}
	c.JSON(http.StatusCreated, gin.H{
		"created": result.Created(),
		"pushed":  result.Pushed,
		"failed":  failed,
	})
}
