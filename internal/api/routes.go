package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus_relay/internal/api/handlers"
	"campus_relay/internal/middleware"
	"campus_relay/internal/models"
	"campus_relay/internal/service"
	"campus_relay/internal/utils"
	"campus_relay/pkg/config"
)

func SetupRoutes(r *gin.Engine, services *service.Services, tokens *utils.TokenManager, cfg *config.Config) {
	// 初始化 handlers
	authHandler := handlers.NewAuthHandler(services.User, tokens)
	notificationHandler := handlers.NewNotificationHandler(services.Notification)
	messageHandler := handlers.NewMessageHandler(services.Relay)
	wsHandler := handlers.NewWebSocketHandler(services.WebSocket, cfg.WebSocket.AllowedOrigins)

	// API 路由群組
	api := r.Group("/api")

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "找不到該路徑",
		})
	})

	// 公開路由
	{
		// 用戶認證相關
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)

		// 基本的健康檢查
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
				"online": services.Registry.Count(),
			})
		})
	}

	// 需要驗證的路由
	authorized := api.Group("/")
	authorized.Use(middleware.AuthMiddleware(tokens))
	{
		notifications := authorized.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.PUT("/read-all", notificationHandler.MarkAllRead)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
			notifications.DELETE("/:id", notificationHandler.Delete)

			// 只有管理員可以發送
			admin := notifications.Group("", middleware.RequireRole(services.User, models.RoleAdmin))
			admin.POST("", notificationHandler.Create)
			admin.POST("/broadcast", notificationHandler.Broadcast)
		}

		authorized.GET("/communities/:id/messages", messageHandler.CommunityMessages)

		direct := authorized.Group("/messages/direct")
		{
			direct.GET("/:userId", messageHandler.Conversation)
			direct.PUT("/:userId/read", messageHandler.MarkConversationRead)
		}
	}

	// WebSocket 連接點，瀏覽器用 ?token= 帶入 JWT
	r.GET("/ws", middleware.AuthMiddleware(tokens), wsHandler.HandleWebSocket)
}
