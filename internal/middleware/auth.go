package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campus_relay/internal/models"
	"campus_relay/internal/utils"
)

// AuthMiddleware 是一個 Gin 中間件，用於驗證請求的 JWT token
//
// 瀏覽器的 WebSocket 無法帶自訂 header，所以也接受 ?token= 查詢參數。
func AuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			// 從請求頭中獲取 Authorization 字段
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
				c.Abort()
				return
			}

			// 檢查 Authorization 頭的格式
			parts := strings.SplitN(authHeader, " ", 2)
			if !(len(parts) == 2 && parts[0] == "Bearer") {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
				c.Abort()
				return
			}
			token = parts[1]
		}

		claims, err := tokens.ParseToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		// 將用戶信息設置到上下文中
		c.Set("userID", claims.UserID)
		c.Set("userRole", claims.Role)
		c.Next()
	}
}

// UserLookup 讀取用戶目前在資料庫裡的資料
type UserLookup interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// RequireRole 只允許指定角色通過，必須放在 AuthMiddleware 之後。
// 角色從資料庫重新讀取，token 裡的角色可能已經過時。
func RequireRole(users UserLookup, roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := c.Get("userID")
		id, _ := userID.(uint)
		if !ok || id == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}

		user, err := users.GetUser(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			c.Abort()
			return
		}

		for _, r := range roles {
			if user.Role == r {
				c.Set("userRole", string(user.Role))
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "權限不足"})
		c.Abort()
	}
}
