package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus_relay/internal/models"
	"campus_relay/internal/repository"
	"campus_relay/internal/service"
	"campus_relay/internal/utils"
)

// AuthHandler 處理與認證相關的請求
type AuthHandler struct {
	userService *service.UserService
	tokens      *utils.TokenManager
}

// NewAuthHandler 創建一個新的 AuthHandler 實例
func NewAuthHandler(userService *service.UserService, tokens *utils.TokenManager) *AuthHandler {
	return &AuthHandler{userService: userService, tokens: tokens}
}

// LoginInput 定義登入請求的結構
type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterInput 定義註冊請求的結構，管理員不能自行註冊
type RegisterInput struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"max=100"`
	Role     string `json:"role" binding:"omitempty,oneof=Student Teacher HOD 'Program Manager'"`
}

// Register 處理用戶註冊
func (h *AuthHandler) Register(c *gin.Context) {
	var input RegisterInput
	// 解析並驗證請求體
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.userService.GetUserByUsername(ctx, input.Username); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "使用者名稱已被使用"})
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		respondError(c, err)
		return
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	role := models.RoleStudent
	if input.Role != "" {
		role = models.UserRole(input.Role)
	}
	user := models.User{
		Username: input.Username,
		Password: hashedPassword,
		Name:     input.Name,
		Role:     role,
	}

	// 創建新用戶
	if err := h.userService.CreateUser(ctx, &user); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "創建使用者失敗"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "使用者註冊成功", "user": user})
}

// Login 處理用戶登入
func (h *AuthHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 檢查用戶是否存在
	user, err := h.userService.GetUserByUsername(c.Request.Context(), input.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	if !utils.CheckPassword(user.Password, input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	// 生成 JWT token
	token, err := h.tokens.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "獲取token失敗"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
