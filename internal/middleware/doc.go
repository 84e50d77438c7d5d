// Package middleware 放 gin 的共用中間件。
//
// AuthMiddleware 接受 Bearer header 或 ?token= 的 JWT，RequireRole 依資料庫裡目前的角色放行。
// RequestLogger 為每個請求寫一筆 slog 紀錄。
package middleware
