package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/backoffice-gin/internal/config"
	"github.com/redis/go-redis/v9"
)

// 上下文键
const (
	ContextUsername = "username"
	ContextToken    = "token"
)

// NewTokenStore 根据配置创建令牌存储
func NewTokenStore(cfg config.AuthConfig) (TokenStore, error) {
	signer := NewSigner(cfg.Secret, cfg.TTL())

	switch cfg.TokenStore {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		return NewRedisTokenStore(signer, client, cfg.Redis.Prefix), nil
	default:
		return NewMemoryTokenStore(signer), nil
	}
}

// ExtractToken 从 Authorization: Bearer 或 Token 请求头读取令牌
func ExtractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(c.GetHeader("Token"))
}

// AuthMiddleware 令牌认证中间件
func AuthMiddleware(store TokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "missing token",
			})
			c.Abort()
			return
		}

		username, err := store.Validate(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "invalid token",
				"detail":  err.Error(),
			})
			c.Abort()
			return
		}

		c.Set(ContextUsername, username)
		c.Set(ContextToken, token)

		c.Next()
	}
}

// Username 当前请求的用户名
func Username(c *gin.Context) string {
	return c.GetString(ContextUsername)
}
