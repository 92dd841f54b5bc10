package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/uc-package/swimctl/internal/models"
)

const (
	ctxSubject     = "subject"
	ctxAllowDelete = "allowDelete"
	ctxAuthMethod  = "authMethod"
)

// AuthMiddleware 认证中间件
// 从 Authorization: Bearer <token> 提取凭据：先与 APIKeys 比对，再按 JWT 校验。
// 未配置 JWTSecret 和 APIKeys 时为开发模式，不做认证。
func AuthMiddleware(config *models.ServerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.JWTSecret == "" && len(config.APIKeys) == 0 {
			c.Set(ctxSubject, "anonymous")
			c.Set(ctxAllowDelete, true)
			c.Set(ctxAuthMethod, "none")
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			c.Abort()
			return
		}
		credential := strings.TrimPrefix(authHeader, "Bearer ")

		// 1. API Key
		for _, key := range config.APIKeys {
			if subtle.ConstantTimeCompare([]byte(key), []byte(credential)) == 1 {
				c.Set(ctxSubject, "apikey")
				c.Set(ctxAllowDelete, true)
				c.Set(ctxAuthMethod, "apikey")
				c.Next()
				return
			}
		}

		// 2. JWT
		if config.JWTSecret != "" {
			claims, err := ValidateToken(credential, config.JWTSecret)
			if err == nil {
				c.Set(ctxSubject, claims.Subject)
				c.Set(ctxAllowDelete, claims.AllowDelete)
				c.Set(ctxAuthMethod, "jwt")
				c.Next()
				return
			}
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		c.Abort()
	}
}

// GetSubject 从上下文获取调用方标识
func GetSubject(c *gin.Context) (string, bool) {
	subject, exists := c.Get(ctxSubject)
	if !exists {
		return "", false
	}
	return subject.(string), true
}

// CanDelete 调用方是否允许执行真实删除
func CanDelete(c *gin.Context) bool {
	return c.GetBool(ctxAllowDelete)
}
