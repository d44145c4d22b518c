package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ragapi/internal/auth"
	"ragapi/internal/transport/http/response"
)

const (
	HeaderAPIKey   = "X-API-Key"
	ContextKeyInfo = "key_info"
)

// APIKeyAuth rejects requests without a valid key before any business
// logic runs. The resolved KeyInfo is stored on the request context.
func APIKeyAuth(keys *auth.KeyManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		plaintext := strings.TrimSpace(c.GetHeader(HeaderAPIKey))
		if plaintext == "" {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "API key required")
			c.Abort()
			return
		}

		info := keys.ValidateKey(plaintext)
		if info == nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired API key")
			c.Abort()
			return
		}

		c.Set(ContextKeyInfo, info)
		c.Next()
	}
}

// RateLimit enforces the role's hourly ceiling. Runs after APIKeyAuth.
func RateLimit(limiter *auth.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, ok := KeyInfoFromContext(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing key context")
			c.Abort()
			return
		}
		if !limiter.Allow(info.UserID, info.Role) {
			response.Error(c, http.StatusTooManyRequests, response.CodeRateLimited, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePermission rejects keys whose role lacks the permission. A valid
// but under-permissioned key gets 403, never a silent downgrade.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, ok := KeyInfoFromContext(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing key context")
			c.Abort()
			return
		}
		if !auth.HasPermission(info.Role, permission) {
			response.Error(c, http.StatusForbidden, response.CodeForbidden, "permission denied: "+permission+" required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func KeyInfoFromContext(c *gin.Context) (*auth.KeyInfo, bool) {
	value, exists := c.Get(ContextKeyInfo)
	if !exists {
		return nil, false
	}
	info, ok := value.(*auth.KeyInfo)
	return info, ok
}
