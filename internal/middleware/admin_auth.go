package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "spendwise/internal/errors"
)

// AdminKeyHeader is the header carrying the admin API key.
const AdminKeyHeader = "X-API-Key"

// AdminAuth creates a Gin middleware that guards cross-user listings by
// comparing the X-API-Key header against the configured admin key. With no
// key configured the routes are disabled.
func AdminAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			WriteError(c, apperrors.ErrAdminNotConfigured)
			return
		}
		key := c.GetHeader(AdminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			WriteError(c, apperrors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// CORS allows browser clients from any origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+AdminKeyHeader+", "+RequestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
