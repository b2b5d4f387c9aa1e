package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/logger"
)

// ErrorHandler renders the last error a handler attached with c.Error, unless
// the handler already wrote a response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		WriteError(c, c.Errors.Last().Err)
	}
}

// WriteError aborts the request with the JSON form of err:
// {"error": {"code", "message", "details"}}. The cause of an internal error
// is logged with the request id and left out of the body.
func WriteError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	if appErr.Internal != nil {
		logger.Get().Errorw("request failed",
			"request_id", c.GetString(requestIDKey),
			"code", appErr.Code,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", appErr.Internal.Error(),
		)
	}
	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{"error": appErr})
}
