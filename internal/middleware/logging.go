package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"spendwise/internal/logger"
	"spendwise/internal/uuid"
)

const requestIDKey = "requestID"

// RequestIDHeader carries the request id in both directions. A well-formed
// id sent by the client is kept so traces can span services.
const RequestIDHeader = "X-Request-ID"

// RequestLogging tags every request with an id and writes one access log line
// once it completes. Server errors log at error level, client errors at warn.
func RequestLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()

		requestID, err := uuid.Parse(c.GetHeader(RequestIDHeader))
		if err != nil {
			requestID = uuid.New()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"request_id", requestID,
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"bytes", c.Writer.Size(),
			"latency_ms", time.Since(started).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		log := logger.Get()
		switch {
		case status >= 500:
			log.Errorw("request", fields...)
		case status >= 400:
			log.Warnw("request", fields...)
		default:
			log.Infow("request", fields...)
		}
	}
}
