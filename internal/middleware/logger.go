package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestLogger assigns a request id, logs one line per request and turns
// panics into a 500 envelope.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := requestID(c)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("request_id", rid)
		c.Writer.Header().Set("X-Request-ID", rid)

		defer func() {
			if recovered := recover(); recovered != nil {
				err := fmt.Errorf("%v", recovered)
				logger.Error("request_error",
					append(requestAttrs(c, start, rid), "type", "panic", "error", err.Error(), "stack", string(debug.Stack()))...)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   gin.H{"code": "INTERNAL_SERVER_ERROR", "message": "Internal Server Error"},
				})
				return
			}

			attrs := requestAttrs(c, start, rid)
			for _, e := range c.Errors {
				logger.Error("request_error", append(attrs, "type", fmt.Sprintf("%v", e.Type), "error", e.Error())...)
			}
			switch {
			case c.Writer.Status() >= http.StatusInternalServerError:
				logger.Error("request", attrs...)
			case c.Writer.Status() >= http.StatusBadRequest:
				logger.Warn("request", attrs...)
			default:
				logger.Info("request", attrs...)
			}
		}()

		c.Next()
	}
}

func requestAttrs(c *gin.Context, start time.Time, rid string) []any {
	return []any{
		"status", c.Writer.Status(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"client_ip", c.ClientIP(),
		"user_id", c.GetInt64(ctxUserID),
		"role", c.GetString(ctxRole),
		"request_id", rid,
		"latency", time.Since(start).String(),
	}
}

func requestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = c.GetHeader("X-Request-Id")
	}
	return requestID
}
