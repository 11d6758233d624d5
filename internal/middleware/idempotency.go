package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"reppyroute/internal/idempotency"
	"reppyroute/internal/pkg/response"
)

const IdempotencyHeader = "Idempotency-Key"

// Idempotency rejects a replayed Idempotency-Key for the same caller, method
// and concrete path. Requests without the header pass through. A 5xx outcome
// releases the key so the client can retry.
func Idempotency(guard idempotency.Guard, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if key == "" || guard == nil {
			c.Next()
			return
		}
		if len(key) > 128 {
			response.Abort(c, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", "Idempotency-Key must be at most 128 characters")
			return
		}

		userID := UserID(c)
		scoped := fmt.Sprintf("%d:%s:%s:%s", userID, c.Request.Method, c.Request.URL.Path, key)
		if err := guard.Claim(c.Request.Context(), userID, scoped, ttl); err != nil {
			if errors.Is(err, idempotency.ErrDuplicate) {
				response.Abort(c, http.StatusConflict, "DUPLICATE_REQUEST", "This request was already submitted")
				return
			}
			_ = c.Error(err)
			response.Abort(c, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "Could not verify request uniqueness")
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			_ = guard.Release(c.Request.Context(), scoped)
		}
	}
}
