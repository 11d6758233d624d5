package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"reppyroute/internal/domain"
	"reppyroute/internal/pkg/jwt"
	"reppyroute/internal/pkg/response"
	"reppyroute/internal/repository"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// JWTAuth validates the bearer token and stores user_id in the context.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Abort(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

type ProfileLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Profile, error)
}

// LoadSession resolves the caller's profile once per request and replaces
// the token role with the stored one. A missing profile is always 401.
func LoadSession(profiles ProfileLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64(ctxUserID)
		if userID == 0 {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		p, err := profiles.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				response.Abort(c, http.StatusUnauthorized, "PROFILE_NOT_FOUND", "No profile for this account")
				return
			}
			_ = c.Error(err)
			response.Abort(c, http.StatusInternalServerError, "INTERNAL", "Internal error")
			return
		}
		if p.IsBanned {
			response.Abort(c, http.StatusForbidden, "ACCOUNT_BANNED", "This account has been suspended")
			return
		}
		if !p.UserType.Valid() {
			response.Abort(c, http.StatusForbidden, "UNKNOWN_ROLE", "Account role is not recognised")
			return
		}

		c.Set(ctxRole, string(p.UserType))
		c.Next()
	}
}

// UserID returns the authenticated user id or 0.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

// Role returns the resolved role of the caller.
func Role(c *gin.Context) domain.Role {
	return domain.Role(c.GetString(ctxRole))
}

// SetIdentity is used by tests and internal callers that authenticate by
// other means.
func SetIdentity(c *gin.Context, userID int64, role domain.Role) {
	c.Set(ctxUserID, userID)
	c.Set(ctxRole, string(role))
}
