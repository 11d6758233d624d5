package realtime

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"reppyroute/internal/domain"
	"reppyroute/internal/pkg/jwt"
	"reppyroute/internal/pkg/response"
	"reppyroute/internal/repository"
)

type ProfileLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Profile, error)
}

type Handler struct {
	hub      *Hub
	jwt      *jwt.Service
	profiles ProfileLookup
	upgrader websocket.Upgrader
}

// NewHandler accepts websocket upgrades from the given origins. An empty
// list allows any origin.
func NewHandler(hub *Hub, jwtService *jwt.Service, profiles ProfileLookup, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		hub:      hub,
		jwt:      jwtService,
		profiles: profiles,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

func (h *Handler) RegisterRoutes(public *gin.RouterGroup) {
	public.GET("/ws", h.Connect)
}

// Connect upgrades GET /ws?token=JWT. Browsers cannot set headers on
// websocket requests, so the token travels in the query. The account is
// checked the same way as for every other authenticated route.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "AUTH_TOKEN_MISSING", "Token is required")
		return
	}
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	p, err := h.profiles.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusUnauthorized, "PROFILE_NOT_FOUND", "No profile for this account")
			return
		}
		h.hub.log.Error("websocket profile lookup failed", "user_id", claims.UserID, "error", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "Internal error")
		return
	}
	if p.IsBanned {
		response.Error(c, http.StatusForbidden, "ACCOUNT_BANNED", "This account has been suspended")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.log.Warn("websocket upgrade failed", "user_id", claims.UserID, "error", err)
		return
	}
	h.hub.Serve(conn, claims.UserID)
}
