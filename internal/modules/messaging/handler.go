package messaging

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"reppyroute/internal/domain"
	"reppyroute/internal/middleware"
	"reppyroute/internal/pkg/response"
	"reppyroute/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup, idem gin.HandlerFunc) {
	if idem == nil {
		idem = func(c *gin.Context) { c.Next() }
	}
	g := protected.Group("/threads", middleware.RequireCapability(domain.CapMessages))
	{
		g.POST("", h.Open)
		g.GET("", h.Conversations)
		g.GET("/unread", h.Unread)
		g.GET("/:id/messages", h.Messages)
		g.POST("/:id/messages", idem, h.Send)
		g.POST("/:id/read", h.MarkRead)
	}
}

func (h *Handler) Open(c *gin.Context) {
	var req OpenThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", errs)
		return
	}

	out, err := h.svc.OpenThread(c.Request.Context(), middleware.UserID(c), middleware.Role(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Conversations(c *gin.Context) {
	items, err := h.svc.Conversations(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"threads": items})
}

func (h *Handler) Unread(c *gin.Context) {
	n, err := h.svc.UnreadTotal(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread_count": n})
}

func (h *Handler) Messages(c *gin.Context) {
	threadID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || threadID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid thread ID")
		return
	}
	afterID, _ := strconv.ParseInt(c.Query("after_id"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	items, err := h.svc.ListMessages(c.Request.Context(), middleware.UserID(c), threadID, afterID, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"messages": items})
}

func (h *Handler) Send(c *gin.Context) {
	threadID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || threadID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid thread ID")
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	msg, err := h.svc.Send(c.Request.Context(), middleware.UserID(c), threadID, req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, msg)
}

func (h *Handler) MarkRead(c *gin.Context) {
	threadID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || threadID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid thread ID")
		return
	}
	out, err := h.svc.MarkRead(c.Request.Context(), middleware.UserID(c), threadID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch err {
	case ErrInvalidRequest:
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid input")
	case ErrEmptyContent, ErrContentTooLong:
		response.Error(c, http.StatusBadRequest, "INVALID_CONTENT", err.Error())
	case ErrNotFound, ErrRequestNotFound:
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case ErrNotParticipant, ErrNotAllowed:
		response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	default:
		response.Internal(c, err)
	}
}
