package review

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

func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup, idem gin.HandlerFunc) {
	if idem == nil {
		idem = func(c *gin.Context) { c.Next() }
	}

	// Public routes (no auth required)
	if public != nil {
		public.GET("/mechanics/:id/reviews", h.ListByMechanic)
	}

	if protected != nil {
		protected.POST("/reviews", middleware.RequireCapability(domain.CapWriteReviews), idem, h.Create)
		protected.POST("/admin/reviews/:id/hide", middleware.RequireCapability(domain.CapModeration), h.SetHidden)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", errs)
		return
	}

	rv, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		switch err {
		case ErrInvalidRequest:
			response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid input")
		case ErrReviewNotAllowed:
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "You can review only the mechanic who completed your request")
		case ErrConflict:
			response.Error(c, http.StatusConflict, "CONFLICT", "Only one review per repair request")
		default:
			response.Internal(c, err)
		}
		return
	}
	response.Success(c, http.StatusCreated, rv)
}

func (h *Handler) ListByMechanic(c *gin.Context) {
	mechanicID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || mechanicID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid mechanic ID")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	items, err := h.svc.ListByMechanic(c.Request.Context(), mechanicID, limit, offset)
	if err != nil {
		response.Internal(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reviews": items})
}

func (h *Handler) SetHidden(c *gin.Context) {
	reviewID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || reviewID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid review ID")
		return
	}
	var req SetHiddenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
			return
		}
	}
	hidden := req.Hidden == nil || *req.Hidden

	rv, err := h.svc.SetHidden(c.Request.Context(), reviewID, hidden)
	if err != nil {
		switch err {
		case ErrNotFound:
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Review not found")
		default:
			response.Internal(c, err)
		}
		return
	}
	response.Success(c, http.StatusOK, rv)
}
