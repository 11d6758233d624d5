package profile

import (
	"errors"
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

func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.GET("/mechanics", h.SearchMechanics)
	public.GET("/mechanics/:id", h.GetMechanic)

	protected.GET("/me", h.Me)
	protected.PATCH("/me", h.UpdateMe)
	protected.POST("/me/avatar", h.UploadAvatar)
	protected.GET("/me/navigation", h.Navigation)

	mech := protected.Group("/mechanic", middleware.RequireCapability(domain.CapMechanicProfile))
	{
		mech.GET("/profile", h.OwnMechanic)
		mech.PUT("/profile", h.UpdateMechanic)
	}
}

func (h *Handler) Me(c *gin.Context) {
	out, err := h.svc.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) UpdateMe(c *gin.Context) {
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", errs)
		return
	}
	p, err := h.svc.UpdateMe(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

func (h *Handler) SearchMechanics(c *gin.Context) {
	var q SearchMechanicsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query")
		return
	}
	items, err := h.svc.SearchMechanics(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"mechanics": items})
}

func (h *Handler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "avatar file is required")
		return
	}
	p, err := h.svc.UploadAvatar(c.Request.Context(), middleware.UserID(c), fh)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

// Navigation answers from the role resolved by the session middleware.
func (h *Handler) Navigation(c *gin.Context) {
	response.Success(c, http.StatusOK, Navigation(middleware.Role(c)))
}

func (h *Handler) GetMechanic(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid mechanic ID")
		return
	}
	out, err := h.svc.GetMechanic(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) OwnMechanic(c *gin.Context) {
	m, err := h.svc.OwnMechanic(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, m)
}

func (h *Handler) UpdateMechanic(c *gin.Context) {
	var req UpdateMechanicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", errs)
		return
	}
	m, err := h.svc.UpdateMechanic(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, m)
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, ErrInvalidAvatar) {
		response.Error(c, http.StatusBadRequest, "INVALID_AVATAR", err.Error())
		return
	}
	switch err {
	case ErrInvalidRequest:
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid input")
	case ErrNotFound:
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Profile not found")
	case ErrNotMechanic:
		response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	default:
		response.Internal(c, err)
	}
}
