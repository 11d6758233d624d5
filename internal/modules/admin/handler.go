package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"reppyroute/internal/middleware"
	"reppyroute/internal/modules/auth"
	"reppyroute/internal/pkg/response"
	"reppyroute/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes expects a group already restricted to admins.
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/stats", h.GetStats)

	admin.GET("/users", h.GetUsers)
	admin.POST("/users", h.CreateUser)
	admin.PATCH("/users/:id/role", h.ChangeRole)
	admin.PATCH("/users/:id/ban", h.BanUser)
	admin.PATCH("/users/:id/unban", h.UnbanUser)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

func (h *Handler) GetUsers(c *gin.Context) {
	var q UserListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query")
		return
	}
	out, err := h.service.ListUsers(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", errs)
		return
	}
	p, err := h.service.CreateUser(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, p)
}

func (h *Handler) ChangeRole(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	p, err := h.service.ChangeRole(c.Request.Context(), middleware.UserID(c), id, req.UserType)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

func (h *Handler) BanUser(c *gin.Context) {
	h.setBanned(c, true)
}

func (h *Handler) UnbanUser(c *gin.Context) {
	h.setBanned(c, false)
}

func (h *Handler) setBanned(c *gin.Context, banned bool) {
	id, ok := userID(c)
	if !ok {
		return
	}
	p, err := h.service.SetBanned(c.Request.Context(), middleware.UserID(c), id, banned)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch err {
	case ErrInvalidRequest, auth.ErrInvalidRole:
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid input")
	case ErrNotFound:
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "User not found")
	case ErrSelfAction:
		response.Error(c, http.StatusConflict, "SELF_ACTION", err.Error())
	case auth.ErrEmailAlreadyExists:
		response.Error(c, http.StatusConflict, "EMAIL_EXISTS", "This email is already registered")
	default:
		response.Internal(c, err)
	}
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return 0, false
	}
	return id, true
}
