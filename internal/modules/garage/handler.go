package garage

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

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	vehicles := protected.Group("/vehicles", middleware.RequireCapability(domain.CapVehicles))
	{
		vehicles.GET("", h.ListVehicles)
		vehicles.POST("", h.CreateVehicle)
		vehicles.PUT("/:id", h.UpdateVehicle)
		vehicles.DELETE("/:id", h.DeleteVehicle)
	}

	docs := protected.Group("/documents", middleware.RequireCapability(domain.CapDocuments))
	{
		docs.GET("", h.ListDocuments)
		docs.POST("", h.UploadDocument)
		docs.DELETE("/:id", h.DeleteDocument)
	}
}

func (h *Handler) ListVehicles(c *gin.Context) {
	items, err := h.svc.ListVehicles(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"vehicles": items})
}

func (h *Handler) CreateVehicle(c *gin.Context) {
	in, ok := bindVehicle(c)
	if !ok {
		return
	}
	v, err := h.svc.CreateVehicle(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, v)
}

func (h *Handler) UpdateVehicle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	in, ok := bindVehicle(c)
	if !ok {
		return
	}
	v, err := h.svc.UpdateVehicle(c.Request.Context(), middleware.UserID(c), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

func (h *Handler) DeleteVehicle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteVehicle(c.Request.Context(), middleware.UserID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) ListDocuments(c *gin.Context) {
	var vehicleID *int64
	if raw := c.Query("vehicle_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid vehicle_id")
			return
		}
		vehicleID = &id
	}
	items, err := h.svc.ListDocuments(c.Request.Context(), middleware.UserID(c), vehicleID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"documents": items})
}

func (h *Handler) UploadDocument(c *gin.Context) {
	var in DocumentInput
	if err := c.ShouldBind(&in); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid form data")
		return
	}
	if errs := validator.Validate(in); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", errs)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "file is required")
		return
	}

	d, err := h.svc.UploadDocument(c.Request.Context(), middleware.UserID(c), in, fh)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, d)
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteDocument(c.Request.Context(), middleware.UserID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, ErrUpload) {
		response.Error(c, http.StatusBadRequest, "UPLOAD_REJECTED", err.Error())
		return
	}
	switch err {
	case ErrInvalidRequest:
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid input")
	case ErrVehicleNotFound:
		response.Error(c, http.StatusNotFound, "VEHICLE_NOT_FOUND", "Vehicle not found")
	case ErrNotFound:
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Document not found")
	default:
		response.Internal(c, err)
	}
}

func bindVehicle(c *gin.Context) (VehicleInput, bool) {
	var in VehicleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return in, false
	}
	if errs := validator.Validate(in); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", errs)
		return in, false
	}
	return in, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid ID")
		return 0, false
	}
	return id, true
}
