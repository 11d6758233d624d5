package request

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"reppyroute/internal/domain"
	"reppyroute/internal/middleware"
	"reppyroute/internal/pkg/response"
	"reppyroute/internal/pkg/validator"
)

const diagnosticField = "diagnostic_file"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the request lifecycle on an authenticated group.
// idem guards the mutating routes against replays and may be nil.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup, idem gin.HandlerFunc) {
	if idem == nil {
		idem = func(c *gin.Context) { c.Next() }
	}
	owner := middleware.RequireCapability(domain.CapRequests)
	openJobs := middleware.RequireCapability(domain.CapOpenJobs)
	quoting := middleware.RequireCapability(domain.CapQuotes)

	protected.POST("/requests", owner, idem, h.Create)
	protected.GET("/requests/mine", owner, h.ListMine)
	protected.GET("/requests/open", openJobs, h.ListOpen)
	protected.GET("/requests/:id", h.Get)
	protected.POST("/requests/:id/quotes", quoting, idem, h.SubmitQuote)
	protected.POST("/requests/:id/quotes/:quoteId/accept", owner, idem, h.Accept)
	protected.POST("/requests/:id/quotes/:quoteId/reject", owner, h.Reject)
	protected.POST("/requests/:id/complete", h.Complete)
	protected.POST("/requests/:id/cancel", owner, h.Cancel)
	protected.POST("/requests/:id/decline", quoting, h.Decline)

	protected.GET("/quotes/mine", quoting, h.ListMyQuotes)
	protected.GET("/jobs/mine", quoting, h.ListJobs)
	protected.GET("/price-comparison", h.PriceComparison)
}

func (h *Handler) Create(c *gin.Context) {
	var in CreateRequestInput
	var file *multipart.FileHeader

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&in); err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid form data")
			return
		}
		if fh, err := c.FormFile(diagnosticField); err == nil {
			file = fh
		} else if !errors.Is(err, http.ErrMissingFile) {
			response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid diagnostic file")
			return
		}
	} else if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if errs := validator.Validate(in); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", errs)
		return
	}

	req, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), in, file)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, req)
}

func (h *Handler) ListOpen(c *gin.Context) {
	var q ListOpenQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query")
		return
	}
	items, err := h.svc.ListOpen(c.Request.Context(), middleware.UserID(c), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"requests": items})
}

func (h *Handler) ListMine(c *gin.Context) {
	items, err := h.svc.ListMine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"requests": items})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) SubmitQuote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in SubmitQuoteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if errs := validator.Validate(in); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", errs)
		return
	}

	q, err := h.svc.SubmitQuote(c.Request.Context(), middleware.UserID(c), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, q)
}

func (h *Handler) Accept(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	quoteID, ok := pathID(c, "quoteId")
	if !ok {
		return
	}
	out, err := h.svc.Accept(c.Request.Context(), middleware.UserID(c), id, quoteID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	quoteID, ok := pathID(c, "quoteId")
	if !ok {
		return
	}
	out, err := h.svc.Reject(c.Request.Context(), middleware.UserID(c), id, quoteID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Complete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.Complete(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.Cancel(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Decline(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.Decline(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) ListMyQuotes(c *gin.Context) {
	items, err := h.svc.ListMyQuotes(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quotes": items})
}

func (h *Handler) ListJobs(c *gin.Context) {
	items, err := h.svc.ListJobs(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"jobs": items})
}

func (h *Handler) PriceComparison(c *gin.Context) {
	days, _ := strconv.Atoi(c.Query("days"))
	amount, _ := strconv.ParseFloat(c.Query("amount"), 64)

	out, err := h.svc.PriceComparison(c.Request.Context(), strings.TrimSpace(c.Query("issue_type")), days, amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) fail(c *gin.Context, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", verr.Fields)
		return
	}
	if errors.Is(err, ErrUpload) {
		response.Error(c, http.StatusBadRequest, "UPLOAD_REJECTED", err.Error())
		return
	}

	switch err {
	case ErrInvalidRequest:
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid input")
	case ErrForbidden:
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied")
	case ErrNotFound:
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Repair request or quote not found")
	case ErrRequestNotOpen:
		response.Error(c, http.StatusConflict, "REQUEST_NOT_OPEN", "Repair request is no longer open")
	case ErrInvalidTransition:
		response.Error(c, http.StatusConflict, "INVALID_TRANSITION", "This action is not allowed in the current state")
	case ErrQuoteLocked:
		response.Error(c, http.StatusConflict, "QUOTE_LOCKED", "Quote can no longer be changed")
	default:
		response.Internal(c, err)
	}
}

func actor(c *gin.Context) Actor {
	return Actor{ID: middleware.UserID(c), Role: middleware.Role(c)}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return id, true
}
