package lead

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

// RegisterRoutes mounts the agency, agent and servicer surfaces. idem may be
// nil.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup, idem gin.HandlerFunc) {
	if idem == nil {
		idem = func(c *gin.Context) { c.Next() }
	}

	agency := protected.Group("/agency", middleware.RequireRole(domain.RoleAgency))
	{
		agency.GET("/campaigns", middleware.RequireCapability(domain.CapCampaigns), h.AgencyCampaigns)
		agency.POST("/campaigns", middleware.RequireCapability(domain.CapCampaigns), h.CreateCampaign)
		agency.PATCH("/campaigns/:id/status", middleware.RequireCapability(domain.CapCampaigns), h.SetCampaignStatus)
		agency.GET("/agents", middleware.RequireCapability(domain.CapAgents), h.Agents)
		agency.POST("/agents", middleware.RequireCapability(domain.CapAgents), h.AddAgent)
		agency.DELETE("/agents/:agentId", middleware.RequireCapability(domain.CapAgents), h.DeactivateAgent)
	}

	agent := protected.Group("/agent", middleware.RequireRole(domain.RoleAgent), middleware.RequireCapability(domain.CapLeads))
	{
		agent.GET("/campaigns", h.AgentCampaigns)
		agent.GET("/leads", h.AgentLeads)
		agent.POST("/leads", idem, h.SubmitLead)
	}

	servicer := protected.Group("/servicer", middleware.RequireRole(domain.RoleServicer), middleware.RequireCapability(domain.CapLeads))
	{
		servicer.GET("/campaigns", h.BrowseCampaigns)
		servicer.GET("/campaigns/:id/leads", h.AvailableLeads)
		servicer.GET("/leads", h.PurchasedLeads)
		servicer.POST("/leads/:id/purchase", idem, h.PurchaseLead)
	}
}

func (h *Handler) AgencyCampaigns(c *gin.Context) {
	items, err := h.svc.AgencyCampaigns(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"campaigns": items})
}

func (h *Handler) CreateCampaign(c *gin.Context) {
	var req CreateCampaignRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.CreateCampaign(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, out)
}

func (h *Handler) SetCampaignStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CampaignStatusRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.SetCampaignStatus(c.Request.Context(), middleware.UserID(c), id, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Agents(c *gin.Context) {
	items, err := h.svc.Agents(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"agents": items})
}

func (h *Handler) AddAgent(c *gin.Context) {
	var req AddAgentRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.AddAgent(c.Request.Context(), middleware.UserID(c), req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, out)
}

func (h *Handler) DeactivateAgent(c *gin.Context) {
	agentID, ok := pathID(c, "agentId")
	if !ok {
		return
	}
	if err := h.svc.DeactivateAgent(c.Request.Context(), middleware.UserID(c), agentID); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": domain.AgentInactive})
}

func (h *Handler) AgentCampaigns(c *gin.Context) {
	items, err := h.svc.AgentCampaigns(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"campaigns": items})
}

func (h *Handler) AgentLeads(c *gin.Context) {
	items, err := h.svc.AgentLeads(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"leads": items})
}

func (h *Handler) SubmitLead(c *gin.Context) {
	var req SubmitLeadRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.SubmitLead(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, out)
}

func (h *Handler) BrowseCampaigns(c *gin.Context) {
	var q BrowseQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query")
		return
	}
	items, err := h.svc.BrowseCampaigns(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"campaigns": items})
}

func (h *Handler) AvailableLeads(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	items, err := h.svc.AvailableLeads(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"leads": items})
}

func (h *Handler) PurchasedLeads(c *gin.Context) {
	items, err := h.svc.PurchasedLeads(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"leads": items})
}

func (h *Handler) PurchaseLead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.PurchaseLead(c.Request.Context(), middleware.UserID(c), id)
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
	case ErrForbidden, ErrNotAgencyMember:
		response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case ErrCampaignNotFound:
		response.Error(c, http.StatusNotFound, "CAMPAIGN_NOT_FOUND", "Campaign not found")
	case ErrAgentNotFound:
		response.Error(c, http.StatusNotFound, "AGENT_NOT_FOUND", "No agent account with that email")
	case ErrLeadNotFound:
		response.Error(c, http.StatusNotFound, "LEAD_NOT_FOUND", "Lead not found")
	case ErrCampaignInactive:
		response.Error(c, http.StatusConflict, "CAMPAIGN_INACTIVE", "Campaign is not active")
	case ErrInvalidTransition:
		response.Error(c, http.StatusConflict, "INVALID_TRANSITION", "Campaign status cannot change that way")
	case ErrAgentTaken:
		response.Error(c, http.StatusConflict, "AGENT_TAKEN", "Agent already belongs to another agency")
	case ErrLeadAlreadyClaimed:
		response.Error(c, http.StatusConflict, "LEAD_SOLD", "Lead has already been sold")
	default:
		response.Internal(c, err)
	}
}

func bind(c *gin.Context, into any) bool {
	if err := c.ShouldBindJSON(into); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return false
	}
	if errs := validator.Validate(into); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", errs)
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return id, true
}
