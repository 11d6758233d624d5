package lead

import "reppyroute/internal/domain"

type CreateCampaignRequest struct {
	Name         string  `json:"name" validate:"required,max=120"`
	Industry     string  `json:"industry" validate:"required,max=60"`
	Location     string  `json:"location" validate:"omitempty,max=120"`
	PricePerLead float64 `json:"price_per_lead" validate:"gt=0"`
}

type CampaignStatusRequest struct {
	Status domain.CampaignStatus `json:"status" validate:"required,oneof=active paused closed"`
}

type AddAgentRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type SubmitLeadRequest struct {
	CampaignID   int64          `json:"campaign_id" validate:"required,gt=0"`
	ContactName  string         `json:"contact_name" validate:"required,max=120"`
	ContactPhone string         `json:"contact_phone" validate:"omitempty,max=32"`
	ContactEmail string         `json:"contact_email" validate:"omitempty,email"`
	Data         map[string]any `json:"data"`
}

type BrowseQuery struct {
	Industry string `form:"industry"`
	Location string `form:"location"`
}
