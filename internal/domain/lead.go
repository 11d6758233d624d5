package domain

import (
	"time"

	"gorm.io/datatypes"
)

type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentInactive AgentStatus = "inactive"
)

// AgencyAgent links an agent profile to the agency it works for.
type AgencyAgent struct {
	ID        int64       `gorm:"column:id;primaryKey" json:"id"`
	AgencyID  int64       `gorm:"column:agency_id;not null;index" json:"agency_id"`
	AgentID   int64       `gorm:"column:agent_id;not null;uniqueIndex" json:"agent_id"`
	Status    AgentStatus `gorm:"column:status;not null" json:"status"`
	CreatedAt time.Time   `gorm:"column:created_at" json:"created_at"`
}

func (AgencyAgent) TableName() string { return "agency_agents" }

type CampaignStatus string

const (
	CampaignActive CampaignStatus = "active"
	CampaignPaused CampaignStatus = "paused"
	CampaignClosed CampaignStatus = "closed"
)

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignActive: {CampaignPaused, CampaignClosed},
	CampaignPaused: {CampaignActive, CampaignClosed},
}

func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	for _, allowed := range campaignTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Campaign struct {
	ID           int64          `gorm:"column:id;primaryKey" json:"id"`
	AgencyID     int64          `gorm:"column:agency_id;not null;index" json:"agency_id"`
	Name         string         `gorm:"column:name;not null" json:"name"`
	Industry     string         `gorm:"column:industry" json:"industry"`
	Location     string         `gorm:"column:location" json:"location"`
	PricePerLead float64        `gorm:"column:price_per_lead;not null" json:"price_per_lead"`
	Status       CampaignStatus `gorm:"column:status;not null;index" json:"status"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Campaign) TableName() string { return "campaigns" }

type LeadStatus string

const (
	LeadNew      LeadStatus = "new"
	LeadSold     LeadStatus = "sold"
	LeadRejected LeadStatus = "rejected"
)

type Lead struct {
	ID           int64             `gorm:"column:id;primaryKey" json:"id"`
	CampaignID   int64             `gorm:"column:campaign_id;not null;index" json:"campaign_id"`
	AgentID      int64             `gorm:"column:agent_id;not null;index" json:"agent_id"`
	ServicerID   *int64            `gorm:"column:servicer_id;index" json:"servicer_id,omitempty"`
	Status       LeadStatus        `gorm:"column:status;not null;index" json:"status"`
	ContactName  string            `gorm:"column:contact_name;not null" json:"contact_name"`
	ContactPhone string            `gorm:"column:contact_phone" json:"contact_phone,omitempty"`
	ContactEmail string            `gorm:"column:contact_email" json:"contact_email,omitempty"`
	Data         datatypes.JSONMap `gorm:"column:data" json:"data,omitempty"`
	SoldAt       *time.Time        `gorm:"column:sold_at" json:"sold_at,omitempty"`
	CreatedAt    time.Time         `gorm:"column:created_at" json:"created_at"`
}

func (Lead) TableName() string { return "leads" }

// Redacted hides contact details from servicers that have not bought the lead.
func (l Lead) Redacted() Lead {
	l.ContactPhone = ""
	l.ContactEmail = ""
	l.Data = nil
	return l
}
