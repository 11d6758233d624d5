package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"reppyroute/internal/domain"
)

type CampaignFilter struct {
	AgencyID int64
	Status   domain.CampaignStatus
	Industry string
	Location string
}

type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) WithTx(tx *gorm.DB) *LeadRepository {
	return &LeadRepository{db: tx}
}

func (r *LeadRepository) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *LeadRepository) GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	var c domain.Campaign
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *LeadRepository) ListCampaigns(ctx context.Context, f CampaignFilter) ([]domain.Campaign, error) {
	q := r.db.WithContext(ctx).Model(&domain.Campaign{})
	if f.AgencyID > 0 {
		q = q.Where("agency_id = ?", f.AgencyID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Industry != "" {
		q = q.Where("LOWER(industry) = LOWER(?)", f.Industry)
	}
	if f.Location != "" {
		q = q.Where("LOWER(location) LIKE ? ESCAPE '\\'", containsPattern(f.Location))
	}
	out := []domain.Campaign{}
	err := q.Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

func (r *LeadRepository) SetCampaignStatus(ctx context.Context, id int64, from, to domain.CampaignStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Campaign{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	return res.RowsAffected == 1, res.Error
}

func (r *LeadRepository) AddAgent(ctx context.Context, a *domain.AgencyAgent) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *LeadRepository) GetAgentLink(ctx context.Context, agentID int64) (*domain.AgencyAgent, error) {
	var a domain.AgencyAgent
	if err := r.db.WithContext(ctx).Where("agent_id = ?", agentID).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// AgentView is an agency membership with the agent's profile details.
type AgentView struct {
	domain.AgencyAgent
	FullName string `gorm:"column:full_name" json:"full_name"`
	Email    string `gorm:"column:email" json:"email"`
}

func (r *LeadRepository) ListAgents(ctx context.Context, agencyID int64) ([]AgentView, error) {
	out := []AgentView{}
	err := r.db.WithContext(ctx).Table("agency_agents AS a").
		Select("a.*, p.full_name, p.email").
		Joins("JOIN profiles p ON p.id = a.agent_id").
		Where("a.agency_id = ?", agencyID).
		Order("a.id ASC").
		Scan(&out).Error
	return out, err
}

func (r *LeadRepository) SetAgentStatus(ctx context.Context, agencyID, agentID int64, status domain.AgentStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.AgencyAgent{}).
		Where("agency_id = ? AND agent_id = ?", agencyID, agentID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *LeadRepository) CreateLead(ctx context.Context, l *domain.Lead) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LeadRepository) GetLead(ctx context.Context, id int64) (*domain.Lead, error) {
	var l domain.Lead
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

type LeadFilter struct {
	CampaignID int64
	AgentID    int64
	ServicerID int64
	Status     domain.LeadStatus
}

func (r *LeadRepository) ListLeads(ctx context.Context, f LeadFilter) ([]domain.Lead, error) {
	q := r.db.WithContext(ctx).Model(&domain.Lead{})
	if f.CampaignID > 0 {
		q = q.Where("campaign_id = ?", f.CampaignID)
	}
	if f.AgentID > 0 {
		q = q.Where("agent_id = ?", f.AgentID)
	}
	if f.ServicerID > 0 {
		q = q.Where("servicer_id = ?", f.ServicerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	out := []domain.Lead{}
	err := q.Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

// Claim sells a lead to the servicer if nobody bought it yet.
func (r *LeadRepository) Claim(ctx context.Context, leadID, servicerID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Lead{}).
		Where("id = ? AND servicer_id IS NULL AND status = ?", leadID, domain.LeadNew).
		Updates(map[string]any{"servicer_id": servicerID, "status": domain.LeadSold, "sold_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *LeadRepository) CountLeads(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Lead{}).Count(&n).Error
	return n, err
}
