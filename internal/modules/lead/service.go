// Package lead runs the lead marketplace: agencies run campaigns, their
// agents submit leads and servicers buy them.
package lead

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"reppyroute/internal/database"
	"reppyroute/internal/domain"
	"reppyroute/internal/pkg/tracing"
	"reppyroute/internal/repository"
)

type Service struct {
	db       *gorm.DB
	leads    *repository.LeadRepository
	profiles *repository.ProfileRepository
	notifier Notifier
}

func NewService(db *gorm.DB, leads *repository.LeadRepository, profiles *repository.ProfileRepository, notifier Notifier) *Service {
	return &Service{db: db, leads: leads, profiles: profiles, notifier: notifier}
}

// ============================================================
// AGENCY
// ============================================================

func (s *Service) CreateCampaign(ctx context.Context, agencyID int64, req CreateCampaignRequest) (*domain.Campaign, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.PricePerLead <= 0 {
		return nil, ErrInvalidRequest
	}
	c := &domain.Campaign{
		AgencyID:     agencyID,
		Name:         name,
		Industry:     strings.TrimSpace(req.Industry),
		Location:     strings.TrimSpace(req.Location),
		PricePerLead: req.PricePerLead,
		Status:       domain.CampaignActive,
	}
	if err := s.leads.CreateCampaign(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) AgencyCampaigns(ctx context.Context, agencyID int64) ([]domain.Campaign, error) {
	return s.leads.ListCampaigns(ctx, repository.CampaignFilter{AgencyID: agencyID})
}

// SetCampaignStatus moves a campaign along active <-> paused -> closed.
func (s *Service) SetCampaignStatus(ctx context.Context, agencyID, campaignID int64, to domain.CampaignStatus) (*domain.Campaign, error) {
	c, err := s.campaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.AgencyID != agencyID {
		return nil, ErrCampaignNotFound
	}
	if !c.Status.CanTransitionTo(to) {
		return nil, ErrInvalidTransition
	}
	ok, err := s.leads.SetCampaignStatus(ctx, c.ID, c.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	return s.campaign(ctx, c.ID)
}

// AddAgent attaches an agent account to the agency. An inactive agent of the
// same agency is reactivated.
func (s *Service) AddAgent(ctx context.Context, agencyID int64, email string) (*domain.AgencyAgent, error) {
	p, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	if p.UserType != domain.RoleAgent {
		return nil, ErrAgentNotFound
	}

	link, err := s.leads.GetAgentLink(ctx, p.ID)
	switch {
	case err == nil && link.AgencyID != agencyID:
		return nil, ErrAgentTaken
	case err == nil:
		if err := s.leads.SetAgentStatus(ctx, agencyID, p.ID, domain.AgentActive); err != nil {
			return nil, err
		}
		link.Status = domain.AgentActive
		return link, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	link = &domain.AgencyAgent{AgencyID: agencyID, AgentID: p.ID, Status: domain.AgentActive}
	if err := s.leads.AddAgent(ctx, link); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAgentTaken
		}
		return nil, err
	}
	return link, nil
}

func (s *Service) Agents(ctx context.Context, agencyID int64) ([]repository.AgentView, error) {
	return s.leads.ListAgents(ctx, agencyID)
}

func (s *Service) DeactivateAgent(ctx context.Context, agencyID, agentID int64) error {
	err := s.leads.SetAgentStatus(ctx, agencyID, agentID, domain.AgentInactive)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAgentNotFound
	}
	return err
}

// ============================================================
// AGENT
// ============================================================

func (s *Service) agency(ctx context.Context, agentID int64) (int64, error) {
	link, err := s.leads.GetAgentLink(ctx, agentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrNotAgencyMember
		}
		return 0, err
	}
	if link.Status != domain.AgentActive {
		return 0, ErrNotAgencyMember
	}
	return link.AgencyID, nil
}

func (s *Service) AgentCampaigns(ctx context.Context, agentID int64) ([]domain.Campaign, error) {
	agencyID, err := s.agency(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return s.leads.ListCampaigns(ctx, repository.CampaignFilter{AgencyID: agencyID, Status: domain.CampaignActive})
}

func (s *Service) SubmitLead(ctx context.Context, agentID int64, req SubmitLeadRequest) (*domain.Lead, error) {
	agencyID, err := s.agency(ctx, agentID)
	if err != nil {
		return nil, err
	}
	c, err := s.campaign(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	if c.AgencyID != agencyID {
		return nil, ErrCampaignNotFound
	}
	if c.Status != domain.CampaignActive {
		return nil, ErrCampaignInactive
	}

	name := strings.TrimSpace(req.ContactName)
	phone := strings.TrimSpace(req.ContactPhone)
	email := strings.ToLower(strings.TrimSpace(req.ContactEmail))
	if name == "" || (phone == "" && email == "") {
		return nil, ErrInvalidRequest
	}

	l := &domain.Lead{
		CampaignID:   c.ID,
		AgentID:      agentID,
		Status:       domain.LeadNew,
		ContactName:  name,
		ContactPhone: phone,
		ContactEmail: email,
		Data:         req.Data,
	}
	if err := s.leads.CreateLead(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) AgentLeads(ctx context.Context, agentID int64) ([]domain.Lead, error) {
	return s.leads.ListLeads(ctx, repository.LeadFilter{AgentID: agentID})
}

// ============================================================
// SERVICER
// ============================================================

func (s *Service) BrowseCampaigns(ctx context.Context, q BrowseQuery) ([]domain.Campaign, error) {
	return s.leads.ListCampaigns(ctx, repository.CampaignFilter{
		Status:   domain.CampaignActive,
		Industry: strings.TrimSpace(q.Industry),
		Location: strings.TrimSpace(q.Location),
	})
}

// AvailableLeads lists unsold leads of an active campaign without contact
// details.
func (s *Service) AvailableLeads(ctx context.Context, campaignID int64) ([]domain.Lead, error) {
	c, err := s.campaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CampaignActive {
		return nil, ErrCampaignInactive
	}
	leads, err := s.leads.ListLeads(ctx, repository.LeadFilter{CampaignID: c.ID, Status: domain.LeadNew})
	if err != nil {
		return nil, err
	}
	for i := range leads {
		leads[i] = leads[i].Redacted()
	}
	return leads, nil
}

// PurchaseLead sells the lead to the servicer. The conditional claim makes
// the sale happen at most once; the agent hears about it in the same
// transaction.
func (s *Service) PurchaseLead(ctx context.Context, servicerID, leadID int64) (_ *domain.Lead, err error) {
	ctx, span := tracing.Start(ctx, "lead.purchase",
		attribute.Int64("lead_id", leadID), attribute.Int64("servicer_id", servicerID))
	defer func() { tracing.End(span, err) }()

	var sold *domain.Lead
	var n *domain.Notification
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		leads := s.leads.WithTx(tx)

		l, err := leads.GetLead(ctx, leadID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrLeadNotFound
			}
			return err
		}
		c, err := leads.GetCampaign(ctx, l.CampaignID)
		if err != nil {
			return err
		}
		if c.Status != domain.CampaignActive {
			return ErrCampaignInactive
		}

		ok, err := leads.Claim(ctx, l.ID, servicerID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrLeadAlreadyClaimed
		}
		if sold, err = leads.GetLead(ctx, l.ID); err != nil {
			return err
		}

		n = &domain.Notification{
			UserID:  sold.AgentID,
			Type:    domain.NotifLeadSold,
			Message: fmt.Sprintf("Your lead %q in %s was sold for %.2f", sold.ContactName, c.Name, c.PricePerLead),
			Data:    map[string]any{"lead_id": sold.ID, "campaign_id": c.ID, "servicer_id": servicerID},
		}
		return s.notifier.AppendTx(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(*n)
	return sold, nil
}

func (s *Service) PurchasedLeads(ctx context.Context, servicerID int64) ([]domain.Lead, error) {
	return s.leads.ListLeads(ctx, repository.LeadFilter{ServicerID: servicerID})
}

func (s *Service) campaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	c, err := s.leads.GetCampaign(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return c, nil
}
