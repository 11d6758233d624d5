package admin

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"reppyroute/internal/domain"
	"reppyroute/internal/modules/auth"
	"reppyroute/internal/repository"
)

type Service struct {
	profiles  *repository.ProfileRepository
	mechanics *repository.MechanicRepository
	requests  *repository.RequestRepository
	quotes    *repository.QuoteRepository
	messages  *repository.MessageRepository
	reviews   *repository.ReviewRepository
	leads     *repository.LeadRepository
	accounts  AccountCreator
}

func NewService(
	profiles *repository.ProfileRepository,
	mechanics *repository.MechanicRepository,
	requests *repository.RequestRepository,
	quotes *repository.QuoteRepository,
	messages *repository.MessageRepository,
	reviews *repository.ReviewRepository,
	leads *repository.LeadRepository,
	accounts AccountCreator,
) *Service {
	return &Service{
		profiles:  profiles,
		mechanics: mechanics,
		requests:  requests,
		quotes:    quotes,
		messages:  messages,
		reviews:   reviews,
		leads:     leads,
		accounts:  accounts,
	}
}

// -------------------- Stats --------------------

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	out := &Stats{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		out.Profiles, err = s.profiles.CountByType(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Requests, err = s.requests.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Quotes, err = s.quotes.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Messages, err = s.messages.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Reviews, err = s.reviews.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Leads, err = s.leads.CountLeads(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect stats: %w", err)
	}

	for _, n := range out.Profiles {
		out.TotalProfiles += n
	}
	for _, n := range out.Requests {
		out.TotalRequests += n
	}
	return out, nil
}

// -------------------- Users --------------------

func (s *Service) ListUsers(ctx context.Context, q UserListQuery) (*UserList, error) {
	var role domain.Role
	if q.UserType != "" {
		r, ok := domain.ParseRole(q.UserType)
		if !ok {
			return nil, ErrInvalidRequest
		}
		role = r
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}

	users, total, err := s.profiles.List(ctx, repository.ProfileFilter{
		UserType: role,
		Search:   q.Search,
		Limit:    q.Limit,
		Offset:   (q.Page - 1) * q.Limit,
	})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.Profile{}
	}
	return &UserList{Users: users, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// CreateUser creates an account of any role, admins included.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.Profile, error) {
	role, ok := domain.ParseRole(req.UserType)
	if !ok {
		return nil, ErrInvalidRequest
	}
	return s.accounts.CreateAccount(ctx, auth.NewAccount{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     role,
		Phone:    req.Phone,
	})
}

func (s *Service) ChangeRole(ctx context.Context, adminID, userID int64, userType string) (*domain.Profile, error) {
	role, ok := domain.ParseRole(userType)
	if !ok {
		return nil, ErrInvalidRequest
	}
	if adminID == userID {
		return nil, ErrSelfAction
	}
	p, err := s.update(ctx, userID, map[string]any{"user_type": role})
	if err != nil {
		return nil, err
	}
	if role == domain.RoleMechanic {
		if _, err := s.mechanics.GetOrCreate(ctx, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *Service) SetBanned(ctx context.Context, adminID, userID int64, banned bool) (*domain.Profile, error) {
	if adminID == userID {
		return nil, ErrSelfAction
	}
	return s.update(ctx, userID, map[string]any{"is_banned": banned})
}

func (s *Service) update(ctx context.Context, userID int64, fields map[string]any) (*domain.Profile, error) {
	p, err := s.profiles.UpdateFields(ctx, userID, fields)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}
