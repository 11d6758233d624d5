package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"reppyroute/internal/database"
	"reppyroute/internal/domain"
	"reppyroute/internal/repository"
)

// Service contains all business logic for authentication
type Service struct {
	profiles  ProfileStore
	mechanics MechanicStore
	tokens    TokenIssuer
	cost      int
}

func NewService(profiles ProfileStore, mechanics MechanicStore, tokens TokenIssuer) *Service {
	return &Service{profiles: profiles, mechanics: mechanics, tokens: tokens, cost: bcrypt.DefaultCost}
}

// WithHashCost lowers the bcrypt cost; tests use bcrypt.MinCost.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

// Register creates a self-service account and signs the user in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	role, ok := domain.ParseRole(req.UserType)
	if !ok {
		return nil, ErrInvalidRole
	}
	if !role.SelfService() {
		return nil, ErrRoleNotAllowed
	}

	p, err := s.CreateAccount(ctx, NewAccount{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     role,
		Phone:    req.Phone,
	})
	if err != nil {
		return nil, err
	}
	return s.issue(p)
}

// CreateAccount creates an account of any role. Mechanics get their
// business row straight away.
func (s *Service) CreateAccount(ctx context.Context, in NewAccount) (*domain.Profile, error) {
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	p := &domain.Profile{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		UserType:     in.Role,
		Phone:        strings.TrimSpace(in.Phone),
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	if p.UserType == domain.RoleMechanic {
		// The row is also created lazily on first read, so a failure here
		// does not undo the signup.
		if _, err := s.mechanics.GetOrCreate(ctx, p); err != nil {
			slog.Warn("mechanic_row_create_failed", "profile_id", p.ID, "error", err)
		}
	}
	return p, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	p, err := s.profiles.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if p.IsBanned {
		return nil, ErrAccountBanned
	}
	return s.issue(p)
}

func (s *Service) issue(p *domain.Profile) (*AuthResponse, error) {
	token, err := s.tokens.GenerateToken(p.ID, string(p.UserType))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResponse{
		Token:     token,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
		Profile:   p,
	}, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
