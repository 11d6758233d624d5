package auth

import (
	"context"
	"time"

	"reppyroute/internal/domain"
)

// ProfileStore is the part of the profile repository auth needs.
type ProfileStore interface {
	Create(ctx context.Context, p *domain.Profile) error
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
}

type MechanicStore interface {
	GetOrCreate(ctx context.Context, p *domain.Profile) (*domain.Mechanic, error)
}

type TokenIssuer interface {
	GenerateToken(userID int64, role string) (string, error)
	TTL() time.Duration
}
