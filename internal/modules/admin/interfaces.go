package admin

import (
	"context"

	"reppyroute/internal/domain"
	"reppyroute/internal/modules/auth"
)

// AccountCreator creates accounts of any role.
type AccountCreator interface {
	CreateAccount(ctx context.Context, in auth.NewAccount) (*domain.Profile, error)
}
