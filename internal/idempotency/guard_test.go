package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reppyroute/internal/domain"
	"reppyroute/internal/testutil"
)

func TestDBGuardClaimOnce(t *testing.T) {
	db := testutil.NewDB(t)
	g := NewDBGuard(db)
	ctx := context.Background()

	require.NoError(t, g.Claim(ctx, 1, "1:POST:/requests:abc", time.Hour))
	assert.ErrorIs(t, g.Claim(ctx, 1, "1:POST:/requests:abc", time.Hour), ErrDuplicate)
	assert.NoError(t, g.Claim(ctx, 1, "1:POST:/requests:def", time.Hour))
}

func TestDBGuardReleaseAllowsRetry(t *testing.T) {
	db := testutil.NewDB(t)
	g := NewDBGuard(db)
	ctx := context.Background()

	require.NoError(t, g.Claim(ctx, 1, "k", time.Hour))
	require.NoError(t, g.Release(ctx, "k"))
	assert.NoError(t, g.Claim(ctx, 1, "k", time.Hour))
}

func TestDBGuardReclaimsExpiredKeys(t *testing.T) {
	db := testutil.NewDB(t)
	g := NewDBGuard(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.IdempotencyKey{
		Key: "old", UserID: 1, ExpiresAt: time.Now().UTC().Add(-time.Minute), CreatedAt: time.Now().UTC().Add(-time.Hour),
	}).Error)

	assert.NoError(t, g.Claim(ctx, 2, "old", time.Hour))

	require.NoError(t, db.Create(&domain.IdempotencyKey{
		Key: "stale", UserID: 1, ExpiresAt: time.Now().UTC().Add(-time.Minute), CreatedAt: time.Now().UTC().Add(-time.Hour),
	}).Error)
	n, err := g.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
