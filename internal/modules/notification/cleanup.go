package notification

import (
	"context"
	"log/slog"
	"time"

	"reppyroute/internal/repository"
)

// KeyPurger removes expired idempotency keys.
type KeyPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// CleanupResult reports what one cleanup run removed.
type CleanupResult struct {
	Notifications   int64         `json:"notifications"`
	IdempotencyKeys int64         `json:"idempotency_keys"`
	Duration        time.Duration `json:"duration"`
}

// CleanupService deletes read notifications past the retention window and
// expired idempotency keys.
type CleanupService struct {
	repo      *repository.NotificationRepository
	keys      KeyPurger
	retention time.Duration
	log       *slog.Logger
}

// NewCleanupService creates cleanup service. keys may be nil when keys live in Redis.
func NewCleanupService(repo *repository.NotificationRepository, keys KeyPurger, retention time.Duration) *CleanupService {
	return &CleanupService{
		repo:      repo,
		keys:      keys,
		retention: retention,
		log:       slog.Default().With("module", "cleanup"),
	}
}

func (c *CleanupService) RunOnce(ctx context.Context) (CleanupResult, error) {
	start := time.Now()
	var res CleanupResult

	deleted, err := c.repo.DeleteReadOlderThan(ctx, time.Now().UTC().Add(-c.retention))
	if err != nil {
		c.log.Error("notification cleanup failed", "error", err)
		return res, err
	}
	res.Notifications = deleted

	if c.keys != nil {
		purged, err := c.keys.Purge(ctx)
		if err != nil {
			c.log.Error("idempotency key cleanup failed", "error", err)
			return res, err
		}
		res.IdempotencyKeys = purged
	}

	res.Duration = time.Since(start)
	c.log.Info("cleanup completed",
		"notifications", res.Notifications,
		"idempotency_keys", res.IdempotencyKeys,
		"duration", res.Duration,
	)
	return res, nil
}

// Schedule runs cleanup every interval until ctx is cancelled. The returned
// channel closes when the goroutine has exited.
func (c *CleanupService) Schedule(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_, _ = c.RunOnce(ctx)
			case <-ctx.Done():
				c.log.Info("scheduled cleanup stopped")
				return
			}
		}
	}()

	c.log.Info("scheduled cleanup started", "interval", interval)
	return done
}
