// Package idempotency deduplicates retried mutating requests by client key.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reppyroute/internal/domain"
)

var ErrDuplicate = errors.New("duplicate request")

// Guard claims a key for a TTL. Claim returns ErrDuplicate when the key is
// already held.
type Guard interface {
	Claim(ctx context.Context, userID int64, key string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type RedisGuard struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisGuard(rdb *redis.Client) *RedisGuard {
	return &RedisGuard{rdb: rdb, prefix: "idem:"}
}

// NewRedisGuardFromURL parses a redis:// URL and pings the server.
func NewRedisGuardFromURL(ctx context.Context, url string) (*RedisGuard, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisGuard(rdb), nil
}

func (g *RedisGuard) Claim(ctx context.Context, userID int64, key string, ttl time.Duration) error {
	ok, err := g.rdb.SetNX(ctx, g.prefix+key, userID, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, g.prefix+key).Err()
}

func (g *RedisGuard) Close() error { return g.rdb.Close() }

// DBGuard stores keys in the idempotency_keys table. Expired rows are
// reclaimed on conflict and by Purge.
type DBGuard struct {
	db *gorm.DB
}

func NewDBGuard(db *gorm.DB) *DBGuard {
	return &DBGuard{db: db}
}

func (g *DBGuard) Claim(ctx context.Context, userID int64, key string, ttl time.Duration) error {
	now := time.Now().UTC()
	row := domain.IdempotencyKey{Key: key, UserID: userID, ExpiresAt: now.Add(ttl), CreatedAt: now}

	res := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "expires_at", "created_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Lt{Column: clause.Column{Table: "idempotency_keys", Name: "expires_at"}, Value: now},
		}},
	}).Create(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (g *DBGuard) Release(ctx context.Context, key string) error {
	return g.db.WithContext(ctx).Where("key = ?", key).Delete(&domain.IdempotencyKey{}).Error
}

// Purge deletes expired keys and returns how many were removed.
func (g *DBGuard) Purge(ctx context.Context) (int64, error) {
	res := g.db.WithContext(ctx).Where("expires_at < ?", time.Now().UTC()).Delete(&domain.IdempotencyKey{})
	return res.RowsAffected, res.Error
}
