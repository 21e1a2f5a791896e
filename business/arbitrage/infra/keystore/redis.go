// Package keystore persists executed opportunity keys across restarts.
package keystore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	rediscache "github.com/fd1az/flashloan-arb/internal/cache/redis"
)

const redisKeyPrefix = "arb:executed:"

var _ app.KeyStore = (*Redis)(nil)

// Redis stores executed keys with SETNX and a TTL.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis creates a Redis key store. A zero ttl keeps keys forever.
func NewRedis(c *rediscache.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: c.Underlying(), ttl: ttl}
}

// Has reports whether key was recorded.
func (r *Redis) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return false, storageError(err, "exists "+key)
	}
	return n > 0, nil
}

// Add records key; false means another process or an earlier run already did.
func (r *Redis) Add(ctx context.Context, key string) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, redisKeyPrefix+key, time.Now().Unix(), r.ttl).Result()
	if err != nil {
		return false, storageError(err, "setnx "+key)
	}
	return ok, nil
}

func storageError(err error, op string) error {
	return apperror.New(apperror.CodeStorageError, apperror.WithCause(err), apperror.WithContext(op))
}
