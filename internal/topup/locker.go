package topup

import (
	"context"
	"time"

	"nikahfirst/pkg/logger"
	"nikahfirst/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Locker serializes work per key. ok is false when another holder has the key.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// RedisLocker takes a single-holder Redis slot; the TTL frees it if the process dies.
type RedisLocker struct {
	RDB *redis.Client
	TTL time.Duration
}

func (l RedisLocker) Acquire(ctx context.Context, key string) (func(), bool, error) {
	ok, err := utils.AcquireSlot(ctx, l.RDB, key, 1, l.TTL)
	if err != nil || !ok {
		return func() {}, false, err
	}
	return func() {
		// the request context may already be cancelled
		if err := utils.ReleaseSlot(context.WithoutCancel(ctx), l.RDB, key); err != nil {
			logger.From(ctx).Warn("release topup slot failed", "key", key, "err", err)
		}
	}, true, nil
}

// nopLocker is used when Redis is not configured.
type nopLocker struct{}

func (nopLocker) Acquire(context.Context, string) (func(), bool, error) { return func() {}, true, nil }

func createLockKey(userID string) string { return "topup:create:" + userID }
