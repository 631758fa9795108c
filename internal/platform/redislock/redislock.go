package redislock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/knoxfield/corpusflow/internal/platform/logger"
)

// Lease is a best-effort per-key mutual exclusion on top of redis
// SET NX. It narrows, but does not close, the window in which two
// workers holding identical content both pass the duplicate check. A
// redis outage degrades to no exclusion rather than failing the event.
type Lease struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

func New(rdb *redis.Client, ttl time.Duration, baseLog *logger.Logger) *Lease {
	return &Lease{rdb: rdb, ttl: ttl, log: baseLog.With("component", "FingerprintLease")}
}

// Acquire returns true when this worker now holds the lease, false when
// another holds it. Errors are logged and reported as held-by-nobody so
// the caller proceeds lock-free.
func (l *Lease) Acquire(ctx context.Context, key string) bool {
	if l == nil || l.rdb == nil || key == "" {
		return true
	}
	ok, err := l.rdb.SetNX(ctx, "fplease:"+key, 1, l.ttl).Result()
	if err != nil {
		l.log.Warn("lease acquire failed, proceeding lock-free", "key", key, "error", err)
		return true
	}
	return ok
}

func (l *Lease) Release(ctx context.Context, key string) {
	if l == nil || l.rdb == nil || key == "" {
		return
	}
	if err := l.rdb.Del(ctx, "fplease:"+key).Err(); err != nil {
		l.log.Debug("lease release failed, ttl will reap it", "key", key, "error", err)
	}
}
