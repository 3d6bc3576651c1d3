package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

var ErrLockTimeout = errors.New("redis lock: timed out waiting for lock")

// only the holder's token may release the key
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a cross-replica mutex keyed by string: SET NX PX with a random token,
// released by compare-and-delete. The TTL bounds how long a crashed holder blocks others.
type Locker struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
	prefix string
}

func NewLocker(log *logger.Logger, rdb goredis.UniversalClient, cfg Config) *Locker {
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "outreach"
	}
	return &Locker{
		log:    log.With("client", "RedisLocker"),
		rdb:    rdb,
		ttl:    ttl,
		retry:  25 * time.Millisecond,
		prefix: prefix,
	}
}

// Lock blocks until key is held or ctx is done. The returned func releases the lock.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	if l == nil || l.rdb == nil {
		return nil, ErrNotConfigured
	}
	redisKey := l.prefix + ":lock:" + key
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
		case <-t.C:
		}
	}

	return func() {
		// release even when the caller's context is already done
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{redisKey}, token).Err(); err != nil {
			l.log.Warn("redis unlock failed", "key", key, "error", err)
		}
	}, nil
}
