package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErr "github.com/designwheel/engine/pkg/errors"
	"github.com/designwheel/engine/pkg/logger"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX. The TTL bounds how long a
// crashed holder can block others.
type RedisLocker struct {
	rdb      redis.UniversalClient
	prefix   string
	ttl      time.Duration
	retryMin time.Duration
	retryMax time.Duration
}

type RedisOption func(*RedisLocker)

func WithTTL(ttl time.Duration) RedisOption {
	return func(l *RedisLocker) { l.ttl = ttl }
}

func WithPrefix(prefix string) RedisOption {
	return func(l *RedisLocker) { l.prefix = prefix }
}

func NewRedisLocker(rdb redis.UniversalClient, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		rdb:      rdb,
		prefix:   "designwheel:lock:",
		ttl:      defaultTTL,
		retryMin: defaultRetryMin,
		retryMax: defaultRetryMax,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	full := l.prefix + key
	token := uuid.NewString()
	wait := l.retryMin
	for {
		ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, appErr.Wrap(err, appErr.CodeUnavailable, "acquire lock failed")
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, appErr.Wrap(ctx.Err(), appErr.CodeUnavailable, "timed out waiting for lock")
		case <-time.After(wait):
		}
		if wait *= 2; wait > l.retryMax {
			wait = l.retryMax
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's ctx may already be cancelled; release on a fresh one
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{full}, token).Err(); err != nil {
				logger.L().Warn("release lock failed", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}

var _ Locker = (*RedisLocker)(nil)
