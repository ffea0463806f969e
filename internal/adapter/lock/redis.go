package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"repolens/internal/port"
)

const keyPrefix = "repolens:lock:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// extendScript resets the expiry only while the key still holds our token.
var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Redis shares locks between server instances. A live holder refreshes its
// key every ttl/3; a crashed holder frees it once ttl elapses.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedis(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

func (r *Redis) TryLock(ctx context.Context, key string) (func(), error) {
	lockKey := keyPrefix + key
	token := uuid.New().String()

	ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, port.ErrRepoLocked
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(lockKey, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			// the run context may already be cancelled
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			n, err := releaseScript.Run(ctx, r.client, []string{lockKey}, token).Int64()
			if err != nil {
				r.logger.Warn("failed to release lock", "key", lockKey, "error", err)
				return
			}
			if n == 0 {
				r.logger.Warn("lock was already released or expired", "key", lockKey)
			}
		})
	}, nil
}

// keepAlive extends the key until stop is closed or the key is no longer
// ours.
func (r *Redis) keepAlive(lockKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := r.ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			n, err := extendScript.Run(ctx, r.client, []string{lockKey}, token, r.ttl.Milliseconds()).Int64()
			cancel()
			if err != nil {
				r.logger.Warn("failed to extend lock", "key", lockKey, "error", err)
				continue
			}
			if n == 0 {
				r.logger.Warn("lock lost before release", "key", lockKey)
				return
			}
		}
	}
}

var _ port.Locker = (*Redis)(nil)
