package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
)

// releaseScript deletes the lock only if this holder still owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// extendScript pushes the expiry out only if this holder still owns the lock
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

var errLockLost = errors.New("lock is owned by another holder")

// RedisLocker is a per-key lock shared by every API and CLI process
type RedisLocker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisLocker creates a redis-backed locker
func NewRedisLocker(client *redis.Client, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{client: client, logger: logger}
}

// TryLock acquires key for ttl or returns entities.ErrRecordingLocked.
// The lock is renewed in the background until unlock is called.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, entities.ErrRecordingLocked
	}

	stop := keepAlive(ttl, func() (bool, error) {
		extendCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n, err := extendScript.Run(extendCtx, l.client, []string{key}, token, ttl.Milliseconds()).Int()
		return n == 1, err
	}, func(err error) {
		if l.logger != nil {
			l.logger.Error("❌ Failed to renew lock", zap.String("key", key), zap.Error(err))
		}
	})

	return func() {
		stop()
		// the caller's context may already be done when the attempt ends
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil && l.logger != nil {
			l.logger.Warn("⚠️ Failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// MemoryLocker is the single-process fallback used when redis is unavailable
type MemoryLocker struct {
	store *MemoryStore
}

// NewMemoryLocker creates an in-memory locker
func NewMemoryLocker(store *MemoryStore) *MemoryLocker {
	return &MemoryLocker{store: store}
}

// TryLock acquires key for ttl or returns entities.ErrRecordingLocked
func (l *MemoryLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	if !l.store.SetNX(key, token, ttl) {
		return nil, entities.ErrRecordingLocked
	}
	stop := keepAlive(ttl, func() (bool, error) {
		return l.store.ExtendIfValue(key, token, ttl), nil
	}, nil)
	return func() {
		stop()
		l.store.DeleteIfValue(key, token)
	}, nil
}

// keepAlive renews a held lock every third of its ttl until the returned stop
// is called, so an attempt running longer than ttl keeps its lock. Renewal
// ends once extend reports the key is owned by someone else.
func keepAlive(ttl time.Duration, extend func() (bool, error), onErr func(error)) (stop func()) {
	if ttl <= 0 {
		return func() {}
	}
	interval := ttl / 3
	if interval <= 0 {
		interval = ttl
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ok, err := extend()
				if err != nil {
					// transient, the next tick retries before the ttl runs out
					if onErr != nil {
						onErr(err)
					}
					continue
				}
				if !ok {
					if onErr != nil {
						onErr(errLockLost)
					}
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-finished
		})
	}
}
