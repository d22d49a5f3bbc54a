package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock stays taken past the wait limit.
var ErrNotAcquired = errors.New("user lock not acquired")

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig tunes RedisLocker.
type RedisConfig struct {
	// TTL bounds how long a crashed holder can block the user.
	TTL time.Duration
	// Wait is the longest WithUserLock waits for the lock.
	Wait time.Duration
	// RetryInterval is the polling delay while the lock is taken.
	RetryInterval time.Duration
	Prefix        string
}

// DefaultRedisConfig returns settings suited to short command transactions.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		TTL:           10 * time.Second,
		Wait:          5 * time.Second,
		RetryInterval: 25 * time.Millisecond,
		Prefix:        "tasklist:lock",
	}
}

// RedisLocker holds per-user locks in Redis so several processes serialize
// writes to the same user's tasks.
type RedisLocker struct {
	client *redis.Client
	config RedisConfig
}

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(client *redis.Client, config RedisConfig) *RedisLocker {
	defaults := DefaultRedisConfig()
	if config.TTL <= 0 {
		config.TTL = defaults.TTL
	}
	if config.Wait <= 0 {
		config.Wait = defaults.Wait
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = defaults.RetryInterval
	}
	if config.Prefix == "" {
		config.Prefix = defaults.Prefix
	}
	return &RedisLocker{client: client, config: config}
}

func (l *RedisLocker) key(userID uuid.UUID) string {
	return fmt.Sprintf("%s:user:%s", l.config.Prefix, userID)
}

// WithUserLock runs fn while holding userID's Redis lock.
func (l *RedisLocker) WithUserLock(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) error {
	key := l.key(userID)
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}
	defer func() {
		// Release even if ctx was cancelled while fn ran.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}()

	return fn(ctx)
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.config.Wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.config.TTL).Result()
		if err != nil {
			return fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrNotAcquired, key)
		}

		timer := time.NewTimer(l.config.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
