package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-demo/chatcore/internal/pkg/metrics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultWait  = 10 * time.Second
	DefaultLease = 5 * time.Second

	retryInterval = 50 * time.Millisecond
)

// ErrTimeout is returned when the lock could not be obtained within the wait time.
var ErrTimeout = errors.New("lock: wait time exceeded")

// Locker grants mutual exclusion over a named key.
type Locker interface {
	// Acquire blocks until the key is held or the wait time elapses.
	// The returned release func is safe to call more than once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Do runs fn while holding key.
func Do(ctx context.Context, l Locker, key string, fn func(ctx context.Context) error) error {
	release, err := l.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// compare-and-delete so a holder whose lease expired cannot free someone else's lock
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX.
type RedisLocker struct {
	client *redis.Client
	wait   time.Duration
	lease  time.Duration
	logger *zap.Logger
}

// NewRedisLocker creates a Redis backed locker. Zero durations fall back to the defaults.
func NewRedisLocker(client *redis.Client, wait, lease time.Duration, logger *zap.Logger) *RedisLocker {
	if wait <= 0 {
		wait = DefaultWait
	}
	if lease <= 0 {
		lease = DefaultLease
	}
	return &RedisLocker{
		client: client,
		wait:   wait,
		lease:  lease,
		logger: logger,
	}
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			metrics.LockAcquisitions.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			metrics.LockAcquisitions.WithLabelValues("acquired").Inc()
			return l.releaser(key, token), nil
		}

		if !time.Now().Add(retryInterval).Before(deadline) {
			metrics.LockAcquisitions.WithLabelValues("timeout").Inc()
			return nil, ErrTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, token) })
	}
}

func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.logger.Warn("Failed to release lock",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
