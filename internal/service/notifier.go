package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-demo/chatcore/internal/config"
	"github.com/go-demo/chatcore/internal/model"
	"github.com/go-demo/chatcore/internal/pkg/metrics"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// RedisNotifier hands push notifications to the delivery service over a
// Redis channel. Publishing stops for a while after repeated failures.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	breaker *gobreaker.CircuitBreaker[int64]
	logger  *zap.Logger
}

func NewRedisNotifier(client *redis.Client, cfg config.PushConfig, logger *zap.Logger) *RedisNotifier {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:        "push-notifier",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Push circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &RedisNotifier{
		client:  client,
		channel: cfg.Channel,
		breaker: breaker,
		logger:  logger,
	}
}

// Notify implements Notifier.
func (n *RedisNotifier) Notify(ctx context.Context, notification *model.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	_, err = n.breaker.Execute(func() (int64, error) {
		return n.client.Publish(ctx, n.channel, payload).Result()
	})
	switch {
	case err == nil:
		metrics.PushPublished.WithLabelValues("ok").Inc()
		return nil
	case err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests:
		metrics.PushPublished.WithLabelValues("rejected").Inc()
	default:
		metrics.PushPublished.WithLabelValues("error").Inc()
	}
	return fmt.Errorf("failed to publish notification: %w", err)
}

// State reports the breaker state for health checks.
func (n *RedisNotifier) State() gobreaker.State {
	return n.breaker.State()
}
