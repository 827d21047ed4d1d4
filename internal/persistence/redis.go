package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
)

const escalationQueueKey = "escalations:manager"

// Redis wraps the go-redis client and the manager escalation queue.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// PushEscalation appends a ticket to the manager escalation queue.
func (r *Redis) PushEscalation(ctx context.Context, ticketID string) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.LPush(ctx, escalationQueueKey, ticketID).Err()
}

// PendingEscalations returns the newest queued ticket ids, most recent first.
func (r *Redis) PendingEscalations(ctx context.Context, limit int64) ([]string, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("redis client not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	return r.Client.LRange(ctx, escalationQueueKey, 0, limit-1).Result()
}

// AckEscalation removes a ticket from the escalation queue once a manager
// has acted on it.
func (r *Redis) AckEscalation(ctx context.Context, ticketID string) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.LRem(ctx, escalationQueueKey, 0, ticketID).Err()
}
