package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/config"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/types"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
)

// Publisher is the part of a redis client used to publish events.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes order events as JSON on a Redis channel.
type RedisPublisher struct {
	client  Publisher
	channel string
}

func NewRedisPublisher(client Publisher, channel string) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: channel,
	}
}

// NewRedisClient builds a client from the events config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{ //nolint:exhaustruct // library defaults
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func (p *RedisPublisher) Publish(ctx context.Context, event types.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(errors.ErrCodePublishFailed, "failed to encode order event", err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return errors.Wrapf(errors.ErrCodePublishFailed, err, "failed to publish order event to %s", p.channel)
	}

	return nil
}

var _ Sink = (*RedisPublisher)(nil)
