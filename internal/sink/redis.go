package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"fatigue-detector/internal/models"

	"github.com/redis/go-redis/v9"
)

type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes each event as JSON on a pub/sub channel.
type RedisSink struct {
	client  Publisher
	channel string
}

func NewRedisSink(client Publisher, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Send(ctx context.Context, event models.EventRecord) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", s.channel, err)
	}
	return nil
}

func (s *RedisSink) HealthCheck(ctx context.Context) bool {
	pinger, ok := s.client.(interface {
		Ping(ctx context.Context) *redis.StatusCmd
	})
	if !ok {
		return true
	}
	return pinger.Ping(ctx).Err() == nil
}
