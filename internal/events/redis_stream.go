package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"smart_parking_lot/internal/domain"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const defaultStreamMaxLen = 10000

// RedisStreamPublisher appends each event to a Redis stream with XADD.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *zap.Logger
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisStreamPublisher(client *redis.Client, stream string, logger *zap.Logger) *RedisStreamPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStreamPublisher{
		client: client,
		stream: stream,
		maxLen: defaultStreamMaxLen,
		logger: logger,
	}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, evs []domain.Event) error {
	for _, ev := range evs {
		env, err := NewEnvelope(ev)
		if err != nil {
			return err
		}
		id, err := p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: p.maxLen,
			Approx: true,
			Values: map[string]interface{}{
				"event":     env.Event,
				"lot_id":    strconv.Itoa(env.LotID),
				"data":      string(env.Data),
				"timestamp": env.OccurredAt.Format(time.RFC3339Nano),
			},
		}).Result()
		if err != nil {
			return fmt.Errorf("xadd %s to %s: %w", env.Event, p.stream, err)
		}
		p.logger.Debug("Event appended to stream",
			zap.String("stream", p.stream),
			zap.String("id", id),
			zap.String("event", env.Event),
			zap.Int("lot_id", env.LotID),
		)
	}
	return nil
}
