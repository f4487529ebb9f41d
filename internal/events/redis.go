package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/pathwise/internal/config"
	"github.com/redis/go-redis/v9"
)

// Publisher is the subset of a Redis client used to publish invalidations.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes invalidation events as JSON on a Redis channel.
type RedisPublisher struct {
	client  Publisher
	channel string
	logger  *slog.Logger
}

// NewRedisPublisher creates a RedisPublisher.
func NewRedisPublisher(client Publisher, channel string, logger *slog.Logger) (*RedisPublisher, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if channel == "" {
		return nil, errors.New("redis channel cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger.With(slog.String("component", "redis_publisher")),
	}, nil
}

// HandleEvent implements EventHandler.
func (p *RedisPublisher) HandleEvent(ctx context.Context, event *InvalidationEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode invalidation event: %w", err)
	}
	receivers, err := p.client.Publish(ctx, p.channel, raw).Result()
	if err != nil {
		return fmt.Errorf("failed to publish invalidation event: %w", err)
	}
	p.logger.Debug("invalidation published",
		slog.String("event_id", event.ID.String()),
		slog.String("channel", p.channel),
		slog.Int64("receivers", receivers))
	return nil
}

// NewRedisClient connects to the configured Redis server and verifies the
// connection with a ping.
func NewRedisClient(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
