package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helpdesk-assist/backend/pkg/logger"
	"github.com/helpdesk-assist/backend/pkg/retry"
)

// counterTTL keeps daily counter keys around for two days so yesterday's
// count is still readable right after the UTC day boundary.
const counterTTL = 48 * time.Hour

type Client struct {
	client      *redis.Client
	retryConfig retry.Config
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	retryConfig := retry.DefaultConfig()
	retryConfig.Logger = logger.GetLogger()

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, retryConfig: retryConfig}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cached value: %w", err)
	}

	if err := c.client.Set(ctx, "result:"+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set result cache: %w", err)
	}

	logger.Debug("Result cached", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) Get(ctx context.Context, key string, v interface{}) (bool, error) {
	data, err := c.client.Get(ctx, "result:"+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get result cache: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	logger.Debug("Result cache hit", zap.String("key", key))
	return true, nil
}

// IncrementDaily bumps the per-UTC-day query counter. The INCR is atomic,
// so concurrent queries never lose increments; transient connection errors
// are retried since one increment more or less only skews a dashboard.
func (c *Client) IncrementDaily(ctx context.Context, day string) error {
	key := "assistant:queries:" + day

	return retry.Do(ctx, c.retryConfig, func() error {
		pipe := c.client.TxPipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, counterTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to increment daily counter: %w", err)
		}
		return nil
	})
}

func (c *Client) GetDaily(ctx context.Context, day string) (int64, error) {
	val, err := c.client.Get(ctx, "assistant:queries:"+day).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get daily counter: %w", err)
	}
	return val, nil
}
