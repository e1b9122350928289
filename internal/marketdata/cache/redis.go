package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"watchlist-scanner/internal/types"
)

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

// redisStore keeps bar series as JSON values in Redis.
type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects and pings Redis.
func NewRedisStore(cfg RedisConfig) (Store, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "watchlist-scanner"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping %s: %v", types.ErrConfig, cfg.Addr, err)
	}

	return &redisStore{client: client, prefix: cfg.Prefix}, nil
}

func (rs *redisStore) Get(ctx context.Context, key string) ([]types.PriceBar, bool, error) {
	data, err := rs.client.Get(ctx, rs.wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var bars []types.PriceBar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, false, fmt.Errorf("decode cached bars %s: %w", key, err)
	}
	return bars, true, nil
}

func (rs *redisStore) Set(ctx context.Context, key string, bars []types.PriceBar, ttl time.Duration) error {
	data, err := json.Marshal(bars)
	if err != nil {
		return err
	}
	return rs.client.Set(ctx, rs.wrapKey(key), data, ttl).Err()
}

func (rs *redisStore) Close() error {
	return rs.client.Close()
}

func (rs *redisStore) wrapKey(key string) string {
	return rs.prefix + ":" + key
}
