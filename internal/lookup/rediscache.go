package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linnemanlabs/sift/internal/triage"
)

const redisKeyPrefix = "sift:registry:"

// RedisCache shares resolved registry records across instances.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

// Close releases the Redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Get returns the cached record, if present.
func (r *RedisCache) Get(ctx context.Context, registrationID string) (*triage.Company, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+registrationID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var company triage.Company
	if err := json.Unmarshal(data, &company); err != nil {
		return nil, false, fmt.Errorf("decode cached record: %w", err)
	}
	return &company, true, nil
}

// Set stores the record with the given TTL.
func (r *RedisCache) Set(ctx context.Context, registrationID string, company *triage.Company, ttl time.Duration) error {
	data, err := json.Marshal(company)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+registrationID, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
