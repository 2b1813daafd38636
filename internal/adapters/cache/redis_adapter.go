package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zatekoja/facetedsearch/internal/domain/providers"
)

const scanBatchSize = 100

// RedisAdapter implements the CacheProvider interface using Redis
type RedisAdapter struct {
	client redis.UniversalClient
}

// NewRedisAdapter creates a new Redis cache adapter
func NewRedisAdapter(client redis.UniversalClient) *RedisAdapter {
	return &RedisAdapter{
		client: client,
	}
}

var _ providers.CacheProvider = (*RedisAdapter)(nil)

// Get retrieves a value from cache
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := a.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, providers.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}
	return result, nil
}

// Set stores a value in cache with expiration
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	expiration := time.Duration(expirationSeconds) * time.Second
	if err := a.client.Set(ctx, key, value, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

// Delete removes a value from cache
func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

// DeletePattern removes every key matching pattern using SCAN
func (a *RedisAdapter) DeletePattern(ctx context.Context, pattern string) (int, error) {
	deleted := 0
	iter := a.client.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			n, err := a.client.Del(ctx, batch...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete from cache: %w", err)
			}
			deleted += int(n)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan cache: %w", err)
	}
	if len(batch) > 0 {
		n, err := a.client.Del(ctx, batch...).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to delete from cache: %w", err)
		}
		deleted += int(n)
	}
	return deleted, nil
}
