package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache implements the Cache interface using Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(ctx context.Context, address string, ttlSeconds int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        address,
		Password:    "", // no password
		DB:          0,  // use default DB
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})

	// Test connection with the provided context
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &RedisCache{
		client: client,
		ttl:    time.Duration(ttlSeconds) * time.Second,
	}, nil
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetWorkshop gets a workshop from the cache
func (c *RedisCache) GetWorkshop(ctx context.Context, id string) (*Workshop, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("cache not initialized")
	}

	key := fmt.Sprintf("workshop:%s", id)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var workshop Workshop
	if err := json.Unmarshal(data, &workshop); err != nil {
		return nil, err
	}

	return &workshop, nil
}

// SetWorkshop sets a workshop in the cache
func (c *RedisCache) SetWorkshop(ctx context.Context, workshop *Workshop) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("cache not initialized")
	}

	key := fmt.Sprintf("workshop:%s", workshop.ID)
	data, err := json.Marshal(workshop)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// DeleteWorkshop deletes a workshop from the cache
func (c *RedisCache) DeleteWorkshop(ctx context.Context, id string) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("cache not initialized")
	}

	key := fmt.Sprintf("workshop:%s", id)
	return c.client.Del(ctx, key).Err()
}
