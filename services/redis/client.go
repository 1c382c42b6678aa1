package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the narrow Redis surface the workflow core needs: short-TTL
// caching and event publication.
type Client interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Publish(ctx context.Context, channel string, message interface{}) error
}

type redisClient struct {
	client *redis.Client
}

func NewClient(addr, password string, db int) Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisClient{client: rdb}
}

func (r *redisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisClient) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *redisClient) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return r.client.Publish(ctx, channel, message).Err()
}

// IsMiss reports whether err is a cache miss rather than a Redis failure.
func IsMiss(err error) bool {
	return err == redis.Nil
}
