package query

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stockdash/mentions-bot/internal/models"
)

// RedisCache caches query results in Redis with a short TTL. Every failure
// degrades to a cache miss; the store stays the source of truth.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache connects to Redis at the given URL.
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]models.Mention, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logrus.Debugf("Query cache read failed: %v", err)
		}
		return nil, false
	}

	var mentions []models.Mention
	if err := json.Unmarshal(data, &mentions); err != nil {
		logrus.Debugf("Query cache entry corrupt, ignoring: %v", err)
		return nil, false
	}

	return mentions, true
}

func (c *RedisCache) Set(ctx context.Context, key string, mentions []models.Mention) {
	data, err := json.Marshal(mentions)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logrus.Debugf("Query cache write failed: %v", err)
	}
}
