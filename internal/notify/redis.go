package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"insiderpulse/internal/config"
)

const enqueueTimeout = 2 * time.Second

// RedisQueue pushes cluster notifications onto a Redis list consumed by the
// notification service.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(cfg config.RedisConfig) *RedisQueue {
	return &RedisQueue{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		key: cfg.Queue,
	}
}

func (q *RedisQueue) EnqueueClusterNotification(ctx context.Context, n ClusterNotification) error {
	if q == nil || q.client == nil {
		return nil
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()
	return q.client.LPush(ctx, q.key, raw).Err()
}

func (q *RedisQueue) Close() error {
	if q == nil || q.client == nil {
		return nil
	}
	return q.client.Close()
}
