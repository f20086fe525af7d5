package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// pollInterval bounds each BRPOP so Dequeue notices cancellation.
const pollInterval = 5 * time.Second

// RedisQueue stores jobs in a Redis list (LPUSH / BRPOP), so pending work
// survives a server restart. It is unbounded.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue connects and pings the server.
func NewRedisQueue(ctx context.Context, cfg Config) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	key := cfg.RedisKey
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisQueue{client: client, key: key}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrQueueFull, err)
		}
		return fmt.Errorf("failed to push job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		result, err := q.client.BRPop(ctx, pollInterval, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			if errors.Is(err, redis.ErrClosed) {
				return Job{}, ErrClosed
			}
			return Job{}, fmt.Errorf("failed to pop job: %w", err)
		}

		// result is [key, value]
		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			return Job{}, fmt.Errorf("failed to decode job %q: %w", result[1], err)
		}
		return job, nil
	}
}

func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return int(n), nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
