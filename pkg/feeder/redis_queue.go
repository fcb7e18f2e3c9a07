package feeder

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisQueue adapts a *redis.Client to Queue using a blocking list pop
// with no timeout, matching the external producer's BLPOP contract.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue wraps client.
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

// BlockingPop implements Queue.
func (q *RedisQueue) BlockingPop(ctx context.Context, key string) (string, error) {
	result, err := q.client.BLPop(ctx, 0, key).Result()
	if err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return "", &UnusableQueueError{Cause: err}
		}
		return "", fmt.Errorf("feeder: blocking pop on %q: %w", key, err)
	}
	// BLPop returns [key, value]; with a single key the value is index 1.
	if len(result) != 2 {
		return "", fmt.Errorf("feeder: unexpected BLPOP reply shape: %v", result)
	}
	return result[1], nil
}
