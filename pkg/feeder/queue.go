package feeder

import "context"

// Queue is the minimal blocking-pop surface a feeder worker needs. The
// production implementation is a thin wrapper over *redis.Client; tests
// use an in-memory fake.
type Queue interface {
	// BlockingPop waits indefinitely for one item to become available on
	// key and returns its payload.
	BlockingPop(ctx context.Context, key string) (string, error)
}
