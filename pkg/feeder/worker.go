package feeder

import (
	"context"
	"errors"
	"fmt"

	"github.com/praetorian-inc/infobserve/pkg/logging"
	"github.com/praetorian-inc/infobserve/pkg/types"
)

// Worker bridges one external queue client to the feed-queue channel.
// One worker owns one long-lived Queue; decode and transient pop
// failures are recovered locally, matching the teacher's
// errgroup-managed, context-cancellable worker loops.
type Worker struct {
	ID     int
	Queue  Queue
	Key    string
	Output chan<- types.Event
	Logger logging.Logger
}

// NewWorker builds a Worker with a no-op logger if logger is nil.
func NewWorker(id int, queue Queue, key string, output chan<- types.Event, logger logging.Logger) *Worker {
	return &Worker{
		ID:     id,
		Queue:  queue,
		Key:    key,
		Output: output,
		Logger: logging.OrNoop(logger),
	}
}

// Run blocks, popping payloads and forwarding decoded events onto
// Output, until the payload is the QUIT sentinel, ctx is cancelled, or
// an unrecoverable transport error occurs. It never closes Output;
// the coordinator does that once every feeder has returned (§4.6).
func (w *Worker) Run(ctx context.Context) error {
	for {
		payload, err := w.Queue.BlockingPop(ctx, w.Key)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var unusable *UnusableQueueError
			if errors.As(err, &unusable) {
				w.Logger.Log("feeder[%d]: exiting, %v", w.ID, unusable)
				return unusable
			}
			w.Logger.Log("feeder[%d]: pop error, retrying: %v", w.ID, err)
			continue
		}

		if payload == QuitSentinel {
			return nil
		}

		event, err := DecodeEnvelope(payload)
		if err != nil {
			w.Logger.Log("feeder[%d]: dropping malformed envelope: %v", w.ID, err)
			continue
		}

		select {
		case w.Output <- event:
		case <-ctx.Done():
			return nil
		}
	}
}

// UnusableQueueError wraps a transport error deemed fatal to the
// worker's queue client, distinct from the transient, retried errors
// BlockingPop normally returns.
type UnusableQueueError struct {
	Cause error
}

func (e *UnusableQueueError) Error() string {
	return fmt.Sprintf("feeder: queue client unusable: %v", e.Cause)
}

func (e *UnusableQueueError) Unwrap() error {
	return e.Cause
}
