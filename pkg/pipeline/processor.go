// Package pipeline assembles the feeder/processor/loader worker pools
// around the feed-queue and load-queue channels and runs the ordered
// shutdown protocol between them.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/praetorian-inc/infobserve/pkg/logging"
	"github.com/praetorian-inc/infobserve/pkg/matcher"
	"github.com/praetorian-inc/infobserve/pkg/types"
)

// ProcessorConfig configures one processor worker.
type ProcessorConfig struct {
	ID          int
	FeedQueue   <-chan types.Event
	LoadQueue   chan<- types.ProcessedEvent
	LoadersDone <-chan struct{} // closed once every loader has returned
	NewMatcher  func() (matcher.Matcher, error)
	Logger      logging.Logger
}

// RunProcessor builds a private matcher, then drains FeedQueue until it
// is closed, emitting a ProcessedEvent for every event that produced at
// least one match. It returns the worker's accumulated Stats.
func RunProcessor(ctx context.Context, cfg ProcessorConfig) (types.Stats, error) {
	logger := logging.OrNoop(cfg.Logger)

	m, err := cfg.NewMatcher()
	if err != nil {
		return types.Stats{}, fmt.Errorf("pipeline: processor[%d]: building matcher: %w", cfg.ID, err)
	}
	defer m.Close()

	var stats types.Stats
	for ev := range cfg.FeedQueue {
		start := time.Now()
		stats.EventsProcessed++

		matches, err := m.Scan(ctx, ev.RawContent)
		if err != nil {
			logger.Log("processor[%d]: scan error: %v", cfg.ID, err)
			stats.Duration += time.Since(start)
			continue
		}
		if len(matches) == 0 {
			stats.Duration += time.Since(start)
			continue
		}

		stats.EventsMatched++
		pe := types.ProcessedEvent{Event: ev, Matches: matches}
		select {
		case cfg.LoadQueue <- pe:
		case <-cfg.LoadersDone:
			stats.SendFailures++
		}

		stats.Duration += time.Since(start)
	}

	return stats, nil
}
