package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/praetorian-inc/infobserve/pkg/feeder"
	"github.com/praetorian-inc/infobserve/pkg/logging"
	"github.com/praetorian-inc/infobserve/pkg/matcher"
	"github.com/praetorian-inc/infobserve/pkg/store"
	"github.com/praetorian-inc/infobserve/pkg/types"
)

// Config assembles one pipeline run: a set of already-wired feeders,
// the processor and loader pool sizes, and the shared queues between
// the three pools.
type Config struct {
	Feeders   []*feeder.Worker
	FeedQueue chan types.Event

	NumProcessors int
	NewMatcher    func() (matcher.Matcher, error)

	NumLoaders int
	LoadQueue  chan types.ProcessedEvent
	Store      store.Store

	Logger logging.Logger
}

// Run assembles and drives the three worker pools to completion,
// following the ordered-channel-close shutdown protocol: feeders run
// until each receives QUIT or ctx is cancelled, then the feed-queue is
// closed; processors drain it, then the load-queue is closed; loaders
// drain that, and the coordinator joins them last, aggregating their
// Stats into a Summary.
func Run(ctx context.Context, cfg Config) (Summary, error) {
	logger := logging.OrNoop(cfg.Logger)

	// Startup precondition: verify the rule directory compiles before
	// spawning any processor, so a bad rule set fails fast instead of
	// hanging every processor worker individually.
	probe, err := cfg.NewMatcher()
	if err != nil {
		return Summary{}, fmt.Errorf("pipeline: startup rule validation: %w", err)
	}
	probe.Close()

	loadersDone := make(chan struct{})
	loaderGroup, loaderCtx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.NumLoaders; i++ {
		id := i
		loaderGroup.Go(func() error {
			return RunLoader(loaderCtx, LoaderConfig{
				ID:        id,
				LoadQueue: cfg.LoadQueue,
				Store:     cfg.Store,
				Logger:    cfg.Logger,
			})
		})
	}
	loaderErrCh := make(chan error, 1)
	go func() {
		err := loaderGroup.Wait()
		close(loadersDone)
		loaderErrCh <- err
	}()

	feederGroup, feederCtx := errgroup.WithContext(ctx)
	for _, w := range cfg.Feeders {
		worker := w
		feederGroup.Go(func() error {
			return worker.Run(feederCtx)
		})
	}
	if err := feederGroup.Wait(); err != nil {
		logger.Log("pipeline: feeder pool exited with error: %v", err)
	}
	close(cfg.FeedQueue)

	processorGroup, procCtx := errgroup.WithContext(ctx)
	statsCh := make(chan types.Stats, cfg.NumProcessors)
	for i := 0; i < cfg.NumProcessors; i++ {
		id := i
		processorGroup.Go(func() error {
			stats, err := RunProcessor(procCtx, ProcessorConfig{
				ID:          id,
				FeedQueue:   cfg.FeedQueue,
				LoadQueue:   cfg.LoadQueue,
				LoadersDone: loadersDone,
				NewMatcher:  cfg.NewMatcher,
				Logger:      cfg.Logger,
			})
			statsCh <- stats
			return err
		})
	}

	procErr := processorGroup.Wait()
	close(statsCh)
	close(cfg.LoadQueue)

	var perWorker []types.Stats
	for s := range statsCh {
		perWorker = append(perWorker, s)
	}

	loadErr := <-loaderErrCh

	summary := Summarize(perWorker)
	if procErr != nil {
		return summary, fmt.Errorf("pipeline: processor pool: %w", procErr)
	}
	if loadErr != nil {
		return summary, fmt.Errorf("pipeline: loader pool: %w", loadErr)
	}
	return summary, nil
}
