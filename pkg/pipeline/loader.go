package pipeline

import (
	"context"

	"github.com/praetorian-inc/infobserve/pkg/logging"
	"github.com/praetorian-inc/infobserve/pkg/store"
	"github.com/praetorian-inc/infobserve/pkg/types"
)

// LoaderConfig configures one loader worker.
type LoaderConfig struct {
	ID        int
	LoadQueue <-chan types.ProcessedEvent
	Store     store.Store
	Logger    logging.Logger
}

// RunLoader drains LoadQueue, persisting each ProcessedEvent in its own
// transaction, until the channel is closed. A persist failure is
// logged and the event is dropped — acceptable per the pipeline's
// at-most-once delivery contract; it never stops the worker.
func RunLoader(ctx context.Context, cfg LoaderConfig) error {
	logger := logging.OrNoop(cfg.Logger)

	for pe := range cfg.LoadQueue {
		if err := cfg.Store.PersistProcessedEvent(ctx, pe); err != nil {
			logger.Log("loader[%d]: dropping event, persist failed: %v", cfg.ID, err)
			continue
		}
	}

	return nil
}
