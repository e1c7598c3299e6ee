// Package sweep owns the two host-scheduled background tasks: embedding
// regeneration and familiarity decay. Both are cancellable, must not block
// foreground retrieval, and log-and-continue on error rather than
// propagating.
package sweep

import (
	"context"
	"time"

	"github.com/vthunder/cogmem/internal/embedlifecycle"
	"github.com/vthunder/cogmem/internal/location"
	"github.com/vthunder/cogmem/internal/logging"
)

// RunEmbeddingSweep regenerates up to batchSize pending embeddings every
// interval until ctx is cancelled.
func RunEmbeddingSweep(ctx context.Context, ledger *embedlifecycle.Ledger, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := ledger.RegenerateBatch(ctx, batchSize)
			if err != nil {
				logging.Warn("sweep", "embedding regeneration batch failed: %v", err)
				continue
			}
			if n > 0 {
				logging.Debug("sweep", "regenerated %d embeddings", n)
			}
		}
	}
}

// RunDecaySweep applies location familiarity decay every interval until
// ctx is cancelled.
func RunDecaySweep(ctx context.Context, mgr *location.Manager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := mgr.Decay()
			if err != nil {
				logging.Warn("sweep", "familiarity decay sweep failed: %v", err)
				continue
			}
			if n > 0 {
				logging.Debug("sweep", "decayed %d locations", n)
			}
		}
	}
}
