// Package embedlifecycle manages the per-model-tag embedding ledger: when
// the active embedding model changes, existing vectors produced by the old
// model are invalidated in bulk, and a background sweep lazily regenerates
// them from each owner's stored content. Two independent ledgers exist,
// one per embedding space (text, visual), mirroring the store's
// independent tables; invalidating one must never touch the other.
package embedlifecycle

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vthunder/cogmem/internal/embedclient"
	"github.com/vthunder/cogmem/internal/logging"
	"github.com/vthunder/cogmem/internal/store"
)

// ContentSource resolves an owner ID (a memory ID) to the text that should
// be embedded. Kept as a function type rather than a direct store.DB
// dependency on types.Memory so the visual space can later supply a
// different source (an image description, a caption) without this package
// caring which.
type ContentSource func(ownerID string) (string, error)

// Ledger tracks and regenerates one embedding space against one Embedder.
type Ledger struct {
	db      *store.DB
	space   store.Space
	embed   embedclient.Embedder
	content ContentSource
}

// New constructs a Ledger for one embedding space.
func New(db *store.DB, space store.Space, embed embedclient.Embedder, content ContentSource) *Ledger {
	return &Ledger{db: db, space: space, embed: embed, content: content}
}

// InvalidateStale deletes every embedding in this space not tagged with
// the embedder's current model, returning how many were invalidated. Call
// this once after swapping the active embedder.
func (l *Ledger) InvalidateStale(ctx context.Context) (int, error) {
	n, err := l.db.DeleteEmbeddingsNotMatching(l.space, l.embed.Model())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logging.Info("embedlifecycle", "invalidated %d stale %s embeddings (model now %s)", n, l.space, l.embed.Model())
	}
	return n, nil
}

// PendingCount returns how many owners in this space currently lack an
// embedding (new content, or content invalidated by InvalidateStale).
func (l *Ledger) PendingCount() (int, error) {
	return l.db.PendingEmbeddingCount(l.space)
}

// RegenerateBatch embeds up to limit pending owners concurrently, bounded
// by an errgroup, and stores the results. A single owner's provider
// failure is logged and skipped; it stays pending for the next sweep and
// never aborts the batch.
func (l *Ledger) RegenerateBatch(ctx context.Context, limit int) (regenerated int, err error) {
	owners, err := l.db.MemoriesWithoutEmbeddings(l.space, limit)
	if err != nil {
		return 0, err
	}
	if len(owners) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	results := make(chan string, len(owners))
	for _, ownerID := range owners {
		ownerID := ownerID
		g.Go(func() error {
			text, err := l.content(ownerID)
			if err != nil {
				logging.Warn("embedlifecycle", "no content for %s: %v", ownerID, err)
				return nil
			}
			vec, err := l.embed.Embed(gctx, text)
			if err != nil {
				logging.Warn("embedlifecycle", "embed failed for %s: %v", ownerID, err)
				return nil
			}
			if err := l.db.StoreEmbedding(l.space, ownerID, vec, l.embed.Model()); err != nil {
				return err
			}
			results <- ownerID
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	close(results)
	for range results {
		regenerated++
	}
	return regenerated, nil
}
