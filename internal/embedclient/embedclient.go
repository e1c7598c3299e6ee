// Package embedclient defines the pluggable embedding-provider boundary and
// a reference Ollama implementation. The kernel packages (vectorkernel,
// activation, spreading) never import this package; they only see
// []float64 vectors, keeping the ranking math decoupled from any
// particular model or transport. retrieval and embedlifecycle use only the
// Embedder interface.
package embedclient

import "context"

// Embedder turns text (or, for the visual space, an image description or
// handle) into a fixed-dimension vector. Implementations are expected to
// be safe for concurrent use.
type Embedder interface {
	// Embed returns the vector for text under the embedder's current model.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Model identifies the active model tag, stored alongside every vector
	// so a later model change can find and invalidate stale embeddings.
	Model() string

	// Dimension is the vector length this embedder currently produces.
	Dimension() int
}
