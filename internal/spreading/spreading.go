// Package spreading implements the one-hop spreading-activation kernel:
// given a memory and its incident associations, spread activation to the
// probe through the embeddings of the other endpoints, normalized by the
// fan-effect (total incident edge count in both directions). Strictly
// one-hop: no iteration, no lateral inhibition.
package spreading

import "github.com/vthunder/cogmem/internal/vectorkernel"

// Edge is one association incident to the memory being scored, already
// resolved to the activation being spread from and to.
type Edge struct {
	OtherID        string
	Strength       float64
	OtherEmbedding []float64 // nil if the other endpoint has no embedding
}

// Spread computes S(m) for a memory m given all of its incident edges
// (callers must pass edges for both (m, x) and (x, m)) and the probe
// vector. |E| is len(edges), which is the fan-effect normalization:
// well-connected nodes contribute less activation per edge. Edges whose
// opposite endpoint lacks an embedding contribute 0.
func Spread(edges []Edge, probe []float64) (float64, error) {
	if len(edges) == 0 {
		return 0, nil
	}

	var sum float64
	for _, e := range edges {
		if len(e.OtherEmbedding) == 0 || len(probe) == 0 {
			continue
		}
		sim, err := vectorkernel.Cosine(probe, e.OtherEmbedding)
		if err != nil {
			// A single malformed edge must not poison the batch: skip it.
			continue
		}
		if sim < 0 {
			sim = 0
		}
		sum += e.Strength * sim
	}

	return sum / float64(len(edges)), nil
}
