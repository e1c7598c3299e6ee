// Package vectorkernel implements the engine's vector primitives: cosine
// similarity (single and batch) and the MINERVA-2 nonlinear emphasis.
//
// Embeddings are stored already L2-normalized, but the kernel still guards
// against zero-norm vectors (returns similarity 0) and never trusts its
// inputs to already be unit length.
package vectorkernel

import (
	"gonum.org/v1/gonum/floats"

	"github.com/vthunder/cogmem/internal/cogerr"
)

// Cosine returns the cosine similarity of a and b, clamped to [-1, 1].
// Both vectors are assumed unit-normalized when possible; if either has
// zero norm, similarity is defined as 0 rather than NaN. Dimension
// mismatches are fatal to the call (cogerr.ErrDimensionMismatch).
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, cogerr.DimensionMismatch(len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}

	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := floats.Dot(a, b) / (normA * normB)
	return clamp(sim, -1, 1), nil
}

// CosineBatch computes the cosine similarity of probe against each vector
// in vs, preserving order. It is numerically equivalent to calling Cosine
// once per entry; batching only avoids repeated probe-norm computation.
func CosineBatch(probe []float64, vs [][]float64) ([]float64, error) {
	out := make([]float64, len(vs))
	if len(probe) == 0 {
		return out, nil
	}
	normProbe := floats.Norm(probe, 2)

	for i, v := range vs {
		if len(v) != len(probe) {
			return nil, cogerr.DimensionMismatch(len(probe), len(v))
		}
		if len(v) == 0 || normProbe == 0 {
			out[i] = 0
			continue
		}
		normV := floats.Norm(v, 2)
		if normV == 0 {
			out[i] = 0
			continue
		}
		out[i] = clamp(floats.Dot(probe, v)/(normProbe*normV), -1, 1)
	}
	return out, nil
}

// Dot is the raw dot product of a and b.
func Dot(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, cogerr.DimensionMismatch(len(a), len(b))
	}
	return floats.Dot(a, b), nil
}

// Cube applies the MINERVA-2 nonlinear emphasis: raising cosine similarity
// to the third power suppresses weak matches and emphasizes strong ones,
// while preserving sign (a negative similarity stays negative, unlike a
// naive math.Pow with a non-integer exponent would require care for).
func Cube(sim float64) float64 {
	return sim * sim * sim
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
