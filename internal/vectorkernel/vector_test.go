package vectorkernel

import (
	"errors"
	"math"
	"testing"

	"github.com/vthunder/cogmem/internal/cogerr"
)

func TestCosine_UnitVectors(t *testing.T) {
	a := []float64{1, 0, 0}
	b := []float64{1, 0, 0}
	sim, err := Cosine(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sim-1) > 1e-9 {
		t.Errorf("cosine(a, a) = %v, want 1", sim)
	}
}

func TestCosine_Orthogonal(t *testing.T) {
	sim, err := Cosine([]float64{1, 0}, []float64{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sim) > 1e-9 {
		t.Errorf("cosine of orthogonal vectors = %v, want 0", sim)
	}
}

func TestCosine_DimensionMismatch(t *testing.T) {
	_, err := Cosine([]float64{1, 2}, []float64{1, 2, 3})
	if !errors.Is(err, cogerr.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCosine_ZeroNorm(t *testing.T) {
	sim, err := Cosine([]float64{0, 0}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if sim != 0 {
		t.Errorf("cosine with zero-norm vector = %v, want 0", sim)
	}
}

func TestCosine_ClampedRange(t *testing.T) {
	for _, v := range [][2][]float64{
		{{1, 0}, {1, 0}},
		{{1, 0}, {-1, 0}},
		{{1, 1}, {1, -1}},
	} {
		sim, err := Cosine(v[0], v[1])
		if err != nil {
			t.Fatal(err)
		}
		if sim < -1 || sim > 1 {
			t.Errorf("cosine out of range: %v", sim)
		}
	}
}

func TestCosineBatch_MatchesIndividualCalls(t *testing.T) {
	probe := []float64{0.6, 0.8}
	vs := [][]float64{{1, 0}, {0, 1}, {0.6, 0.8}}

	batch, err := CosineBatch(probe, vs)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vs {
		want, err := Cosine(probe, v)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(batch[i]-want) > 1e-9 {
			t.Errorf("batch[%d] = %v, want %v", i, batch[i], want)
		}
	}
}

func TestCube_PreservesSign(t *testing.T) {
	if Cube(-0.5) >= 0 {
		t.Error("Cube(-0.5) should stay negative")
	}
	if Cube(0.5) <= 0 {
		t.Error("Cube(0.5) should stay positive")
	}
	if math.Abs(Cube(0.9)-0.729) > 1e-9 {
		t.Errorf("Cube(0.9) = %v, want 0.729", Cube(0.9))
	}
}
