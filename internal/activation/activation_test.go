package activation

import (
	"math"
	"testing"
)

func TestBaseLevel_EmptyHistory(t *testing.T) {
	if got := BaseLevel(nil, 1000, DefaultDecay); got != 0 {
		t.Errorf("BaseLevel(nil) = %v, want 0", got)
	}
}

func TestBaseLevel_MonotonicWithMoreAccesses(t *testing.T) {
	now := int64(1_000_000)
	one := BaseLevel([]int64{now - 10_000}, now, DefaultDecay)
	two := BaseLevel([]int64{now - 10_000, now - 20_000}, now, DefaultDecay)
	if two <= one {
		t.Errorf("more accesses should raise base-level activation: one=%v two=%v", one, two)
	}
}

func TestBaseLevel_DecaysWithElapsedTime(t *testing.T) {
	now := int64(1_000_000)
	recent := BaseLevel([]int64{now - 1_000}, now, DefaultDecay)
	stale := BaseLevel([]int64{now - 1_000_000}, now, DefaultDecay)
	if stale >= recent {
		t.Errorf("older access should have lower activation: recent=%v stale=%v", recent, stale)
	}
}

func TestBaseLevel_FloorsElapsedAtOneSecond(t *testing.T) {
	now := int64(1_000_000)
	// access "now" and access one millisecond ago should floor to the same
	// elapsed-1-second contribution, not blow up to +Inf.
	a := BaseLevel([]int64{now}, now, DefaultDecay)
	b := BaseLevel([]int64{now - 1}, now, DefaultDecay)
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		t.Fatalf("BaseLevel must not be infinite: a=%v b=%v", a, b)
	}
	if a != b {
		t.Errorf("sub-second elapsed time should floor identically: a=%v b=%v", a, b)
	}
}

func TestBaseLevel_DefaultsInvalidDecay(t *testing.T) {
	now := int64(1_000_000)
	withZero := BaseLevel([]int64{now - 10_000}, now, 0)
	withDefault := BaseLevel([]int64{now - 10_000}, now, DefaultDecay)
	if withZero != withDefault {
		t.Errorf("decay<=0 should fall back to DefaultDecay: got %v want %v", withZero, withDefault)
	}
}

func TestLogistic_AtThresholdIsHalf(t *testing.T) {
	p := Logistic(0.5, 0.5, DefaultNoise)
	if math.Abs(p-0.5) > 1e-9 {
		t.Errorf("Logistic(A=threshold) = %v, want 0.5", p)
	}
}

func TestLogistic_MonotonicInActivation(t *testing.T) {
	low := Logistic(-1, 0, DefaultNoise)
	high := Logistic(1, 0, DefaultNoise)
	if high <= low {
		t.Errorf("Logistic should increase with activation: low=%v high=%v", low, high)
	}
}

func TestLogistic_BoundedZeroOne(t *testing.T) {
	for _, a := range []float64{-100, -1, 0, 1, 100} {
		p := Logistic(a, 0, DefaultNoise)
		if p < 0 || p > 1 {
			t.Errorf("Logistic(%v) = %v out of [0,1]", a, p)
		}
	}
}

func TestLogistic_DefaultsInvalidNoise(t *testing.T) {
	a := Logistic(0.3, 0, 0)
	b := Logistic(0.3, 0, DefaultNoise)
	if a != b {
		t.Errorf("noise<=0 should fall back to DefaultNoise: got %v want %v", a, b)
	}
}
