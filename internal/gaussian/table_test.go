package gaussian_test

import (
	"math"
	"testing"

	"github.com/atlas-desktop/equity-optimizer/internal/gaussian"
)

func TestTableStartsAtOneHalf(t *testing.T) {
	tbl := gaussian.Shared()
	if got := tbl.Normal(0); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Normal(0) = %v, want 0.5", got)
	}
}

func TestTableMonotonicallyNonDecreasing(t *testing.T) {
	tbl := gaussian.Shared()
	prev := tbl.NormalAtIndex(0)
	for i := 1; i < tbl.Len(); i++ {
		cur := tbl.NormalAtIndex(i)
		if cur < prev {
			t.Fatalf("table not monotonic at index %d: %v < %v", i, cur, prev)
		}
		prev = cur
	}
}

func TestTableSaturatesAtSigmas(t *testing.T) {
	tbl := gaussian.Shared()
	if got := tbl.Normal(gaussian.Sigmas); got != 1.0 {
		t.Errorf("Normal(Sigmas) = %v, want 1.0", got)
	}
	if got := tbl.Normal(gaussian.Sigmas + 10); got != 1.0 {
		t.Errorf("Normal(Sigmas+10) = %v, want 1.0", got)
	}
}

func TestTableIsSharedSingleton(t *testing.T) {
	a := gaussian.Shared()
	b := gaussian.Shared()
	if a != b {
		t.Error("Shared() returned distinct tables")
	}
}

func TestErfIsOdd(t *testing.T) {
	tbl := gaussian.Shared()
	for _, sigma := range []float64{0.1, 0.5, 1.0, 1.5, 2.0} {
		pos := tbl.Erf(sigma)
		neg := tbl.Erf(-sigma)
		if math.Abs(pos+neg) > 1e-6 {
			t.Errorf("erf(%v) = %v, erf(-%v) = %v; not odd", sigma, pos, sigma, neg)
		}
	}
}

func TestErfMatchesMathErfApprox(t *testing.T) {
	tbl := gaussian.Shared()
	for _, n := range []float64{0.0, 0.3, 0.7, 1.2, 2.0} {
		got := tbl.Erf(n)
		want := math.Erf(n)
		if math.Abs(got-want) > 2e-3 {
			t.Errorf("Erf(%v) = %v, want ~%v", n, got, want)
		}
	}
}
