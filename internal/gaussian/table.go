// Package gaussian provides a precomputed cumulative standard-normal
// table shared by the confidence solvers, trading a one-time
// integration pass for O(1) lookups in the per-equity hot path.
package gaussian

import (
	"math"
	"sync"
)

const (
	// Sigmas bounds the table's domain to [0, Sigmas] standard
	// deviations; Φ saturates to 1.0 beyond it.
	Sigmas = 3
	// StepsPerSigma is the table's resolution within one sigma.
	StepsPerSigma = 1000

	tableLen = Sigmas * StepsPerSigma
)

// Table holds Φ(x) for x = i/StepsPerSigma, i = 0..tableLen-1, built
// once by cumulative Riemann integration of the standard-normal
// density starting from Φ(0) = 0.5. It is immutable after
// construction and safe for concurrent read-only use.
type Table struct {
	values [tableLen]float64
}

var (
	shared     *Table
	sharedOnce sync.Once
)

// Shared returns the process-wide table, building it on first use.
func Shared() *Table {
	sharedOnce.Do(func() {
		shared = newTable()
	})
	return shared
}

func newTable() *Table {
	t := &Table{}
	dx := 1.0 / StepsPerSigma
	cum := 0.5
	for i := 0; i < tableLen; i++ {
		x := float64(i) * dx
		t.values[i] = cum
		cum += density(x) * dx
	}
	return t
}

func density(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// Normal returns Φ(n), the cumulative standard-normal probability at
// n standard deviations, saturating at 1.0 for n >= Sigmas.
func (t *Table) Normal(n float64) float64 {
	if n <= 0 {
		if n == 0 {
			return t.values[0]
		}
		// Φ is odd about 0.5: Φ(-n) = 1 - Φ(n).
		return 1 - t.Normal(-n)
	}
	if n >= Sigmas {
		return 1.0
	}
	idx := int(StepsPerSigma * n)
	if idx >= tableLen {
		idx = tableLen - 1
	}
	return t.values[idx]
}

// IndexToSigma converts a table index back to its sigma value, used
// by the bisection solvers in internal/confidence to evaluate their
// balance function at each probed index.
func IndexToSigma(idx int) float64 {
	return float64(idx) / StepsPerSigma
}

// Len returns the number of addressable indices, i.e. Sigmas *
// StepsPerSigma.
func (t *Table) Len() int {
	return tableLen
}

// NormalAtIndex returns Φ at a raw table index, clamped to the valid
// range. Bisection searches over indices rather than floats to keep
// the search space exactly the table's domain.
func (t *Table) NormalAtIndex(idx int) float64 {
	if idx < 0 {
		idx = 0
	}
	if idx >= tableLen {
		idx = tableLen - 1
	}
	return t.values[idx]
}

// Erf returns erf(n) derived from the table via the identity
// erf(n) = 2*(Φ(n*sqrt(2)) - 0.5).
func (t *Table) Erf(n float64) float64 {
	return 2 * (t.Normal(n*math.Sqrt2) - 0.5)
}
