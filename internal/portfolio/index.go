package portfolio

import "github.com/atlas-desktop/equity-optimizer/internal/equity"

// IndexTracker maintains two running aggregates parallel to the
// portfolio: a compounding average-index ratio and a simple average
// of current prices.
type IndexTracker struct {
	AverageIndex float64
	AverageValue float64
}

// NewIndexTracker seeds both aggregates from the configured initial
// capital.
func NewIndexTracker(initialCapital float64) *IndexTracker {
	return &IndexTracker{AverageIndex: initialCapital, AverageValue: initialCapital}
}

// Update advances both aggregates for one closed interval. marginReciprocal
// scales the per-equity fraction contribution when hasMargin is true.
func (t *IndexTracker) Update(all []*equity.State, marginReciprocal float64, hasMargin bool) {
	n := len(all)
	if n == 0 {
		return
	}

	var sumValue float64
	for _, s := range all {
		sumValue += s.CurrentValue
		if s.Transactions < 2 || !s.SampledThisTouch {
			continue
		}
		fraction := s.LastFraction
		if hasMargin {
			fraction *= marginReciprocal
		}
		t.AverageIndex *= 1 + fraction/float64(n)
	}
	t.AverageValue = sumValue / float64(n)
}
