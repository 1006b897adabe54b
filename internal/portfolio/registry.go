// Package portfolio owns the equity registry, the incremental
// portfolio assembler, and the two aggregate index trackers.
package portfolio

import "github.com/atlas-desktop/equity-optimizer/internal/equity"

// Registry is the dense, append-only store of every equity ever seen,
// addressed by both insertion-ordered index and ticker.
type Registry struct {
	byIndex []*equity.State
	byName  map[string]int
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Touch returns the state for ticker, creating it at the next
// insertion index if this is the first time the ticker is seen.
func (r *Registry) Touch(ticker string) *equity.State {
	if idx, ok := r.byName[ticker]; ok {
		return r.byIndex[idx]
	}
	idx := len(r.byIndex)
	s := equity.New(ticker, idx)
	r.byIndex = append(r.byIndex, s)
	r.byName[ticker] = idx
	return s
}

// All returns every tracked equity in insertion order. The slice
// aliases the registry's backing array and must not be mutated by the
// caller beyond the States it points to.
func (r *Registry) All() []*equity.State {
	return r.byIndex
}

// Len returns the count of distinct tickers ever observed.
func (r *Registry) Len() int {
	return len(r.byIndex)
}
