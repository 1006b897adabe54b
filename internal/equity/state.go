// Package equity maintains per-ticker streaming statistics: running
// mean/variance of the normalized price increments, persistence
// histograms, and the mean-reversion void counter.
package equity

// HistBucket is one length-indexed persistence histogram entry,
// indexed by (streak length - 1).
type HistBucket struct {
	Count          uint64
	SumFractionPow float64
}

// State is one equity's complete streaming state. It is created on
// first observation of a ticker and never destroyed;
// histograms grow monotonically for the life of the process.
type State struct {
	Ticker string
	Index  int // insertion position in the registry

	CurrentValue float64
	LastValue    float64
	StartValue   float64

	Transactions int
	Samples      int
	VoidCount    int

	SumFraction       float64
	SumSquareFraction float64

	// Avg and RMS are clamped to [0,1]. RawAvg keeps the pre-clamp
	// running mean, which the AVG decision method's avg<0 domain
	// check needs.
	Avg    float64
	RawAvg float64
	RMS    float64

	PositiveStreak    int
	NegativeStreak    int
	StreakStartValue  float64
	PositiveHistogram []HistBucket
	NegativeHistogram []HistBucket

	// Derived probabilities, recomputed every accepted update.
	PAR, CAR, PEffAR float64
	PA, CA, PEffA    float64
	PR, CR, PEffR    float64
	PT               float64
	PP               float64
	PComp            float64

	// Scoring outputs (internal/scoring writes these).
	Decision           float64
	AllocationFraction float64

	// Portfolio linkage (internal/portfolio writes Capital). LastFraction
	// is this interval's accepted marginal increment, used to grow a
	// held equity's capital before liquidation; SampledThisTouch tells
	// the assembler whether LastFraction is actually fresh.
	Capital          float64
	NormalizedGrowth float64
	LastFraction     float64
	SampledThisTouch bool

	CurrentIntervalUpdated      bool
	ConsecutiveUpdatedIntervals int

	// prevPP is the P_p value as of the previous accepted update,
	// needed by the histogram's sum_fraction_pow accumulation for
	// streaks longer than one interval.
	prevPP float64
}

// New creates a fresh, zeroed equity state at the given registry
// position.
func New(ticker string, index int) *State {
	return &State{Ticker: ticker, Index: index}
}

// SetPrice records the latest observed price within the current
// interval. If the same ticker appears multiple times in an interval
// the last price wins.
func (s *State) SetPrice(price float64) {
	s.CurrentValue = price
	s.CurrentIntervalUpdated = true
}

// Diagnostics reports ancillary summary statistics for observability.
// They are never consulted by the decision/assembly path, which uses
// only the exact running-sum avg/rms above.
func (s *State) Diagnostics() Diagnostics {
	return diagnosticsFor(s)
}
