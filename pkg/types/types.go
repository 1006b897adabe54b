// Package types provides shared type definitions for the equity
// portfolio optimizer.
package types

import (
	"errors"

	"github.com/shopspring/decimal"
)

// DecisionMethod selects the formulation used to convert an equity's
// running statistics into a scalar desirability.
type DecisionMethod string

const (
	MethodAvgRMS      DecisionMethod = "avg_rms"
	MethodRMS         DecisionMethod = "rms"
	MethodAvg         DecisionMethod = "avg"
	MethodRunLength   DecisionMethod = "run_length"
	MethodPersistence DecisionMethod = "persistence"
	MethodRandom      DecisionMethod = "random"
)

// AllocationPolicy selects how admitted equities split portfolio capital.
type AllocationPolicy string

const (
	PolicyEqual   AllocationPolicy = "equal"
	PolicyMaxGain AllocationPolicy = "max_gain"
	PolicyMinRisk AllocationPolicy = "min_risk"
)

// Record is one (timestamp, ticker, price) observation from the merged
// input stream. Timestamp is opaque and compared only for equality
// against the previous record's timestamp.
type Record struct {
	Timestamp string
	Ticker    string
	Price     decimal.Decimal
}

// Holding is one admitted equity's ticker and normalized allocation.
type Holding struct {
	Ticker     string
	Allocation float64 // capital / portfolio value; the sink prints it only when ShowAllocation is set
}

// OutputRecord is the decision emitted once per closed interval.
// PortfolioValue is the one money amount it carries, and stays an
// exact decimal.Decimal all the way to the sink; AverageIndex (a
// compounding index seeded from initial capital) and AverageValue (the
// mean of current prices) are index-tracker aggregates and stay in the
// float64 domain the index tracker computes them in.
type OutputRecord struct {
	Timestamp      string
	IntervalID     string // per-interval correlation id, also logged by the dispatcher
	AverageIndex   float64
	AverageValue   float64
	PortfolioValue decimal.Decimal
	MarginFraction float64
	HasMargin      bool
	Holdings       []Holding // ascending desirability order (reverse of admission order)
}

// Sink receives one OutputRecord per closed interval. Implementations
// own formatting and I/O framing; the core engine never writes bytes
// itself.
type Sink interface {
	Emit(OutputRecord) error
}

// Sentinel errors used by the CLI boundary to select an exit code.
// The engine itself never returns these for numeric domain violations;
// those are absorbed into safe defaults, never propagated as errors.
var (
	ErrInvalidConfig    = errors.New("invalid engine configuration")
	ErrInputOpen        = errors.New("failed to open input")
	ErrInputClose       = errors.New("failed to close input")
	ErrAllocationFailed = errors.New("allocation failure")
	ErrInternal         = errors.New("internal error")
)

// ExitCode maps a sentinel error to the process exit status.
// Unrecognized errors map to the internal-error code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidConfig):
		return 1
	case errors.Is(err, ErrInputOpen):
		return 2
	case errors.Is(err, ErrInputClose):
		return 3
	case errors.Is(err, ErrAllocationFailed):
		return 4
	default:
		return 5
	}
}
