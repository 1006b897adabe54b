// Package scoring converts an equity's streaming statistics into the
// scalar decision score and unnormalized allocation fraction the
// portfolio assembler sorts and admits by.
package scoring

import (
	"math"
	"math/rand"

	"github.com/atlas-desktop/equity-optimizer/internal/equity"
	"github.com/atlas-desktop/equity-optimizer/pkg/types"
)

// Scorer computes decision and allocation_fraction for one equity at
// a time, given the run's configuration.
type Scorer struct {
	cfg  types.EngineConfig
	rand *rand.Rand
}

// NewScorer builds a scorer seeded per config, so the RANDOM method
// produces a reproducible held set across runs.
func NewScorer(cfg types.EngineConfig) *Scorer {
	return &Scorer{cfg: cfg, rand: rand.New(rand.NewSource(cfg.RandomSeed))}
}

// Score writes s.Decision and s.AllocationFraction in place. v is the
// deviation term used by the closed-form gain
// formula: rms for every method except AVG, which uses sqrt(avg).
func (sc *Scorer) Score(s *equity.State) {
	p, v, ok := sc.probabilityAndDeviation(s)
	if !ok {
		s.Decision = 0
		s.AllocationFraction = 0
		return
	}

	if sc.cfg.RunLengthDurationComp {
		p *= s.PComp
	}

	// v >= 1 and p >= 1 are domain violations: the gain formula's
	// (1-v)^(1-p) term degenerates at the boundary, so the equity is
	// un-investable this interval.
	if v >= 1 || v < 0 || p >= 1 || p < 0 {
		s.Decision = 0
		s.AllocationFraction = 0
		return
	}

	s.Decision = math.Pow(1+v, p) * math.Pow(1-v, 1-p)
	s.AllocationFraction = sc.allocationFraction(s, p)
}

// probabilityAndDeviation picks P and v per method. ok is false when
// the method's own domain guard fails (e.g. AVG with a negative raw
// average).
func (sc *Scorer) probabilityAndDeviation(s *equity.State) (p, v float64, ok bool) {
	switch sc.cfg.Method {
	case types.MethodAvgRMS:
		return s.PEffAR, s.RMS, true

	case types.MethodRMS:
		return s.PEffR, s.RMS, true

	case types.MethodAvg:
		if s.RawAvg < 0 {
			return 0, 0, false
		}
		return s.PEffA, math.Sqrt(s.Avg), true

	case types.MethodRunLength:
		p := s.PT
		if sc.cfg.DataSetSizeCompensation {
			p *= s.CR
		}
		return p, s.RMS, true

	case types.MethodPersistence:
		p := s.PP
		if sc.cfg.DataSetSizeCompensation {
			p *= s.CR
		}
		return p, s.RMS, true

	case types.MethodRandom:
		return sc.rand.Float64(), s.RMS, true

	default:
		return 0, 0, false
	}
}

// allocationFraction computes the unnormalized per-equity weight.
// EQUAL and MAX_GAIN share a formula:
// the assembler normalizes EQUAL's weights away to 1/n regardless, so
// the two policies only diverge in internal/portfolio's weight step.
func (sc *Scorer) allocationFraction(s *equity.State, p float64) float64 {
	switch sc.cfg.Policy {
	case types.PolicyMinRisk:
		compP := s.PAR * s.PComp
		compA := s.PA * s.PComp
		if compP <= 0.5 || compP >= 1 || compA <= 0.5 || compA >= 1 {
			return 0
		}
		denom := (2*compA - 1) * (2*compA - 1)
		if denom == 0 {
			return 0
		}
		return (2*compP - 1) / denom

	default: // EQUAL, MAX_GAIN
		if p > 0.5 {
			return 2*p - 1
		}
		return 0
	}
}
