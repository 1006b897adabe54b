package equity

import (
	"math"

	"go.uber.org/zap"

	"github.com/atlas-desktop/equity-optimizer/internal/confidence"
	"github.com/atlas-desktop/equity-optimizer/internal/gaussian"
	"github.com/atlas-desktop/equity-optimizer/pkg/types"
	"github.com/atlas-desktop/equity-optimizer/pkg/utils"
)

// Engine runs the streaming statistics update for one equity at a
// time. It is stateless beyond the shared gaussian table
// and the run's configuration; all mutable state lives in the State
// values it is handed.
type Engine struct {
	tbl    *gaussian.Table
	cfg    types.EngineConfig
	logger *zap.Logger
}

// NewEngine builds a statistics engine bound to one run's
// configuration.
func NewEngine(cfg types.EngineConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{tbl: gaussian.Shared(), cfg: cfg, logger: logger}
}

// Touch advances one equity's state by one interval boundary. It is
// the statistics engine's sole entry point, called once per tracked
// equity per closed interval by internal/ticks.Dispatcher.
//
// When stats-only-if-updated is configured, Touch is a no-op unless
// this equity both updated this interval and has a positive
// consecutive-updated-intervals count: the equity is skipped entirely
// for this interval, not merely zero-incremented.
func (e *Engine) Touch(s *State) {
	s.SampledThisTouch = false
	if e.cfg.StatsOnlyIfUpdated && !(s.CurrentIntervalUpdated && s.ConsecutiveUpdatedIntervals > 0) {
		return
	}

	s.Transactions++
	if s.Transactions == 1 {
		s.StartValue = s.CurrentValue
		s.LastValue = s.CurrentValue
		s.NormalizedGrowth = 1
		return
	}

	last := s.LastValue
	f := (s.CurrentValue - last) / last
	s.LastValue = s.CurrentValue
	if s.StartValue != 0 {
		s.NormalizedGrowth = s.CurrentValue / s.StartValue
	}

	if math.Abs(f) >= e.cfg.MaxMarginalIncrement {
		// Outlier guard: the move is too large to trust, so it
		// contributes no sample. last_value has already rolled
		// forward above so the next interval isn't corrupted by a
		// stale comparison point.
		s.Decision = 0
		s.AllocationFraction = 0
		e.logger.Debug("marginal increment rejected",
			zap.String("ticker", s.Ticker), zap.Float64("fraction", f))
		return
	}

	e.accumulate(s, f)
	e.solve(s)
	e.updateVoidCounter(s)
	e.updatePersistence(s, f)
}

// accumulate updates the running sums and the clamped avg/rms.
func (e *Engine) accumulate(s *State, f float64) {
	s.Samples++
	s.SumFraction += f
	s.SumSquareFraction += f * f
	s.LastFraction = f
	s.SampledThisTouch = true

	s.RawAvg = s.SumFraction / float64(s.Samples)
	s.Avg = utils.Clamp01(s.RawAvg)
	s.RMS = utils.Clamp01(math.Sqrt(s.SumSquareFraction / float64(s.Samples)))
}

// solve runs the three confidence bisections and the run-length
// compensation.
func (e *Engine) solve(s *State) {
	n := s.Samples

	ar := confidence.AvgRMS(e.tbl, s.Avg, s.RMS, n)
	s.PAR, s.CAR, s.PEffAR = ar.P, ar.C, ar.PEff

	a := confidence.Avg(e.tbl, s.Avg, s.RMS, n)
	s.PA, s.CA, s.PEffA = a.P, a.C, a.PEff

	r := confidence.RMS(e.tbl, s.RMS, n)
	s.PR, s.CR, s.PEffR = r.P, r.C, r.PEff

	// Run-length compensation is always computed here; whether
	// decision scoring actually applies it is gated by the
	// run-length-duration-compensation flag downstream in
	// internal/scoring.
	s.PComp = 1 - 2*(e.tbl.Normal(math.Sqrt2/math.Sqrt(float64(n)))-0.5)
}

// updateVoidCounter compares the equity's realized growth since its
// first observation against the closed-form Brownian model implied by
// (rms, P_ar), and tracks how long the two have agreed or disagreed.
// A numeric exception (rms >= 1, which would
// make (1-rms) non-positive under a fractional exponent) leaves the
// void counter and P_t at their previous values rather than
// propagating.
func (e *Engine) updateVoidCounter(s *State) {
	if s.RMS >= 1 || s.RMS < 0 {
		return
	}

	g := math.Pow(1+s.RMS, s.PAR) * math.Pow(1-s.RMS, 1-s.PAR)
	g = math.Pow(g, float64(s.Samples))
	above := s.NormalizedGrowth >= g

	if above {
		if s.VoidCount >= 0 {
			s.VoidCount++
		} else {
			s.VoidCount = 1
		}
	} else {
		if s.VoidCount <= 0 {
			s.VoidCount--
		} else {
			s.VoidCount = -1
		}
	}

	base := utils.Clamp01(2 * (e.tbl.Normal(math.Sqrt2/math.Sqrt(float64(absInt(s.VoidCount)+1))) - 0.5))
	if above {
		s.PT = base
	} else {
		s.PT = utils.Clamp01(1 - base)
	}
}

// updatePersistence grows the active streak and its length-indexed
// histogram, then derives P_p from the ratio of the next bucket to
// the current one.
func (e *Engine) updatePersistence(s *State, f float64) {
	prevPP := s.prevPP

	switch {
	case f > 0:
		s.PositiveStreak++
		s.NegativeStreak = 0
		if s.PositiveStreak == 1 {
			s.StreakStartValue = s.LastValue
		}
	case f < 0:
		s.NegativeStreak++
		s.PositiveStreak = 0
		if s.NegativeStreak == 1 {
			s.StreakStartValue = s.LastValue
		}
	default:
		// f == 0: extend whichever streak is currently active; if
		// neither is, this interval simply isn't part of one.
		switch {
		case s.PositiveStreak > 0:
			s.PositiveStreak++
		case s.NegativeStreak > 0:
			s.NegativeStreak++
		}
	}

	var hist *[]HistBucket
	var length int
	up := s.PositiveStreak > 0
	switch {
	case s.PositiveStreak > 0:
		hist = &s.PositiveHistogram
		length = s.PositiveStreak
	case s.NegativeStreak > 0:
		hist = &s.NegativeHistogram
		length = s.NegativeStreak
	default:
		return
	}

	ensureLen(hist, length)
	(*hist)[length-1].Count++

	if length > 1 && prevPP > 0 {
		(*hist)[length-1].SumFractionPow += math.Pow(math.Abs(f), 1/prevPP)
	}

	if length < len(*hist) {
		next := (*hist)[length]
		cur := (*hist)[length-1]
		if cur.Count > 0 && next.Count > 0 {
			s.PP = utils.Clamp01(float64(next.Count) / float64(cur.Count))
		} else {
			s.PP = noNextBucketDefault(up)
		}
	} else {
		s.PP = noNextBucketDefault(up)
	}

	s.prevPP = s.PP
}

// noNextBucketDefault handles a streak whose histogram has no longer
// bucket yet: an up-streak defaults P_p to 0 (nothing yet contradicts
// "this streak always ends here"), a down-streak defaults to 1.
func noNextBucketDefault(up bool) float64 {
	if up {
		return 0
	}
	return 1
}

func ensureLen(hist *[]HistBucket, n int) {
	for len(*hist) < n {
		*hist = append(*hist, HistBucket{})
	}
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
