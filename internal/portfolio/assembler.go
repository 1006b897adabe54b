package portfolio

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/atlas-desktop/equity-optimizer/internal/equity"
	"github.com/atlas-desktop/equity-optimizer/pkg/types"
)

// Pass is one interval's assembler result.
type Pass struct {
	Held             []*equity.State // admission order
	PortfolioValue   float64
	MarginReciprocal float64
	HasMargin        bool
}

// Assembler owns the portfolio-level pooled capital across intervals
// and performs one liquidate/sort/admit/weight/margin pass per
// interval.
type Assembler struct {
	cfg      types.EngineConfig
	registry *Registry
	logger   *zap.Logger

	poolCapital    float64
	portfolioValue float64
}

// NewAssembler seeds the pool with the run's initial capital.
func NewAssembler(cfg types.EngineConfig, registry *Registry, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		cfg:            cfg,
		registry:       registry,
		logger:         logger,
		poolCapital:    cfg.InitialCapital,
		portfolioValue: cfg.InitialCapital,
	}
}

// Assemble runs one liquidate/sort/admit/weight/margin pass for the
// interval just scored, and reassigns each admitted equity's
// State.Capital in place.
func (a *Assembler) Assemble() Pass {
	a.liquidate()

	candidates := a.sortedCandidates()
	held := a.admit(candidates)
	a.computeWeights(held)
	marginReciprocal, hasMargin := a.sizeMargin(held)

	return Pass{
		Held:             held,
		PortfolioValue:   a.portfolioValue,
		MarginReciprocal: marginReciprocal,
		HasMargin:        hasMargin,
	}
}

// liquidate grows each currently held equity's capital by this
// interval's accepted fraction, then sweeps every equity's capital
// back into the uninvested pool.
func (a *Assembler) liquidate() {
	for _, s := range a.registry.All() {
		if s.Capital == 0 {
			continue
		}
		if s.SampledThisTouch {
			s.Capital *= 1 + s.LastFraction
		}
		a.poolCapital += s.Capital
		s.Capital = 0
	}
	a.portfolioValue = a.poolCapital
}

func (a *Assembler) sortedCandidates() []*equity.State {
	all := a.registry.All()
	sorted := make([]*equity.State, len(all))
	copy(sorted, all)

	less := func(i, j int) bool { return sorted[i].Decision > sorted[j].Decision }
	if a.cfg.ReverseSense {
		less = func(i, j int) bool { return sorted[i].Decision < sorted[j].Decision }
	}
	sort.SliceStable(sorted, less)
	return sorted
}

// admit walks the decision-sorted candidates, admitting each while
// the hypothetical portfolio gain keeps improving or the held count
// is still below the configured minimum.
func (a *Assembler) admit(candidates []*equity.State) []*equity.State {
	minDecision := a.cfg.MinimumDecision
	if a.cfg.Method == types.MethodRandom || a.cfg.ReverseSense {
		minDecision = -1
	}

	var held []*equity.State
	var sumAvg, sumRMS2 float64
	gPrev := 1.0

	for _, s := range candidates {
		if len(held) >= a.cfg.MaximumConcurrent {
			break
		}
		if !(s.Transactions > 1) {
			continue
		}
		if !(s.ConsecutiveUpdatedIntervals > 1 || !a.cfg.InvestOnlyIfUpdated) {
			continue
		}
		if !(s.Decision > minDecision) {
			continue
		}

		n := len(held)
		avgP := (sumAvg + s.Avg) / float64(n+1)
		rmsP := math.Sqrt(sumRMS2+s.RMS*s.RMS) / math.Sqrt(float64(n+1))
		if rmsP >= 1 || rmsP < 0 {
			continue // domain violation: un-investable this interval
		}

		pCand := candidateProbability(a.cfg.Method, avgP, rmsP)
		if pCand > 1 || pCand < 0 {
			continue
		}
		gCand := math.Pow(1+rmsP, pCand) * math.Pow(1-rmsP, 1-pCand)

		if !(gCand >= gPrev) && !(n < a.cfg.MinimumConcurrent) {
			continue
		}

		sumAvg += s.Avg
		sumRMS2 += s.RMS * s.RMS
		gPrev = gCand
		held = append(held, s)

		if pCand >= 1 && len(held) > a.cfg.MinimumConcurrent && avgP >= rmsP {
			break
		}
	}

	return held
}

// candidateProbability picks the hypothetical portfolio-level
// probability formula per method. AVG_RMS, RUN_LENGTH, PERSISTENCE,
// and RANDOM all share the avg/rms formulation; RMS and AVG use their
// own method-specific forms, mirroring internal/confidence's
// per-method P formulas.
func candidateProbability(method types.DecisionMethod, avgP, rmsP float64) float64 {
	switch method {
	case types.MethodRMS:
		return (rmsP + 1) / 2
	case types.MethodAvg:
		if avgP < 0 {
			return -1 // forces the domain-violation skip above
		}
		return (math.Sqrt(avgP) + 1) / 2
	default:
		if rmsP == 0 {
			return 0.5
		}
		return (avgP/rmsP + 1) / 2
	}
}

// computeWeights assigns each admitted equity's capital: an equal
// split under EQUAL, otherwise normalized allocation fractions with
// an equal-split fallback when the fractions sum to zero.
func (a *Assembler) computeWeights(held []*equity.State) {
	n := len(held)
	if n == 0 {
		return
	}

	if a.cfg.Policy == types.PolicyEqual {
		a.assignEqual(held)
		return
	}

	var total float64
	for _, s := range held {
		total += s.AllocationFraction
	}
	if total <= 0 {
		a.assignEqual(held)
		return
	}
	for _, s := range held {
		s.Capital = a.portfolioValue * (s.AllocationFraction / total)
	}
	a.poolCapital = 0
}

func (a *Assembler) assignEqual(held []*equity.State) {
	each := a.portfolioValue / float64(len(held))
	for _, s := range held {
		s.Capital = each
	}
	a.poolCapital = 0
}

// sizeMargin computes the portfolio-level margin reciprocal.
// hasMargin is false when margin sizing is disabled
// (max_margin_reciprocal of exactly 1) or nothing is held to size
// margin against.
func (a *Assembler) sizeMargin(held []*equity.State) (float64, bool) {
	if len(held) == 0 || a.cfg.MaxMarginReciprocal <= 1 {
		return 1, false
	}

	var avgP, rmsPSum float64
	for _, s := range held {
		w := s.Capital / a.portfolioValue
		term := 2*s.PEffA - 1
		avgP += term * term * w
	}
	for _, s := range held {
		w := s.Capital / a.portfolioValue
		inner := 2*s.RMS - (2*s.PEffR - 1)
		rmsPSum += inner * w
	}
	rmsP := math.Sqrt(rmsPSum * rmsPSum)

	if rmsP == 0 {
		return 1, true
	}
	reciprocal := avgP/(rmsP*rmsP) - 1
	if reciprocal < 1 {
		reciprocal = 1
	}
	if reciprocal > a.cfg.MaxMarginReciprocal {
		reciprocal = a.cfg.MaxMarginReciprocal
	}
	return reciprocal, true
}

// PortfolioValue reports the most recent pass's total portfolio value.
func (a *Assembler) PortfolioValue() float64 {
	return a.portfolioValue
}

// PoolCapital reports the currently uninvested residual. The pool
// plus the sum of held capital always equals the portfolio value
// after a pass.
func (a *Assembler) PoolCapital() float64 {
	return a.poolCapital
}
