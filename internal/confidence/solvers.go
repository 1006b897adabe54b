// Package confidence implements the three bisection searches that
// convert an equity's (avg, rms, N) statistics into confidence
// -adjusted Shannon probabilities. Each solver performs
// an O(log(tableLen)) binary search over internal/gaussian's
// cumulative-normal table for the sigma index that balances a
// transcendental equation tying an error band to its confidence level.
package confidence

import (
	"math"

	"github.com/atlas-desktop/equity-optimizer/internal/gaussian"
	"github.com/atlas-desktop/equity-optimizer/pkg/utils"
)

// Result carries one solver's outputs: the compensated probability P,
// its confidence multiplier c, and the effective (P*c) compensation.
type Result struct {
	P    float64
	C    float64
	PEff float64
}

// bisect finds the smallest table index in [0, bound] at which f
// (monotonically decreasing in the index) crosses from positive to
// non-positive. f is evaluated at the sigma value the index
// represents.
func bisect(tbl *gaussian.Table, bound int, f func(sigma float64, idx int) float64) int {
	lo, hi := 0, bound
	for lo < hi {
		mid := (lo + hi) / 2
		if f(gaussian.IndexToSigma(mid), mid) > 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// RMS solves for sigma where
//
//	rms - (rms*sigma/sqrt(2N)) + 1 - (rms+1)*Phi(sigma) = 0
//
// and sets c_r = Phi(sigma*), P_r = (rms+1)/2, P_eff_r = P_r*c_r.
func RMS(tbl *gaussian.Table, rms float64, n int) Result {
	if n <= 0 {
		// Never documented to occur -- the stats engine only calls
		// solvers once samples >= 1 -- guarded defensively.
		return Result{P: 0.5, C: 0.5, PEff: 0.25}
	}

	sqrt2N := math.Sqrt(2 * float64(n))
	bound := tbl.Len() - 1
	idx := bisect(tbl, bound, func(sigma float64, _ int) float64 {
		return rms - (rms*sigma)/sqrt2N + 1 - (rms+1)*tbl.Normal(sigma)
	})

	c := tbl.NormalAtIndex(idx)
	p := utils.Clamp01((rms + 1) / 2)
	return Result{P: p, C: utils.Clamp01(c), PEff: utils.Clamp01(p * c)}
}

// Avg solves for sigma where
//
//	sqrt(avg - rms*sigma/sqrt(N)) + 1 - (sqrt(avg)+1)*Phi(sigma) = 0
//
// restricted to sigma <= (avg/rms)*sqrt(N) to keep the radicand
// non-negative, and sets c_a = Phi(sigma*), P_a = (sqrt(avg)+1)/2,
// P_eff_a = P_a*c_a. Numeric exceptions (rms=0, avg<0) return the
// documented safe defaults.
func Avg(tbl *gaussian.Table, avg, rms float64, n int) Result {
	if rms <= 0 || avg < 0 || n <= 0 {
		return Result{P: 0.5, C: 0.5, PEff: 0.25}
	}

	sqrtN := math.Sqrt(float64(n))
	maxSigma := (avg / rms) * sqrtN
	bound := int(maxSigma * gaussian.StepsPerSigma)
	if bound > tbl.Len()-1 {
		bound = tbl.Len() - 1
	}
	if bound < 0 {
		bound = 0
	}

	sqrtAvg := math.Sqrt(avg)
	idx := bisect(tbl, bound, func(sigma float64, _ int) float64 {
		radicand := avg - rms*sigma/sqrtN
		if radicand < 0 {
			radicand = 0
		}
		return math.Sqrt(radicand) + 1 - (sqrtAvg+1)*tbl.Normal(sigma)
	})

	c := tbl.NormalAtIndex(idx)
	p := utils.Clamp01((sqrtAvg + 1) / 2)
	return Result{P: p, C: utils.Clamp01(c), PEff: utils.Clamp01(p * c)}
}

// AvgRMS performs two independent bisections -- one against the rms
// branch and one against the avg branch of the joint avg/rms
// formulation -- and multiplies the two resulting confidence values.
// Sets P_ar = (avg/rms+1)/2, P_eff_ar = P_ar*c_ar. Numeric exceptions
// (rms=0) return the documented safe defaults.
func AvgRMS(tbl *gaussian.Table, avg, rms float64, n int) Result {
	if rms <= 0 || n <= 0 {
		return Result{P: 0.5, C: 0.5, PEff: 0.25}
	}

	sqrt2N := math.Sqrt(2 * float64(n))
	sqrtN := math.Sqrt(float64(n))
	ratio := avg / rms
	bound := tbl.Len() - 1

	rmsBranchIdx := bisect(tbl, bound, func(sigma float64, _ int) float64 {
		denom := rms + sigma*rms/sqrt2N
		if denom == 0 {
			return -1 // never entered: rms > 0 is guarded above
		}
		return avg/denom + 1 - (ratio+1)*tbl.Normal(sigma)
	})

	avgBranchIdx := bisect(tbl, bound, func(sigma float64, _ int) float64 {
		return (avg-sigma*rms/sqrtN)/rms + 1 - (ratio+1)*tbl.Normal(sigma)
	})

	cRMSBranch := tbl.NormalAtIndex(rmsBranchIdx)
	cAvgBranch := tbl.NormalAtIndex(avgBranchIdx)
	c := cRMSBranch * cAvgBranch

	p := utils.Clamp01((ratio + 1) / 2)
	return Result{P: p, C: utils.Clamp01(c), PEff: utils.Clamp01(p * c)}
}
