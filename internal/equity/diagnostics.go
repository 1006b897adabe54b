package equity

import "gonum.org/v1/gonum/stat"

// Diagnostics summarizes an equity's persistence histograms for
// observability. These numbers never feed back into the decision or
// assembly path -- that path consumes only Avg/RMS/the P_* fields
// computed by the exact running sums in stats.go.
type Diagnostics struct {
	PositiveStreakMeanCount float64
	PositiveStreakCountStd  float64
	NegativeStreakMeanCount float64
	NegativeStreakCountStd  float64
}

func diagnosticsFor(s *State) Diagnostics {
	return Diagnostics{
		PositiveStreakMeanCount: meanStdCount(s.PositiveHistogram),
		PositiveStreakCountStd:  stdCount(s.PositiveHistogram),
		NegativeStreakMeanCount: meanStdCount(s.NegativeHistogram),
		NegativeStreakCountStd:  stdCount(s.NegativeHistogram),
	}
}

func counts(hist []HistBucket) []float64 {
	if len(hist) == 0 {
		return nil
	}
	out := make([]float64, len(hist))
	for i, b := range hist {
		out[i] = float64(b.Count)
	}
	return out
}

func meanStdCount(hist []HistBucket) float64 {
	c := counts(hist)
	if len(c) == 0 {
		return 0
	}
	return stat.Mean(c, nil)
}

func stdCount(hist []HistBucket) float64 {
	c := counts(hist)
	if len(c) < 2 {
		return 0
	}
	return stat.StdDev(c, nil)
}
