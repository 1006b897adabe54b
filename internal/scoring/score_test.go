package scoring_test

import (
	"testing"

	"github.com/atlas-desktop/equity-optimizer/internal/equity"
	"github.com/atlas-desktop/equity-optimizer/internal/scoring"
	"github.com/atlas-desktop/equity-optimizer/pkg/types"
)

func sampleState() *equity.State {
	s := equity.New("AAA", 0)
	s.Samples = 100
	s.Avg = 0.02
	s.RawAvg = 0.02
	s.RMS = 0.03
	s.PAR, s.CAR, s.PEffAR = 0.8, 0.9, 0.72
	s.PA, s.CA, s.PEffA = 0.75, 0.85, 0.6375
	s.PR, s.CR, s.PEffR = 0.7, 0.8, 0.56
	s.PT = 0.65
	s.PP = 0.6
	s.PComp = 0.95
	return s
}

func TestDecisionNonNegative(t *testing.T) {
	for _, method := range []types.DecisionMethod{
		types.MethodAvgRMS, types.MethodRMS, types.MethodAvg,
		types.MethodRunLength, types.MethodPersistence, types.MethodRandom,
	} {
		cfg := types.DefaultEngineConfig()
		cfg.Method = method
		sc := scoring.NewScorer(cfg)
		s := sampleState()
		sc.Score(s)
		if s.Decision < 0 {
			t.Errorf("method %s: decision = %v, want >= 0", method, s.Decision)
		}
	}
}

func TestAvgMethodSkipsOnNegativeRawAvg(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.Method = types.MethodAvg
	sc := scoring.NewScorer(cfg)
	s := sampleState()
	s.RawAvg = -0.01

	sc.Score(s)

	if s.Decision != 0 || s.AllocationFraction != 0 {
		t.Errorf("expected zeroed decision on avg<0, got decision=%v allocation=%v", s.Decision, s.AllocationFraction)
	}
}

func TestRandomMethodIsDeterministicGivenSeed(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.Method = types.MethodRandom
	cfg.RandomSeed = 42

	sc1 := scoring.NewScorer(cfg)
	sc2 := scoring.NewScorer(cfg)

	s1, s2 := sampleState(), sampleState()
	sc1.Score(s1)
	sc2.Score(s2)

	if s1.Decision != s2.Decision {
		t.Errorf("same seed produced different decisions: %v vs %v", s1.Decision, s2.Decision)
	}
}

func TestEqualPolicyAllocationFractionFormula(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.Method = types.MethodAvgRMS
	cfg.Policy = types.PolicyEqual
	sc := scoring.NewScorer(cfg)
	s := sampleState()

	sc.Score(s)

	want := 2*s.PEffAR - 1
	if want < 0 {
		want = 0
	}
	if s.AllocationFraction != want {
		t.Errorf("allocation fraction = %v, want %v", s.AllocationFraction, want)
	}
}

func TestMinRiskPolicyZerosOutsideOpenInterval(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.Method = types.MethodAvgRMS
	cfg.Policy = types.PolicyMinRisk
	sc := scoring.NewScorer(cfg)
	s := sampleState()
	s.PAR = 0.5 // P_ar*P_comp = 0.475, not strictly > 0.5

	sc.Score(s)

	if s.AllocationFraction != 0 {
		t.Errorf("expected 0 allocation outside the open interval, got %v", s.AllocationFraction)
	}
}

func TestDomainViolationZeroesDecisionAndAllocation(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.Method = types.MethodAvgRMS
	sc := scoring.NewScorer(cfg)
	s := sampleState()
	s.RMS = 1.0 // v >= 1: domain violation

	sc.Score(s)

	if s.Decision != 0 || s.AllocationFraction != 0 {
		t.Errorf("expected zeroed outputs on v>=1, got decision=%v allocation=%v", s.Decision, s.AllocationFraction)
	}
}
