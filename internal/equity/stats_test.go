package equity_test

import (
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/atlas-desktop/equity-optimizer/internal/equity"
	"github.com/atlas-desktop/equity-optimizer/pkg/types"
)

func touchN(t *testing.T, eng *equity.Engine, s *equity.State, prices []float64) {
	t.Helper()
	for _, p := range prices {
		s.SetPrice(p)
		eng.Touch(s)
		s.CurrentIntervalUpdated = false
	}
}

func TestFirstTouchInitializesWithoutSampling(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	eng := equity.NewEngine(cfg, zap.NewNop())
	s := equity.New("AAA", 0)

	s.SetPrice(100)
	eng.Touch(s)

	if s.Transactions != 1 || s.Samples != 0 {
		t.Fatalf("transactions=%d samples=%d, want 1,0", s.Transactions, s.Samples)
	}
	if s.StartValue != 100 || s.LastValue != 100 {
		t.Fatalf("start/last = %v/%v, want 100/100", s.StartValue, s.LastValue)
	}
}

func TestSamplesTrackTransactionsAfterFirstIncrement(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	eng := equity.NewEngine(cfg, zap.NewNop())
	s := equity.New("AAA", 0)

	touchN(t, eng, s, []float64{100, 101, 102, 103})

	if s.Transactions != 4 {
		t.Fatalf("transactions = %d, want 4", s.Transactions)
	}
	if s.Samples != s.Transactions-1 {
		t.Fatalf("samples = %d, want transactions-1 = %d", s.Samples, s.Transactions-1)
	}
}

func TestProbabilityFieldsStayInUnitInterval(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	eng := equity.NewEngine(cfg, zap.NewNop())
	s := equity.New("AAA", 0)

	prices := []float64{100, 102, 101, 99, 103, 104, 104, 90, 95, 96}
	touchN(t, eng, s, prices)

	fields := map[string]float64{
		"avg": s.Avg, "rms": s.RMS,
		"P_ar": s.PAR, "c_ar": s.CAR, "P_eff_ar": s.PEffAR,
		"P_a": s.PA, "c_a": s.CA, "P_eff_a": s.PEffA,
		"P_r": s.PR, "c_r": s.CR, "P_eff_r": s.PEffR,
		"P_t": s.PT, "P_p": s.PP,
	}
	for name, v := range fields {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v, want value in [0,1]", name, v)
		}
	}
}

func TestMarginalIncrementRejectionSkipsSampling(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.MaxMarginalIncrement = 0.5
	eng := equity.NewEngine(cfg, zap.NewNop())
	s := equity.New("AAA", 0)

	touchN(t, eng, s, []float64{100, 101})
	samplesBefore := s.Samples

	s.SetPrice(1000) // +890%, far past the 50% cap
	eng.Touch(s)

	if s.Samples != samplesBefore {
		t.Fatalf("samples changed on a rejected increment: %d -> %d", samplesBefore, s.Samples)
	}
	if s.Decision != 0 || s.AllocationFraction != 0 {
		t.Fatalf("rejected increment left decision=%v allocation=%v, want 0,0", s.Decision, s.AllocationFraction)
	}
	if s.LastValue != 1000 {
		t.Fatalf("last_value = %v, want rolled forward to 1000", s.LastValue)
	}
}

func TestPersistenceHistogramGrowsWithStreak(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	eng := equity.NewEngine(cfg, zap.NewNop())
	s := equity.New("AAA", 0)

	touchN(t, eng, s, []float64{100, 101, 102, 103, 104})

	if s.PositiveStreak != 4 {
		t.Fatalf("positive streak = %d, want 4", s.PositiveStreak)
	}
	if len(s.PositiveHistogram) < 4 {
		t.Fatalf("histogram length = %d, want >= 4", len(s.PositiveHistogram))
	}
	if s.PositiveHistogram[3].Count != 1 {
		t.Fatalf("bucket[3].Count = %d, want 1", s.PositiveHistogram[3].Count)
	}
}

func TestStreakResetsOnDirectionChange(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	eng := equity.NewEngine(cfg, zap.NewNop())
	s := equity.New("AAA", 0)

	touchN(t, eng, s, []float64{100, 101, 102, 99})

	if s.PositiveStreak != 0 {
		t.Fatalf("positive streak = %d, want 0 after a down move", s.PositiveStreak)
	}
	if s.NegativeStreak != 1 {
		t.Fatalf("negative streak = %d, want 1", s.NegativeStreak)
	}
}

func TestStatsOnlyIfUpdatedSkipsUntouchedEquity(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.StatsOnlyIfUpdated = true
	eng := equity.NewEngine(cfg, zap.NewNop())
	s := equity.New("AAA", 0)

	// Never marked CurrentIntervalUpdated: Touch must no-op forever.
	s.CurrentValue = 100
	eng.Touch(s)
	eng.Touch(s)

	if s.Transactions != 0 {
		t.Fatalf("transactions = %d, want 0 when gated out", s.Transactions)
	}
}

func TestNormalizedGrowthTracksPriceRatio(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	eng := equity.NewEngine(cfg, zap.NewNop())
	s := equity.New("AAA", 0)

	touchN(t, eng, s, []float64{100, 110, 121})

	want := 121.0 / 100.0
	if math.Abs(s.NormalizedGrowth-want) > 1e-9 {
		t.Fatalf("normalized growth = %v, want %v", s.NormalizedGrowth, want)
	}
}

func TestDiagnosticsDoesNotPanicOnEmptyHistograms(t *testing.T) {
	s := equity.New("AAA", 0)
	d := s.Diagnostics()
	if d.PositiveStreakMeanCount != 0 || d.NegativeStreakMeanCount != 0 {
		t.Fatalf("expected zeroed diagnostics on an untouched equity, got %+v", d)
	}
}
