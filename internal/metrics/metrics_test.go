package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/atlas-desktop/equity-optimizer/internal/metrics"
)

func TestRegisterAndRecord(t *testing.T) {
	m := metrics.New()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	m.RecordsConsumed.Inc()
	m.RecordsConsumed.Inc()
	m.RecordsRejected.Inc()
	m.IntervalsClosed.Inc()
	m.EquitiesHeld.Set(3)

	if got := testutil.ToFloat64(m.RecordsConsumed); got != 2 {
		t.Errorf("records_consumed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RecordsRejected); got != 1 {
		t.Errorf("records_rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EquitiesHeld); got != 3 {
		t.Errorf("equities_held = %v, want 3", got)
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	m := metrics.New()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}
