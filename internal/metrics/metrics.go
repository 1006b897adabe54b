// Package metrics exposes the optimizer's process-level Prometheus
// metrics: records consumed/rejected, intervals closed, and equities
// currently held. Observational only; the decision path never reads
// them.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the optimizer's Prometheus collector set.
type Metrics struct {
	RecordsConsumed prometheus.Counter
	RecordsRejected prometheus.Counter
	IntervalsClosed prometheus.Counter
	EquitiesHeld    prometheus.Gauge
}

// New builds an unregistered Metrics set under the "optimizer"
// namespace.
func New() *Metrics {
	return &Metrics{
		RecordsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optimizer",
			Name:      "records_consumed_total",
			Help:      "Total input records read from the record source.",
		}),
		RecordsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optimizer",
			Name:      "records_rejected_total",
			Help:      "Total input records rejected (non-positive price or malformed).",
		}),
		IntervalsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optimizer",
			Name:      "intervals_closed_total",
			Help:      "Total interval boundaries processed to completion.",
		}),
		EquitiesHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "optimizer",
			Name:      "equities_held",
			Help:      "Equities held by the portfolio as of the most recent interval.",
		}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg *prometheus.Registry) error {
	for _, c := range []prometheus.Collector{m.RecordsConsumed, m.RecordsRejected, m.IntervalsClosed, m.EquitiesHeld} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// StartServer serves reg's metrics over HTTP at /metrics on port and
// returns the running *http.Server so the caller can shut it down.
// Errors from ListenAndServe after Serve has started are reported on
// errc rather than returned, since the listener runs in the
// background.
func StartServer(port int, reg *prometheus.Registry) (*http.Server, <-chan error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()
	return srv, errc
}
