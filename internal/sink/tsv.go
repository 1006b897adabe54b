// Package sink writes the per-interval output records: one
// tab-separated line per closed interval, written through an
// io.Writer. internal/engine never writes bytes itself, only
// types.Sink.Emit calls.
package sink

import (
	"bufio"
	"fmt"
	"io"

	"github.com/atlas-desktop/equity-optimizer/pkg/types"
)

// TSVSink writes one tab-separated line per types.Sink.Emit call:
//
//	timestamp  average_index  average_value  portfolio_value  [margin_fraction]  ticker[=allocation]...
//
// average_value is included when ShowAverageValue is set;
// margin_fraction is included only when the record itself reports
// HasMargin (the run is actually margin-sized, not merely
// configured to allow it); allocation is appended to each ticker
// only when ShowAllocation is set. Tickers are printed in ascending
// desirability, the reverse of OutputRecord.Holdings' admission
// order.
type TSVSink struct {
	w                *bufio.Writer
	ShowAverageValue bool
	ShowAllocation   bool
}

// New wraps w for buffered line-at-a-time output. Emit flushes the
// buffer after every line, so no separate flush call is needed.
func New(w io.Writer) *TSVSink {
	return &TSVSink{w: bufio.NewWriter(w), ShowAverageValue: true, ShowAllocation: true}
}

// Emit writes one output line and flushes it immediately, so a
// crash mid-run loses at most the in-flight interval.
func (s *TSVSink) Emit(r types.OutputRecord) error {
	fmt.Fprintf(s.w, "%s\t%g", r.Timestamp, r.AverageIndex)

	if s.ShowAverageValue {
		fmt.Fprintf(s.w, "\t%g", r.AverageValue)
	}

	fmt.Fprintf(s.w, "\t%s", r.PortfolioValue.String())

	if r.HasMargin {
		fmt.Fprintf(s.w, "\t%g", r.MarginFraction)
	}

	for i := len(r.Holdings) - 1; i >= 0; i-- {
		h := r.Holdings[i]
		if s.ShowAllocation {
			fmt.Fprintf(s.w, "\t%s=%g", h.Ticker, h.Allocation)
		} else {
			fmt.Fprintf(s.w, "\t%s", h.Ticker)
		}
	}

	if _, err := s.w.WriteString("\n"); err != nil {
		return err
	}
	return s.w.Flush()
}
