// Package ticks drives the record stream through one interval at a
// time: coalesce same-timestamp records, detect the interval
// boundary, and run statistics -> scoring -> assembly -> emit in that
// strict order.
package ticks

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/equity-optimizer/internal/equity"
	"github.com/atlas-desktop/equity-optimizer/internal/portfolio"
	"github.com/atlas-desktop/equity-optimizer/internal/scoring"
	"github.com/atlas-desktop/equity-optimizer/pkg/types"
)

// Dispatcher holds the interval-boundary state machine: it only ever
// knows the current timestamp string and compares incoming records
// against it for equality. Timestamps are opaque; record order alone
// defines time.
type Dispatcher struct {
	registry   *portfolio.Registry
	engine     *equity.Engine
	scorer     *scoring.Scorer
	assembler  *portfolio.Assembler
	index      *portfolio.IndexTracker
	sink       types.Sink
	logger     *zap.Logger

	haveFirst        bool
	currentTimestamp string

	// OnReject, when non-nil, is called once per record rejected for
	// a non-positive price. The CLI wires the rejection counter
	// through it, so this package never imports internal/metrics.
	OnReject func()
}

// New builds a dispatcher wired to every downstream component it
// drives.
func New(
	registry *portfolio.Registry,
	engine *equity.Engine,
	scorer *scoring.Scorer,
	assembler *portfolio.Assembler,
	index *portfolio.IndexTracker,
	sink types.Sink,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		registry: registry, engine: engine, scorer: scorer,
		assembler: assembler, index: index, sink: sink, logger: logger,
	}
}

// Dispatch feeds one record into the dispatcher. Records whose price
// is non-positive are rejected silently and never advance the
// interval boundary.
func (d *Dispatcher) Dispatch(rec types.Record) error {
	price, _ := rec.Price.Float64()
	if price <= 0 {
		d.logger.Debug("rejected non-positive price", zap.String("ticker", rec.Ticker), zap.Float64("price", price))
		if d.OnReject != nil {
			d.OnReject()
		}
		return nil
	}

	if !d.haveFirst {
		d.haveFirst = true
		d.currentTimestamp = rec.Timestamp
	} else if rec.Timestamp != d.currentTimestamp {
		if err := d.closeInterval(d.currentTimestamp); err != nil {
			return err
		}
		d.currentTimestamp = rec.Timestamp
	}

	d.registry.Touch(rec.Ticker).SetPrice(price)
	return nil
}

// Flush closes out the final, still-open interval at end of input.
func (d *Dispatcher) Flush() error {
	if !d.haveFirst {
		return nil
	}
	return d.closeInterval(d.currentTimestamp)
}

func (d *Dispatcher) closeInterval(timestamp string) error {
	all := d.registry.All()

	for _, s := range all {
		if s.CurrentIntervalUpdated {
			s.ConsecutiveUpdatedIntervals++
		} else {
			s.ConsecutiveUpdatedIntervals = 0
		}
		d.engine.Touch(s)
		d.scorer.Score(s)
	}

	pass := d.assembler.Assemble()
	d.index.Update(all, pass.MarginReciprocal, pass.HasMargin)

	for _, s := range all {
		s.CurrentIntervalUpdated = false
	}

	out := d.buildOutputRecord(timestamp, pass)
	d.logger.Debug("interval closed",
		zap.String("interval_id", out.IntervalID), zap.String("timestamp", timestamp))
	if err := d.sink.Emit(out); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInternal, err)
	}
	return nil
}

func (d *Dispatcher) buildOutputRecord(timestamp string, pass portfolio.Pass) types.OutputRecord {
	holdings := make([]types.Holding, len(pass.Held))
	for i, s := range pass.Held {
		holdings[i] = types.Holding{Ticker: s.Ticker, Allocation: s.Capital / pass.PortfolioValue}
	}

	return types.OutputRecord{
		Timestamp:      timestamp,
		IntervalID:     uuid.NewString(),
		AverageIndex:   d.index.AverageIndex,
		AverageValue:   d.index.AverageValue,
		PortfolioValue: decimalFromFloat(pass.PortfolioValue),
		MarginFraction: marginFraction(pass),
		HasMargin:      pass.HasMargin,
		Holdings:       holdings,
	}
}

func decimalFromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func marginFraction(pass portfolio.Pass) float64 {
	if !pass.HasMargin || pass.MarginReciprocal == 0 {
		return 0
	}
	return 1 - 1/pass.MarginReciprocal
}
