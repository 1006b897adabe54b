// Package engine assembles every sub-component into the single value
// that drives a run end to end: registry, statistics engine, scorer,
// assembler, index tracker, and the dispatcher that sequences them.
package engine

import (
	"go.uber.org/zap"

	"github.com/atlas-desktop/equity-optimizer/internal/equity"
	"github.com/atlas-desktop/equity-optimizer/internal/portfolio"
	"github.com/atlas-desktop/equity-optimizer/internal/scoring"
	"github.com/atlas-desktop/equity-optimizer/internal/ticks"
	"github.com/atlas-desktop/equity-optimizer/pkg/types"
)

// PortfolioEngine owns every piece of run-scoped state: the equity
// registry, the shared statistics/scoring/assembly components, and
// the dispatcher driving them. Exactly one value is constructed per
// run.
type PortfolioEngine struct {
	cfg        types.EngineConfig
	logger     *zap.Logger
	Registry   *portfolio.Registry
	Stats      *equity.Engine
	Scorer     *scoring.Scorer
	Assembler  *portfolio.Assembler
	Index      *portfolio.IndexTracker
	Dispatcher *ticks.Dispatcher
}

// New validates cfg and wires every sub-component against it and the
// given sink. Validation errors surface before any record is read.
func New(cfg types.EngineConfig, sink types.Sink, logger *zap.Logger) (*PortfolioEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := portfolio.NewRegistry()
	stats := equity.NewEngine(cfg, logger)
	scorer := scoring.NewScorer(cfg)
	assembler := portfolio.NewAssembler(cfg, registry, logger)
	index := portfolio.NewIndexTracker(cfg.InitialCapital)
	dispatcher := ticks.New(registry, stats, scorer, assembler, index, sink, logger)

	return &PortfolioEngine{
		cfg: cfg, logger: logger,
		Registry: registry, Stats: stats, Scorer: scorer,
		Assembler: assembler, Index: index, Dispatcher: dispatcher,
	}, nil
}

// Run drains the records iterator until it reports completion by
// returning ok == false, dispatching each record and flushing the
// final open interval at the end. An iterator error stops the run and
// is returned as is.
func (e *PortfolioEngine) Run(records func() (types.Record, bool, error)) error {
	for {
		rec, ok, err := records()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := e.Dispatcher.Dispatch(rec); err != nil {
			return err
		}
	}
	return e.Dispatcher.Flush()
}
