// Package main provides the batch entry point for the equity
// portfolio optimizer: read a merged (timestamp, ticker, price)
// stream from a file, stdin, or a live websocket feed, drive
// internal/engine.PortfolioEngine to completion, and write one
// tab-separated decision line per closed interval.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atlas-desktop/equity-optimizer/internal/engine"
	"github.com/atlas-desktop/equity-optimizer/internal/feed"
	"github.com/atlas-desktop/equity-optimizer/internal/ingest"
	"github.com/atlas-desktop/equity-optimizer/internal/metrics"
	"github.com/atlas-desktop/equity-optimizer/internal/sink"
	"github.com/atlas-desktop/equity-optimizer/pkg/types"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run wires one optimizer pass and returns the process exit code. It
// never calls os.Exit itself, so tests can invoke it without
// terminating the test binary.
func run(args []string) (code int) {
	fs := flag.NewFlagSet("optimizer", flag.ContinueOnError)

	inputPath := fs.String("input", "", "Input file path (default: stdin)")
	outputPath := fs.String("output", "", "Output file path (default: stdout)")
	feedURL := fs.String("feed", "", "Live websocket feed URL (overrides -input)")
	configPath := fs.String("config", "", "Optional YAML config file, overlaid by flags")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	metricsPort := fs.Int("metrics-port", 0, "Prometheus metrics port (0 disables)")

	method := fs.String("method", string(types.MethodAvgRMS), "Decision method: avg_rms, rms, avg, run_length, persistence, random")
	policy := fs.String("policy", string(types.PolicyEqual), "Allocation policy: equal, max_gain, min_risk")
	initialCapital := fs.Float64("initial-capital", 1000, "Initial portfolio capital")
	minDecision := fs.Float64("minimum-decision", 1.0, "Minimum decision threshold for admission")
	minConcurrent := fs.Int("minimum-concurrent", 10, "Minimum concurrently held equities")
	maxConcurrent := fs.Int("maximum-concurrent", 10, "Maximum concurrently held equities")
	maxMarginReciprocal := fs.Float64("max-margin-reciprocal", 1, "Upper bound on margin reciprocal (1 disables margin)")
	maxMarginalIncrement := fs.Float64("max-marginal-increment", 1.0, "Reject increments at or above this fraction")
	datasetComp := fs.Bool("dataset-size-compensation", true, "Apply data-set-size confidence compensation")
	runLengthComp := fs.Bool("run-length-duration-compensation", false, "Apply run-length-duration compensation")
	reverseSense := fs.Bool("reverse-sense", false, "Invert decision ordering and admit the least-desirable equities")
	investOnlyIfUpdated := fs.Bool("invest-only-if-updated", false, "Require 2+ consecutive updated intervals to admit")
	statsOnlyIfUpdated := fs.Bool("stats-only-if-updated", false, "Skip statistics for equities not updated this interval")
	randomSeed := fs.Int64("random-seed", 1, "Seed for the RANDOM decision method")

	if err := fs.Parse(args); err != nil {
		return exitArgError
	}

	cfg := types.DefaultEngineConfig()
	if *configPath != "" {
		if err := overlayConfigFile(&cfg, *configPath); err != nil {
			fmt.Fprintln(os.Stderr, "optimizer: config error:", err)
			return exitArgError
		}
	}
	overlayFlags(&cfg, fs, method, policy, initialCapital, minDecision, minConcurrent,
		maxConcurrent, maxMarginReciprocal, maxMarginalIncrement, datasetComp, runLengthComp,
		reverseSense, investOnlyIfUpdated, statsOnlyIfUpdated, randomSeed)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "optimizer: invalid configuration:", err)
		return exitArgError
	}

	logger := setupLogger(*logLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	var reg *prometheus.Registry
	var m *metrics.Metrics
	if *metricsPort > 0 {
		reg = prometheus.NewRegistry()
		m = metrics.New()
		if err := m.Register(reg); err != nil {
			logger.Error("failed to register metrics", zap.Error(err))
		} else {
			srv, errc := metrics.StartServer(*metricsPort, reg)
			defer srv.Close()
			go func() {
				if err := <-errc; err != nil {
					logger.Error("metrics server error", zap.Error(err))
				}
			}()
			logger.Info("metrics server started", zap.Int("port", *metricsPort))
		}
	}

	var onReject func()
	if m != nil {
		onReject = m.RecordsRejected.Inc
	}

	records, closeSrc, err := openSource(ctx, *feedURL, *inputPath, onReject, logger)
	if err != nil {
		logger.Error("failed to open input", zap.Error(err))
		return exitInputOpenError
	}
	defer func() {
		if closeErr := closeSrc(); closeErr != nil {
			logger.Error("failed to close input", zap.Error(closeErr))
			if code == exitSuccess {
				code = exitInputCloseError
			}
		}
	}()

	out, closeOut, err := openSink(*outputPath, &cfg)
	if err != nil {
		logger.Error("failed to open output", zap.Error(err))
		return exitInputOpenError
	}
	defer closeOut()

	eng, err := engine.New(cfg, instrumentedSink{Sink: out, metrics: m}, logger)
	if err != nil {
		logger.Error("failed to construct engine", zap.Error(err))
		return exitArgError
	}
	eng.Dispatcher.OnReject = onReject

	countingRecords := countingSource(records, m)
	if err := eng.Run(countingRecords); err != nil {
		logger.Error("optimizer run failed", zap.Error(err))
		return exitInternalError
	}

	logger.Info("optimizer run complete")
	return exitSuccess
}

// Exit codes: zero is success, distinct non-zero values denote
// argument error, input-open error, input-close error, allocation
// failure, and internal errors.
const (
	exitSuccess          = 0
	exitArgError         = 1
	exitInputOpenError   = 2
	exitInputCloseError  = 3
	exitAllocationFailed = 4
	exitInternalError    = 5
)

func overlayConfigFile(cfg *types.EngineConfig, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decoding config file: %w", err)
	}
	return nil
}

// overlayFlags applies only the flags the user actually set on the
// command line over cfg, so an unset flag never clobbers a value the
// config file already supplied.
func overlayFlags(
	cfg *types.EngineConfig, fs *flag.FlagSet,
	method, policy *string, initialCapital, minDecision *float64,
	minConcurrent, maxConcurrent *int, maxMarginReciprocal, maxMarginalIncrement *float64,
	datasetComp, runLengthComp, reverseSense, investOnlyIfUpdated, statsOnlyIfUpdated *bool,
	randomSeed *int64,
) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "method":
			cfg.Method = types.DecisionMethod(*method)
		case "policy":
			cfg.Policy = types.AllocationPolicy(*policy)
		case "initial-capital":
			cfg.InitialCapital = *initialCapital
		case "minimum-decision":
			cfg.MinimumDecision = *minDecision
		case "minimum-concurrent":
			cfg.MinimumConcurrent = *minConcurrent
		case "maximum-concurrent":
			cfg.MaximumConcurrent = *maxConcurrent
		case "max-margin-reciprocal":
			cfg.MaxMarginReciprocal = *maxMarginReciprocal
		case "max-marginal-increment":
			cfg.MaxMarginalIncrement = *maxMarginalIncrement
		case "dataset-size-compensation":
			cfg.DataSetSizeCompensation = *datasetComp
		case "run-length-duration-compensation":
			cfg.RunLengthDurationComp = *runLengthComp
		case "reverse-sense":
			cfg.ReverseSense = *reverseSense
		case "invest-only-if-updated":
			cfg.InvestOnlyIfUpdated = *investOnlyIfUpdated
		case "stats-only-if-updated":
			cfg.StatsOnlyIfUpdated = *statsOnlyIfUpdated
		case "random-seed":
			cfg.RandomSeed = *randomSeed
		}
	})
}

// recordSource is the iterator shape internal/engine.PortfolioEngine.Run
// drives: internal/ingest.Reader.Next and internal/feed.WebSocketSource.Next
// both satisfy it directly.
type recordSource func() (types.Record, bool, error)

func openSource(ctx context.Context, feedURL, inputPath string, onReject func(), logger *zap.Logger) (recordSource, func() error, error) {
	if feedURL != "" {
		src := feed.New(feed.DefaultConfig(feedURL), logger)
		if err := src.Start(ctx); err != nil {
			return nil, nil, err
		}
		return src.Next, src.Close, nil
	}

	if inputPath == "" {
		r := ingest.New(os.Stdin, logger)
		r.OnReject = onReject
		return r.Next, func() error { return nil }, nil
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, nil, err
	}
	r := ingest.New(f, logger)
	r.OnReject = onReject
	return r.Next, f.Close, nil
}

func openSink(outputPath string, cfg *types.EngineConfig) (types.Sink, func(), error) {
	if outputPath == "" {
		s := sink.New(os.Stdout)
		s.ShowAllocation = cfg.Policy != types.PolicyEqual
		return s, func() {}, nil
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, err
	}
	s := sink.New(f)
	s.ShowAllocation = cfg.Policy != types.PolicyEqual
	return s, func() { f.Close() }, nil
}

// instrumentedSink wraps the configured types.Sink to update the
// equities-held gauge from each emitted record, without the core
// engine packages ever importing internal/metrics themselves.
type instrumentedSink struct {
	types.Sink
	metrics *metrics.Metrics
}

func (s instrumentedSink) Emit(r types.OutputRecord) error {
	if s.metrics != nil {
		s.metrics.IntervalsClosed.Inc()
		s.metrics.EquitiesHeld.Set(float64(len(r.Holdings)))
	}
	return s.Sink.Emit(r)
}

// countingSource wraps a recordSource to tally consumed records for
// the optional metrics server. Rejections are counted separately,
// through the OnReject hooks on the reader and the dispatcher.
func countingSource(next recordSource, m *metrics.Metrics) recordSource {
	if m == nil {
		return next
	}
	return func() (types.Record, bool, error) {
		rec, ok, err := next()
		if ok {
			m.RecordsConsumed.Inc()
		}
		return rec, ok, err
	}
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
