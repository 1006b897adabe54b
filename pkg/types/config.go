// Package types provides configuration types for the equity portfolio
// optimizer.
package types

// EngineConfig enumerates every recognized engine option. A single
// value is constructed once (by flags, by a viper-loaded file, or by
// DefaultEngineConfig) and passed by value into the engine
// constructor; it is never mutated after construction.
type EngineConfig struct {
	Method DecisionMethod   `mapstructure:"method"`
	Policy AllocationPolicy `mapstructure:"policy"`

	InitialCapital float64 `mapstructure:"initial_capital"`

	MinimumDecision     float64 `mapstructure:"minimum_decision"`
	MinimumConcurrent   int     `mapstructure:"minimum_concurrent"`
	MaximumConcurrent   int     `mapstructure:"maximum_concurrent"`
	MaxMarginReciprocal float64 `mapstructure:"max_margin_reciprocal"`

	MaxMarginalIncrement float64 `mapstructure:"max_marginal_increment"`

	DataSetSizeCompensation bool `mapstructure:"dataset_size_compensation"`
	RunLengthDurationComp   bool `mapstructure:"run_length_duration_compensation"`
	ReverseSense            bool `mapstructure:"reverse_sense"`
	InvestOnlyIfUpdated     bool `mapstructure:"invest_only_if_updated"`
	StatsOnlyIfUpdated      bool `mapstructure:"stats_only_if_updated"`

	// RandomSeed seeds the RANDOM decision method's source, so a
	// fixed seed reproduces a deterministic held set across runs.
	RandomSeed int64 `mapstructure:"random_seed"`
}

// DefaultEngineConfig returns the documented defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Method:                  MethodAvgRMS,
		Policy:                  PolicyEqual,
		InitialCapital:          1000,
		MinimumDecision:         1.0,
		MinimumConcurrent:       10,
		MaximumConcurrent:       10,
		MaxMarginReciprocal:     1,
		MaxMarginalIncrement:    1.0,
		DataSetSizeCompensation: true,
		RunLengthDurationComp:   false,
		ReverseSense:            false,
		InvestOnlyIfUpdated:     false,
		StatsOnlyIfUpdated:      false,
		RandomSeed:              1,
	}
}

// Validate checks a config's invariants before any records are read.
// Configuration errors always surface before processing starts.
func (c EngineConfig) Validate() error {
	switch {
	case c.InitialCapital <= 0:
		return wrapInvalid("initial_capital must be positive")
	case c.MinimumConcurrent < 0, c.MaximumConcurrent < 0:
		return wrapInvalid("concurrency bounds must be non-negative")
	case c.MinimumConcurrent > c.MaximumConcurrent:
		return wrapInvalid("minimum_concurrent must be <= maximum_concurrent")
	case c.MaxMarginalIncrement <= 0:
		return wrapInvalid("max_marginal_increment must be positive")
	case c.MaxMarginReciprocal < 1:
		return wrapInvalid("max_margin_reciprocal must be >= 1")
	case !validMethod(c.Method):
		return wrapInvalid("unrecognized decision method: " + string(c.Method))
	case !validPolicy(c.Policy):
		return wrapInvalid("unrecognized allocation policy: " + string(c.Policy))
	}
	return nil
}

func validMethod(m DecisionMethod) bool {
	switch m {
	case MethodAvgRMS, MethodRMS, MethodAvg, MethodRunLength, MethodPersistence, MethodRandom:
		return true
	}
	return false
}

func validPolicy(p AllocationPolicy) bool {
	switch p {
	case PolicyEqual, PolicyMaxGain, PolicyMinRisk:
		return true
	}
	return false
}

func wrapInvalid(msg string) error {
	return &configError{msg: msg}
}

type configError struct{ msg string }

func (e *configError) Error() string { return e.msg }

func (e *configError) Unwrap() error { return ErrInvalidConfig }
