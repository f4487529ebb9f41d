package srs

// Params defines all configurable parameters for the scheduling algorithm
type Params struct {
	// Interval growth
	GrowthFactor      float64
	FirstIntervalDays int
	MaxIntervalDays   int

	// Failure handling
	FailureIntervalDays int

	// Struggling queue exit: correct answers needed since the last failure
	StrugglingExitStreak int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the defaults.
type ParamsConfig struct {
	GrowthFactor         float64
	FirstIntervalDays    int
	MaxIntervalDays      int
	StrugglingExitStreak int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		GrowthFactor:         2.0,
		FirstIntervalDays:    1,
		MaxIntervalDays:      180,
		FailureIntervalDays:  1,
		StrugglingExitStreak: 2,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	// Growth factors at or below 1 would never lengthen an interval
	if config.GrowthFactor > 1 {
		params.GrowthFactor = config.GrowthFactor
	}
	if config.FirstIntervalDays > 0 {
		params.FirstIntervalDays = config.FirstIntervalDays
	}
	if config.MaxIntervalDays > 0 {
		params.MaxIntervalDays = config.MaxIntervalDays
	}
	if config.StrugglingExitStreak > 0 {
		params.StrugglingExitStreak = config.StrugglingExitStreak
	}

	if params.FirstIntervalDays > params.MaxIntervalDays {
		params.FirstIntervalDays = params.MaxIntervalDays
	}

	return params
}
