package montecarlo

// Limits bound the size of a run so that a request cannot exhaust memory.
// A zero field is unlimited.
type Limits struct {
	MaxPaths       int   `json:"max_paths" yaml:"maxPaths"`
	MaxHorizonDays int   `json:"max_horizon_days" yaml:"maxHorizonDays"`
	MaxSteps       int64 `json:"max_steps" yaml:"maxSteps"`
	MaxSamplePaths int   `json:"max_sample_paths" yaml:"maxSamplePaths"`
}

// DefaultLimits allows up to ten million paths, ten trading years and
// half a billion simulated steps per run.
func DefaultLimits() Limits {
	return Limits{
		MaxPaths:       10_000_000,
		MaxHorizonDays: 10 * TradingDaysPerYear,
		MaxSteps:       500_000_000,
		MaxSamplePaths: 1000,
	}
}

// Check reports the first size of cfg, or the sample path count, above
// the limits. The returned error matches ErrInvalidConfig.
func (l Limits) Check(cfg SimulationConfig, samplePaths int) error {
	if l.MaxPaths > 0 && cfg.NumPaths > l.MaxPaths {
		return invalidf("numPaths must be at most %d, got %d", l.MaxPaths, cfg.NumPaths)
	}
	if l.MaxHorizonDays > 0 && cfg.HorizonDays > l.MaxHorizonDays {
		return invalidf("horizonDays must be at most %d, got %d", l.MaxHorizonDays, cfg.HorizonDays)
	}
	// float64 keeps the product from overflowing when the other limits are off
	if steps := float64(cfg.NumPaths) * float64(cfg.HorizonDays); l.MaxSteps > 0 && steps > float64(l.MaxSteps) {
		return invalidf("numPaths x horizonDays must be at most %d, got %.0f", l.MaxSteps, steps)
	}
	if samplePaths < 0 {
		return invalidf("samplePaths must be non-negative, got %d", samplePaths)
	}
	if l.MaxSamplePaths > 0 && samplePaths > l.MaxSamplePaths {
		return invalidf("samplePaths must be at most %d, got %d", l.MaxSamplePaths, samplePaths)
	}
	return nil
}
