package montecarlo

import (
	"math"

	"github.com/pkg/errors"
)

// TradingDaysPerYear converts annualized rates into per-step rates.
const TradingDaysPerYear = 252

// SimulationConfig holds the parameters of one simulation run.
type SimulationConfig struct {
	NumPaths             int     `json:"num_paths" yaml:"numPaths"`
	HorizonDays          int     `json:"horizon_days" yaml:"horizonDays"`
	JumpIntensityPerYear float64 `json:"jump_intensity_per_year" yaml:"jumpIntensityPerYear"`
	JumpMeanReturn       float64 `json:"jump_mean_return" yaml:"jumpMeanReturn"`
	JumpVolatility       float64 `json:"jump_volatility" yaml:"jumpVolatility"`
	TriggerDropFraction  float64 `json:"trigger_drop_fraction" yaml:"triggerDropFraction"`
	DailyPremiumRate     float64 `json:"daily_premium_rate" yaml:"dailyPremiumRate"`
	RiskFreeRate         float64 `json:"risk_free_rate" yaml:"riskFreeRate"`
	HistoryWindowMonths  int     `json:"history_window_months" yaml:"historyWindowMonths"`
}

// DefaultConfig returns the parameters the insurance study was run with:
// 10k paths over one trading year, KOFR as the discount rate and an
// 18-month estimation window.
func DefaultConfig() SimulationConfig {
	return SimulationConfig{
		NumPaths:             10000,
		HorizonDays:          252,
		JumpIntensityPerYear: 0.13,
		JumpMeanReturn:       -0.0125,
		JumpVolatility:       0.0909,
		TriggerDropFraction:  0.10,
		DailyPremiumRate:     0.002,
		RiskFreeRate:         0.0258,
		HistoryWindowMonths:  18,
	}
}

// JumpRatePerStep is the Poisson mean used for each simulated day.
func (c SimulationConfig) JumpRatePerStep() float64 {
	return c.JumpIntensityPerYear / TradingDaysPerYear
}

// Validate reports the first field outside its domain. The returned error
// matches ErrInvalidConfig with errors.Is.
func (c SimulationConfig) Validate() error {
	if c.NumPaths <= 0 {
		return invalidf("numPaths must be positive, got %d", c.NumPaths)
	}
	if c.HorizonDays <= 0 {
		return invalidf("horizonDays must be positive, got %d", c.HorizonDays)
	}
	if c.HistoryWindowMonths <= 0 {
		return invalidf("historyWindowMonths must be positive, got %d", c.HistoryWindowMonths)
	}

	for _, f := range []struct {
		name string
		v    float64
	}{
		{"jumpIntensityPerYear", c.JumpIntensityPerYear},
		{"jumpMeanReturn", c.JumpMeanReturn},
		{"jumpVolatility", c.JumpVolatility},
		{"triggerDropFraction", c.TriggerDropFraction},
		{"dailyPremiumRate", c.DailyPremiumRate},
		{"riskFreeRate", c.RiskFreeRate},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return invalidf("%s must be finite, got %v", f.name, f.v)
		}
	}

	if c.JumpIntensityPerYear < 0 {
		return invalidf("jumpIntensityPerYear must be non-negative, got %v", c.JumpIntensityPerYear)
	}
	// a mean jump of 100% or more takes the price through zero
	if math.Abs(c.JumpMeanReturn) >= 1 {
		return invalidf("jumpMeanReturn must be in (-1,1), got %v", c.JumpMeanReturn)
	}
	if c.JumpVolatility < 0 {
		return invalidf("jumpVolatility must be non-negative, got %v", c.JumpVolatility)
	}
	if c.TriggerDropFraction <= 0 || c.TriggerDropFraction >= 1 {
		return invalidf("triggerDropFraction must be in (0,1), got %v", c.TriggerDropFraction)
	}
	if c.DailyPremiumRate < 0 {
		return invalidf("dailyPremiumRate must be non-negative, got %v", c.DailyPremiumRate)
	}
	if c.RiskFreeRate < 0 {
		return invalidf("riskFreeRate must be non-negative, got %v", c.RiskFreeRate)
	}
	return nil
}

func invalidf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}
