package model

import (
	"stock-insurance-backend/internal/montecarlo"
	"stock-insurance-backend/internal/report"
)

// ConfigOverrides carries the simulation parameters a caller wants to
// change. Nil fields keep the server defaults.
type ConfigOverrides struct {
	NumPaths             *int     `json:"num_paths,omitempty"`
	HorizonDays          *int     `json:"horizon_days,omitempty"`
	JumpIntensityPerYear *float64 `json:"jump_intensity_per_year,omitempty"`
	JumpMeanReturn       *float64 `json:"jump_mean_return,omitempty"`
	JumpVolatility       *float64 `json:"jump_volatility,omitempty"`
	TriggerDropFraction  *float64 `json:"trigger_drop_fraction,omitempty"`
	DailyPremiumRate     *float64 `json:"daily_premium_rate,omitempty"`
	RiskFreeRate         *float64 `json:"risk_free_rate,omitempty"`
	HistoryWindowMonths  *int     `json:"history_window_months,omitempty"`
}

// Apply returns base with the set fields replaced.
func (o ConfigOverrides) Apply(base montecarlo.SimulationConfig) montecarlo.SimulationConfig {
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setFloat := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}

	cfg := base
	setInt(&cfg.NumPaths, o.NumPaths)
	setInt(&cfg.HorizonDays, o.HorizonDays)
	setFloat(&cfg.JumpIntensityPerYear, o.JumpIntensityPerYear)
	setFloat(&cfg.JumpMeanReturn, o.JumpMeanReturn)
	setFloat(&cfg.JumpVolatility, o.JumpVolatility)
	setFloat(&cfg.TriggerDropFraction, o.TriggerDropFraction)
	setFloat(&cfg.DailyPremiumRate, o.DailyPremiumRate)
	setFloat(&cfg.RiskFreeRate, o.RiskFreeRate)
	setInt(&cfg.HistoryWindowMonths, o.HistoryWindowMonths)
	return cfg
}

// SimulationRequest asks for one simulation over a ticker's history or an
// inline price series.
type SimulationRequest struct {
	Ticker string `json:"ticker"`
	// Prices replaces the fetched history when set.
	Prices []float64       `json:"prices,omitempty"`
	Config ConfigOverrides `json:"config"`

	Seed        uint64 `json:"seed,omitempty"`
	SamplePaths *int   `json:"sample_paths,omitempty"`
	Refresh     bool   `json:"refresh,omitempty"`
	SummaryOnly bool   `json:"summary_only,omitempty"`
	// SkipPersist keeps the run out of the run store.
	SkipPersist bool `json:"skip_persist,omitempty"`

	RequestID string `json:"request_id,omitempty"`
}

// SimulationResponse is the outcome of one simulation.
type SimulationResponse struct {
	RunID         string `json:"run_id,omitempty"`
	Ticker        string `json:"ticker,omitempty"`
	HistorySource string `json:"history_source"`
	Observations  int    `json:"observations"`

	Config  montecarlo.SimulationConfig  `json:"config"`
	Stats   montecarlo.MarketStats       `json:"stats"`
	Summary report.Summary               `json:"summary"`
	Result  *montecarlo.SimulationResult `json:"result,omitempty"`

	DurationMs int64 `json:"duration_ms"`
}
