package montecarlo

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// MarketStats is derived once from history and shared read-only by every path.
type MarketStats struct {
	InitialPrice float64 `json:"initial_price"`
	DriftPerStep float64 `json:"drift_per_step"`
	VolPerStep   float64 `json:"vol_per_step"`
}

// Validate rejects stats that would make every simulated price meaningless.
func (s MarketStats) Validate() error {
	if !(s.InitialPrice > 0) || math.IsInf(s.InitialPrice, 0) {
		return errors.Wrapf(ErrInsufficientHistory, "initial price must be positive, got %v", s.InitialPrice)
	}
	if math.IsNaN(s.DriftPerStep) || math.IsInf(s.DriftPerStep, 0) ||
		math.IsNaN(s.VolPerStep) || math.IsInf(s.VolPerStep, 0) || s.VolPerStep < 0 {
		return errors.Wrapf(ErrInsufficientHistory, "non-finite return statistics drift=%v vol=%v", s.DriftPerStep, s.VolPerStep)
	}
	return nil
}

// Returns computes simple single-step returns over consecutive prices.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns = append(returns, prices[i]/prices[i-1]-1)
	}
	return returns
}

// EstimateMarketStats derives drift and volatility from chronological
// closing prices. Non-finite and non-positive observations are dropped
// before the estimate; fewer than two remaining prices is an error.
func EstimateMarketStats(prices []float64) (MarketStats, error) {
	valid := make([]float64, 0, len(prices))
	for _, p := range prices {
		if p > 0 && !math.IsInf(p, 0) {
			valid = append(valid, p)
		}
	}
	if len(valid) < 2 {
		return MarketStats{}, errors.Wrapf(ErrInsufficientHistory, "need at least 2 valid prices, got %d", len(valid))
	}

	returns := Returns(valid)

	// sample standard deviation is undefined for one return
	vol := 0.0
	if len(returns) > 1 {
		vol = stat.StdDev(returns, nil)
	}

	return MarketStats{
		InitialPrice: valid[len(valid)-1],
		DriftPerStep: stat.Mean(returns, nil),
		VolPerStep:   vol,
	}, nil
}
