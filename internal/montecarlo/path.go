package montecarlo

import "math"

// PathState is the full trajectory of a single simulated path.
type PathState struct {
	// Prices has HorizonDays+1 entries; index 0 is the first simulated price.
	Prices          []float64
	JumpStepIndices []int
	Triggered       bool
	// TriggerPrice is the barrier of the latest jump; after a breach it is
	// the frozen price of the path.
	TriggerPrice   float64
	PayoutAmount   float64
	PremiumAccrued float64
}

// Terminal returns the last simulated price.
func (p *PathState) Terminal() float64 {
	return p.Prices[len(p.Prices)-1]
}

// SimulatePath advances one path day by day.
//
// Draw order per step is fixed: a Poisson count, then either the jump
// return or the diffusion return. A triggered path draws nothing.
//
// The jump always moves the price down by |jumpReturn|, but only a
// negative draw can breach the barrier.
func SimulatePath(cfg SimulationConfig, stats MarketStats, rnd RandomSource) PathState {
	prices := make([]float64, cfg.HorizonDays+1)
	prices[0] = stats.InitialPrice * (1 + rnd.Normal(stats.DriftPerStep, stats.VolPerStep))

	var (
		path         = PathState{Prices: prices}
		lambda       = cfg.JumpRatePerStep()
		dailyPremium = stats.InitialPrice * cfg.DailyPremiumRate / TradingDaysPerYear
		stepRate     = cfg.RiskFreeRate / TradingDaysPerYear
	)

	for t := 0; t < cfg.HorizonDays; t++ {
		if path.Triggered {
			prices[t+1] = path.TriggerPrice
			continue
		}

		path.PremiumAccrued += dailyPremium * math.Pow(1+stepRate, -float64(t))

		if rnd.Poisson(lambda) >= 1 {
			path.JumpStepIndices = append(path.JumpStepIndices, t)

			jumpReturn := rnd.Normal(cfg.JumpMeanReturn, cfg.JumpVolatility)
			preJump := prices[t]
			path.TriggerPrice = preJump * (1 - cfg.TriggerDropFraction)
			prices[t+1] = preJump * (1 - math.Abs(jumpReturn))

			if jumpReturn < 0 && prices[t+1] < path.TriggerPrice {
				path.PayoutAmount = path.TriggerPrice - prices[t+1]
				prices[t+1] = path.TriggerPrice
				path.Triggered = true
			}
			continue
		}

		prices[t+1] = prices[t] * (1 + rnd.Normal(stats.DriftPerStep, stats.VolPerStep))
	}

	return path
}
