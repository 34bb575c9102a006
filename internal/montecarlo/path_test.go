package montecarlo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatConfig() SimulationConfig {
	return SimulationConfig{
		NumPaths:             1,
		HorizonDays:          10,
		JumpIntensityPerYear: 0,
		JumpMeanReturn:       0,
		JumpVolatility:       0.5,
		TriggerDropFraction:  0.1,
		DailyPremiumRate:     0.002,
		RiskFreeRate:         0,
		HistoryWindowMonths:  18,
	}
}

func TestSimulatePath_Flat(t *testing.T) {
	cfg := flatConfig()
	stats := MarketStats{InitialPrice: 70000}

	path := SimulatePath(cfg, stats, NewRandomSource(1, 0))
	require.Len(t, path.Prices, cfg.HorizonDays+1)
	for _, p := range path.Prices {
		assert.Equal(t, 70000.0, p)
	}
	assert.Empty(t, path.JumpStepIndices)
	assert.False(t, path.Triggered)
	assert.Equal(t, 0.0, path.PayoutAmount)
	assert.InDelta(t, 10*70000*0.002/252, path.PremiumAccrued, 1e-9)
}

func TestSimulatePath_TriggeredJump(t *testing.T) {
	cfg := flatConfig()
	cfg.JumpIntensityPerYear = 1
	cfg.JumpMeanReturn = -0.5
	cfg.JumpVolatility = 0

	stats := MarketStats{InitialPrice: 70000}
	rnd := &scriptedSource{counts: []int{1}}

	path := SimulatePath(cfg, stats, rnd)
	assert.Equal(t, 70000.0, path.Prices[0])
	assert.True(t, path.Triggered)
	assert.InDelta(t, 63000, path.TriggerPrice, 1e-9)
	// the post-jump price of 35000 is below the barrier and is clamped
	assert.InDelta(t, 28000, path.PayoutAmount, 1e-9)
	assert.Equal(t, []int{0}, path.JumpStepIndices)
	for i := 1; i <= cfg.HorizonDays; i++ {
		assert.InDelta(t, 63000, path.Prices[i], 1e-9, "step %d", i)
	}
	// only the first day's premium was paid
	assert.InDelta(t, 70000*0.002/252, path.PremiumAccrued, 1e-9)
}

func TestSimulatePath_MultiEventCountIsOneJump(t *testing.T) {
	cfg := flatConfig()
	cfg.JumpIntensityPerYear = 1
	cfg.JumpMeanReturn = -0.01
	cfg.JumpVolatility = 0

	path := SimulatePath(cfg, MarketStats{InitialPrice: 100}, &scriptedSource{counts: []int{3}})
	assert.Equal(t, []int{0}, path.JumpStepIndices)
	assert.InDelta(t, 99, path.Prices[1], 1e-9)
	assert.False(t, path.Triggered)
}

func TestSimulatePath_PositiveJumpNeverTriggers(t *testing.T) {
	cfg := flatConfig()
	cfg.JumpIntensityPerYear = 1
	cfg.JumpMeanReturn = 0.5
	cfg.JumpVolatility = 0

	path := SimulatePath(cfg, MarketStats{InitialPrice: 70000}, &scriptedSource{counts: []int{1}})

	// the magnitude still depresses the price below the barrier
	assert.InDelta(t, 35000, path.Prices[1], 1e-9)
	assert.Less(t, path.Prices[1], path.TriggerPrice)
	assert.False(t, path.Triggered)
	assert.Equal(t, 0.0, path.PayoutAmount)
	assert.InDelta(t, 10*70000*0.002/252, path.PremiumAccrued, 1e-9)
}

func TestSimulatePath_SmallJumpAboveBarrier(t *testing.T) {
	cfg := flatConfig()
	cfg.JumpIntensityPerYear = 1
	cfg.JumpMeanReturn = -0.05
	cfg.JumpVolatility = 0

	// two jumps of -5% each; the barrier resets from each pre-jump price
	path := SimulatePath(cfg, MarketStats{InitialPrice: 100}, &scriptedSource{counts: []int{1, 0, 1}})
	assert.Equal(t, []int{0, 2}, path.JumpStepIndices)
	assert.False(t, path.Triggered)
	assert.InDelta(t, 95, path.Prices[1], 1e-9)
	assert.InDelta(t, 95*0.95, path.Prices[3], 1e-9)
	assert.InDelta(t, 95*0.9, path.TriggerPrice, 1e-9)
}

func TestSimulatePath_JumpsStopAfterTrigger(t *testing.T) {
	cfg := flatConfig()
	cfg.JumpIntensityPerYear = 1
	cfg.JumpMeanReturn = -0.2
	cfg.JumpVolatility = 0

	counts := make([]int, cfg.HorizonDays)
	for i := range counts {
		counts[i] = 1
	}
	rnd := &scriptedSource{counts: counts}
	path := SimulatePath(cfg, MarketStats{InitialPrice: 100}, rnd)

	assert.Equal(t, []int{0}, path.JumpStepIndices)
	assert.InDelta(t, 10, path.PayoutAmount, 1e-9)
	// a frozen path consumes no more draws
	assert.Len(t, rnd.counts, cfg.HorizonDays-1)
}

func TestSimulatePath_TriggerCloseToZero(t *testing.T) {
	cfg := flatConfig()
	cfg.JumpIntensityPerYear = 1
	cfg.JumpMeanReturn = -0.001
	cfg.JumpVolatility = 0
	cfg.TriggerDropFraction = 1e-6

	path := SimulatePath(cfg, MarketStats{InitialPrice: 100}, &scriptedSource{counts: []int{0, 0, 1}})
	assert.True(t, path.Triggered)
	assert.Equal(t, []int{2}, path.JumpStepIndices)
	assert.Greater(t, path.PayoutAmount, 0.0)
}

func TestSimulatePath_TriggerCloseToOne(t *testing.T) {
	cfg := flatConfig()
	cfg.JumpIntensityPerYear = 1
	cfg.JumpMeanReturn = -0.9
	cfg.JumpVolatility = 0
	cfg.TriggerDropFraction = 0.999

	path := SimulatePath(cfg, MarketStats{InitialPrice: 100}, &scriptedSource{counts: []int{1, 1, 1}})
	assert.False(t, path.Triggered)
	assert.Len(t, path.JumpStepIndices, 3)
}

func TestSimulatePath_Discounting(t *testing.T) {
	cfg := flatConfig()
	cfg.RiskFreeRate = 0.0258
	cfg.HorizonDays = 3

	path := SimulatePath(cfg, MarketStats{InitialPrice: 70000}, &scriptedSource{})
	daily := 70000 * 0.002 / 252.0
	i := 0.0258 / 252
	expected := daily + daily/(1+i) + daily/((1+i)*(1+i))
	assert.InDelta(t, expected, path.PremiumAccrued, 1e-9)
	assert.Less(t, path.PremiumAccrued, 3*daily)
}

func TestSimulatePath_Diffusion(t *testing.T) {
	cfg := flatConfig()
	cfg.HorizonDays = 2
	stats := MarketStats{InitialPrice: 100, DriftPerStep: 0.01, VolPerStep: 0.02}

	path := SimulatePath(cfg, stats, &scriptedSource{shocks: []float64{1, -1, 0}})
	assert.InDelta(t, 103, path.Prices[0], 1e-9)
	assert.InDelta(t, 103*0.99, path.Prices[1], 1e-9)
	assert.InDelta(t, 103*0.99*1.01, path.Prices[2], 1e-9)
}

func TestSimulatePath_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JumpIntensityPerYear = 20
	stats := MarketStats{InitialPrice: 70000, DriftPerStep: 0.0005, VolPerStep: 0.015}

	a := SimulatePath(cfg, stats, NewRandomSource(42, 7))
	b := SimulatePath(cfg, stats, NewRandomSource(42, 7))
	assert.Equal(t, a, b)
}

func TestSimulatePath_UpwardJumpBeyondPriceGoesNegative(t *testing.T) {
	cfg := flatConfig()
	cfg.JumpIntensityPerYear = 1
	cfg.JumpMeanReturn = 0
	cfg.JumpVolatility = 1
	require.NoError(t, cfg.Validate())

	stats := MarketStats{InitialPrice: 100}
	// a +150% jump draw moves the price by -|r| without breaching the barrier
	rnd := &scriptedSource{shocks: []float64{0, 1.5}, counts: []int{1}}

	path := SimulatePath(cfg, stats, rnd)
	assert.False(t, path.Triggered)
	assert.Equal(t, 0.0, path.PayoutAmount)
	assert.InDelta(t, -50, path.Prices[1], 1e-9)
	assert.InDelta(t, -50, path.Terminal(), 1e-9)
}
