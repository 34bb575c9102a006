package montecarlo

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStats = MarketStats{InitialPrice: 70000, DriftPerStep: 0.0003, VolPerStep: 0.018}

func testConfig() SimulationConfig {
	cfg := DefaultConfig()
	cfg.NumPaths = 500
	cfg.HorizonDays = 60
	cfg.JumpIntensityPerYear = 25
	return cfg
}

func TestSimulator_Run(t *testing.T) {
	cfg := testConfig()
	sim := NewSimulator(7, 4)

	result, err := sim.Run(context.Background(), cfg, testStats)
	require.NoError(t, err)
	require.Equal(t, cfg.NumPaths, result.NumPaths())
	require.Len(t, result.JumpCounts, cfg.NumPaths)
	require.Len(t, result.Payouts, cfg.NumPaths)
	require.Len(t, result.Premiums, cfg.NumPaths)

	var triggered int
	for i := 0; i < cfg.NumPaths; i++ {
		p := result.TerminalPrices[i]
		assert.False(t, math.IsNaN(p) || math.IsInf(p, 0))
		assert.Greater(t, p, 0.0)
		assert.GreaterOrEqual(t, result.Payouts[i], 0.0)
		assert.GreaterOrEqual(t, result.Premiums[i], 0.0)
		if result.Payouts[i] > 0 {
			triggered++
			assert.GreaterOrEqual(t, result.JumpCounts[i], 1)
		}
	}
	assert.Greater(t, triggered, 0)
}

func TestSimulator_Reproducible(t *testing.T) {
	cfg := testConfig()

	a, err := NewSimulator(99, 3).Run(context.Background(), cfg, testStats)
	require.NoError(t, err)
	b, err := NewSimulator(99, 3).Run(context.Background(), cfg, testStats)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := NewSimulator(100, 3).Run(context.Background(), cfg, testStats)
	require.NoError(t, err)
	assert.NotEqual(t, a.TerminalPrices, c.TerminalPrices)
}

func TestSimulator_ScriptedSourcesMatchSequentialPaths(t *testing.T) {
	cfg := testConfig()
	cfg.NumPaths = 8

	sim := &Simulator{Workers: 1, NewSource: SeededFactory(5)}
	result, err := sim.Run(context.Background(), cfg, testStats)
	require.NoError(t, err)

	rnd := NewRandomSource(5, 0)
	paths := make([]PathState, cfg.NumPaths)
	for i := range paths {
		paths[i] = SimulatePath(cfg, testStats, rnd)
	}
	assert.Equal(t, Aggregate(paths, 0), result)
}

func TestSimulator_NoJumps(t *testing.T) {
	cfg := testConfig()
	cfg.JumpIntensityPerYear = 0

	result, err := NewSimulator(1, 2).Run(context.Background(), cfg, testStats)
	require.NoError(t, err)
	for i := 0; i < cfg.NumPaths; i++ {
		assert.Equal(t, 0, result.JumpCounts[i])
		assert.Equal(t, 0.0, result.Payouts[i])
	}
}

func TestSimulator_FlatScenario(t *testing.T) {
	cfg := testConfig()
	cfg.NumPaths = 20
	cfg.HorizonDays = 10
	cfg.JumpIntensityPerYear = 0
	cfg.RiskFreeRate = 0

	sim := &Simulator{Workers: 3, Seed: 11, SamplePaths: 5}
	result, err := sim.Run(context.Background(), cfg, MarketStats{InitialPrice: 70000})
	require.NoError(t, err)

	for i := 0; i < cfg.NumPaths; i++ {
		assert.Equal(t, 70000.0, result.TerminalPrices[i])
		assert.InDelta(t, 10*70000*cfg.DailyPremiumRate/252, result.Premiums[i], 1e-9)
	}
	require.Len(t, result.SamplePaths, 5)
	for _, p := range result.SamplePaths {
		assert.Len(t, p, cfg.HorizonDays+1)
	}
}

func TestSimulator_PremiumsGrowWithHorizon(t *testing.T) {
	cfg := testConfig()
	cfg.NumPaths = 50
	cfg.JumpIntensityPerYear = 0

	short, err := NewSimulator(3, 2).Run(context.Background(), cfg, testStats)
	require.NoError(t, err)

	cfg.HorizonDays += 30
	long, err := NewSimulator(3, 2).Run(context.Background(), cfg, testStats)
	require.NoError(t, err)

	for i := range short.Premiums {
		assert.Greater(t, long.Premiums[i], short.Premiums[i])
	}
}

func TestSimulator_InvalidInput(t *testing.T) {
	cfg := testConfig()
	cfg.NumPaths = 0

	var called int32
	sim := &Simulator{NewSource: func(int) RandomSource {
		atomic.AddInt32(&called, 1)
		return &scriptedSource{}
	}}

	_, err := sim.Run(context.Background(), cfg, testStats)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = sim.Run(context.Background(), testConfig(), MarketStats{})
	assert.True(t, errors.Is(err, ErrInsufficientHistory))
	assert.Equal(t, int32(0), atomic.LoadInt32(&called))
}

func TestSimulator_RejectsOversizedRunBeforeAllocating(t *testing.T) {
	cfg := testConfig()
	cfg.HorizonDays = 1 << 50

	var called int32
	sim := NewSimulator(1, 1)
	sim.NewSource = func(int) RandomSource {
		atomic.AddInt32(&called, 1)
		return &scriptedSource{}
	}

	result, err := sim.Run(context.Background(), cfg, testStats)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Nil(t, result)
	assert.Equal(t, int32(0), atomic.LoadInt32(&called))
}

func TestSimulator_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewSimulator(1, 2).Run(ctx, testConfig(), testStats)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSimulator_Progress(t *testing.T) {
	cfg := testConfig()
	var last int64
	sim := &Simulator{Workers: 2, Seed: 1, OnProgress: func(done, total int) {
		assert.Equal(t, cfg.NumPaths, total)
		for {
			prev := atomic.LoadInt64(&last)
			if int64(done) <= prev || atomic.CompareAndSwapInt64(&last, prev, int64(done)) {
				break
			}
		}
	}}

	_, err := sim.Run(context.Background(), cfg, testStats)
	require.NoError(t, err)
	assert.Equal(t, int64(cfg.NumPaths), atomic.LoadInt64(&last))
}
