package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-insurance-backend/internal/montecarlo"
	"stock-insurance-backend/internal/report"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRun() (*Run, *montecarlo.SimulationResult) {
	cfg := montecarlo.DefaultConfig()
	cfg.NumPaths = 3
	stats := montecarlo.MarketStats{InitialPrice: 70000, DriftPerStep: 0.0004, VolPerStep: 0.018}
	result := &montecarlo.SimulationResult{
		TerminalPrices: []float64{71000, 63000, 69500.5},
		JumpCounts:     []int{0, 1, 0},
		Payouts:        []float64{0, 28000, 0},
		Premiums:       []float64{35000, 2400, 35000},
	}
	run := &Run{
		Ticker:  "005930.KS",
		Config:  cfg,
		Stats:   stats,
		Summary: report.Summarize(result, stats, cfg),
	}
	return run, result
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run, result := testRun()

	require.NoError(t, s.SaveRun(ctx, run, result))
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Ticker, got.Ticker)
	assert.Equal(t, run.Config, got.Config)
	assert.Equal(t, run.Stats, got.Stats)
	assert.Equal(t, run.Summary.TriggeredPaths, got.Summary.TriggeredPaths)
	assert.InDelta(t, run.Summary.LossRatio, got.Summary.LossRatio, 1e-12)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))

	paths, err := s.GetRunResult(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, result.TerminalPrices, paths.TerminalPrices)
	assert.Equal(t, result.JumpCounts, paths.JumpCounts)
	assert.Equal(t, result.Payouts, paths.Payouts)
	assert.Equal(t, result.Premiums, paths.Premiums)
}

func TestGetRun_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = s.GetRunResult(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 30, 9, 0, 0, 0, time.UTC)
	for i, ticker := range []string{"A", "B", "C"} {
		run, result := testRun()
		run.Ticker = ticker
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.SaveRun(ctx, run, result))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "C", runs[0].Ticker)
	assert.Equal(t, "B", runs[1].Ticker)

	runs, err = s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestDeleteRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run, result := testRun()
	require.NoError(t, s.SaveRun(ctx, run, result))

	require.NoError(t, s.DeleteRun(ctx, run.ID))
	_, err := s.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, s.DeleteRun(ctx, run.ID), ErrRunNotFound)
}

func TestSaveRun_DuplicateID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run, result := testRun()
	require.NoError(t, s.SaveRun(ctx, run, result))

	dup, _ := testRun()
	dup.ID = run.ID
	assert.Error(t, s.SaveRun(ctx, dup, nil))
}

func TestOpen_File(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.FileExists(t, filepath.Join(dir, DefaultDBFileName))
}
