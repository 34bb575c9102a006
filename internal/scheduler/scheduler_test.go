package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-insurance-backend/internal/config"
	"stock-insurance-backend/internal/model"
)

type fakeSimulator struct {
	mu      sync.Mutex
	calls   []model.SimulationRequest
	failing map[string]bool
}

func (f *fakeSimulator) RunSimulation(_ context.Context, req model.SimulationRequest) (*model.SimulationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.failing[req.Ticker] {
		return nil, fmt.Errorf("no data for %s", req.Ticker)
	}
	return &model.SimulationResponse{Ticker: req.Ticker, RunID: "run-" + req.Ticker}, nil
}

func testConfig(watchlist ...string) config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:    true,
		Schedule:   "0 16 * * 1-5",
		Watchlist:  watchlist,
		RetryCount: 2,
	}
}

func TestRunOnce(t *testing.T) {
	sim := &fakeSimulator{failing: map[string]bool{"B": true}}
	s := New(testConfig("A", "B", "C"), sim)
	s.Pause = 0

	results, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, sim.calls, 3)
	require.Len(t, results, 3)
	assert.Equal(t, "run-A", results[0].RunID)
	assert.Error(t, results[1].Err)
	for _, req := range sim.calls {
		assert.True(t, req.Refresh)
		assert.True(t, req.SummaryOnly)
	}
}

func TestRunOnce_TooManyFailures(t *testing.T) {
	sim := &fakeSimulator{failing: map[string]bool{"A": true, "B": true}}
	s := New(testConfig("A", "B", "C"), sim)
	s.Pause = 0

	_, err := s.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRunWithRetry(t *testing.T) {
	sim := &fakeSimulator{failing: map[string]bool{"A": true}}
	s := New(testConfig("A"), sim)
	s.Pause = 0

	s.RunWithRetry(context.Background())
	// first attempt plus two retries
	assert.Len(t, sim.calls, 3)

	sim.calls = nil
	sim.failing = nil
	s.RunWithRetry(context.Background())
	assert.Len(t, sim.calls, 1)
}

func TestRunWithRetry_Canceled(t *testing.T) {
	sim := &fakeSimulator{failing: map[string]bool{"A": true}}
	cfg := testConfig("A")
	cfg.RetryInterval = 1 << 40
	s := New(cfg, sim)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.RunWithRetry(ctx)
	assert.Len(t, sim.calls, 1)
}

func TestStart(t *testing.T) {
	sim := &fakeSimulator{}

	s := New(testConfig("A"), sim)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	bad := testConfig("A")
	bad.Schedule = "every day"
	assert.Error(t, New(bad, sim).Start(context.Background()))

	// nothing to schedule
	empty := New(testConfig(), sim)
	require.NoError(t, empty.Start(context.Background()))
	empty.Stop()

	disabled := testConfig("A")
	disabled.Enabled = false
	require.NoError(t, New(disabled, sim).Start(context.Background()))
}

type fakeNotifier struct {
	subjects []string
	bodies   []string
}

func (f *fakeNotifier) Notify(subject, body string) error {
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return nil
}

type weekdayCalendar struct{}

func (weekdayCalendar) IsTradingDay(d time.Time) bool {
	return d.Weekday() != time.Saturday && d.Weekday() != time.Sunday
}

func TestRunWithRetry_Notifies(t *testing.T) {
	sim := &fakeSimulator{failing: map[string]bool{"<B>": true}}
	n := &fakeNotifier{}
	s := New(testConfig("A", "<B>", "C"), sim)
	s.Pause = 0
	s.Notifier = n
	s.now = func() time.Time { return time.Date(2025, 6, 30, 16, 0, 0, 0, time.UTC) }

	s.RunWithRetry(context.Background())
	require.Len(t, n.subjects, 1)
	assert.Equal(t, "[insurance] post-market simulations 2025-06-30", n.subjects[0])
	assert.Contains(t, n.bodies[0], "run-A")
	assert.Contains(t, n.bodies[0], "&lt;B&gt;")
}

func TestRunScheduled_SkipsClosedMarket(t *testing.T) {
	sim := &fakeSimulator{}
	s := New(testConfig("A"), sim)
	s.Pause = 0
	s.Calendar = weekdayCalendar{}

	s.now = func() time.Time { return time.Date(2025, 6, 28, 16, 0, 0, 0, time.UTC) }
	s.runScheduled(context.Background())
	assert.Empty(t, sim.calls)

	s.now = func() time.Time { return time.Date(2025, 6, 30, 16, 0, 0, 0, time.UTC) }
	s.runScheduled(context.Background())
	assert.Len(t, sim.calls, 1)
}

func TestStart_BadTimezone(t *testing.T) {
	cfg := testConfig("A")
	cfg.Timezone = "Mars/Olympus"
	assert.Error(t, New(cfg, &fakeSimulator{}).Start(context.Background()))
}
