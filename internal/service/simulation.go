package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"stock-insurance-backend/internal/config"
	"stock-insurance-backend/internal/metrics"
	"stock-insurance-backend/internal/model"
	"stock-insurance-backend/internal/montecarlo"
	"stock-insurance-backend/internal/report"
	"stock-insurance-backend/internal/stockdata"
	"stock-insurance-backend/internal/store"
)

var log = logrus.WithField("component", "service")

// HistoryFetcher loads the closes of the last months months of code.
type HistoryFetcher func(ctx context.Context, code string, months int, refresh bool) (*stockdata.History, error)

// RunStore persists completed runs.
type RunStore interface {
	SaveRun(ctx context.Context, run *store.Run, result *montecarlo.SimulationResult) error
}

// SimulationService resolves inputs, runs the Monte Carlo engine and
// records the outcome.
type SimulationService struct {
	Defaults config.SimulationDefaults

	// Store is optional; nil disables persistence.
	Store RunStore

	FetchHistory HistoryFetcher

	tasks *taskRegistry
}

// NewSimulationService wires the service with the live history feed.
// Unset limits fall back to montecarlo.DefaultLimits.
func NewSimulationService(defaults config.SimulationDefaults, runStore RunStore) *SimulationService {
	if defaults.Limits == (montecarlo.Limits{}) {
		defaults.Limits = montecarlo.DefaultLimits()
	}
	s := &SimulationService{
		Defaults:     defaults,
		Store:        runStore,
		FetchHistory: stockdata.GetHistoryWithRefresh,
	}
	s.tasks = newTaskRegistry(defaults.MaxConcurrentTasks, defaults.TaskTTL)
	return s
}

// ResolveConfig applies the request overrides to the defaults and
// validates the outcome against the configured size limits.
func (s *SimulationService) ResolveConfig(req model.SimulationRequest) (montecarlo.SimulationConfig, error) {
	cfg := req.Config.Apply(s.Defaults.Config)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, s.Defaults.Limits.Check(cfg, s.samplePaths(req))
}

func (s *SimulationService) samplePaths(req model.SimulationRequest) int {
	if req.SamplePaths != nil {
		return *req.SamplePaths
	}
	return s.Defaults.SamplePaths
}

// RunSimulation runs one simulation synchronously.
func (s *SimulationService) RunSimulation(ctx context.Context, req model.SimulationRequest) (*model.SimulationResponse, error) {
	return s.run(ctx, req, nil)
}

func (s *SimulationService) run(ctx context.Context, req model.SimulationRequest, onProgress montecarlo.ProgressFunc) (resp *model.SimulationResponse, err error) {
	start := time.Now()
	defer func() {
		metrics.SimulationRuns.WithLabelValues(runStatus(err)).Inc()
	}()

	req.Ticker = strings.TrimSpace(req.Ticker)
	if req.Ticker == "" && len(req.Prices) == 0 {
		return nil, errors.Wrap(montecarlo.ErrInvalidConfig, "ticker or prices required")
	}

	cfg, err := s.ResolveConfig(req)
	if err != nil {
		return nil, err
	}

	prices, source, err := s.loadPrices(ctx, req, cfg.HistoryWindowMonths)
	if err != nil {
		return nil, err
	}

	stats, err := montecarlo.EstimateMarketStats(prices)
	if err != nil {
		return nil, errors.Wrapf(err, "estimate %s", displayTicker(req.Ticker))
	}

	sim := montecarlo.NewSimulator(req.Seed, s.Defaults.Workers)
	if sim.Seed == 0 {
		sim.Seed = s.Defaults.Seed
	}
	sim.SamplePaths = s.samplePaths(req)
	sim.Limits = s.Defaults.Limits
	sim.OnProgress = onProgress

	result, err := sim.Run(ctx, cfg, stats)
	if err != nil {
		return nil, err
	}
	summary := report.Summarize(result, stats, cfg)

	elapsed := time.Since(start)
	metrics.SimulatedPaths.Add(float64(result.NumPaths()))
	metrics.TriggeredPaths.Add(float64(summary.TriggeredPaths))
	metrics.SimulationDuration.Observe(elapsed.Seconds())

	resp = &model.SimulationResponse{
		Ticker:        req.Ticker,
		HistorySource: source,
		Observations:  len(prices),
		Config:        cfg,
		Stats:         stats,
		Summary:       summary,
		DurationMs:    elapsed.Milliseconds(),
	}
	if !req.SummaryOnly {
		resp.Result = result
	}

	if s.Store != nil && !req.SkipPersist {
		run := &store.Run{
			Ticker:  displayTicker(req.Ticker),
			Config:  cfg,
			Stats:   stats,
			Summary: summary,
		}
		if err := s.Store.SaveRun(ctx, run, result); err != nil {
			// the simulation itself succeeded
			log.WithError(err).Errorf("unable to persist run for %s", run.Ticker)
		} else {
			resp.RunID = run.ID
		}
	}

	log.Infof("simulated %s: %d paths, payout probability %.2f%%, loss ratio %.2f%% in %s",
		displayTicker(req.Ticker), summary.Paths, summary.PayoutProbability*100, summary.LossRatio*100, elapsed.Truncate(time.Millisecond))
	return resp, nil
}

// loadPrices returns the inline prices of req or the fetched history. Any
// failure to obtain history is reported as insufficient history.
func (s *SimulationService) loadPrices(ctx context.Context, req model.SimulationRequest, months int) ([]float64, string, error) {
	if len(req.Prices) > 0 {
		return req.Prices, "inline", nil
	}

	h, err := s.FetchHistory(ctx, req.Ticker, months, req.Refresh)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		return nil, "", errors.Wrapf(montecarlo.ErrInsufficientHistory, "fetch history %s: %v", req.Ticker, err)
	}
	return h.Closes, h.Source, nil
}

func displayTicker(ticker string) string {
	if ticker == "" {
		return "inline"
	}
	return ticker
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, montecarlo.ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, montecarlo.ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
