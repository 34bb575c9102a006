package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SimulationRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insurance_simulation_runs_total",
		Help: "Simulation runs by outcome (ok, invalid_config, insufficient_history, canceled, error)",
	}, []string{"status"})

	SimulatedPaths = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "insurance_simulated_paths_total",
		Help: "Monte Carlo paths simulated",
	})

	TriggeredPaths = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "insurance_triggered_paths_total",
		Help: "Simulated paths that breached the barrier and paid out",
	})

	SimulationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "insurance_simulation_duration_seconds",
		Help:    "Wall time of a successful simulation run, history fetch included",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	HistoryFetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insurance_history_fetch_failures_total",
		Help: "Price history fetches that failed after retries, by source",
	}, []string{"source"})

	HistoryCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "insurance_history_cache_hits_total",
		Help: "Price history windows served from cache",
	})

	RunningTasks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "insurance_simulation_tasks_running",
		Help: "Asynchronous simulation tasks currently running",
	})
)

func init() {
	prometheus.MustRegister(
		SimulationRuns, SimulatedPaths, TriggeredPaths, SimulationDuration,
		HistoryFetchFailures, HistoryCacheHits, RunningTasks,
	)
}
