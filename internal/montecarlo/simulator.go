package montecarlo

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var log = logrus.WithField("component", "montecarlo")

// ProgressFunc receives the number of completed paths. It may be called
// from several workers at once.
type ProgressFunc func(done, total int)

// Simulator runs independent paths over a pool of workers.
type Simulator struct {
	// Workers defaults to GOMAXPROCS.
	Workers int

	// Seed for the default source factory. Zero means a time based seed.
	Seed uint64

	// NewSource overrides the per-worker random source.
	NewSource SourceFactory

	// SamplePaths is the number of leading paths kept in full.
	SamplePaths int

	OnProgress ProgressFunc

	// Limits are checked before anything is allocated.
	Limits Limits
}

// NewSimulator returns a simulator seeded with seed, bounded by
// DefaultLimits.
func NewSimulator(seed uint64, workers int) *Simulator {
	return &Simulator{Seed: seed, Workers: workers, Limits: DefaultLimits()}
}

func (s *Simulator) workers(numPaths int) int {
	n := s.Workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n > numPaths {
		n = numPaths
	}
	return n
}

func (s *Simulator) sourceFactory() SourceFactory {
	if s.NewSource != nil {
		return s.NewSource
	}
	seed := s.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return SeededFactory(seed)
}

// Run validates the inputs and simulates cfg.NumPaths paths. Worker w
// simulates a contiguous block of path indexes with its own source, so a
// fixed seed and worker count always yield the same result. A cancelled
// context aborts the run without a partial result.
func (s *Simulator) Run(ctx context.Context, cfg SimulationConfig, stats MarketStats) (*SimulationResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.Limits.Check(cfg, s.SamplePaths); err != nil {
		return nil, err
	}
	if err := stats.Validate(); err != nil {
		return nil, err
	}

	var (
		total   = cfg.NumPaths
		workers = s.workers(total)
		factory = s.sourceFactory()
		result  = newSimulationResult(total, s.SamplePaths)
		done    int64
		step    = total / 100
		start   = time.Now()
	)
	if step == 0 {
		step = 1
	}

	log.Debugf("simulating %d paths x %d days on %d workers", total, cfg.HorizonDays, workers)

	g, gctx := errgroup.WithContext(ctx)
	chunk := (total + workers - 1) / workers
	for w := 0; w < workers; w++ {
		from := w * chunk
		to := from + chunk
		if to > total {
			to = total
		}
		if from >= to {
			break
		}

		rnd := factory(w)
		g.Go(func() error {
			for i := from; i < to; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}

				path := SimulatePath(cfg, stats, rnd)
				result.collect(i, &path)

				n := atomic.AddInt64(&done, 1)
				if s.OnProgress != nil && (n%int64(step) == 0 || n == int64(total)) {
					s.OnProgress(int(n), total)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Debugf("simulated %d paths in %s", total, time.Since(start))
	return result, nil
}
