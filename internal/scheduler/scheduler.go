package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"stock-insurance-backend/internal/config"
	"stock-insurance-backend/internal/model"
)

var log = logrus.WithField("component", "scheduler")

// Simulator runs one simulation request.
type Simulator interface {
	RunSimulation(ctx context.Context, req model.SimulationRequest) (*model.SimulationResponse, error)
}

// Calendar tells trading days apart.
type Calendar interface {
	IsTradingDay(date time.Time) bool
}

// Notifier delivers the job report.
type Notifier interface {
	Notify(subject, body string) error
}

// TickerResult is the outcome of one watchlist ticker.
type TickerResult struct {
	Ticker            string
	RunID             string
	PayoutProbability float64
	LossRatio         float64
	Err               error
}

// Scheduler refreshes the watchlist history after the close and stores a
// default simulation per ticker.
type Scheduler struct {
	cfg  config.SchedulerConfig
	sim  Simulator
	cron *cron.Cron

	// Calendar and Notifier are optional.
	Calendar Calendar
	Notifier Notifier

	// Pause spaces out the tickers so upstream feeds do not throttle us.
	Pause time.Duration

	now func() time.Time

	mu      sync.Mutex
	running bool
}

func New(cfg config.SchedulerConfig, sim Simulator) *Scheduler {
	return &Scheduler{
		cfg:   cfg,
		sim:   sim,
		Pause: 3 * time.Second,
		now:   time.Now,
	}
}

// Start registers the cron job. It returns without scheduling anything
// when the job is disabled or the watchlist is empty.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		log.Info("post-market simulation job disabled")
		return nil
	}
	if len(s.cfg.Watchlist) == 0 {
		log.Info("empty watchlist, post-market simulation job not scheduled")
		return nil
	}

	loc, err := s.cfg.Location()
	if err != nil {
		return err
	}

	s.cron = cron.New(cron.WithLocation(loc))
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.runScheduled(ctx)
	}); err != nil {
		return errors.Wrapf(err, "invalid schedule %q", s.cfg.Schedule)
	}
	s.cron.Start()

	log.Infof("post-market simulation job scheduled at %q for %d tickers, retries: %d every %s",
		s.cfg.Schedule, len(s.cfg.Watchlist), s.cfg.RetryCount, s.cfg.RetryInterval)
	return nil
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	if s.Calendar != nil && !s.Calendar.IsTradingDay(s.now()) {
		log.Info("market closed today, skipping post-market job")
		return
	}
	s.RunWithRetry(ctx)
}

// Stop halts the cron and waits for a running job.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunWithRetry runs the job, retrying the whole watchlist while too many
// tickers fail. Overlapping invocations are skipped.
func (s *Scheduler) RunWithRetry(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Warn("previous post-market job still running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	var (
		results []TickerResult
		err     error
	)
	for i := 0; i <= s.cfg.RetryCount; i++ {
		if i > 0 {
			log.Infof("retrying post-market job (%d/%d)", i, s.cfg.RetryCount)
		}

		results, err = s.RunOnce(ctx)
		if err == nil {
			break
		}
		log.WithError(err).Warn("post-market job failed")

		if i < s.cfg.RetryCount {
			if sleep(ctx, s.cfg.RetryInterval) != nil {
				return
			}
		}
	}
	if err != nil {
		log.Errorf("post-market job failed after %d retries", s.cfg.RetryCount)
	}
	s.notify(results, err)
}

func (s *Scheduler) notify(results []TickerResult, jobErr error) {
	if s.Notifier == nil || len(results) == 0 {
		return
	}

	subject := fmt.Sprintf("[insurance] post-market simulations %s", s.now().Format("2006-01-02"))
	if jobErr != nil {
		subject += " (failed)"
	}
	if err := s.Notifier.Notify(subject, RenderReport(results)); err != nil {
		log.WithError(err).Warn("unable to send job report")
	}
}

// RenderReport formats the per-ticker outcomes as an HTML table.
func RenderReport(results []TickerResult) string {
	var b strings.Builder
	b.WriteString(`<table border="1" cellpadding="4"><tr><th>ticker</th><th>payout probability</th><th>loss ratio</th><th>run</th></tr>`)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(&b, `<tr><td>%s</td><td colspan="3">%s</td></tr>`, html.EscapeString(r.Ticker), html.EscapeString(r.Err.Error()))
			continue
		}
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%.2f%%</td><td>%.2f%%</td><td>%s</td></tr>",
			html.EscapeString(r.Ticker), r.PayoutProbability*100, r.LossRatio*100, html.EscapeString(r.RunID))
	}
	b.WriteString("</table>")
	return b.String()
}

// RunOnce simulates every watchlist ticker on refreshed history. It fails
// when more than half of the tickers fail.
func (s *Scheduler) RunOnce(ctx context.Context) ([]TickerResult, error) {
	start := time.Now()
	succeeded, failed := 0, 0
	results := make([]TickerResult, 0, len(s.cfg.Watchlist))

	for i, ticker := range s.cfg.Watchlist {
		if i > 0 {
			if err := sleep(ctx, s.Pause); err != nil {
				return results, err
			}
		}

		resp, err := s.sim.RunSimulation(ctx, model.SimulationRequest{
			Ticker:      ticker,
			Refresh:     true,
			SummaryOnly: true,
		})
		if err != nil {
			log.WithError(err).Warnf("simulation of %s failed", ticker)
			results = append(results, TickerResult{Ticker: ticker, Err: err})
			failed++
			continue
		}
		succeeded++
		results = append(results, TickerResult{
			Ticker:            ticker,
			RunID:             resp.RunID,
			PayoutProbability: resp.Summary.PayoutProbability,
			LossRatio:         resp.Summary.LossRatio,
		})
		log.Infof("%s: payout probability %.2f%%, loss ratio %.2f%%, run %s",
			ticker, resp.Summary.PayoutProbability*100, resp.Summary.LossRatio*100, resp.RunID)
	}

	log.Infof("post-market job finished in %s, succeeded: %d, failed: %d",
		time.Since(start).Truncate(time.Millisecond), succeeded, failed)

	if failed > len(s.cfg.Watchlist)/2 {
		return results, fmt.Errorf("too many failures: %d/%d", failed, len(s.cfg.Watchlist))
	}
	return results, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
