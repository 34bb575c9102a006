package stockdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"stock-insurance-backend/internal/metrics"
)

// HistoryCacheTTL bounds how long a fetched price window is reused.
var HistoryCacheTTL = 6 * time.Hour

// History is a chronological window of daily closes.
type History struct {
	Code   string    `json:"code"`
	Source string    `json:"source"`
	Months int       `json:"months"`
	Dates  []string  `json:"dates"`
	Closes []float64 `json:"closes"`
}

// Len returns the number of observations.
func (h *History) Len() int {
	return len(h.Closes)
}

// GetHistory returns the daily closes of the last months months.
func GetHistory(ctx context.Context, code string, months int) (*History, error) {
	return GetHistoryWithRefresh(ctx, code, months, false)
}

// GetHistoryWithRefresh bypasses the cache when refresh is set and stores
// the fresh window either way.
func GetHistoryWithRefresh(ctx context.Context, code string, months int, refresh bool) (*History, error) {
	if code == "" {
		return nil, fmt.Errorf("empty stock code")
	}
	if months <= 0 {
		return nil, fmt.Errorf("history window must be positive, got %d months", months)
	}

	now := timeNow()
	key := historyCacheKey(code, months, now)
	cache := getCacheProvider()

	if !refresh {
		var cached History
		if err := cache.Get(key, &cached); err == nil && cached.Len() > 0 {
			metrics.HistoryCacheHits.Inc()
			return &cached, nil
		}
	}

	// ~21 trading days a month, plus slack for holidays in the window edge
	limit := months*23 + 5
	resp, err := GetKline(ctx, code, "daily", limit)
	if err != nil {
		return nil, err
	}

	h := buildHistory(code, months, resp, now)
	if err := cache.Set(key, h, HistoryCacheTTL); err != nil {
		log.WithError(err).Warnf("unable to cache history %s", key)
	}

	log.Infof("history %s: %d closes over %d months from %s", code, h.Len(), months, h.Source)
	return h, nil
}

// InvalidateHistory drops the cached window for code.
func InvalidateHistory(code string, months int) error {
	return errors.Wrap(getCacheProvider().Delete(historyCacheKey(code, months, timeNow())), "invalidate history")
}

func buildHistory(code string, months int, resp *KlineResponse, now time.Time) *History {
	bars := append([]KlineData(nil), resp.Data...)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })

	start := now.AddDate(0, -months, 0).Format("2006-01-02")
	h := &History{Code: code, Source: resp.Source, Months: months}
	for _, bar := range bars {
		if bar.Date < start || bar.Close <= 0 {
			continue
		}
		h.Dates = append(h.Dates, bar.Date)
		h.Closes = append(h.Closes, bar.Close)
	}
	return h
}

func historyCacheKey(code string, months int, now time.Time) string {
	return fmt.Sprintf("history:%s:%d:%s", code, months, now.Format("20060102"))
}
