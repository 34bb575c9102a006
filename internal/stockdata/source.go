package stockdata

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"stock-insurance-backend/internal/metrics"
)

// Source fetches OHLCV bars from one upstream provider.
type Source interface {
	Name() string
	Supports(code string) bool
	Fetch(ctx context.Context, code, period string, limit int) ([]KlineData, error)
}

var sources = []Source{
	&yahooSource{baseURL: "https://query1.finance.yahoo.com"},
	&sinaSource{baseURL: "https://quotes.sina.cn"},
	&emSource{baseURL: "https://push2his.eastmoney.com"},
}

// FetchRetries is the number of retries per source before falling back
// to the next one.
var FetchRetries uint64 = 2

var newBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 20 * time.Second
	return b
}

var timeNow = time.Now

// SetSources replaces the upstream providers and returns a function that
// restores the previous ones.
func SetSources(s ...Source) (restore func()) {
	prev := sources
	sources = s
	return func() { sources = prev }
}

func sourcesFor(code string) []Source {
	var out []Source
	for _, s := range sources {
		if s.Supports(code) {
			out = append(out, s)
		}
	}
	return out
}

func fetchWithRetry(ctx context.Context, src Source, code, period string, limit int) ([]KlineData, error) {
	var data []KlineData
	op := func() error {
		rst, err := src.Fetch(ctx, code, period, limit)
		if err != nil {
			var se *statusError
			// client errors other than throttling will not heal on retry
			if errors.As(err, &se) && se.code >= 400 && se.code < 500 && se.code != 429 {
				return backoff.Permanent(err)
			}
			return err
		}
		data = rst
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(newBackOff(), FetchRetries), ctx))
	if err != nil {
		metrics.HistoryFetchFailures.WithLabelValues(src.Name()).Inc()
		return nil, err
	}
	return data, nil
}
