package stockdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// yahooSource serves exchange-suffixed tickers such as 005930.KS or AAPL.
type yahooSource struct {
	baseURL string
}

func (s *yahooSource) Name() string { return "yahoo" }

func (s *yahooSource) Supports(code string) bool {
	return code != "" && !IsAShareCode(code)
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (s *yahooSource) Fetch(ctx context.Context, code, period string, limit int) ([]KlineData, error) {
	interval, barDays := "1d", 1.5
	switch period {
	case "weekly":
		interval, barDays = "1wk", 7
	case "monthly":
		interval, barDays = "1mo", 31
	}

	end := timeNow()
	start := end.Add(-time.Duration(float64(limit)*barDays*24) * time.Hour)

	q := url.Values{}
	q.Set("period1", fmt.Sprint(start.Unix()))
	q.Set("period2", fmt.Sprint(end.Unix()))
	q.Set("interval", interval)
	q.Set("events", "history")

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", s.baseURL, url.PathEscape(strings.ToUpper(code)), q.Encode())
	req, err := newRequest(ctx, reqURL, "")
	if err != nil {
		return nil, err
	}
	body, err := doRequest(req)
	if err != nil {
		return nil, err
	}

	var chart yahooChartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo: %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	res := chart.Chart.Result[0]
	quote := res.Indicators.Quote[0]
	loc := time.FixedZone(res.Meta.Symbol, int(res.Meta.GMTOffset))

	result := make([]KlineData, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		closePrice := valueAt(quote.Close, i)
		// halted or not-yet-settled sessions come back as null
		if closePrice == 0 {
			continue
		}
		result = append(result, KlineData{
			Date:   time.Unix(ts, 0).In(loc).Format("2006-01-02"),
			Open:   valueAt(quote.Open, i),
			Close:  closePrice,
			High:   valueAt(quote.High, i),
			Low:    valueAt(quote.Low, i),
			Volume: valueAt(quote.Volume, i),
		})
	}

	if len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func valueAt(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}
