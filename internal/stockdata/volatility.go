package stockdata

import (
	"context"
	"math"
	"sort"

	"stock-insurance-backend/internal/montecarlo"
)

// DefaultVolatilityYears are the look-back windows of the volatility report.
var DefaultVolatilityYears = []int{1, 3, 5, 10}

// VolatilityWindow is the annualized volatility over one look-back window.
type VolatilityWindow struct {
	Years        int     `json:"years"`
	Observations int     `json:"observations"`
	Volatility   float64 `json:"volatility"`
	Error        string  `json:"error,omitempty"`
}

// VolatilityReport groups the windows computed for one code.
type VolatilityReport struct {
	Code    string             `json:"code"`
	Source  string             `json:"source"`
	Windows []VolatilityWindow `json:"windows"`
}

// AnnualizedVolatility is the sample standard deviation of daily simple
// returns scaled by sqrt(252).
func AnnualizedVolatility(closes []float64) (float64, error) {
	stats, err := montecarlo.EstimateMarketStats(closes)
	if err != nil {
		return 0, err
	}
	return stats.VolPerStep * math.Sqrt(montecarlo.TradingDaysPerYear), nil
}

// GetVolatilityReport fetches the longest window once and slices the
// shorter ones out of it.
func GetVolatilityReport(ctx context.Context, code string, years []int) (*VolatilityReport, error) {
	if len(years) == 0 {
		years = DefaultVolatilityYears
	}
	years = append([]int(nil), years...)
	sort.Ints(years)

	longest, err := GetHistory(ctx, code, years[len(years)-1]*12)
	if err != nil {
		return nil, err
	}

	report := &VolatilityReport{Code: code, Source: longest.Source}
	now := timeNow()
	for _, y := range years {
		start := now.AddDate(-y, 0, 0).Format("2006-01-02")
		idx := sort.SearchStrings(longest.Dates, start)
		closes := longest.Closes[idx:]

		w := VolatilityWindow{Years: y, Observations: len(closes)}
		vol, err := AnnualizedVolatility(closes)
		if err != nil {
			w.Error = err.Error()
		} else {
			w.Volatility = vol
		}
		report.Windows = append(report.Windows, w)
	}
	return report, nil
}
