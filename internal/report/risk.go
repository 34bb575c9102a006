package report

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// RiskProfile holds tail measures of a loss sample.
type RiskProfile struct {
	VaR95   float64 `json:"var_95"`
	VaR99   float64 `json:"var_99"`
	ES95    float64 `json:"es_95"`
	ES99    float64 `json:"es_99"`
	MaxLoss float64 `json:"max_loss"`
	AvgLoss float64 `json:"avg_loss"`
}

// RiskMetrics compares the holder's losses without and with the cover.
type RiskMetrics struct {
	Gross RiskProfile `json:"gross"`
	Net   RiskProfile `json:"net"`
}

// Losses returns max(initial-terminal, 0) per path.
func Losses(initial float64, terminal []float64) []float64 {
	losses := make([]float64, len(terminal))
	for i, p := range terminal {
		losses[i] = math.Max(initial-p, 0)
	}
	return losses
}

// NetLosses subtracts the payout of each path from its loss, floored at 0.
func NetLosses(losses, payouts []float64) []float64 {
	net := make([]float64, len(losses))
	for i, l := range losses {
		net[i] = math.Max(l-payouts[i], 0)
	}
	return net
}

func riskMetrics(initial float64, terminal, payouts []float64) RiskMetrics {
	losses := Losses(initial, terminal)
	return RiskMetrics{
		Gross: riskProfile(losses),
		Net:   riskProfile(NetLosses(losses, payouts)),
	}
}

func riskProfile(losses []float64) RiskProfile {
	if len(losses) == 0 {
		return RiskProfile{}
	}
	sorted := sortedCopy(losses)
	return RiskProfile{
		VaR95:   ValueAtRisk(sorted, 0.95),
		VaR99:   ValueAtRisk(sorted, 0.99),
		ES95:    ExpectedShortfall(sorted, 0.95),
		ES99:    ExpectedShortfall(sorted, 0.99),
		MaxLoss: sorted[len(sorted)-1],
		AvgLoss: stat.Mean(sorted, nil),
	}
}

// ValueAtRisk is the confidence quantile of ascending sorted losses.
func ValueAtRisk(sorted []float64, confidence float64) float64 {
	return percentile(sorted, confidence*100)
}

// ExpectedShortfall is the mean of the worst (1-confidence) share of the
// ascending sorted losses, or the worst loss when that share rounds to
// nothing.
func ExpectedShortfall(sorted []float64, confidence float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	tail := int(math.Floor((1-confidence)*float64(n) + 1e-9))
	if tail == 0 {
		return sorted[n-1]
	}
	return stat.Mean(sorted[n-tail:], nil)
}

// percentile interpolates linearly between closest ranks of sorted data.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := p / 100 * float64(n-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	w := idx - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func sortedCopy(x []float64) []float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	return sorted
}
