package report

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"stock-insurance-backend/internal/montecarlo"
)

// TargetLossRatios are the loss ratios an underwriter prices against.
var TargetLossRatios = []float64{0.70, 0.75, 0.80}

// Distribution describes the spread of a sample.
type Distribution struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	P10  float64 `json:"p10"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
}

// Moments are population moments, as the loss study reports them.
type Moments struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Max      float64 `json:"max"`
}

// LossRatioTarget compares the simulated loss ratio with one target.
type LossRatioTarget struct {
	Target float64 `json:"target"`
	// RequiredPremium is the mean premium at which the target would be met.
	RequiredPremium float64 `json:"required_premium"`
	Exceeded        bool    `json:"exceeded"`
}

// Summary is the ensemble report of one simulation run.
type Summary struct {
	Paths        int     `json:"paths"`
	HorizonDays  int     `json:"horizon_days"`
	InitialPrice float64 `json:"initial_price"`
	TriggerPrice float64 `json:"trigger_price"`

	TerminalPrice Distribution `json:"terminal_price"`
	// NonPositiveTerminals counts paths a tail draw drove to zero or below.
	NonPositiveTerminals int `json:"non_positive_terminals"`

	Payout            Moments `json:"payout"`
	MeanNonZeroPayout float64 `json:"mean_non_zero_payout"`
	Premium           Moments `json:"premium"`

	TriggeredPaths         int     `json:"triggered_paths"`
	PayoutProbability      float64 `json:"payout_probability"`
	NotReceivedProbability float64 `json:"not_received_probability"`

	PathsWithJumps int `json:"paths_with_jumps"`
	// JumpHistogram[k] counts the paths with exactly k jumps.
	JumpHistogram []int `json:"jump_histogram"`

	LossRatio        float64           `json:"loss_ratio"`
	LossRatioTargets []LossRatioTarget `json:"loss_ratio_targets"`

	Risk RiskMetrics `json:"risk"`
}

// Summarize computes the ensemble statistics of result. An empty result
// yields a zero summary.
func Summarize(result *montecarlo.SimulationResult, stats montecarlo.MarketStats, cfg montecarlo.SimulationConfig) Summary {
	s := Summary{
		HorizonDays:  cfg.HorizonDays,
		InitialPrice: stats.InitialPrice,
		TriggerPrice: stats.InitialPrice * (1 - cfg.TriggerDropFraction),
	}
	if result == nil || result.NumPaths() == 0 {
		return s
	}

	n := result.NumPaths()
	s.Paths = n
	s.TerminalPrice = distribution(result.TerminalPrices)
	for _, p := range result.TerminalPrices {
		if p <= 0 {
			s.NonPositiveTerminals++
		}
	}
	s.Payout = moments(result.Payouts)
	s.Premium = moments(result.Premiums)

	var nonZero []float64
	for _, p := range result.Payouts {
		if p > 0 {
			nonZero = append(nonZero, p)
		}
	}
	s.TriggeredPaths = len(nonZero)
	if len(nonZero) > 0 {
		s.MeanNonZeroPayout = stat.Mean(nonZero, nil)
	}
	s.PayoutProbability = float64(s.TriggeredPaths) / float64(n)
	s.NotReceivedProbability = 1 - s.PayoutProbability

	s.JumpHistogram = jumpHistogram(result.JumpCounts)
	s.PathsWithJumps = n - s.JumpHistogram[0]

	if s.Premium.Mean > 0 {
		s.LossRatio = s.Payout.Mean / s.Premium.Mean
	}
	for _, target := range TargetLossRatios {
		s.LossRatioTargets = append(s.LossRatioTargets, LossRatioTarget{
			Target:          target,
			RequiredPremium: s.Payout.Mean / target,
			Exceeded:        s.LossRatio > target,
		})
	}

	s.Risk = riskMetrics(stats.InitialPrice, result.TerminalPrices, result.Payouts)
	return s
}

func distribution(x []float64) Distribution {
	sorted := sortedCopy(x)
	d := Distribution{
		Mean: stat.Mean(x, nil),
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		P10:  percentile(sorted, 10),
		P50:  percentile(sorted, 50),
		P90:  percentile(sorted, 90),
	}
	if len(x) > 1 {
		d.Std = stat.StdDev(x, nil)
	}
	return d
}

func moments(x []float64) Moments {
	mean, variance := stat.PopMeanVariance(x, nil)
	m := Moments{Mean: mean, Variance: variance, Max: math.Inf(-1)}
	for _, v := range x {
		m.Max = math.Max(m.Max, v)
	}
	return m
}

func jumpHistogram(counts []int) []int {
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	hist := make([]int, maxCount+1)
	for _, c := range counts {
		hist[c]++
	}
	return hist
}
