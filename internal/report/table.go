package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// NewTableStyle is the rounded style used for every rendered report.
func NewTableStyle() table.Style {
	style := table.StyleRounded
	style.Format.Header = text.FormatDefault
	return style
}

// WriteTable renders s as a two-column text table.
func WriteTable(w io.Writer, s Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(NewTableStyle())
	t.SetTitle("Jump insurance simulation")
	t.AppendHeader(table.Row{"metric", "value"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})

	money := func(v float64) string { return fmt.Sprintf("%.2f", v) }
	pct := func(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }

	t.AppendRows([]table.Row{
		{"paths", s.Paths},
		{"horizon (days)", s.HorizonDays},
		{"initial price", money(s.InitialPrice)},
		{"trigger price", money(s.TriggerPrice)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"terminal mean", money(s.TerminalPrice.Mean)},
		{"terminal std", money(s.TerminalPrice.Std)},
		{"terminal p10 / p50 / p90", fmt.Sprintf("%s / %s / %s", money(s.TerminalPrice.P10), money(s.TerminalPrice.P50), money(s.TerminalPrice.P90))},
		{"terminal min / max", fmt.Sprintf("%s / %s", money(s.TerminalPrice.Min), money(s.TerminalPrice.Max))},
		{"non-positive terminals", fmt.Sprintf("%d", s.NonPositiveTerminals)},
		{"paths with jumps", s.PathsWithJumps},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"payout mean", money(s.Payout.Mean)},
		{"payout variance", money(s.Payout.Variance)},
		{"payout mean (non-zero)", money(s.MeanNonZeroPayout)},
		{"premium mean", money(s.Premium.Mean)},
		{"premium variance", money(s.Premium.Variance)},
		{"payout received", fmt.Sprintf("%d (%s)", s.TriggeredPaths, pct(s.PayoutProbability))},
		{"payout not received", pct(s.NotReceivedProbability)},
		{"loss ratio", pct(s.LossRatio)},
	})
	for _, target := range s.LossRatioTargets {
		status := "within"
		if target.Exceeded {
			status = "exceeded"
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("target %s", pct(target.Target)),
			fmt.Sprintf("%s, premium %s", status, money(target.RequiredPremium)),
		})
	}
	t.AppendSeparator()
	for _, row := range []struct {
		name string
		p    RiskProfile
	}{
		{"gross", s.Risk.Gross},
		{"net", s.Risk.Net},
	} {
		t.AppendRows([]table.Row{
			{row.name + " VaR 95 / 99", fmt.Sprintf("%s / %s", money(row.p.VaR95), money(row.p.VaR99))},
			{row.name + " ES 95 / 99", fmt.Sprintf("%s / %s", money(row.p.ES95), money(row.p.ES99))},
			{row.name + " max / avg loss", fmt.Sprintf("%s / %s", money(row.p.MaxLoss), money(row.p.AvgLoss))},
		})
	}
	t.Render()
}
