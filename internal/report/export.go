package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"stock-insurance-backend/internal/montecarlo"
)

// CSVHeader is the first line written by WriteCSV.
var CSVHeader = []string{"path", "terminal_price", "jump_count", "payout", "premium"}

// WriteCSV writes one row per path of result.
func WriteCSV(w io.Writer, result *montecarlo.SimulationResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}

	formatFloat := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for i := 0; i < result.NumPaths(); i++ {
		row := []string{
			strconv.Itoa(i),
			formatFloat(result.TerminalPrices[i]),
			strconv.Itoa(result.JumpCounts[i]),
			formatFloat(result.Payouts[i]),
			formatFloat(result.Premiums[i]),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write csv row %d", i)
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// WritePathsJSON writes the sample paths day by day:
// [{"date":0,"sim1":...,"sim2":...}, ...].
func WritePathsJSON(w io.Writer, result *montecarlo.SimulationResult) error {
	days := 0
	for _, p := range result.SamplePaths {
		if len(p) > days {
			days = len(p)
		}
	}

	rows := make([]map[string]any, days)
	for day := range rows {
		row := map[string]any{"date": day}
		for i, p := range result.SamplePaths {
			if day < len(p) {
				row[fmt.Sprintf("sim%d", i+1)] = p[day]
			}
		}
		rows[day] = row
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(rows), "encode sample paths")
}
