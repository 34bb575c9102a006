package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"stock-insurance-backend/internal/config"
	"stock-insurance-backend/internal/model"
	"stock-insurance-backend/internal/report"
	"stock-insurance-backend/internal/service"
	"stock-insurance-backend/internal/stockdata"
	"stock-insurance-backend/internal/store"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "simulate",
		Short: "jump-risk insurance Monte Carlo simulator",
		Long:  "Estimate drift and volatility from a ticker's history and simulate a parametric jump-insurance contract over it.",

		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
		RunE: runSimulate,
	}

	root.PersistentFlags().Bool("debug", false, "debug log level")

	flags := root.Flags()
	flags.String("ticker", "", "ticker, e.g. 005930.KS, or a six digit A-share code")
	flags.String("config", "", "YAML preset with ticker and simulation parameters")
	flags.String("prices", "", "file of closes, one per line, used instead of fetching history")
	flags.Bool("refresh", false, "bypass the history cache")

	def := config.GetSimulationDefaults()
	flags.Int("paths", def.Config.NumPaths, "number of simulated paths")
	flags.Int("days", def.Config.HorizonDays, "horizon in trading days")
	flags.Float64("lambda", def.Config.JumpIntensityPerYear, "jump intensity per year")
	flags.Float64("jump-mean", def.Config.JumpMeanReturn, "mean jump return")
	flags.Float64("jump-vol", def.Config.JumpVolatility, "jump return volatility")
	flags.Float64("trigger", def.Config.TriggerDropFraction, "trigger drop fraction in (0,1)")
	flags.Float64("premium", def.Config.DailyPremiumRate, "daily premium rate")
	flags.Float64("rate", def.Config.RiskFreeRate, "annual risk-free rate for discounting")
	flags.Int("months", def.Config.HistoryWindowMonths, "history window in months")

	flags.Uint64("seed", def.Seed, "random seed, 0 for a time based seed")
	flags.Int("workers", def.Workers, "worker goroutines, 0 for GOMAXPROCS")
	flags.Int("samples", def.SamplePaths, "paths kept in full for --json")

	flags.String("csv", "", "write per-path results to this CSV file")
	flags.String("json", "", "write sample paths to this JSON file")
	flags.String("db", "", "also store the run in this SQLite database")

	root.AddCommand(newVolatilityCmd())
	return root
}

func runSimulate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	defaults := config.GetSimulationDefaults()

	ticker, _ := flags.GetString("ticker")
	if presetPath, _ := flags.GetString("config"); presetPath != "" {
		preset, err := config.LoadPreset(presetPath, defaults.Config)
		if err != nil {
			return err
		}
		defaults.Config = preset.Simulation
		if ticker == "" {
			ticker = preset.Ticker
		}
	}

	req := model.SimulationRequest{Ticker: ticker}
	req.Refresh, _ = flags.GetBool("refresh")
	req.Seed, _ = flags.GetUint64("seed")
	defaults.Workers, _ = flags.GetInt("workers")
	defaults.SamplePaths, _ = flags.GetInt("samples")

	// flags override the preset only when given explicitly
	intFlags := map[string]**int{
		"paths":  &req.Config.NumPaths,
		"days":   &req.Config.HorizonDays,
		"months": &req.Config.HistoryWindowMonths,
	}
	for name, dst := range intFlags {
		if flags.Changed(name) {
			v, _ := flags.GetInt(name)
			*dst = &v
		}
	}
	floatFlags := map[string]**float64{
		"lambda":    &req.Config.JumpIntensityPerYear,
		"jump-mean": &req.Config.JumpMeanReturn,
		"jump-vol":  &req.Config.JumpVolatility,
		"trigger":   &req.Config.TriggerDropFraction,
		"premium":   &req.Config.DailyPremiumRate,
		"rate":      &req.Config.RiskFreeRate,
	}
	for name, dst := range floatFlags {
		if flags.Changed(name) {
			v, _ := flags.GetFloat64(name)
			*dst = &v
		}
	}

	if pricesPath, _ := flags.GetString("prices"); pricesPath != "" {
		prices, err := readPrices(pricesPath)
		if err != nil {
			return err
		}
		req.Prices = prices
	}

	var runStore service.RunStore
	if dbPath, _ := flags.GetString("db"); dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		runStore = st
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sim := service.NewSimulationService(defaults, runStore)
	resp, err := sim.RunSimulation(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if resp.Ticker != "" {
		fmt.Fprintf(out, "%s (%s, %d closes)\n", resp.Ticker, resp.HistorySource, resp.Observations)
	}
	fmt.Fprintf(out, "drift/day %.6f, vol/day %.6f, last close %.2f\n", resp.Stats.DriftPerStep, resp.Stats.VolPerStep, resp.Stats.InitialPrice)
	report.WriteTable(out, resp.Summary)
	if resp.RunID != "" {
		fmt.Fprintf(out, "stored as run %s\n", resp.RunID)
	}

	if csvPath, _ := flags.GetString("csv"); csvPath != "" {
		if err := writeFile(csvPath, func(w io.Writer) error { return report.WriteCSV(w, resp.Result) }); err != nil {
			return err
		}
	}
	if jsonPath, _ := flags.GetString("json"); jsonPath != "" {
		if err := writeFile(jsonPath, func(w io.Writer) error { return report.WritePathsJSON(w, resp.Result) }); err != nil {
			return err
		}
	}
	return nil
}

func newVolatilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volatility TICKER",
		Short: "annualized volatility over 1, 3, 5 and 10 year windows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			years, _ := cmd.Flags().GetIntSlice("years")
			rpt, err := stockdata.GetVolatilityReport(cmd.Context(), args[0], years)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(report.NewTableStyle())
			t.SetTitle(fmt.Sprintf("%s (%s)", rpt.Code, rpt.Source))
			t.AppendHeader(table.Row{"years", "observations", "volatility"})
			for _, w := range rpt.Windows {
				vol := fmt.Sprintf("%.2f%%", w.Volatility*100)
				if w.Error != "" {
					vol = w.Error
				}
				t.AppendRow(table.Row{w.Years, w.Observations, vol})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntSlice("years", stockdata.DefaultVolatilityYears, "look-back windows in years")
	return cmd
}

// readPrices reads one close per line. Blank lines and a non-numeric
// header are skipped; for CSV lines the last column is used.
func readPrices(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open prices %s", path)
	}
	defer f.Close()

	var prices []float64
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, ",")
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[len(fields)-1]), 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, errors.Wrapf(err, "%s:%d", path, line)
		}
		prices = append(prices, v)
	}
	return prices, errors.Wrapf(scanner.Err(), "read prices %s", path)
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
