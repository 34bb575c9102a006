package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"

	"stock-insurance-backend/internal/montecarlo"
	"stock-insurance-backend/internal/report"
)

var log = logrus.WithField("component", "store")

const DefaultDBFileName = "simulations.db"

// fixed width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("simulation run not found")

// Run is one persisted simulation with its inputs and ensemble report.
type Run struct {
	ID        string                      `json:"id"`
	Ticker    string                      `json:"ticker"`
	CreatedAt time.Time                   `json:"created_at"`
	Config    montecarlo.SimulationConfig `json:"config"`
	Stats     montecarlo.MarketStats      `json:"stats"`
	Summary   report.Summary              `json:"summary"`
}

// Store keeps completed runs in a SQLite database.
type Store struct {
	db *sql.DB
}

// ResolvePath maps a directory (or an extension-less path) to the default
// database file inside it.
func ResolvePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == ":memory:" {
		return p
	}
	if filepath.Ext(p) == "" {
		return filepath.Join(p, DefaultDBFileName)
	}
	if fi, err := os.Stat(p); err == nil && fi.IsDir() {
		return filepath.Join(p, DefaultDBFileName)
	}
	return p
}

// Open opens (and creates if needed) the database at path. ":memory:"
// opens a private in-memory database.
func Open(path string) (*Store, error) {
	path = ResolvePath(path)
	if path == "" {
		return nil, errors.New("empty database path")
	}

	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
		dsn = "file:" + filepath.ToSlash(path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// sqlite serializes writers; one connection also keeps :memory: shared
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys=ON;", "PRAGMA busy_timeout=5000;"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "exec %s", pragma)
		}
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Infof("simulation store opened at %s", path)
	return &Store{db: db}, nil
}

// EnsureSchema creates the run tables when missing.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS simulation_runs (
			id TEXT PRIMARY KEY,
			ticker TEXT NOT NULL,
			created_at TEXT NOT NULL,
			config TEXT NOT NULL,
			stats TEXT NOT NULL,
			summary TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_simulation_runs_created ON simulation_runs(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_simulation_runs_ticker ON simulation_runs(ticker);`,
		`CREATE TABLE IF NOT EXISTS simulation_paths (
			run_id TEXT NOT NULL REFERENCES simulation_runs(id) ON DELETE CASCADE,
			path_index INTEGER NOT NULL,
			terminal_price REAL NOT NULL,
			jump_count INTEGER NOT NULL,
			payout REAL NOT NULL,
			premium REAL NOT NULL,
			PRIMARY KEY (run_id, path_index)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return errors.Wrap(err, "ensure schema")
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores run and the per-path outputs of result in one
// transaction. An empty run.ID gets a new uuid; a zero CreatedAt gets now.
func (s *Store) SaveRun(ctx context.Context, run *Run, result *montecarlo.SimulationResult) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return errors.Wrap(err, "marshal stats")
	}
	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return errors.Wrap(err, "marshal summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO simulation_runs(id, ticker, created_at, config, stats, summary) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Ticker, run.CreatedAt.UTC().Format(timeLayout), string(cfgJSON), string(statsJSON), string(summaryJSON),
	); err != nil {
		_ = tx.Rollback()
		return errors.Wrapf(err, "insert run %s", run.ID)
	}

	if result != nil && result.NumPaths() > 0 {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO simulation_paths(
  run_id, path_index, terminal_price, jump_count, payout, premium
) VALUES (?, ?, ?, ?, ?, ?)
`)
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrap(err, "prepare path insert")
		}
		defer stmt.Close()

		for i := 0; i < result.NumPaths(); i++ {
			if _, err := stmt.ExecContext(ctx,
				run.ID,
				i,
				result.TerminalPrices[i],
				result.JumpCounts[i],
				result.Payouts[i],
				result.Premiums[i],
			); err != nil {
				_ = tx.Rollback()
				return errors.Wrapf(err, "insert path %d", i)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit run")
	}
	log.Debugf("saved run %s (%s) with %d paths", run.ID, run.Ticker, pathCount(result))
	return nil
}

func pathCount(result *montecarlo.SimulationResult) int {
	if result == nil {
		return 0
	}
	return result.NumPaths()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                             Run
		createdAt                       string
		cfgJSON, statsJSON, summaryJSON string
	)
	if err := row.Scan(&run.ID, &run.Ticker, &createdAt, &cfgJSON, &statsJSON, &summaryJSON); err != nil {
		return nil, err
	}

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, errors.Wrapf(err, "parse created_at of run %s", run.ID)
	}
	run.CreatedAt = t

	if err := json.Unmarshal([]byte(cfgJSON), &run.Config); err != nil {
		return nil, errors.Wrapf(err, "decode config of run %s", run.ID)
	}
	if err := json.Unmarshal([]byte(statsJSON), &run.Stats); err != nil {
		return nil, errors.Wrapf(err, "decode stats of run %s", run.ID)
	}
	if err := json.Unmarshal([]byte(summaryJSON), &run.Summary); err != nil {
		return nil, errors.Wrapf(err, "decode summary of run %s", run.ID)
	}
	return &run, nil
}

// GetRun loads the run with the given id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, ticker, created_at, config, stats, summary FROM simulation_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get run %s", id)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means 50.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ticker, created_at, config, stats, summary FROM simulation_runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, errors.Wrap(rows.Err(), "iterate runs")
}

// GetRunResult reloads the per-path outputs of a run in path order.
func (s *Store) GetRunResult(ctx context.Context, id string) (*montecarlo.SimulationResult, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT terminal_price, jump_count, payout, premium FROM simulation_paths WHERE run_id = ? ORDER BY path_index`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "query paths of run %s", id)
	}
	defer rows.Close()

	result := &montecarlo.SimulationResult{}
	for rows.Next() {
		var (
			terminal, payout, premium float64
			jumps                     int
		)
		if err := rows.Scan(&terminal, &jumps, &payout, &premium); err != nil {
			return nil, errors.Wrapf(err, "scan path of run %s", id)
		}
		result.TerminalPrices = append(result.TerminalPrices, terminal)
		result.JumpCounts = append(result.JumpCounts, jumps)
		result.Payouts = append(result.Payouts, payout)
		result.Premiums = append(result.Premiums, premium)
	}
	return result, errors.Wrap(rows.Err(), "iterate paths")
}

// DeleteRun removes a run and its paths.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM simulation_runs WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "delete run %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}
