package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-insurance-backend/internal/montecarlo"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "SIM_NUM_PATHS", "SIM_TRIGGER_DROP", "WATCHLIST", "REDIS_ADDR", "SIM_TASK_TTL", "SIM_MAX_PATHS", "SIM_MAX_HORIZON_DAYS", "SIM_MAX_STEPS", "SIM_MAX_SAMPLE_PATHS", "TOKEN_SECRET"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, montecarlo.DefaultConfig(), cfg.Simulation.Config)
	assert.Equal(t, 3, cfg.Simulation.MaxConcurrentTasks)
	assert.Equal(t, 30*time.Minute, cfg.Simulation.TaskTTL)
	assert.Equal(t, montecarlo.DefaultLimits(), cfg.Simulation.Limits)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Auth.TokenSecret)
	assert.Empty(t, cfg.Scheduler.Watchlist)
	assert.Equal(t, "0 16 * * 1-5", cfg.Scheduler.Schedule)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SIM_NUM_PATHS", "500")
	t.Setenv("SIM_TRIGGER_DROP", "0.2")
	t.Setenv("SIM_SEED", "42")
	t.Setenv("SIM_HORIZON_DAYS", "not-a-number")
	t.Setenv("WATCHLIST", "005930.KS, 000660.KS,,600519")
	t.Setenv("SCHEDULER_RETRY_INTERVAL", "5m")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 500, cfg.Simulation.Config.NumPaths)
	assert.Equal(t, 0.2, cfg.Simulation.Config.TriggerDropFraction)
	assert.Equal(t, uint64(42), cfg.Simulation.Seed)
	assert.Equal(t, 252, cfg.Simulation.Config.HorizonDays)
	assert.Equal(t, []string{"005930.KS", "000660.KS", "600519"}, cfg.Scheduler.Watchlist)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.RetryInterval)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SIM_WORKERS=6\nPORT=7000\n"), 0o644))

	t.Setenv("PORT", "8081")
	t.Setenv("SIM_WORKERS", "")
	require.NoError(t, os.Unsetenv("SIM_WORKERS"))

	LoadEnvFile(filepath.Join(dir, "missing.env"), envFile)
	t.Cleanup(func() { _ = os.Unsetenv("SIM_WORKERS") })

	assert.Equal(t, "6", os.Getenv("SIM_WORKERS"))
	// already set variables win
	assert.Equal(t, "8081", os.Getenv("PORT"))
}

func TestLoadPreset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ticker: 005930.KS
simulation:
  numPaths: 2000
  triggerDropFraction: 0.15
`), 0o644))

	preset, err := LoadPreset(path, montecarlo.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "005930.KS", preset.Ticker)
	assert.Equal(t, 2000, preset.Simulation.NumPaths)
	assert.Equal(t, 0.15, preset.Simulation.TriggerDropFraction)
	assert.Equal(t, 0.13, preset.Simulation.JumpIntensityPerYear)

	_, err = LoadPreset(filepath.Join(dir, "nope.yaml"), montecarlo.DefaultConfig())
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel("debug"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("loud"))
}

func TestSchedulerLocation(t *testing.T) {
	loc, err := SchedulerConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = SchedulerConfig{Timezone: "Asia/Seoul"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", loc.String())

	_, err = SchedulerConfig{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}

func TestLoad_Mail(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("NOTIFY_EMAILS", "a@example.com, b@example.com")

	cfg := Load()
	assert.Equal(t, "smtp.example.com", cfg.Mail.Host)
	assert.Equal(t, 465, cfg.Mail.Port)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Mail.Recipients)
}

func TestLoad_Limits(t *testing.T) {
	t.Setenv("SIM_MAX_PATHS", "5000")
	t.Setenv("SIM_MAX_HORIZON_DAYS", "504")
	t.Setenv("SIM_MAX_STEPS", "1000000")
	t.Setenv("SIM_MAX_SAMPLE_PATHS", "bogus")

	limits := Load().Simulation.Limits
	assert.Equal(t, 5000, limits.MaxPaths)
	assert.Equal(t, 504, limits.MaxHorizonDays)
	assert.Equal(t, int64(1000000), limits.MaxSteps)
	assert.Equal(t, montecarlo.DefaultLimits().MaxSamplePaths, limits.MaxSamplePaths)

	cfg := montecarlo.DefaultConfig()
	cfg.HorizonDays = 1 << 50
	assert.ErrorIs(t, limits.Check(cfg, 0), montecarlo.ErrInvalidConfig)
}
