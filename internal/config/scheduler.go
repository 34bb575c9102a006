package config

import (
	"time"

	"github.com/pkg/errors"
)

// SchedulerConfig drives the post-market watchlist job.
type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
	// cron expression, default "0 16 * * 1-5" (weekdays after the close)
	Schedule  string   `json:"schedule"`
	Watchlist []string `json:"watchlist"`

	// per-ticker retries when the upstream feed is not settled yet
	RetryCount    int           `json:"retry_count"`
	RetryInterval time.Duration `json:"retry_interval"`

	// exchange time zone of the schedule and the holiday calendar
	Timezone    string `json:"timezone"`
	HolidayFile string `json:"holiday_file"`
}

// GetSchedulerConfig reads the scheduler section from the environment.
func GetSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:       getEnvBool("SCHEDULER_ENABLED", true),
		Schedule:      getEnvString("SCHEDULER_SCHEDULE", "0 16 * * 1-5"),
		Watchlist:     getEnvList("WATCHLIST", nil),
		RetryCount:    getEnvInt("SCHEDULER_RETRY_COUNT", 3),
		RetryInterval: getEnvDuration("SCHEDULER_RETRY_INTERVAL", 30*time.Minute),
		Timezone:      getEnvString("MARKET_TIMEZONE", "Asia/Seoul"),
		HolidayFile:   getEnvString("HOLIDAY_FILE", "holidays.json"),
	}
}

// Location resolves Timezone, falling back to UTC when it is empty.
func (c SchedulerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	return loc, errors.Wrapf(err, "load timezone %q", c.Timezone)
}
