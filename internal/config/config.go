package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"stock-insurance-backend/internal/montecarlo"
)

var log = logrus.WithField("component", "config")

type ServerConfig struct {
	Port         string   `json:"port"`
	GinMode      string   `json:"gin_mode"`
	AllowOrigins []string `json:"allow_origins"`
}

type AuthConfig struct {
	// InviteCode empty disables authentication.
	InviteCode  string        `json:"-"`
	TokenSecret string        `json:"-"`
	TokenTTL    time.Duration `json:"token_ttl"`
}

type RedisConfig struct {
	// Addr empty keeps the in-memory history cache.
	Addr     string `json:"addr"`
	Password string `json:"-"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

// MailConfig is the SMTP account used for job notifications.
type MailConfig struct {
	Host       string   `json:"host"`
	Port       int      `json:"port"`
	User       string   `json:"user"`
	Pass       string   `json:"-"`
	Recipients []string `json:"recipients"`
}

type StoreConfig struct {
	Path string `json:"path"`
}

// SimulationDefaults are applied to every run unless a request overrides
// them.
type SimulationDefaults struct {
	Config      montecarlo.SimulationConfig `json:"config"`
	Workers     int                         `json:"workers"`
	Seed        uint64                      `json:"seed"`
	SamplePaths int                         `json:"sample_paths"`
	Limits      montecarlo.Limits           `json:"limits"`

	MaxConcurrentTasks int           `json:"max_concurrent_tasks"`
	TaskTTL            time.Duration `json:"task_ttl"`
}

// Config is the whole server configuration.
type Config struct {
	LogLevel   string             `json:"log_level"`
	Server     ServerConfig       `json:"server"`
	Auth       AuthConfig         `json:"auth"`
	Redis      RedisConfig        `json:"redis"`
	Store      StoreConfig        `json:"store"`
	Simulation SimulationDefaults `json:"simulation"`
	Scheduler  SchedulerConfig    `json:"scheduler"`
	Mail       MailConfig         `json:"mail"`
}

// LoadEnvFile loads dotenv files into the environment without overriding
// variables already set. Missing files are skipped.
func LoadEnvFile(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			log.Debugf("%s not found, using system environment", f)
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.WithError(err).Warnf("unable to load %s", f)
		}
	}
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		LogLevel: getEnvString("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:         getEnvString("PORT", "8080"),
			GinMode:      getEnvString("GIN_MODE", "release"),
			AllowOrigins: getEnvList("CORS_ALLOW_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		},
		Auth: AuthConfig{
			InviteCode:  os.Getenv("INVITE_CODE"),
			TokenSecret: os.Getenv("TOKEN_SECRET"),
			TokenTTL:    getEnvDuration("TOKEN_TTL", 7*24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			Prefix:   getEnvString("REDIS_PREFIX", "stock-insurance:"),
		},
		Store: StoreConfig{
			Path: getEnvString("SIM_DB_PATH", "data"),
		},
		Simulation: GetSimulationDefaults(),
		Scheduler:  GetSchedulerConfig(),
		Mail: MailConfig{
			Host:       os.Getenv("SMTP_HOST"),
			Port:       getEnvInt("SMTP_PORT", 465),
			User:       os.Getenv("SMTP_USER"),
			Pass:       os.Getenv("SMTP_PASS"),
			Recipients: getEnvList("NOTIFY_EMAILS", nil),
		},
	}
}

// GetSimulationDefaults overlays SIM_* variables on montecarlo.DefaultConfig.
func GetSimulationDefaults() SimulationDefaults {
	def := montecarlo.DefaultConfig()
	limits := montecarlo.DefaultLimits()
	return SimulationDefaults{
		Config: montecarlo.SimulationConfig{
			NumPaths:             getEnvInt("SIM_NUM_PATHS", def.NumPaths),
			HorizonDays:          getEnvInt("SIM_HORIZON_DAYS", def.HorizonDays),
			JumpIntensityPerYear: getEnvFloat("SIM_JUMP_INTENSITY", def.JumpIntensityPerYear),
			JumpMeanReturn:       getEnvFloat("SIM_JUMP_MEAN", def.JumpMeanReturn),
			JumpVolatility:       getEnvFloat("SIM_JUMP_VOL", def.JumpVolatility),
			TriggerDropFraction:  getEnvFloat("SIM_TRIGGER_DROP", def.TriggerDropFraction),
			DailyPremiumRate:     getEnvFloat("SIM_DAILY_PREMIUM_RATE", def.DailyPremiumRate),
			RiskFreeRate:         getEnvFloat("SIM_RISK_FREE_RATE", def.RiskFreeRate),
			HistoryWindowMonths:  getEnvInt("SIM_HISTORY_MONTHS", def.HistoryWindowMonths),
		},
		Workers:            getEnvInt("SIM_WORKERS", 0),
		Seed:               getEnvUint64("SIM_SEED", 0),
		SamplePaths:        getEnvInt("SIM_SAMPLE_PATHS", 100),
		Limits: montecarlo.Limits{
			MaxPaths:       getEnvInt("SIM_MAX_PATHS", limits.MaxPaths),
			MaxHorizonDays: getEnvInt("SIM_MAX_HORIZON_DAYS", limits.MaxHorizonDays),
			MaxSteps:       int64(getEnvInt("SIM_MAX_STEPS", int(limits.MaxSteps))),
			MaxSamplePaths: getEnvInt("SIM_MAX_SAMPLE_PATHS", limits.MaxSamplePaths),
		},
		MaxConcurrentTasks: getEnvInt("SIM_MAX_TASKS", 3),
		TaskTTL:            getEnvDuration("SIM_TASK_TTL", 30*time.Minute),
	}
}

// ParseLogLevel maps LOG_LEVEL to a logrus level, defaulting to info.
func ParseLogLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
