package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"` // sqlite|postgres
	DBPath   string `envconfig:"DB_PATH" default:"./data/fasting.db"`
	DBDSN    string `envconfig:"DB_DSN"` // postgres only
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`  // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"` // healthz

	DefaultTZ          string `envconfig:"DEFAULT_TZ" default:"UTC"`
	DefaultWindow      string `envconfig:"DEFAULT_WINDOW" default:"12:00-20:00"`
	DefaultWaterGoalMl int    `envconfig:"DEFAULT_WATER_GOAL_ML" default:"2000"`
	SummaryAt          string `envconfig:"SUMMARY_AT" default:"21:00"` // empty disables the daily summary

	TickInterval      time.Duration `envconfig:"TICK_INTERVAL" default:"1m"`
	TickWorkers       int           `envconfig:"TICK_WORKERS" default:"4"`
	VerifyConcurrency int           `envconfig:"VERIFY_CONCURRENCY" default:"8"`
	VerifyTimeout     time.Duration `envconfig:"VERIFY_TIMEOUT" default:"10s"`
	VerifyBackoff     time.Duration `envconfig:"VERIFY_BACKOFF" default:"5s"`
	BlueskyAPI        string        `envconfig:"BLUESKY_API" default:"https://public.api.bsky.app"`
	EvidenceTag       string        `envconfig:"EVIDENCE_TAG" default:"#fasting"`

	TemplatesPath string  `envconfig:"TEMPLATES_PATH"`
	SendRate      float64 `envconfig:"SEND_RATE" default:"25"` // messages per second
	SendBurst     int     `envconfig:"SEND_BURST" default:"5"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, _, err := domain.ParseWindow(c.DefaultWindow); err != nil {
		return fmt.Errorf("DEFAULT_WINDOW: %w", err)
	}
	if _, err := domain.ValidateTZ(c.DefaultTZ); err != nil {
		return fmt.Errorf("DEFAULT_TZ: %w", err)
	}
	if _, err := c.SummaryMinutes(); err != nil {
		return fmt.Errorf("SUMMARY_AT: %w", err)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if c.DBDriver == "postgres" && c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required for DB_DRIVER=postgres")
	}
	return nil
}

// SummaryMinutes returns SUMMARY_AT as minutes since local midnight, or -1 when disabled.
func (c Config) SummaryMinutes() (int, error) {
	if c.SummaryAt == "" {
		return -1, nil
	}
	return domain.ParseTimeOfDay(c.SummaryAt)
}

// DSN returns the data source for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == "postgres" {
		return c.DBDSN
	}
	return c.DBPath
}
