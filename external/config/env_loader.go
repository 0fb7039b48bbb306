package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/shuchurin/internal/config"
)

type envConfig struct {
	Env        string `env:"ENV" envDefault:"production"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8000"`

	DatabaseURL string `env:"DATABASE_URL,required"`

	DebounceWindowMs       int     `env:"DEBOUNCE_WINDOW_MS" envDefault:"400"`
	OpennessRatioThreshold float64 `env:"OPENNESS_RATIO_THRESHOLD" envDefault:"0.21"`
	IdleTimeoutSec         int     `env:"IDLE_TIMEOUT_SEC" envDefault:"60"`

	StatsTimezone           string `env:"STATS_TIMEZONE" envDefault:"Asia/Tokyo"`
	LeaderboardDefaultLimit int    `env:"LEADERBOARD_DEFAULT_LIMIT" envDefault:"50"`
	LeaderboardMaxLimit     int    `env:"LEADERBOARD_MAX_LIMIT" envDefault:"100"`

	SessionWebhookURL     string `env:"SESSION_WEBHOOK_URL"`
	StoreRetryMaxAttempts int    `env:"STORE_RETRY_MAX_ATTEMPTS" envDefault:"5"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                     raw.Env,
		ListenAddr:              raw.ListenAddr,
		DatabaseURL:             raw.DatabaseURL,
		DebounceWindowMs:        raw.DebounceWindowMs,
		OpennessRatioThreshold:  raw.OpennessRatioThreshold,
		IdleTimeoutSec:          raw.IdleTimeoutSec,
		StatsTimezone:           raw.StatsTimezone,
		LeaderboardDefaultLimit: raw.LeaderboardDefaultLimit,
		LeaderboardMaxLimit:     raw.LeaderboardMaxLimit,
		SessionWebhookURL:       raw.SessionWebhookURL,
		StoreRetryMaxAttempts:   raw.StoreRetryMaxAttempts,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
