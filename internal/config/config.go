package config

import (
	"fmt"
	"time"
)

type Config struct {
	Env        string
	ListenAddr string

	DatabaseURL string

	DebounceWindowMs       int
	OpennessRatioThreshold float64
	IdleTimeoutSec         int

	StatsTimezone           string
	LeaderboardDefaultLimit int
	LeaderboardMaxLimit     int

	SessionWebhookURL     string
	StoreRetryMaxAttempts int
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.DebounceWindowMs <= 0 {
		return fmt.Errorf("DEBOUNCE_WINDOW_MS must be positive, got %d", c.DebounceWindowMs)
	}
	if c.OpennessRatioThreshold <= 0 || c.OpennessRatioThreshold >= 1 {
		return fmt.Errorf("OPENNESS_RATIO_THRESHOLD must be in (0, 1), got %g", c.OpennessRatioThreshold)
	}
	if c.IdleTimeoutSec <= 0 {
		return fmt.Errorf("IDLE_TIMEOUT_SEC must be positive, got %d", c.IdleTimeoutSec)
	}
	if c.LeaderboardDefaultLimit <= 0 {
		return fmt.Errorf("LEADERBOARD_DEFAULT_LIMIT must be positive, got %d", c.LeaderboardDefaultLimit)
	}
	if c.LeaderboardMaxLimit < c.LeaderboardDefaultLimit {
		return fmt.Errorf("LEADERBOARD_MAX_LIMIT must be >= LEADERBOARD_DEFAULT_LIMIT, got %d", c.LeaderboardMaxLimit)
	}
	if c.StoreRetryMaxAttempts <= 0 {
		return fmt.Errorf("STORE_RETRY_MAX_ATTEMPTS must be positive, got %d", c.StoreRetryMaxAttempts)
	}
	if _, err := time.LoadLocation(c.StatsTimezone); err != nil {
		return fmt.Errorf("STATS_TIMEZONE is invalid: %w", err)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "LISTEN_ADDR", value: c.ListenAddr},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "STATS_TIMEZONE", value: c.StatsTimezone},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// DebounceWindow is the classifier's hysteresis window.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceWindowMs) * time.Millisecond
}

// IdleTimeout is how long a connection may stay silent before its session
// is abandoned.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSec) * time.Second
}

// StatsLocation returns the timezone period windows are computed in.
// Validate has already checked it loads.
func (c *Config) StatsLocation() *time.Location {
	loc, err := time.LoadLocation(c.StatsTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
