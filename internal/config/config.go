// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers defaults, an optional YAML file and TOSHO_ env vars.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Errors returned by Load and Validate.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Source names accepted by the source key.
const (
	SourceNone     = "none"
	SourceYAML     = "yaml"
	SourceSupabase = "supabase"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of event workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /rosters/{id}/ratings?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// Source picks where bulk roster tallies come from: none, yaml, supabase.
	Source string `koanf:"source"`

	// RosterFile is the YAML fixture read by the yaml source.
	RosterFile string `koanf:"roster_file"`

	// WatchRosterFile re-syncs whenever RosterFile is written.
	WatchRosterFile bool `koanf:"watch_roster_file"`

	SupabaseURL   string `koanf:"supabase_url"`
	SupabaseKey   string `koanf:"supabase_key"`
	SupabaseTable string `koanf:"supabase_table"`

	// SyncSchedule is a cron spec for periodic source syncs. Empty disables it.
	SyncSchedule string `koanf:"sync_schedule"`

	BreakerMaxRequests  uint32  `koanf:"breaker_max_requests"`
	BreakerTimeoutMS    int     `koanf:"breaker_timeout_ms"`
	BreakerFailureRatio float64 `koanf:"breaker_failure_ratio"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		EventQueueSize:      10_000,
		WorkerCount:         runtime.NumCPU() * 4,
		DedupeSize:          100_000,
		MaxLeaderboardLimit: 100,
		Source:              SourceNone,
		SupabaseTable:       "player_season_stats",
		BreakerMaxRequests:  1,
		BreakerTimeoutMS:    30_000,
		BreakerFailureRatio: 0.6,
	}
}

// BreakerTimeout returns the open-state duration of the source breaker.
func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutMS) * time.Millisecond
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EventQueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1:
		return fmt.Errorf("%w: breaker_failure_ratio must be in (0, 1]", ErrInvalidConfig)
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}

	switch c.Source {
	case SourceNone, "":
	case SourceYAML:
		if c.RosterFile == "" {
			return fmt.Errorf("%w: roster_file is required for the yaml source", ErrInvalidConfig)
		}
	case SourceSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("%w: supabase_url and supabase_key are required for the supabase source", ErrInvalidConfig)
		}
		if c.SupabaseTable == "" {
			return fmt.Errorf("%w: supabase_table must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source)
	}

	if c.SyncSchedule != "" {
		if _, err := cron.ParseStandard(c.SyncSchedule); err != nil {
			return fmt.Errorf("%w: sync_schedule: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}
