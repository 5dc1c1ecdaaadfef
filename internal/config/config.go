package config

import (
	"fmt"
	"time"

	"github.com/alphaforge/replay/internal/replay"
)

// Config holds all replay server configuration
type Config struct {
	// Server settings
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Buffer settings
	BufferKind        string  `mapstructure:"buffer_kind"` // "prioritized" or "uniform"
	Capacity          int     `mapstructure:"capacity"`
	Alpha             float64 `mapstructure:"alpha"`
	Beta              float64 `mapstructure:"beta"`
	BetaIncrement     float64 `mapstructure:"beta_increment"`
	MinPriority       float64 `mapstructure:"min_priority"`
	NormalizeTDErrors bool    `mapstructure:"normalize_td_errors"`
	NormalizerDecay   float64 `mapstructure:"normalizer_decay"`
	Seed              int64   `mapstructure:"seed"`

	// Events
	NATSURL     string `mapstructure:"nats_url"`
	NATSSubject string `mapstructure:"nats_subject"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	buf := replay.DefaultPrioritizedConfig(100000)
	return &Config{
		Addr:              ":8080",
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		BufferKind:        "prioritized",
		Capacity:          buf.Capacity,
		Alpha:             buf.Alpha,
		Beta:              buf.Beta,
		BetaIncrement:     buf.BetaIncrement,
		MinPriority:       buf.MinPriority,
		NormalizeTDErrors: buf.NormalizeTDErrors,
		NormalizerDecay:   buf.NormalizerDecay,
		NATSURL:           "", // empty disables event publishing
		NATSSubject:       "replay-status",
		LogLevel:          "info",
	}
}

// BufferConfig translates the flat server config into a buffer config.
func (c *Config) BufferConfig() replay.PrioritizedConfig {
	cfg := replay.DefaultPrioritizedConfig(c.Capacity)
	cfg.Alpha = c.Alpha
	cfg.Beta = c.Beta
	cfg.BetaIncrement = c.BetaIncrement
	cfg.MinPriority = c.MinPriority
	cfg.NormalizeTDErrors = c.NormalizeTDErrors
	if c.NormalizerDecay > 0 {
		cfg.NormalizerDecay = c.NormalizerDecay
	}
	cfg.Seed = c.Seed
	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.BufferKind != "prioritized" && c.BufferKind != "uniform" {
		return fmt.Errorf("buffer_kind must be 'prioritized' or 'uniform', got %q", c.BufferKind)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	if c.BufferKind == "prioritized" {
		if err := c.BufferConfig().Validate(); err != nil {
			return err
		}
	} else if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	return nil
}
