package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"unknown buffer kind", func(c *Config) { c.BufferKind = "ring" }},
		{"zero capacity", func(c *Config) { c.Capacity = 0 }},
		{"alpha out of range", func(c *Config) { c.Alpha = 2.0 }},
		{"beta out of range", func(c *Config) { c.Beta = -0.5 }},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_UniformSkipsPriorityChecks(t *testing.T) {
	cfg := Default()
	cfg.BufferKind = "uniform"
	cfg.Alpha = 5.0 // irrelevant for uniform sampling
	assert.NoError(t, cfg.Validate())
}

func TestBufferConfig_CarriesSettings(t *testing.T) {
	cfg := Default()
	cfg.Capacity = 512
	cfg.Alpha = 0.7
	cfg.Seed = 99

	buf := cfg.BufferConfig()
	require.NoError(t, buf.Validate())
	assert.Equal(t, 512, buf.Capacity)
	assert.Equal(t, 0.7, buf.Alpha)
	assert.Equal(t, int64(99), buf.Seed)
}
