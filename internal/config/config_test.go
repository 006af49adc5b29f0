package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9090, cfg.GRPCPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.Backend)

	assert.Equal(t, "30s", cfg.Orchestrator.NodeTimeout.String())
	assert.Equal(t, "5m0s", cfg.Orchestrator.PipelineTimeout.String())
	assert.Equal(t, "2s", cfg.Orchestrator.CleanupGrace.String())

	assert.Equal(t, 1024, cfg.Queue.MaxSize)
	assert.Equal(t, "1s", cfg.Queue.FairnessWindow.String())

	assert.Equal(t, "least_loaded", cfg.Router.Strategy)
	assert.InDelta(t, 0.3, cfg.Router.Smoothing, 0.001)

	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, "200ms", cfg.Retry.BaseBackoff.String())

	assert.Equal(t, 5, cfg.Workers.PoolSize)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DAPO_HTTP_PORT", "8888")
	t.Setenv("DAPO_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("DAPO_ROUTER_STRATEGY", "lowest_latency")
	t.Setenv("DAPO_QUEUE_MAX_SIZE", "64")
	t.Setenv("DAPO_NODE_TIMEOUT", "10s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.HTTPPort)
	assert.Equal(t, "redis", cfg.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, "lowest_latency", cfg.Router.Strategy)
	assert.Equal(t, 64, cfg.Queue.MaxSize)
	assert.Equal(t, "10s", cfg.Orchestrator.NodeTimeout.String())
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad http port", func(c *Config) { c.HTTPPort = 0 }},
		{"bad grpc port", func(c *Config) { c.GRPCPort = 70000 }},
		{"unknown backend", func(c *Config) { c.Backend = "postgres" }},
		{"zero node timeout", func(c *Config) { c.Orchestrator.NodeTimeout = 0 }},
		{"zero pipeline timeout", func(c *Config) { c.Orchestrator.PipelineTimeout = 0 }},
		{"zero cleanup grace", func(c *Config) { c.Orchestrator.CleanupGrace = 0 }},
		{"zero queue size", func(c *Config) { c.Queue.MaxSize = 0 }},
		{"negative fairness window", func(c *Config) { c.Queue.FairnessWindow = -1 }},
		{"unknown strategy", func(c *Config) { c.Router.Strategy = "round_robin" }},
		{"smoothing out of range", func(c *Config) { c.Router.Smoothing = 1.5 }},
		{"zero breaker threshold", func(c *Config) { c.Breaker.FailureThreshold = 0 }},
		{"zero retry attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"fractional multiplier", func(c *Config) { c.Retry.Multiplier = 0.5 }},
		{"zero pool size", func(c *Config) { c.Workers.PoolSize = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAddrHelpers(t *testing.T) {
	cfg := &Config{HTTPPort: 8080, GRPCPort: 9090}
	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
	assert.Equal(t, ":9090", cfg.GetGRPCAddr())
}
