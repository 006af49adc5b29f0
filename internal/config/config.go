package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the DA Pipeline Orchestrator
type Config struct {
	// Server configuration
	HTTPPort int    `env:"DAPO_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"DAPO_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Backend selects the event bus / run store implementation
	Backend string `env:"DAPO_BACKEND" envDefault:"memory"`

	// Redis configuration (used when Backend is "redis")
	Redis RedisConfig

	// Engine timeouts
	Orchestrator OrchestratorConfig

	// Admission control
	Queue QueueConfig

	// Adaptive routing
	Router RouterConfig

	// Default resilience policies applied to catalog stages
	Breaker BreakerConfig
	Retry   RetryConfig

	// Worker configuration
	Workers WorkerConfig

	// Shutdown
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	// Retention for run records
	RunTTL time.Duration `env:"REDIS_RUN_TTL" envDefault:"24h"`
}

// OrchestratorConfig holds the engine timeout budget
type OrchestratorConfig struct {
	NodeTimeout     time.Duration `env:"DAPO_NODE_TIMEOUT" envDefault:"30s"`
	PipelineTimeout time.Duration `env:"DAPO_PIPELINE_TIMEOUT" envDefault:"300s"`
	CleanupGrace    time.Duration `env:"DAPO_CLEANUP_GRACE" envDefault:"2s"`
}

// QueueConfig holds admission control configuration
type QueueConfig struct {
	MaxSize        int           `env:"DAPO_QUEUE_MAX_SIZE" envDefault:"1024"`
	FairnessWindow time.Duration `env:"DAPO_FAIRNESS_WINDOW" envDefault:"1s"`
}

// RouterConfig holds adaptive routing configuration
type RouterConfig struct {
	Strategy  string  `env:"DAPO_ROUTER_STRATEGY" envDefault:"least_loaded"`
	Smoothing float64 `env:"DAPO_ROUTER_SMOOTHING" envDefault:"0.3"`
}

// BreakerConfig holds the default circuit breaker policy
type BreakerConfig struct {
	FailureThreshold int           `env:"DAPO_BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	RecoveryTimeout  time.Duration `env:"DAPO_BREAKER_RECOVERY_TIMEOUT" envDefault:"30s"`
}

// RetryConfig holds the default retry policy
type RetryConfig struct {
	MaxAttempts int           `env:"DAPO_RETRY_MAX_ATTEMPTS" envDefault:"3"`
	BaseBackoff time.Duration `env:"DAPO_RETRY_BASE_BACKOFF" envDefault:"200ms"`
	Multiplier  float64       `env:"DAPO_RETRY_MULTIPLIER" envDefault:"2.0"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"5"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	switch c.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported backend: %s (must be memory or redis)", c.Backend)
	}
	if c.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.Orchestrator.NodeTimeout <= 0 {
		return fmt.Errorf("node timeout must be positive")
	}
	if c.Orchestrator.PipelineTimeout <= 0 {
		return fmt.Errorf("pipeline timeout must be positive")
	}
	if c.Orchestrator.CleanupGrace <= 0 {
		return fmt.Errorf("cleanup grace must be positive")
	}

	if c.Queue.MaxSize < 1 {
		return fmt.Errorf("queue max size must be at least 1")
	}
	if c.Queue.FairnessWindow < 0 {
		return fmt.Errorf("fairness window cannot be negative")
	}

	switch c.Router.Strategy {
	case "least_loaded", "lowest_latency":
	default:
		return fmt.Errorf("unknown router strategy: %s", c.Router.Strategy)
	}
	if c.Router.Smoothing <= 0 || c.Router.Smoothing > 1 {
		return fmt.Errorf("router smoothing must be in (0, 1]")
	}

	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("breaker failure threshold must be at least 1")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry multiplier must be at least 1")
	}

	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
