package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aescanero/dapo/internal/application/admission"
	"github.com/aescanero/dapo/internal/application/cancellation"
	"github.com/aescanero/dapo/internal/application/orchestrator"
	"github.com/aescanero/dapo/internal/application/routing"
	"github.com/aescanero/dapo/internal/application/workers"
	"github.com/aescanero/dapo/internal/config"
	eventsmemory "github.com/aescanero/dapo/pkg/adapters/events/memory"
	eventsredis "github.com/aescanero/dapo/pkg/adapters/events/redis"
	"github.com/aescanero/dapo/pkg/adapters/metrics/prometheus"
	runsmemory "github.com/aescanero/dapo/pkg/adapters/runstore/memory"
	runsredis "github.com/aescanero/dapo/pkg/adapters/runstore/redis"
	"github.com/aescanero/dapo/pkg/api/grpc"
	"github.com/aescanero/dapo/pkg/api/http"
	"github.com/aescanero/dapo/pkg/api/websocket"
	"github.com/aescanero/dapo/pkg/domain"
	"github.com/aescanero/dapo/pkg/ports"
	"github.com/aescanero/dapo/pkg/resilience"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting DA Pipeline Orchestrator",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("backend", cfg.Backend))

	// Initialize metrics
	metricsCollector := prometheus.NewCollector()

	// Initialize adapters
	var (
		eventBus    ports.EventBus
		runStore    ports.RunStore
		redisClient *goredis.Client
	)

	switch cfg.Backend {
	case "redis":
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		ctx := context.Background()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		bus, err := eventsredis.NewStreamsEventBus(
			redisClient,
			"dapo-workers",
			fmt.Sprintf("dapo-%d", os.Getpid()),
			logger,
		)
		if err != nil {
			logger.Fatal("failed to create event bus", zap.Error(err))
		}
		eventBus = bus
		runStore = runsredis.NewRunStore(redisClient, cfg.Redis.RunTTL, logger)

	default:
		eventBus = eventsmemory.NewInMemoryEventBus()
		runStore = runsmemory.NewInMemoryRunStore()
	}

	// Initialize core components
	registry := cancellation.NewRegistry(logger)

	queue := admission.NewQueue(cfg.Queue.MaxSize, cfg.Queue.FairnessWindow, metricsCollector, logger)

	strategy, err := routing.ParseStrategy(cfg.Router.Strategy)
	if err != nil {
		logger.Fatal("invalid router strategy", zap.Error(err))
	}
	nodeRouter := routing.NewRouter(strategy, cfg.Router.Smoothing, logger)

	// One logical node per worker pool; multi-node deployments register
	// their remote targets here instead.
	if err := nodeRouter.RegisterNode("local", cfg.Workers.PoolSize); err != nil {
		logger.Fatal("failed to register local node", zap.Error(err))
	}

	engine := orchestrator.NewEngine(
		registry,
		eventBus,
		metricsCollector,
		logger,
		cfg.Orchestrator.NodeTimeout,
		cfg.Orchestrator.PipelineTimeout,
		cfg.Orchestrator.CleanupGrace,
	)

	catalog := orchestrator.NewCatalog()
	registerBuiltinStages(catalog, cfg, metricsCollector, logger)

	validator := orchestrator.NewValidator()

	manager := orchestrator.NewManager(
		queue,
		registry,
		catalog,
		validator,
		runStore,
		eventBus,
		metricsCollector,
		logger,
	)

	workerPool := workers.NewPool(
		cfg.Workers.PoolSize,
		queue,
		nodeRouter,
		engine,
		catalog,
		runStore,
		metricsCollector,
		logger,
		cfg.Workers.HealthCheckInterval,
	)

	// Start worker pool
	if err := workerPool.Start(); err != nil {
		logger.Fatal("failed to start worker pool", zap.Error(err))
	}

	// Export the active-pipeline gauge
	gaugeStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gaugeStop:
				return
			case <-ticker.C:
				metricsCollector.SetActivePipelines(registry.ActiveCount())
			}
		}
	}()

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:    cfg.HTTPPort,
		Manager: manager,
		Nodes:   nodeRouter,
		Logger:  logger,
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(eventBus, logger)
	httpServer.SetupWebSocket(wsHandler)

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:   cfg.GRPCPort,
		Pool:   workerPool,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("DA Pipeline Orchestrator started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize),
		zap.String("router_strategy", cfg.Router.Strategy))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	close(gaugeStop)

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown error", zap.Error(err))
	}

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("DA Pipeline Orchestrator shut down complete")
}

// registerBuiltinStages registers the utility stages shipped with the
// service, wrapped with the configured default resilience policies.
// Deployments register their own stage set here before the pool starts.
func registerBuiltinStages(catalog *orchestrator.Catalog, cfg *config.Config, metrics ports.MetricsCollector, logger *zap.Logger) {
	retry := resilience.Retry(resilience.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseBackoff: cfg.Retry.BaseBackoff,
		Multiplier:  cfg.Retry.Multiplier,
	}, resilience.RetryAll)

	breaker := resilience.NewCircuitBreaker("builtin", resilience.BreakerConfig{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  cfg.Breaker.RecoveryTimeout,
	}, metrics, logger)

	passthrough := func(ctx context.Context, input interface{}) (interface{}, error) {
		return input, nil
	}

	delay := func(ctx context.Context, input interface{}) (interface{}, error) {
		select {
		case <-time.After(100 * time.Millisecond):
			return input, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	stages := map[string]domain.StageFunc{
		"passthrough": passthrough,
		"delay":       delay,
	}
	for name, fn := range stages {
		if err := catalog.Register(name, retry(breaker.Wrap(fn))); err != nil {
			logger.Fatal("failed to register builtin stage",
				zap.String("stage", name),
				zap.Error(err))
		}
	}
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
