package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"caseflow/internal/authz"
	"caseflow/internal/config"
	"caseflow/internal/database"
	"caseflow/internal/handlers"
	"caseflow/internal/lifecycle"
	"caseflow/internal/metrics"
	"caseflow/internal/notification"
	"caseflow/internal/repository"
	"caseflow/internal/scheduler"
	"caseflow/internal/server"
)

const (
	serviceName = "caseflow"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogging(cfg)
	defer logger.Sync()
	logger.Info("Starting caseflow service",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.Environment))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var cache *redis.Client
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unavailable, capability cache disabled", zap.Error(err))
	} else {
		cache = redisClient
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)

	dispatcher := notification.NewDispatcher(cfg.Notifications, logger)
	dispatcher.Start()
	defer dispatcher.Stop()

	authzService := authz.NewService(db.DB(), cache, cfg.Redis.CacheTTL, logger)
	coordinator := lifecycle.NewCoordinator(recorder, logger)
	store := database.NewStore(db)

	caseEngine := lifecycle.NewCaseEngine(store, authzService, dispatcher, recorder, coordinator, logger)
	suspectEngine := lifecycle.NewSuspectEngine(store, authzService, authzService, dispatcher, recorder, coordinator, logger)

	caseRepo := repository.NewCaseRepository(db.DB())
	suspectRepo := repository.NewSuspectRepository(db.DB())
	auditRepo := repository.NewAuditRepository(db.DB())

	authService := handlers.NewAuthService(cfg.Auth)
	caseHandler := handlers.NewCaseHandler(caseEngine, caseRepo, auditRepo, logger)
	suspectHandler := handlers.NewSuspectHandler(suspectEngine, suspectRepo, auditRepo, logger)
	healthHandler := handlers.NewHealthHandler(db)

	sched := scheduler.New(db.DB(), cfg.Scheduler, logger)
	sched.Start(ctx)
	defer sched.Stop()

	srv := server.New(cfg.Server, cfg.Debug, authService, caseHandler, suspectHandler, healthHandler, registry, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
	logger.Info("Service stopped")
}

func setupLogging(cfg config.Config) *zap.Logger {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Logging.Format == "console" || cfg.Debug {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
