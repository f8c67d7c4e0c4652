package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radiusdt/roi-tracker/internal/ads"
	"github.com/radiusdt/roi-tracker/internal/config"
	"github.com/radiusdt/roi-tracker/internal/database"
	"github.com/radiusdt/roi-tracker/internal/etl"
	"github.com/radiusdt/roi-tracker/internal/httpserver"
	"github.com/radiusdt/roi-tracker/internal/metrics"
	"github.com/radiusdt/roi-tracker/internal/middleware"
	"github.com/radiusdt/roi-tracker/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting roi-tracker",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
	)

	m := metrics.NewMetrics("roi_tracker")

	// Initialize database connections
	var db *database.PostgresDB

	// Try to connect to PostgreSQL
	db, err = database.NewPostgresDB(cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Warn("PostgreSQL not available, using in-memory storage", zap.Error(err))
		db = nil
	} else {
		defer db.Close()
		logger.Info("connected to PostgreSQL")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := storage.EnsureSchema(ctx, db.Pool); err != nil {
			cancel()
			logger.Fatal("failed to ensure schema", zap.Error(err))
		}
		cancel()
	}

	// Try to connect to Redis
	var redisClient *redis.Client
	rdb, err := database.NewRedisDB(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis not available, caching and run locking disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		redisClient = rdb.Client
		logger.Info("connected to Redis")
	}

	// Initialize repositories
	var tenantRepo storage.TenantRepo
	var callSource storage.CallSource
	var store storage.AttributionStore
	var status storage.StatusStore

	if db != nil {
		tenantRepo = storage.NewPostgresTenantRepo(db.Pool)
		callSource = storage.NewPostgresCallSource(db.Pool)
		store = storage.NewPostgresAttributionStore(db.Pool)
		status = storage.NewPostgresStatusStore(db.Pool)
	} else {
		tenantRepo = storage.NewInMemoryTenantRepo()
		callSource = storage.NewInMemoryCallSource()
		store = storage.NewInMemoryAttributionStore()
		status = storage.NewInMemoryStatusStore()
	}

	// Call events can live in ClickHouse instead of Postgres.
	if cfg.ClickHouse.Enabled {
		ch, err := database.NewClickHouseDB(cfg.ClickHouse)
		if err != nil {
			logger.Warn("ClickHouse not available, reading calls from Postgres", zap.Error(err))
		} else {
			defer ch.Close()
			callSource = storage.NewClickHouseCallSource(ch.Conn)
			logger.Info("connected to ClickHouse", zap.String("addr", cfg.ClickHouse.Addr))
		}
	}

	pipeline := etl.NewPipeline(etl.Config{
		Tenants: tenantRepo,
		Calls:   callSource,
		Store:   store,
		Status:  status,
		Extractors: []ads.Extractor{
			ads.NewGoogleExtractor(cfg.Google, cfg.ETL.GoogleRowCap),
			ads.NewMetaExtractor(cfg.Meta, cfg.ETL.MetaRowCap, cfg.ETL.MetaDatePreset),
		},
		Redis:         redisClient,
		RunLockTTL:    cfg.Redis.RunLockTTL,
		TenantTimeout: cfg.ETL.TenantTimeout,
		Logger:        logger,
		Metrics:       m,
	})

	// Create HTTP server
	handler := httpserver.NewServer(&httpserver.Dependencies{
		Store:    store,
		Status:   status,
		Pipeline: pipeline,
		Redis:    redisClient,
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // /etl/run executes the pipeline inline
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
