// Command etl runs the attribution pipeline once and exits. Intended
// for cron and operator use; the HTTP server exposes the same run via
// POST /etl/run.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radiusdt/roi-tracker/internal/ads"
	"github.com/radiusdt/roi-tracker/internal/config"
	"github.com/radiusdt/roi-tracker/internal/database"
	"github.com/radiusdt/roi-tracker/internal/etl"
	"github.com/radiusdt/roi-tracker/internal/middleware"
	"github.com/radiusdt/roi-tracker/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := database.NewPostgresDB(cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to PostgreSQL: %v\n", err)
		return 1
	}
	defer db.Close()

	if err := storage.EnsureSchema(ctx, db.Pool); err != nil {
		fmt.Fprintf(os.Stderr, "failed to ensure schema: %v\n", err)
		return 1
	}

	var redisClient *redis.Client
	if rdb, err := database.NewRedisDB(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		logger.Warn("Redis not available, run locking disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		redisClient = rdb.Client
	}

	var callSource storage.CallSource = storage.NewPostgresCallSource(db.Pool)
	if cfg.ClickHouse.Enabled {
		ch, err := database.NewClickHouseDB(cfg.ClickHouse)
		if err != nil {
			logger.Warn("ClickHouse not available, reading calls from Postgres", zap.Error(err))
		} else {
			defer ch.Close()
			callSource = storage.NewClickHouseCallSource(ch.Conn)
		}
	}

	pipeline := etl.NewPipeline(etl.Config{
		Tenants: storage.NewPostgresTenantRepo(db.Pool),
		Calls:   callSource,
		Store:   storage.NewPostgresAttributionStore(db.Pool),
		Status:  storage.NewPostgresStatusStore(db.Pool),
		Extractors: []ads.Extractor{
			ads.NewGoogleExtractor(cfg.Google, cfg.ETL.GoogleRowCap),
			ads.NewMetaExtractor(cfg.Meta, cfg.ETL.MetaRowCap, cfg.ETL.MetaDatePreset),
		},
		Redis:         redisClient,
		RunLockTTL:    cfg.Redis.RunLockTTL,
		TenantTimeout: cfg.ETL.TenantTimeout,
		Logger:        logger,
	})

	report, err := pipeline.Run(ctx)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "etl run failed: %v\n", err)
		return 1
	}
	return 0
}
