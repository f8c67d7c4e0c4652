package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the roi-tracker application.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Google     GoogleConfig
	Meta       MetaConfig
	ETL        ETLConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// CacheTTL bounds how stale a cached dashboard read may be.
	CacheTTL time.Duration
	// RunLockTTL caps how long an ETL run may hold the run lock.
	RunLockTTL time.Duration
}

// ClickHouseConfig configures the optional call-event source. When
// Enabled is false call rows are read from the Postgres calls table.
type ClickHouseConfig struct {
	Enabled  bool
	Addr     string
	Database string
	Username string
	Password string
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// GoogleConfig holds the app-level Google Ads API credentials shared
// across tenants; the per-tenant refresh token and customer id live on
// the tenant record.
type GoogleConfig struct {
	DeveloperToken string
	ClientID       string
	ClientSecret   string
	APIBaseURL     string
	TokenURL       string
}

// MetaConfig holds the app-level Meta Marketing API credentials.
type MetaConfig struct {
	AppID      string
	AppSecret  string
	APIBaseURL string
}

// ETLConfig tunes the pipeline itself.
type ETLConfig struct {
	// TenantTimeout bounds a single tenant's extraction so one hanging
	// vendor call cannot stall the whole run.
	TenantTimeout time.Duration
	GoogleRowCap  int
	MetaRowCap    int
	// MetaDatePreset is the reporting window passed to the insights
	// endpoint, e.g. "last_7d".
	MetaDatePreset string
}

// Load reads configuration from the environment (and an optional .env
// file) with sensible defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("ROI_TRACKER_HTTP_ADDR", ":8080"),
			Env:             getEnv("ROI_TRACKER_ENV", "development"),
			ShutdownTimeout: getDurationEnv("ROI_TRACKER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("ROI_TRACKER_DB_HOST", "localhost"),
			Port:     getIntEnv("ROI_TRACKER_DB_PORT", 5432),
			User:     getEnv("ROI_TRACKER_DB_USER", "roitracker"),
			Password: getEnv("ROI_TRACKER_DB_PASSWORD", "roitracker_secret"),
			DBName:   getEnv("ROI_TRACKER_DB_NAME", "roi_tracker"),
			SSLMode:  getEnv("ROI_TRACKER_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("ROI_TRACKER_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("ROI_TRACKER_DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:       getEnv("ROI_TRACKER_REDIS_ADDR", "localhost:6379"),
			Password:   getEnv("ROI_TRACKER_REDIS_PASSWORD", ""),
			DB:         getIntEnv("ROI_TRACKER_REDIS_DB", 0),
			CacheTTL:   getDurationEnv("ROI_TRACKER_REDIS_CACHE_TTL", 60*time.Second),
			RunLockTTL: getDurationEnv("ROI_TRACKER_REDIS_RUN_LOCK_TTL", 15*time.Minute),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:  getBoolEnv("ROI_TRACKER_CLICKHOUSE_ENABLED", false),
			Addr:     getEnv("ROI_TRACKER_CLICKHOUSE_ADDR", "localhost:9000"),
			Database: getEnv("ROI_TRACKER_CLICKHOUSE_DB", "calls"),
			Username: getEnv("ROI_TRACKER_CLICKHOUSE_USER", "default"),
			Password: getEnv("ROI_TRACKER_CLICKHOUSE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("ROI_TRACKER_AUTH_ENABLED", true),
			JWTSecret: getEnv("ROI_TRACKER_JWT_SECRET", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("ROI_TRACKER_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("ROI_TRACKER_RATE_LIMIT_RPS", 100),
			Burst:   getIntEnv("ROI_TRACKER_RATE_LIMIT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("ROI_TRACKER_LOG_LEVEL", "info"),
			Format: getEnv("ROI_TRACKER_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("ROI_TRACKER_METRICS_ENABLED", true),
			Path:    getEnv("ROI_TRACKER_METRICS_PATH", "/metrics"),
		},
		Google: GoogleConfig{
			DeveloperToken: getEnv("ROI_TRACKER_GOOGLE_DEVELOPER_TOKEN", ""),
			ClientID:       getEnv("ROI_TRACKER_GOOGLE_CLIENT_ID", ""),
			ClientSecret:   getEnv("ROI_TRACKER_GOOGLE_CLIENT_SECRET", ""),
			APIBaseURL:     getEnv("ROI_TRACKER_GOOGLE_API_URL", "https://googleads.googleapis.com"),
			TokenURL:       getEnv("ROI_TRACKER_GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		},
		Meta: MetaConfig{
			AppID:      getEnv("ROI_TRACKER_META_APP_ID", ""),
			AppSecret:  getEnv("ROI_TRACKER_META_APP_SECRET", ""),
			APIBaseURL: getEnv("ROI_TRACKER_META_API_URL", "https://graph.facebook.com/v19.0"),
		},
		ETL: ETLConfig{
			TenantTimeout:  getDurationEnv("ROI_TRACKER_ETL_TENANT_TIMEOUT", 60*time.Second),
			GoogleRowCap:   getIntEnv("ROI_TRACKER_ETL_GOOGLE_ROW_CAP", 20),
			MetaRowCap:     getIntEnv("ROI_TRACKER_ETL_META_ROW_CAP", 25),
			MetaDatePreset: getEnv("ROI_TRACKER_ETL_META_DATE_PRESET", "last_7d"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("ROI_TRACKER_JWT_SECRET is required when auth is enabled")
	}
	if c.ETL.GoogleRowCap <= 0 || c.ETL.MetaRowCap <= 0 {
		return fmt.Errorf("extraction row caps must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
