package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radiusdt/roi-tracker/internal/config"
	"github.com/radiusdt/roi-tracker/internal/etl"
	"github.com/radiusdt/roi-tracker/internal/metrics"
	"github.com/radiusdt/roi-tracker/internal/middleware"
	"github.com/radiusdt/roi-tracker/internal/models"
	"github.com/radiusdt/roi-tracker/internal/storage"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Store    storage.AttributionStore
	Status   storage.StatusStore
	Pipeline *etl.Pipeline
	Redis    *redis.Client
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Server wraps HTTP handlers for the dashboard read contract and the
// on-demand ETL trigger.
type Server struct {
	store    storage.AttributionStore
	status   storage.StatusStore
	pipeline *etl.Pipeline
	redis    *redis.Client
	config   *config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	s := &Server{
		store:    deps.Store,
		status:   deps.Status,
		pipeline: deps.Pipeline,
		redis:    deps.Redis,
		config:   deps.Config,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	// Dashboard read contract
	authed := http.NewServeMux()
	authed.HandleFunc("/roi", s.handleListMetrics)
	authed.HandleFunc("/roi/summary", s.handleSummary)
	authed.HandleFunc("/roi/export", s.handleExport)

	// ETL control
	authed.HandleFunc("/etl/run", s.handleRunETL)
	authed.HandleFunc("/etl/status", s.handleETLStatus)

	auth := middleware.Auth(deps.Config.Auth.JWTSecret, deps.Config.Auth.Enabled)
	mux.Handle("/", auth(authed))

	var handler http.Handler = mux
	if deps.Config.RateLimit.Enabled {
		handler = middleware.RateLimit(deps.Config.RateLimit.RPS, deps.Config.RateLimit.Burst, deps.Metrics)(handler)
	}
	handler = middleware.RequestLogger(deps.Logger, deps.Metrics)(handler)
	handler = middleware.Recovery(deps.Logger)(handler)

	return handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRunETL triggers a full pipeline run. The run executes inline;
// the response carries the run report so an operator sees per-tenant
// outcomes without digging through logs.
func (s *Server) handleRunETL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, _ := middleware.IdentityFrom(r.Context())
	if id.Role != models.RoleAdmin {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	report, err := s.pipeline.Run(r.Context())
	if errors.Is(err, etl.ErrRunInProgress) {
		http.Error(w, "etl run already in progress", http.StatusConflict)
		return
	}
	if err != nil {
		s.logger.Error("etl run failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, report)
		return
	}

	s.invalidateCache(r.Context())
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleETLStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st, err := s.status.GetLastRun(r.Context())
	if err != nil {
		s.logger.Error("failed to read etl status", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if st == nil {
		writeJSON(w, http.StatusOK, map[string]any{"last_run": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"last_run": st})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestTimeout bounds handler-side store reads.
const requestTimeout = 10 * time.Second
