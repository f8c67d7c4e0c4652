package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radiusdt/roi-tracker/internal/middleware"
	"github.com/radiusdt/roi-tracker/internal/models"
	"github.com/radiusdt/roi-tracker/internal/storage"
)

const cacheKeyPrefix = "roi_tracker:cache:roi:"

// scopedFilter builds the metrics filter from query params and pins
// non-admin callers to their own tenant regardless of what they asked
// for. Admins may filter by any tenant or none.
func scopedFilter(r *http.Request, id middleware.Identity) storage.MetricsFilter {
	q := r.URL.Query()
	f := storage.MetricsFilter{
		TenantID:  q.Get("tenant"),
		Platform:  q.Get("platform"),
		UTMSource: q.Get("source"),
	}
	if id.Role != models.RoleAdmin {
		f.TenantID = id.TenantID
	}
	return f
}

// handleListMetrics serves the filtered roi_metrics view joined with
// tenant names. Reads go through a short-TTL Redis cache keyed by the
// effective filter.
func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, _ := middleware.IdentityFrom(r.Context())
	f := scopedFilter(r, id)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if body, ok := s.cachedMetrics(ctx, f); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	rows, err := s.store.ListMetrics(ctx, f)
	if err != nil {
		s.logger.Error("failed to list roi metrics", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []models.RoiMetric{}
	}

	body, err := json.Marshal(map[string]any{"metrics": rows})
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.cacheMetrics(ctx, f, body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// CampaignSeries is one chart point: a campaign label with the values
// the two dashboard charts plot (calls+spend, cost per call).
type CampaignSeries struct {
	Label       string  `json:"label"`
	TotalCalls  int64   `json:"total_calls"`
	TotalSpend  float64 `json:"total_spend"`
	CostPerCall float64 `json:"cost_per_call"`
}

// handleSummary serves per-campaign chart series for the dashboard.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, _ := middleware.IdentityFrom(r.Context())
	f := scopedFilter(r, id)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rows, err := s.store.ListMetrics(ctx, f)
	if err != nil {
		s.logger.Error("failed to list roi metrics", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	series := make([]CampaignSeries, 0, len(rows))
	for _, m := range rows {
		series = append(series, CampaignSeries{
			Label:       fmt.Sprintf("%s (%s)", m.UTM.Campaign, m.Platform),
			TotalCalls:  m.TotalCalls,
			TotalSpend:  m.TotalSpend,
			CostPerCall: m.CostPerCall,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"campaigns": series})
}

func cacheKey(f storage.MetricsFilter) string {
	return fmt.Sprintf("%s%s|%s|%s", cacheKeyPrefix, f.TenantID, f.Platform, f.UTMSource)
}

func (s *Server) cachedMetrics(ctx context.Context, f storage.MetricsFilter) ([]byte, bool) {
	if s.redis == nil {
		return nil, false
	}
	body, err := s.redis.Get(ctx, cacheKey(f)).Bytes()
	if err == redis.Nil {
		if s.metrics != nil {
			s.metrics.CacheHits.WithLabelValues("miss").Inc()
		}
		return nil, false
	}
	if err != nil {
		s.logger.Warn("cache read failed", zap.Error(err))
		return nil, false
	}
	if s.metrics != nil {
		s.metrics.CacheHits.WithLabelValues("hit").Inc()
	}
	return body, true
}

func (s *Server) cacheMetrics(ctx context.Context, f storage.MetricsFilter, body []byte) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(f), body, s.config.Redis.CacheTTL).Err(); err != nil {
		s.logger.Warn("cache write failed", zap.Error(err))
	}
}

// invalidateCache drops all cached dashboard reads after a successful
// ETL run so the dashboard never serves the previous snapshot past the
// run that replaced it.
func (s *Server) invalidateCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	iter := s.redis.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.redis.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn("cache invalidation failed", zap.Error(err))
			return
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("cache scan failed", zap.Error(err))
	}
}
