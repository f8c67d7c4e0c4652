package httpserver_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radiusdt/roi-tracker/internal/ads"
	"github.com/radiusdt/roi-tracker/internal/config"
	"github.com/radiusdt/roi-tracker/internal/etl"
	"github.com/radiusdt/roi-tracker/internal/httpserver"
	"github.com/radiusdt/roi-tracker/internal/middleware"
	"github.com/radiusdt/roi-tracker/internal/models"
	"github.com/radiusdt/roi-tracker/internal/storage"
)

const testSecret = "test-secret"

type stubExtractor struct{}

func (stubExtractor) Platform() models.Platform { return models.PlatformGoogle }

func (stubExtractor) Extract(ctx context.Context, tenant *models.Tenant) ([]models.AdRow, error) {
	spend := 100.0
	return []models.AdRow{{
		TenantID:     tenant.ID,
		Platform:     models.PlatformGoogle,
		CampaignID:   "c1",
		CampaignName: "Promo",
		Spend:        &spend,
		UTM:          models.UTMKey{Source: "google", Medium: "cpc", Campaign: "promo"},
	}}, nil
}

func seedMetrics(store *storage.InMemoryAttributionStore) {
	_ = store.ReplaceMetrics(context.Background(), []models.RoiMetric{
		{
			GroupKey: models.GroupKey{
				TenantID: "t1", Platform: models.PlatformGoogle,
				UTM: models.UTMKey{Source: "google", Medium: "cpc", Campaign: "promo"},
			},
			TotalCalls: 4, CompletedCalls: 3, MissedCalls: 1,
			TotalSpend: 100, CostPerCall: 25,
		},
		{
			GroupKey: models.GroupKey{
				TenantID: "t2", Platform: models.PlatformMeta,
				UTM: models.UTMKey{Source: "facebook", Medium: "paid", Campaign: "launch"},
			},
			TotalCalls: 2, CompletedCalls: 2,
			TotalSpend: 50, CostPerCall: 25,
		},
	})
	store.SetTenantNames(map[string]string{"t1": "Acme", "t2": "Globex"})
}

func newTestServer(t *testing.T) (http.Handler, *storage.InMemoryAttributionStore, *storage.InMemoryStatusStore) {
	t.Helper()

	store := storage.NewInMemoryAttributionStore()
	status := storage.NewInMemoryStatusStore()
	tenants := storage.NewInMemoryTenantRepo(
		&models.Tenant{ID: "t1", Name: "Acme", Role: models.RoleUser},
	)

	pipeline := etl.NewPipeline(etl.Config{
		Tenants:    tenants,
		Calls:      storage.NewInMemoryCallSource(),
		Store:      store,
		Status:     status,
		Extractors: []ads.Extractor{stubExtractor{}},
		Logger:     zap.NewNop(),
	})

	cfg := &config.Config{}
	cfg.Auth.Enabled = true
	cfg.Auth.JWTSecret = testSecret
	cfg.Metrics.Enabled = false
	cfg.RateLimit.Enabled = false

	handler := httpserver.NewServer(&httpserver.Dependencies{
		Store:    store,
		Status:   status,
		Pipeline: pipeline,
		Config:   cfg,
		Logger:   zap.NewNop(),
	})
	return handler, store, status
}

func authedRequest(t *testing.T, method, target string, id middleware.Identity) *http.Request {
	t.Helper()
	token, err := middleware.GenerateToken(testSecret, id, time.Minute)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRoiRequiresToken(t *testing.T) {
	handler, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/roi", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func decodeMetrics(t *testing.T, rec *httptest.ResponseRecorder) []models.RoiMetric {
	t.Helper()
	var body struct {
		Metrics []models.RoiMetric `json:"metrics"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body.Metrics
}

func TestRoiAdminSeesAllTenants(t *testing.T) {
	handler, store, _ := newTestServer(t)
	seedMetrics(store)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/roi", middleware.Identity{Role: models.RoleAdmin}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	metrics := decodeMetrics(t, rec)
	if len(metrics) != 2 {
		t.Fatalf("admin should see both tenants, got %d rows", len(metrics))
	}
	if metrics[0].TenantName != "Acme" {
		t.Fatalf("expected joined tenant name, got %q", metrics[0].TenantName)
	}
}

func TestRoiUserPinnedToOwnTenant(t *testing.T) {
	handler, store, _ := newTestServer(t)
	seedMetrics(store)

	// The query asks for t2; a non-admin caller must stay on t1.
	req := authedRequest(t, http.MethodGet, "/roi?tenant=t2", middleware.Identity{TenantID: "t1", Role: models.RoleUser})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	metrics := decodeMetrics(t, rec)
	if len(metrics) != 1 {
		t.Fatalf("expected 1 row, got %d", len(metrics))
	}
	if metrics[0].TenantID != "t1" {
		t.Fatalf("non-admin leaked tenant %q", metrics[0].TenantID)
	}
}

func TestRoiPlatformAndSourceFilters(t *testing.T) {
	handler, store, _ := newTestServer(t)
	seedMetrics(store)

	req := authedRequest(t, http.MethodGet, "/roi?platform=Meta&source=facebook", middleware.Identity{Role: models.RoleAdmin})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	metrics := decodeMetrics(t, rec)
	if len(metrics) != 1 || metrics[0].Platform != models.PlatformMeta {
		t.Fatalf("unexpected filter result: %+v", metrics)
	}
}

func TestCSVExport(t *testing.T) {
	handler, store, _ := newTestServer(t)
	seedMetrics(store)

	req := authedRequest(t, http.MethodGet, "/roi/export?format=csv", middleware.Identity{Role: models.RoleAdmin})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %q", ct)
	}

	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	// Header plus two data rows.
	if len(records) != 3 {
		t.Fatalf("expected 3 csv records, got %d", len(records))
	}
	if records[0][0] != "tenant_id" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][10] != "25.00" {
		t.Fatalf("expected cost_per_call 25.00, got %q", records[1][10])
	}
}

func TestXLSXExportContentType(t *testing.T) {
	handler, store, _ := newTestServer(t)
	seedMetrics(store)

	req := authedRequest(t, http.MethodGet, "/roi/export?format=xlsx", middleware.Identity{Role: models.RoleAdmin})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("expected xlsx content type, got %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected non-empty workbook body")
	}
}

func TestRunETLRequiresAdmin(t *testing.T) {
	handler, _, _ := newTestServer(t)

	req := authedRequest(t, http.MethodPost, "/etl/run", middleware.Identity{TenantID: "t1", Role: models.RoleUser})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin trigger, got %d", rec.Code)
	}
}

func TestRunETLProducesReportAndStatus(t *testing.T) {
	handler, store, status := newTestServer(t)

	req := authedRequest(t, http.MethodPost, "/etl/run", middleware.Identity{Role: models.RoleAdmin})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var report models.RunReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if !report.OK || report.RunID == "" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.AdRows != 1 {
		t.Fatalf("expected 1 ad row from stub extractor, got %d", report.AdRows)
	}

	st, err := status.GetLastRun(context.Background())
	if err != nil || st == nil || st.RunID != report.RunID {
		t.Fatalf("status not recorded: %+v err=%v", st, err)
	}

	// No calls seeded: attribution is empty but still replaced.
	if got := store.Attribution(); len(got) != 0 {
		t.Fatalf("expected empty attribution set, got %d rows", len(got))
	}

	// Status endpoint serves the record back.
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, authedRequest(t, http.MethodGet, "/etl/status", middleware.Identity{Role: models.RoleAdmin}))
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 from status, got %d", rec2.Code)
	}
	if !strings.Contains(rec2.Body.String(), report.RunID) {
		t.Fatalf("status response missing run id: %s", rec2.Body.String())
	}
}

func TestHealthIsUnauthenticated(t *testing.T) {
	handler, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", rec.Code)
	}
}
