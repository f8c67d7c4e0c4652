package ads_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/radiusdt/roi-tracker/internal/ads"
	"github.com/radiusdt/roi-tracker/internal/config"
	"github.com/radiusdt/roi-tracker/internal/models"
)

func googleTenant(id string) *models.Tenant {
	return &models.Tenant{
		ID:   id,
		Name: "Tenant " + id,
		Platforms: map[string]models.PlatformCredentials{
			models.PlatformKeyGoogle: {RefreshToken: "refresh-" + id, CustomerID: "123-" + id},
		},
	}
}

func newGoogleTestServer(t *testing.T, searchStatus int, results string) (*httptest.Server, config.GoogleConfig) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/token":
			if r.Method != http.MethodPost {
				t.Errorf("token endpoint got method %s", r.Method)
			}
			_ = r.ParseForm()
			if r.Form.Get("grant_type") != "refresh_token" {
				t.Errorf("unexpected grant_type %q", r.Form.Get("grant_type"))
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
		case strings.Contains(r.URL.Path, "googleAds:search"):
			if got := r.Header.Get("developer-token"); got != "dev-token" {
				t.Errorf("missing developer token header, got %q", got)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("unexpected authorization %q", got)
			}
			w.WriteHeader(searchStatus)
			_, _ = w.Write([]byte(results))
		default:
			http.NotFound(w, r)
		}
	}))

	cfg := config.GoogleConfig{
		DeveloperToken: "dev-token",
		ClientID:       "client",
		ClientSecret:   "secret",
		APIBaseURL:     srv.URL,
		TokenURL:       srv.URL + "/token",
	}
	return srv, cfg
}

func TestGoogleExtractSynthesizesUTM(t *testing.T) {
	body := `{"results":[{"campaign":{"id":"111","name":"Spring Sale","status":"ENABLED","advertisingChannelType":"SEARCH","startDate":"2025-01-01","endDate":"2025-12-31"}}]}`
	srv, cfg := newGoogleTestServer(t, http.StatusOK, body)
	defer srv.Close()

	ex := ads.NewGoogleExtractor(cfg, 20)
	rows, err := ex.Extract(context.Background(), googleTenant("t1"))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	r := rows[0]
	if r.TenantID != "t1" || r.Platform != models.PlatformGoogle {
		t.Fatalf("row missing tenant/platform tags: %+v", r)
	}
	if r.CampaignID != "111" || r.CampaignName != "Spring Sale" {
		t.Fatalf("unexpected campaign fields: %+v", r)
	}
	want := models.UTMKey{Source: "google", Medium: "cpc", Campaign: "spring_sale"}
	if r.UTM != want {
		t.Fatalf("expected synthesized key %+v, got %+v", want, r.UTM)
	}
	if r.Spend != nil {
		t.Fatal("campaign reporting carries no spend; expected nil")
	}
}

func TestGoogleExtractMissingCredentialsIsSkip(t *testing.T) {
	ex := ads.NewGoogleExtractor(config.GoogleConfig{}, 20)
	tenant := &models.Tenant{ID: "t1", Platforms: map[string]models.PlatformCredentials{}}

	_, err := ex.Extract(context.Background(), tenant)
	if !ads.IsNoCredentials(err) {
		t.Fatalf("expected missing-credentials skip, got %v", err)
	}
}

func TestGoogleExtractAPIErrorPropagates(t *testing.T) {
	srv, cfg := newGoogleTestServer(t, http.StatusForbidden, `{"error":"denied"}`)
	defer srv.Close()

	ex := ads.NewGoogleExtractor(cfg, 20)
	_, err := ex.Extract(context.Background(), googleTenant("t1"))
	if err == nil {
		t.Fatal("expected error from non-2xx search response")
	}
}

func TestGoogleQueryCarriesRowCap(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			_, _ = w.Write([]byte(`{"access_token":"tok"}`))
			return
		}
		var req struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotQuery = req.Query
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	cfg := config.GoogleConfig{APIBaseURL: srv.URL, TokenURL: srv.URL + "/token"}
	ex := ads.NewGoogleExtractor(cfg, 7)
	if _, err := ex.Extract(context.Background(), googleTenant("t1")); err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if !strings.Contains(gotQuery, "LIMIT 7") {
		t.Fatalf("expected row cap in query, got %q", gotQuery)
	}
}
