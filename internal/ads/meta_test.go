package ads_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radiusdt/roi-tracker/internal/ads"
	"github.com/radiusdt/roi-tracker/internal/config"
	"github.com/radiusdt/roi-tracker/internal/models"
)

func metaTenant(id string) *models.Tenant {
	return &models.Tenant{
		ID:   id,
		Name: "Tenant " + id,
		Platforms: map[string]models.PlatformCredentials{
			models.PlatformKeyMeta: {AccessToken: "token-" + id, AdAccountID: "act_" + id},
		},
	}
}

const metaInsight = `{
	"ad_id": "a1", "ad_name": "Ad One",
	"campaign_id": "c1", "campaign_name": "Promo",
	"adset_id": "s1", "adset_name": "Set One",
	"impressions": "1200", "clicks": "45", "spend": "99.50",
	"account_name": "Acme",
	"utm_source": "Facebook", "utm_medium": "Paid", "utm_campaign": "Promo"
}`

func TestMetaExtractPassesUTMThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("level") != "ad" || q.Get("date_preset") != "last_7d" {
			t.Errorf("unexpected query params: %v", q)
		}
		if q.Get("access_token") != "token-t1" {
			t.Errorf("missing tenant access token, got %q", q.Get("access_token"))
		}
		fmt.Fprintf(w, `{"data":[%s],"paging":{}}`, metaInsight)
	}))
	defer srv.Close()

	ex := ads.NewMetaExtractor(config.MetaConfig{APIBaseURL: srv.URL}, 25, "last_7d")
	rows, err := ex.Extract(context.Background(), metaTenant("t1"))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	r := rows[0]
	if r.TenantID != "t1" || r.Platform != models.PlatformMeta {
		t.Fatalf("row missing tenant/platform tags: %+v", r)
	}
	if r.Impressions != 1200 || r.Clicks != 45 {
		t.Fatalf("unexpected metrics: %+v", r)
	}
	if r.Spend == nil || *r.Spend != 99.50 {
		t.Fatalf("expected spend 99.50, got %v", r.Spend)
	}
	// UTM values pass through raw; normalization happens at merge time.
	want := models.UTMKey{Source: "Facebook", Medium: "Paid", Campaign: "Promo"}
	if r.UTM != want {
		t.Fatalf("expected pass-through key %+v, got %+v", want, r.UTM)
	}
}

func TestMetaExtractFollowsPagingUpToCap(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprintf(w, `{"data":[%s,%s],"paging":{}}`, metaInsight, metaInsight)
			return
		}
		fmt.Fprintf(w, `{"data":[%s],"paging":{"next":"%s/page?page=2"}}`, metaInsight, srv.URL)
	}))
	defer srv.Close()

	ex := ads.NewMetaExtractor(config.MetaConfig{APIBaseURL: srv.URL}, 2, "last_7d")
	rows, err := ex.Extract(context.Background(), metaTenant("t1"))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected row cap of 2 to hold across pages, got %d", len(rows))
	}
}

func TestMetaExtractMissingCredentialsIsSkip(t *testing.T) {
	ex := ads.NewMetaExtractor(config.MetaConfig{}, 25, "last_7d")
	tenant := &models.Tenant{ID: "t1", Platforms: map[string]models.PlatformCredentials{
		models.PlatformKeyMeta: {AccessToken: "only-token"},
	}}

	_, err := ex.Extract(context.Background(), tenant)
	if !ads.IsNoCredentials(err) {
		t.Fatalf("expected missing-credentials skip, got %v", err)
	}
}

// flakyExtractor fails for one tenant only.
type flakyExtractor struct {
	failTenant string
}

func (f *flakyExtractor) Platform() models.Platform { return models.PlatformMeta }

func (f *flakyExtractor) Extract(ctx context.Context, tenant *models.Tenant) ([]models.AdRow, error) {
	if tenant.ID == f.failTenant {
		return nil, errors.New("rate limited")
	}
	if _, ok := tenant.MetaCredentials(); !ok {
		return nil, nil
	}
	return []models.AdRow{{TenantID: tenant.ID, Platform: models.PlatformMeta}}, nil
}

func TestExtractAllIsolatesTenantFailures(t *testing.T) {
	ex := &flakyExtractor{failTenant: "a"}
	tenants := []*models.Tenant{metaTenant("a"), metaTenant("b"), metaTenant("c")}

	rows, results := ads.ExtractAll(context.Background(), ex, tenants, time.Second, zap.NewNop())

	if len(rows) != 2 {
		t.Fatalf("expected rows from the two healthy tenants, got %d", len(rows))
	}
	if len(results) != 3 {
		t.Fatalf("expected a result per tenant, got %d", len(results))
	}
	for _, r := range results {
		switch r.TenantID {
		case "a":
			if r.Error == "" {
				t.Fatalf("expected recorded failure for tenant a: %+v", r)
			}
		default:
			if r.Error != "" || r.Rows != 1 {
				t.Fatalf("unexpected result for tenant %s: %+v", r.TenantID, r)
			}
		}
	}
}
