package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/radiusdt/roi-tracker/internal/models"
)

// In-memory implementations used in tests and when Postgres is not
// available. Same interfaces, no persistence.

// InMemoryTenantRepo holds a fixed tenant list.
type InMemoryTenantRepo struct {
	mu      sync.RWMutex
	tenants []*models.Tenant
}

func NewInMemoryTenantRepo(tenants ...*models.Tenant) *InMemoryTenantRepo {
	return &InMemoryTenantRepo{tenants: tenants}
}

func (r *InMemoryTenantRepo) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Tenant, len(r.tenants))
	copy(out, r.tenants)
	return out, nil
}

func (r *InMemoryTenantRepo) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

// InMemoryCallSource holds a fixed call snapshot.
type InMemoryCallSource struct {
	mu    sync.RWMutex
	calls []models.CallRow
}

func NewInMemoryCallSource(calls ...models.CallRow) *InMemoryCallSource {
	return &InMemoryCallSource{calls: calls}
}

func (s *InMemoryCallSource) ListCalls(ctx context.Context) ([]models.CallRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CallRow, len(s.calls))
	copy(out, s.calls)
	return out, nil
}

// SetCalls replaces the snapshot.
func (s *InMemoryCallSource) SetCalls(calls []models.CallRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = calls
}

// InMemoryAttributionStore implements AttributionStore in memory.
type InMemoryAttributionStore struct {
	mu          sync.RWMutex
	attribution []models.AttributionRow
	metrics     []models.RoiMetric
	tenantNames map[string]string
}

func NewInMemoryAttributionStore() *InMemoryAttributionStore {
	return &InMemoryAttributionStore{tenantNames: map[string]string{}}
}

// SetTenantNames supplies the tenant display names ListMetrics joins in.
func (s *InMemoryAttributionStore) SetTenantNames(names map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenantNames = names
}

func (s *InMemoryAttributionStore) ReplaceAttribution(ctx context.Context, rows []models.AttributionRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attribution = append([]models.AttributionRow(nil), rows...)
	return nil
}

func (s *InMemoryAttributionStore) ReplaceMetrics(ctx context.Context, rows []models.RoiMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append([]models.RoiMetric(nil), rows...)
	return nil
}

func (s *InMemoryAttributionStore) ListMetrics(ctx context.Context, f MetricsFilter) ([]models.RoiMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.RoiMetric
	for _, m := range s.metrics {
		if f.TenantID != "" && m.TenantID != f.TenantID {
			continue
		}
		if f.Platform != "" && string(m.Platform) != f.Platform {
			continue
		}
		if f.UTMSource != "" && m.UTM.Source != f.UTMSource {
			continue
		}
		m.TenantName = s.tenantNames[m.TenantID]
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TenantID != b.TenantID {
			return a.TenantID < b.TenantID
		}
		if a.Platform != b.Platform {
			return strings.Compare(string(a.Platform), string(b.Platform)) < 0
		}
		return a.UTM.Campaign < b.UTM.Campaign
	})
	return out, nil
}

// Attribution returns the stored attribution rows (test hook).
func (s *InMemoryAttributionStore) Attribution() []models.AttributionRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AttributionRow(nil), s.attribution...)
}

// Metrics returns the stored roi metrics (test hook).
func (s *InMemoryAttributionStore) Metrics() []models.RoiMetric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.RoiMetric(nil), s.metrics...)
}

// InMemoryStatusStore implements StatusStore in memory.
type InMemoryStatusStore struct {
	mu   sync.RWMutex
	last *models.RunStatus
}

func NewInMemoryStatusStore() *InMemoryStatusStore {
	return &InMemoryStatusStore{}
}

func (s *InMemoryStatusStore) SetLastRun(ctx context.Context, st models.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &st
	return nil
}

func (s *InMemoryStatusStore) GetLastRun(ctx context.Context) (*models.RunStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, nil
	}
	st := *s.last
	return &st, nil
}
