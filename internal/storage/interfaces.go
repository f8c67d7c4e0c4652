package storage

import (
	"context"

	"github.com/radiusdt/roi-tracker/internal/models"
)

// TenantRepo reads tenant records. Tenants are managed out of band;
// the pipeline never writes them.
type TenantRepo interface {
	ListTenants(ctx context.Context) ([]*models.Tenant, error)
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)
}

// CallSource yields the externally produced call-event snapshot. The
// pipeline does not care how the rows got there.
type CallSource interface {
	ListCalls(ctx context.Context) ([]models.CallRow, error)
}

// MetricsFilter narrows dashboard reads. Empty fields match everything.
type MetricsFilter struct {
	TenantID  string
	Platform  string
	UTMSource string
}

// AttributionStore persists pipeline output with replace-all semantics
// and serves the dashboard read side.
type AttributionStore interface {
	// ReplaceAttribution swaps the full lead_attribution collection for
	// the given rows.
	ReplaceAttribution(ctx context.Context, rows []models.AttributionRow) error
	// ReplaceMetrics swaps the full roi_metrics collection for the
	// given rows.
	ReplaceMetrics(ctx context.Context, rows []models.RoiMetric) error
	// ListMetrics returns roi_metrics joined with tenant display names,
	// narrowed by the filter.
	ListMetrics(ctx context.Context, f MetricsFilter) ([]models.RoiMetric, error)
}

// StatusStore holds the single "last_run" record the dashboard uses to
// report ETL freshness.
type StatusStore interface {
	SetLastRun(ctx context.Context, st models.RunStatus) error
	// GetLastRun returns (nil, nil) when no run has completed yet.
	GetLastRun(ctx context.Context) (*models.RunStatus, error)
}
