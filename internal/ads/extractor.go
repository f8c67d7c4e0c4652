package ads

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radiusdt/roi-tracker/internal/models"
)

// Extractor pulls one platform's reporting rows for one tenant. An
// implementation returns a missing-credentials error (see
// IsNoCredentials) when the tenant lacks the fields it needs; that is
// a skip, not a failure.
type Extractor interface {
	Platform() models.Platform
	Extract(ctx context.Context, tenant *models.Tenant) ([]models.AdRow, error)
}

// errNoCredentials marks a tenant that cannot be extracted for a
// platform because its credential bundle is incomplete.
var errNoCredentials = &credentialsError{}

type credentialsError struct{}

func (*credentialsError) Error() string { return "missing platform credentials" }

// IsNoCredentials reports whether err is the missing-credentials skip
// condition.
func IsNoCredentials(err error) bool {
	_, ok := err.(*credentialsError)
	return ok
}

// ExtractAll runs one extractor over every tenant sequentially. A
// failing tenant is logged and recorded with its reason, contributes
// zero rows, and never aborts the loop. Each tenant's extraction is
// bounded by tenantTimeout so one hanging vendor call cannot stall the
// run. Returned rows carry tenant id and platform tags set by the
// extractor.
func ExtractAll(ctx context.Context, ex Extractor, tenants []*models.Tenant, tenantTimeout time.Duration, logger *zap.Logger) ([]models.AdRow, []models.TenantResult) {
	var rows []models.AdRow
	results := make([]models.TenantResult, 0, len(tenants))

	for _, tenant := range tenants {
		res := models.TenantResult{TenantID: tenant.ID, Platform: ex.Platform()}

		tctx := ctx
		var cancel context.CancelFunc
		if tenantTimeout > 0 {
			tctx, cancel = context.WithTimeout(ctx, tenantTimeout)
		}

		tenantRows, err := ex.Extract(tctx, tenant)
		if cancel != nil {
			cancel()
		}

		switch {
		case IsNoCredentials(err):
			res.Skipped = true
		case err != nil:
			logger.Warn("tenant extraction failed",
				zap.String("tenant_id", tenant.ID),
				zap.String("platform", string(ex.Platform())),
				zap.Error(err),
			)
			res.Error = err.Error()
		default:
			res.Rows = len(tenantRows)
			rows = append(rows, tenantRows...)
		}

		results = append(results, res)
	}

	return rows, results
}
