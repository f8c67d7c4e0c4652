package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radiusdt/roi-tracker/internal/ads"
	"github.com/radiusdt/roi-tracker/internal/metrics"
	"github.com/radiusdt/roi-tracker/internal/models"
	"github.com/radiusdt/roi-tracker/internal/storage"
)

// runLockKey guards against overlapping on-demand runs across
// processes sharing the same Redis.
const runLockKey = "roi_tracker:etl:run_lock"

// ErrRunInProgress is returned when another pipeline run holds the
// run lock.
var ErrRunInProgress = errors.New("etl run already in progress")

// Pipeline orchestrates the full attribution run: extract per platform
// with tenant isolation, merge, aggregate, persist. Steps execute in
// fixed sequence; extraction failures are contained per tenant while
// merge, aggregate and persist failures abort the run and leave the
// previously persisted data untouched.
type Pipeline struct {
	tenants    storage.TenantRepo
	calls      storage.CallSource
	store      storage.AttributionStore
	status     storage.StatusStore
	extractors []ads.Extractor

	redis      *redis.Client
	lockTTL    time.Duration
	tenantTO   time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// Config wires a Pipeline. Redis is optional; without it the run lock
// is process-local only. Metrics is optional.
type Config struct {
	Tenants       storage.TenantRepo
	Calls         storage.CallSource
	Store         storage.AttributionStore
	Status        storage.StatusStore
	Extractors    []ads.Extractor
	Redis         *redis.Client
	RunLockTTL    time.Duration
	TenantTimeout time.Duration
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
}

func NewPipeline(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		tenants:    cfg.Tenants,
		calls:      cfg.Calls,
		store:      cfg.Store,
		status:     cfg.Status,
		extractors: cfg.Extractors,
		redis:      cfg.Redis,
		lockTTL:    cfg.RunLockTTL,
		tenantTO:   cfg.TenantTimeout,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// Run executes one full pipeline pass and records the outcome in the
// status store. The returned report is also what the HTTP trigger
// serves back to the operator. A non-nil error means the run did not
// complete; extraction failures for individual tenants do not count.
func (p *Pipeline) Run(ctx context.Context) (*models.RunReport, error) {
	if err := p.acquireLock(ctx); err != nil {
		return nil, err
	}
	defer p.releaseLock(ctx)

	report := &models.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	err := p.run(ctx, report)

	report.FinishedAt = time.Now().UTC()
	report.OK = err == nil
	if err != nil {
		report.Error = err.Error()
	}

	if p.metrics != nil {
		p.metrics.ObserveRun(report.OK, report.FinishedAt.Sub(report.StartedAt))
	}

	// Record the outcome even when the run failed; the dashboard
	// reports ETL freshness from this record.
	st := models.RunStatus{
		RunID:      report.RunID,
		FinishedAt: report.FinishedAt,
		OK:         report.OK,
		Error:      report.Error,
	}
	if serr := p.status.SetLastRun(ctx, st); serr != nil {
		p.logger.Error("failed to record run status", zap.Error(serr))
		if err == nil {
			err = serr
			report.OK = false
			report.Error = serr.Error()
		}
	}

	p.logger.Info("etl run finished",
		zap.String("run_id", report.RunID),
		zap.Bool("ok", report.OK),
		zap.Int("ad_rows", report.AdRows),
		zap.Int("call_rows", report.CallRows),
		zap.Int("attribution_rows", report.AttributionRows),
		zap.Int("metric_rows", report.MetricRows),
	)

	return report, err
}

func (p *Pipeline) run(ctx context.Context, report *models.RunReport) error {
	tenants, err := p.tenants.ListTenants(ctx)
	if err != nil {
		return p.stepFailed(report, models.StepExtractGoogle, fmt.Errorf("load tenants: %w", err))
	}

	// Extraction: one platform at a time, tenant failures isolated
	// inside ExtractAll.
	var adRows []models.AdRow
	for _, ex := range p.extractors {
		rows, results := ads.ExtractAll(ctx, ex, tenants, p.tenantTO, p.logger)
		adRows = append(adRows, rows...)
		report.Tenants = append(report.Tenants, results...)

		if p.metrics != nil {
			p.metrics.RowsExtracted.WithLabelValues(string(ex.Platform())).Add(float64(len(rows)))
			for _, r := range results {
				p.metrics.TenantExtractions.WithLabelValues(string(r.Platform), extractionResult(r)).Inc()
			}
		}
	}
	report.AdRows = len(adRows)

	calls, err := p.calls.ListCalls(ctx)
	if err != nil {
		return p.stepFailed(report, models.StepMerge, fmt.Errorf("load calls: %w", err))
	}
	report.CallRows = len(calls)

	merged := Merge(adRows, calls)
	report.AttributionRows = len(merged.Rows)
	if merged.DuplicateKeys > 0 {
		p.logger.Warn("duplicate normalized ad keys fan the join out",
			zap.Int("keys", merged.DuplicateKeys))
	}
	if p.metrics != nil {
		p.metrics.AttributionRows.Set(float64(len(merged.Rows)))
		p.metrics.UnmatchedCalls.Set(float64(merged.Unmatched))
		p.metrics.DuplicateAdKeys.Set(float64(merged.DuplicateKeys))
	}

	roi := Aggregate(merged.Rows)
	report.MetricRows = len(roi)
	if p.metrics != nil {
		p.metrics.MetricRows.Set(float64(len(roi)))
	}

	if err := p.store.ReplaceAttribution(ctx, merged.Rows); err != nil {
		return p.stepFailed(report, models.StepPersist, fmt.Errorf("persist attribution: %w", err))
	}
	if err := p.store.ReplaceMetrics(ctx, roi); err != nil {
		return p.stepFailed(report, models.StepPersist, fmt.Errorf("persist roi metrics: %w", err))
	}

	return nil
}

func (p *Pipeline) stepFailed(report *models.RunReport, step models.StepName, err error) error {
	report.FailedStep = step
	if p.metrics != nil {
		p.metrics.ETLStepFailures.WithLabelValues(string(step)).Inc()
	}
	return err
}

func (p *Pipeline) acquireLock(ctx context.Context) error {
	if p.redis == nil {
		return nil
	}
	ok, err := p.redis.SetNX(ctx, runLockKey, time.Now().UTC().Format(time.RFC3339), p.lockTTL).Result()
	if err != nil {
		// Redis being down should not block on-demand runs.
		p.logger.Warn("run lock unavailable, proceeding without it", zap.Error(err))
		return nil
	}
	if !ok {
		return ErrRunInProgress
	}
	return nil
}

func (p *Pipeline) releaseLock(ctx context.Context) {
	if p.redis == nil {
		return
	}
	if err := p.redis.Del(ctx, runLockKey).Err(); err != nil {
		p.logger.Warn("failed to release run lock", zap.Error(err))
	}
}

func extractionResult(r models.TenantResult) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Error != "":
		return "error"
	default:
		return "ok"
	}
}
