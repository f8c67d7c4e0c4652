package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radiusdt/roi-tracker/internal/models"
)

// PostgresAttributionStore implements AttributionStore using
// PostgreSQL. Replace-all runs as DELETE plus bulk COPY inside one
// transaction per collection, so readers never observe the emptied
// intermediate state.
type PostgresAttributionStore struct {
	pool *pgxpool.Pool
}

func NewPostgresAttributionStore(pool *pgxpool.Pool) *PostgresAttributionStore {
	return &PostgresAttributionStore{pool: pool}
}

func (s *PostgresAttributionStore) ReplaceAttribution(ctx context.Context, rows []models.AttributionRow) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM lead_attribution`); err != nil {
		return fmt.Errorf("failed to clear lead_attribution: %w", err)
	}

	src := make([][]any, 0, len(rows))
	for _, r := range rows {
		src = append(src, []any{
			r.CallID, string(r.CallStatus),
			r.UTM.Source, r.UTM.Medium, r.UTM.Campaign,
			r.TenantID, platformPtr(r.Platform), r.AdCampaignID, r.AdCampaign,
			r.Spend, r.Impressions, r.Clicks,
		})
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"lead_attribution"},
		[]string{
			"call_id", "call_status",
			"utm_source", "utm_medium", "utm_campaign",
			"tenant_id", "ad_platform", "campaign_id_ad", "campaign_name_ad",
			"spend", "impressions", "clicks",
		},
		pgx.CopyFromRows(src),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead_attribution: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresAttributionStore) ReplaceMetrics(ctx context.Context, rows []models.RoiMetric) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM roi_metrics`); err != nil {
		return fmt.Errorf("failed to clear roi_metrics: %w", err)
	}

	src := make([][]any, 0, len(rows))
	for _, m := range rows {
		src = append(src, []any{
			m.TenantID, string(m.Platform),
			m.UTM.Source, m.UTM.Medium, m.UTM.Campaign,
			m.TotalCalls, m.CompletedCalls, m.MissedCalls,
			m.TotalSpend, m.CostPerCall,
		})
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"roi_metrics"},
		[]string{
			"tenant_id", "ad_platform",
			"utm_source", "utm_medium", "utm_campaign",
			"total_calls", "completed_calls", "missed_calls",
			"total_spend", "cost_per_call",
		},
		pgx.CopyFromRows(src),
	)
	if err != nil {
		return fmt.Errorf("failed to insert roi_metrics: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresAttributionStore) ListMetrics(ctx context.Context, f MetricsFilter) ([]models.RoiMetric, error) {
	query := `
		SELECT m.tenant_id, m.ad_platform,
		       m.utm_source, m.utm_medium, m.utm_campaign,
		       m.total_calls, m.completed_calls, m.missed_calls,
		       m.total_spend, m.cost_per_call,
		       COALESCE(t.name, '')
		FROM roi_metrics m
		LEFT JOIN tenants t ON t.id = m.tenant_id
		WHERE ($1 = '' OR m.tenant_id = $1)
		  AND ($2 = '' OR m.ad_platform = $2)
		  AND ($3 = '' OR m.utm_source = $3)
		ORDER BY m.tenant_id, m.ad_platform, m.utm_campaign
	`

	rows, err := s.pool.Query(ctx, query, f.TenantID, f.Platform, f.UTMSource)
	if err != nil {
		return nil, fmt.Errorf("failed to list roi metrics: %w", err)
	}
	defer rows.Close()

	var out []models.RoiMetric
	for rows.Next() {
		var m models.RoiMetric
		if err := rows.Scan(
			&m.TenantID, &m.Platform,
			&m.UTM.Source, &m.UTM.Medium, &m.UTM.Campaign,
			&m.TotalCalls, &m.CompletedCalls, &m.MissedCalls,
			&m.TotalSpend, &m.CostPerCall,
			&m.TenantName,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// platformPtr converts *models.Platform to a nullable text value.
func platformPtr(p *models.Platform) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}
