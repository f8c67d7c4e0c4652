package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Bootstrap DDL. Replace-all collections carry no constraints beyond
// types; tenants is owned by the external admin process but created
// here so a fresh database comes up usable.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		role        TEXT NOT NULL DEFAULT 'user',
		platforms   JSONB NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS calls (
		call_id      TEXT PRIMARY KEY,
		call_status  TEXT NOT NULL,
		caller_id    TEXT,
		duration_s   BIGINT NOT NULL DEFAULT 0,
		occurred_at  TIMESTAMPTZ,
		utm_source   TEXT NOT NULL DEFAULT '',
		utm_medium   TEXT NOT NULL DEFAULT '',
		utm_campaign TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS lead_attribution (
		call_id          TEXT NOT NULL,
		call_status      TEXT NOT NULL,
		utm_source       TEXT NOT NULL,
		utm_medium       TEXT NOT NULL,
		utm_campaign     TEXT NOT NULL,
		tenant_id        TEXT,
		ad_platform      TEXT,
		campaign_id_ad   TEXT,
		campaign_name_ad TEXT,
		spend            DOUBLE PRECISION,
		impressions      BIGINT,
		clicks           BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS roi_metrics (
		tenant_id       TEXT NOT NULL,
		ad_platform     TEXT NOT NULL,
		utm_source      TEXT NOT NULL,
		utm_medium      TEXT NOT NULL,
		utm_campaign    TEXT NOT NULL,
		total_calls     BIGINT NOT NULL,
		completed_calls BIGINT NOT NULL,
		missed_calls    BIGINT NOT NULL,
		total_spend     DOUBLE PRECISION NOT NULL,
		cost_per_call   DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS etl_status (
		key         TEXT PRIMARY KEY,
		run_id      TEXT NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		ok          BOOLEAN NOT NULL,
		error       TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_roi_metrics_tenant ON roi_metrics (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_lead_attribution_call ON lead_attribution (call_id)`,
}

// EnsureSchema creates the pipeline tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
