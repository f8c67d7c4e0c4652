package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radiusdt/roi-tracker/internal/models"
)

// PostgresCallSource reads the call-event snapshot from the calls
// table. This is the default source when ClickHouse is not configured.
type PostgresCallSource struct {
	pool *pgxpool.Pool
}

func NewPostgresCallSource(pool *pgxpool.Pool) *PostgresCallSource {
	return &PostgresCallSource{pool: pool}
}

func (s *PostgresCallSource) ListCalls(ctx context.Context) ([]models.CallRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT call_id, call_status, COALESCE(caller_id, ''), duration_s,
		       COALESCE(occurred_at, 'epoch'::timestamptz),
		       utm_source, utm_medium, utm_campaign
		FROM calls ORDER BY call_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer rows.Close()

	var calls []models.CallRow
	for rows.Next() {
		var c models.CallRow
		if err := rows.Scan(
			&c.CallID, &c.Status, &c.CallerID, &c.DurationS, &c.OccurredAt,
			&c.UTM.Source, &c.UTM.Medium, &c.UTM.Campaign,
		); err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}
