package storage

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/radiusdt/roi-tracker/internal/models"
)

// ClickHouseCallSource reads call-tracking events from ClickHouse,
// where high-volume call ingest typically lands. The pipeline only
// needs the latest snapshot, so events are collapsed to the most
// recent row per call id.
type ClickHouseCallSource struct {
	conn  driver.Conn
	table string
}

func NewClickHouseCallSource(conn driver.Conn) *ClickHouseCallSource {
	return &ClickHouseCallSource{conn: conn, table: "call_events"}
}

func (s *ClickHouseCallSource) ListCalls(ctx context.Context) ([]models.CallRow, error) {
	query := fmt.Sprintf(`
		SELECT call_id,
		       argMax(call_status, occurred_at) AS call_status,
		       argMax(caller_id, occurred_at)   AS caller_id,
		       max(duration_s)                  AS duration_s,
		       max(occurred_at)                 AS occurred_at,
		       argMax(utm_source, occurred_at)  AS utm_source,
		       argMax(utm_medium, occurred_at)  AS utm_medium,
		       argMax(utm_campaign, occurred_at) AS utm_campaign
		FROM %s
		GROUP BY call_id
		ORDER BY call_id
	`, s.table)

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query call events: %w", err)
	}
	defer rows.Close()

	var calls []models.CallRow
	for rows.Next() {
		var c models.CallRow
		var status string
		if err := rows.Scan(
			&c.CallID, &status, &c.CallerID, &c.DurationS, &c.OccurredAt,
			&c.UTM.Source, &c.UTM.Medium, &c.UTM.Campaign,
		); err != nil {
			return nil, err
		}
		c.Status = models.CallStatus(status)
		calls = append(calls, c)
	}
	return calls, rows.Err()
}
