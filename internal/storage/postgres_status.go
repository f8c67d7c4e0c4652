package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radiusdt/roi-tracker/internal/models"
)

const lastRunKey = "last_run"

// PostgresStatusStore implements StatusStore using PostgreSQL.
type PostgresStatusStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStatusStore(pool *pgxpool.Pool) *PostgresStatusStore {
	return &PostgresStatusStore{pool: pool}
}

func (s *PostgresStatusStore) SetLastRun(ctx context.Context, st models.RunStatus) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO etl_status (key, run_id, finished_at, ok, error)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			finished_at = EXCLUDED.finished_at,
			ok = EXCLUDED.ok,
			error = EXCLUDED.error
	`, lastRunKey, st.RunID, st.FinishedAt, st.OK, st.Error)
	if err != nil {
		return fmt.Errorf("failed to record etl status: %w", err)
	}
	return nil
}

func (s *PostgresStatusStore) GetLastRun(ctx context.Context) (*models.RunStatus, error) {
	var st models.RunStatus
	err := s.pool.QueryRow(ctx, `
		SELECT run_id, finished_at, ok, error
		FROM etl_status WHERE key = $1
	`, lastRunKey).Scan(&st.RunID, &st.FinishedAt, &st.OK, &st.Error)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read etl status: %w", err)
	}
	return &st, nil
}
