package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radiusdt/roi-tracker/internal/models"
)

// PostgresTenantRepo implements TenantRepo using PostgreSQL.
type PostgresTenantRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresTenantRepo(pool *pgxpool.Pool) *PostgresTenantRepo {
	return &PostgresTenantRepo{pool: pool}
}

func (r *PostgresTenantRepo) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, role, platforms, created_at, updated_at
		FROM tenants ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (r *PostgresTenantRepo) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, role, platforms, created_at, updated_at
		FROM tenants WHERE id = $1
	`, id)

	t, err := scanTenant(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t, nil
}

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	var platformsJSON []byte

	if err := row.Scan(&t.ID, &t.Name, &t.Role, &platformsJSON, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}

	if len(platformsJSON) > 0 {
		if err := json.Unmarshal(platformsJSON, &t.Platforms); err != nil {
			return nil, fmt.Errorf("failed to parse tenant platforms: %w", err)
		}
	}
	if t.Platforms == nil {
		t.Platforms = map[string]models.PlatformCredentials{}
	}
	return &t, nil
}
