package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/matchmaking-system/models"
	"github.com/lib/pq"
)

var (
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantNameConflict = errors.New("tenant name already in use")
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id int) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)
}

type postgresTenantRepository struct {
	db *sql.DB
}

func NewPostgresTenantRepository(db *sql.DB) TenantRepository {
	return &postgresTenantRepository{db: db}
}

func (r *postgresTenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	query := `INSERT INTO tenants (name) VALUES ($1) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, tenant.Name).Scan(&tenant.ID, &tenant.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "tenants_name_key" {
			return ErrTenantNameConflict
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

func (r *postgresTenantRepository) GetByID(ctx context.Context, id int) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tenants WHERE id = $1`, id,
	).Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to scan tenant %d: %w", id, err)
	}
	return tenant, nil
}

func (r *postgresTenantRepository) List(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM tenants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]*models.Tenant, 0)
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant row: %w", err)
		}
		tenants = append(tenants, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tenant rows iteration: %w", err)
	}
	return tenants, nil
}
