package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/matchmaking-system/models"
)

var ErrRankBandNotFound = errors.New("rank band not found")

type RankBandRepository interface {
	List(ctx context.Context, tenantID int, queueName string) ([]models.RankBand, error)
	Upsert(ctx context.Context, band *models.RankBand) error
	Remove(ctx context.Context, tenantID int, queueName, name string) error
}

type postgresRankBandRepository struct {
	db *sql.DB
}

func NewPostgresRankBandRepository(db *sql.DB) RankBandRepository {
	return &postgresRankBandRepository{db: db}
}

func (r *postgresRankBandRepository) List(ctx context.Context, tenantID int, queueName string) ([]models.RankBand, error) {
	query := `
		SELECT tenant_id, queue_name, name, min_mmr, max_mmr, role_id
		FROM rank_bands
		WHERE tenant_id = $1 AND queue_name = $2
		ORDER BY min_mmr`

	rows, err := r.db.QueryContext(ctx, query, tenantID, queueName)
	if err != nil {
		return nil, fmt.Errorf("failed to query rank bands for %d/%s: %w", tenantID, queueName, err)
	}
	defer rows.Close()

	bands := make([]models.RankBand, 0)
	for rows.Next() {
		var band models.RankBand
		if err := rows.Scan(
			&band.TenantID,
			&band.QueueName,
			&band.Name,
			&band.MinMMR,
			&band.MaxMMR,
			&band.RoleID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rank band row: %w", err)
		}
		bands = append(bands, band)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rank band rows iteration: %w", err)
	}
	return bands, nil
}

func (r *postgresRankBandRepository) Upsert(ctx context.Context, band *models.RankBand) error {
	query := `
		INSERT INTO rank_bands (tenant_id, queue_name, name, min_mmr, max_mmr, role_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, queue_name, name) DO UPDATE SET
			min_mmr = EXCLUDED.min_mmr,
			max_mmr = EXCLUDED.max_mmr,
			role_id = EXCLUDED.role_id`

	_, err := r.db.ExecContext(ctx, query,
		band.TenantID,
		band.QueueName,
		band.Name,
		band.MinMMR,
		band.MaxMMR,
		band.RoleID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rank band %s for %d/%s: %w", band.Name, band.TenantID, band.QueueName, err)
	}
	return nil
}

func (r *postgresRankBandRepository) Remove(ctx context.Context, tenantID int, queueName, name string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM rank_bands WHERE tenant_id = $1 AND queue_name = $2 AND name = $3`,
		tenantID, queueName, name)
	if err != nil {
		return fmt.Errorf("failed to remove rank band %s for %d/%s: %w", name, tenantID, queueName, err)
	}
	return checkAffectedRows(result, ErrRankBandNotFound)
}
