package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/matchmaking-system/models"
)

// ErrQueueConfigNotFound distinguishes "queue was never configured, caller
// should fall back to DefaultQueueConfig" from a real failure.
var ErrQueueConfigNotFound = errors.New("queue config not found")

type QueueConfigRepository interface {
	Get(ctx context.Context, tenantID int, queueName string) (*models.QueueConfig, error)
	Upsert(ctx context.Context, cfg *models.QueueConfig) error
	SetLocked(ctx context.Context, tenantID int, queueName string, locked bool) error
	ListDecayEnabled(ctx context.Context) ([]*models.QueueConfig, error)
	ListMaps(ctx context.Context, tenantID int, queueName string) ([]string, error)
	AddMap(ctx context.Context, tenantID int, queueName, mapName string) error
	RemoveMap(ctx context.Context, tenantID int, queueName, mapName string) error
}

type postgresQueueConfigRepository struct {
	db *sql.DB
}

func NewPostgresQueueConfigRepository(db *sql.DB) QueueConfigRepository {
	return &postgresQueueConfigRepository{db: db}
}

func (r *postgresQueueConfigRepository) Get(ctx context.Context, tenantID int, queueName string) (*models.QueueConfig, error) {
	query := `
		SELECT tenant_id, queue_name, team_size, team_mode, locked,
		       team1_name, team2_name, game_mode, mmr_decay_enabled,
		       created_at, updated_at
		FROM queue_configs
		WHERE tenant_id = $1 AND queue_name = $2`

	cfg := &models.QueueConfig{}
	err := r.db.QueryRowContext(ctx, query, tenantID, queueName).Scan(
		&cfg.TenantID,
		&cfg.QueueName,
		&cfg.TeamSize,
		&cfg.TeamMode,
		&cfg.Locked,
		&cfg.Team1Name,
		&cfg.Team2Name,
		&cfg.GameMode,
		&cfg.MMRDecayEnabled,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQueueConfigNotFound
		}
		return nil, fmt.Errorf("failed to scan queue config %d/%s: %w", tenantID, queueName, err)
	}
	return cfg, nil
}

func (r *postgresQueueConfigRepository) Upsert(ctx context.Context, cfg *models.QueueConfig) error {
	query := `
		INSERT INTO queue_configs
			(tenant_id, queue_name, team_size, team_mode, locked,
			 team1_name, team2_name, game_mode, mmr_decay_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id, queue_name) DO UPDATE SET
			team_size = EXCLUDED.team_size,
			team_mode = EXCLUDED.team_mode,
			locked = EXCLUDED.locked,
			team1_name = EXCLUDED.team1_name,
			team2_name = EXCLUDED.team2_name,
			game_mode = EXCLUDED.game_mode,
			mmr_decay_enabled = EXCLUDED.mmr_decay_enabled,
			updated_at = now()
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		cfg.TenantID,
		cfg.QueueName,
		cfg.TeamSize,
		cfg.TeamMode,
		cfg.Locked,
		cfg.Team1Name,
		cfg.Team2Name,
		cfg.GameMode,
		cfg.MMRDecayEnabled,
	).Scan(&cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert queue config %d/%s: %w", cfg.TenantID, cfg.QueueName, err)
	}
	return nil
}

func (r *postgresQueueConfigRepository) SetLocked(ctx context.Context, tenantID int, queueName string, locked bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE queue_configs SET locked = $1, updated_at = now()
		 WHERE tenant_id = $2 AND queue_name = $3`,
		locked, tenantID, queueName)
	if err != nil {
		return fmt.Errorf("failed to set locked for queue %d/%s: %w", tenantID, queueName, err)
	}
	return checkAffectedRows(result, ErrQueueConfigNotFound)
}

func (r *postgresQueueConfigRepository) ListDecayEnabled(ctx context.Context) ([]*models.QueueConfig, error) {
	query := `
		SELECT tenant_id, queue_name, team_size, team_mode, locked,
		       team1_name, team2_name, game_mode, mmr_decay_enabled,
		       created_at, updated_at
		FROM queue_configs
		WHERE mmr_decay_enabled`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query decay-enabled queue configs: %w", err)
	}
	defer rows.Close()

	configs := make([]*models.QueueConfig, 0)
	for rows.Next() {
		cfg := &models.QueueConfig{}
		if err := rows.Scan(
			&cfg.TenantID,
			&cfg.QueueName,
			&cfg.TeamSize,
			&cfg.TeamMode,
			&cfg.Locked,
			&cfg.Team1Name,
			&cfg.Team2Name,
			&cfg.GameMode,
			&cfg.MMRDecayEnabled,
			&cfg.CreatedAt,
			&cfg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan queue config row: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during queue config rows iteration: %w", err)
	}
	return configs, nil
}

func (r *postgresQueueConfigRepository) ListMaps(ctx context.Context, tenantID int, queueName string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT map_name FROM queue_maps WHERE tenant_id = $1 AND queue_name = $2 ORDER BY map_name`,
		tenantID, queueName)
	if err != nil {
		return nil, fmt.Errorf("failed to query maps for queue %d/%s: %w", tenantID, queueName, err)
	}
	defer rows.Close()

	maps := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan map row: %w", err)
		}
		maps = append(maps, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during map rows iteration: %w", err)
	}
	return maps, nil
}

func (r *postgresQueueConfigRepository) AddMap(ctx context.Context, tenantID int, queueName, mapName string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO queue_maps (tenant_id, queue_name, map_name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		tenantID, queueName, mapName)
	if err != nil {
		return fmt.Errorf("failed to add map %s to queue %d/%s: %w", mapName, tenantID, queueName, err)
	}
	return nil
}

func (r *postgresQueueConfigRepository) RemoveMap(ctx context.Context, tenantID int, queueName, mapName string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM queue_maps WHERE tenant_id = $1 AND queue_name = $2 AND map_name = $3`,
		tenantID, queueName, mapName)
	if err != nil {
		return fmt.Errorf("failed to remove map %s from queue %d/%s: %w", mapName, tenantID, queueName, err)
	}
	return nil
}
