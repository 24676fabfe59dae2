package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/matchmaking-system/models"
)

type ActivityRepository interface {
	Record(ctx context.Context, activity *models.QueueActivity) error
	ListRecent(ctx context.Context, tenantID int, queueName string, limit int) ([]*models.QueueActivity, error)
}

type postgresActivityRepository struct {
	db *sql.DB
}

func NewPostgresActivityRepository(db *sql.DB) ActivityRepository {
	return &postgresActivityRepository{db: db}
}

func (r *postgresActivityRepository) Record(ctx context.Context, activity *models.QueueActivity) error {
	query := `
		INSERT INTO queue_activity (tenant_id, queue_name, user_id, action)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		activity.TenantID,
		activity.QueueName,
		activity.UserID,
		activity.Action,
	).Scan(&activity.ID, &activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record queue activity: %w", err)
	}
	return nil
}

func (r *postgresActivityRepository) ListRecent(ctx context.Context, tenantID int, queueName string, limit int) ([]*models.QueueActivity, error) {
	query := `
		SELECT id, tenant_id, queue_name, user_id, action, created_at
		FROM queue_activity
		WHERE tenant_id = $1 AND queue_name = $2
		ORDER BY id DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, tenantID, queueName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue activity for %d/%s: %w", tenantID, queueName, err)
	}
	defer rows.Close()

	activities := make([]*models.QueueActivity, 0, limit)
	for rows.Next() {
		var a models.QueueActivity
		if err := rows.Scan(&a.ID, &a.TenantID, &a.QueueName, &a.UserID, &a.Action, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue activity row: %w", err)
		}
		activities = append(activities, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during queue activity rows iteration: %w", err)
	}
	return activities, nil
}
