package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrBlacklistEntryNotFound = errors.New("blacklist entry not found")

// EligibilityRepository backs the admission controller's eligibility
// checks: per-queue blacklist, per-queue required roles, and the
// tenant-scoped external roles a participant currently holds.
type EligibilityRepository interface {
	IsBlacklisted(ctx context.Context, tenantID int, queueName string, userID int) (bool, error)
	AddToBlacklist(ctx context.Context, tenantID int, queueName string, userID int, reason string) error
	RemoveFromBlacklist(ctx context.Context, tenantID int, queueName string, userID int) error

	ListRequiredRoles(ctx context.Context, tenantID int, queueName string) ([]string, error)
	AddRequiredRole(ctx context.Context, tenantID int, queueName, roleID string) error
	RemoveRequiredRole(ctx context.Context, tenantID int, queueName, roleID string) error

	ListParticipantRoles(ctx context.Context, tenantID int, userID int) ([]string, error)
	HasAnyRole(ctx context.Context, tenantID int, userID int, roleIDs []string) (bool, error)
	GrantParticipantRole(ctx context.Context, tenantID int, userID int, roleID string) error
	RevokeParticipantRole(ctx context.Context, tenantID int, userID int, roleID string) error
}

type postgresEligibilityRepository struct {
	db *sql.DB
}

func NewPostgresEligibilityRepository(db *sql.DB) EligibilityRepository {
	return &postgresEligibilityRepository{db: db}
}

func (r *postgresEligibilityRepository) IsBlacklisted(ctx context.Context, tenantID int, queueName string, userID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM queue_blacklist
			WHERE tenant_id = $1 AND queue_name = $2 AND user_id = $3
		)`,
		tenantID, queueName, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist for user %d in %d/%s: %w", userID, tenantID, queueName, err)
	}
	return exists, nil
}

func (r *postgresEligibilityRepository) AddToBlacklist(ctx context.Context, tenantID int, queueName string, userID int, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO queue_blacklist (tenant_id, queue_name, user_id, reason)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id, queue_name, user_id) DO UPDATE SET reason = EXCLUDED.reason`,
		tenantID, queueName, userID, reason)
	if err != nil {
		return fmt.Errorf("failed to blacklist user %d in %d/%s: %w", userID, tenantID, queueName, err)
	}
	return nil
}

func (r *postgresEligibilityRepository) RemoveFromBlacklist(ctx context.Context, tenantID int, queueName string, userID int) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM queue_blacklist WHERE tenant_id = $1 AND queue_name = $2 AND user_id = $3`,
		tenantID, queueName, userID)
	if err != nil {
		return fmt.Errorf("failed to unblacklist user %d in %d/%s: %w", userID, tenantID, queueName, err)
	}
	return checkAffectedRows(result, ErrBlacklistEntryNotFound)
}

func (r *postgresEligibilityRepository) ListRequiredRoles(ctx context.Context, tenantID int, queueName string) ([]string, error) {
	return r.listStrings(ctx,
		`SELECT role_id FROM queue_required_roles WHERE tenant_id = $1 AND queue_name = $2`,
		tenantID, queueName)
}

func (r *postgresEligibilityRepository) AddRequiredRole(ctx context.Context, tenantID int, queueName, roleID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO queue_required_roles (tenant_id, queue_name, role_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		tenantID, queueName, roleID)
	if err != nil {
		return fmt.Errorf("failed to add required role %s for %d/%s: %w", roleID, tenantID, queueName, err)
	}
	return nil
}

func (r *postgresEligibilityRepository) RemoveRequiredRole(ctx context.Context, tenantID int, queueName, roleID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM queue_required_roles WHERE tenant_id = $1 AND queue_name = $2 AND role_id = $3`,
		tenantID, queueName, roleID)
	if err != nil {
		return fmt.Errorf("failed to remove required role %s for %d/%s: %w", roleID, tenantID, queueName, err)
	}
	return nil
}

func (r *postgresEligibilityRepository) ListParticipantRoles(ctx context.Context, tenantID int, userID int) ([]string, error) {
	return r.listStrings(ctx,
		`SELECT role_id FROM participant_roles WHERE tenant_id = $1 AND user_id = $2`,
		tenantID, userID)
}

func (r *postgresEligibilityRepository) HasAnyRole(ctx context.Context, tenantID int, userID int, roleIDs []string) (bool, error) {
	if len(roleIDs) == 0 {
		return true, nil
	}
	roles, err := r.ListParticipantRoles(ctx, tenantID, userID)
	if err != nil {
		return false, err
	}
	held := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		held[role] = struct{}{}
	}
	for _, role := range roleIDs {
		if _, ok := held[role]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (r *postgresEligibilityRepository) GrantParticipantRole(ctx context.Context, tenantID int, userID int, roleID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO participant_roles (tenant_id, user_id, role_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (tenant_id, user_id, role_id) DO NOTHING`,
		tenantID, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to grant role %s to user %d in tenant %d: %w", roleID, userID, tenantID, err)
	}
	return nil
}

func (r *postgresEligibilityRepository) RevokeParticipantRole(ctx context.Context, tenantID int, userID int, roleID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM participant_roles WHERE tenant_id = $1 AND user_id = $2 AND role_id = $3`,
		tenantID, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to revoke role %s from user %d in tenant %d: %w", roleID, userID, tenantID, err)
	}
	return nil
}

func (r *postgresEligibilityRepository) listStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan role row: %w", err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during role rows iteration: %w", err)
	}
	return values, nil
}
