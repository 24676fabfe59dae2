package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/matchmaking-system/models"
	"github.com/lib/pq"
)

var ErrRatingNotFound = errors.New("rating record not found")

// RatingRepository is the durable table of per-queue and global player
// ratings. Methods that take an SQLExecutor participate in a transaction
// owned by the caller; the rating math itself lives in the service layer.
type RatingRepository interface {
	EnsureGlobal(ctx context.Context, exec SQLExecutor, userID int) error
	EnsureQueue(ctx context.Context, exec SQLExecutor, tenantID int, queueName string, userID int) error

	GetGlobal(ctx context.Context, exec SQLExecutor, userID int) (*models.PlayerRating, error)
	GetQueue(ctx context.Context, exec SQLExecutor, tenantID int, queueName string, userID int) (*models.QueueRating, error)
	GetQueueMany(ctx context.Context, tenantID int, queueName string, userIDs []int) (map[int]*models.QueueRating, error)

	SaveGlobal(ctx context.Context, exec SQLExecutor, rating *models.PlayerRating) error
	SaveQueue(ctx context.Context, exec SQLExecutor, rating *models.QueueRating) error

	Leaderboard(ctx context.Context, tenantID int, queueName string, limit int) ([]*models.QueueRating, error)
	GlobalLeaderboard(ctx context.Context, limit int) ([]*models.PlayerRating, error)

	SetGracePeriod(ctx context.Context, userID int, until time.Time) error
	ListDecayCandidates(ctx context.Context, tenantID int, queueName string, inactiveSince time.Time) ([]*models.QueueRating, error)
	ApplyDecay(ctx context.Context, tenantID int, queueName string, userID int, step int) error
}

type postgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) RatingRepository {
	return &postgresRatingRepository{db: db}
}

// exec falls back to the pooled connection when the caller is not inside
// a transaction.
func (r *postgresRatingRepository) exec(e SQLExecutor) SQLExecutor {
	if e == nil {
		return r.db
	}
	return e
}

func (r *postgresRatingRepository) EnsureGlobal(ctx context.Context, exec SQLExecutor, userID int) error {
	_, err := r.exec(exec).ExecContext(ctx, `
		INSERT INTO player_ratings (user_id, mmr, highest_mmr)
		VALUES ($1, $2, $2)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, models.DefaultMMR)
	if err != nil {
		return fmt.Errorf("failed to ensure global rating for user %d: %w", userID, err)
	}
	return nil
}

func (r *postgresRatingRepository) EnsureQueue(ctx context.Context, exec SQLExecutor, tenantID int, queueName string, userID int) error {
	_, err := r.exec(exec).ExecContext(ctx, `
		INSERT INTO queue_ratings (user_id, tenant_id, queue_name, mmr)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, tenant_id, queue_name) DO NOTHING`,
		userID, tenantID, queueName, models.DefaultMMR)
	if err != nil {
		return fmt.Errorf("failed to ensure queue rating for user %d in %d/%s: %w", userID, tenantID, queueName, err)
	}
	return nil
}

func (r *postgresRatingRepository) GetGlobal(ctx context.Context, exec SQLExecutor, userID int) (*models.PlayerRating, error) {
	query := `
		SELECT user_id, mmr, wins, losses, total_games, win_streak,
		       highest_mmr, last_played, grace_period_until, joined_at
		FROM player_ratings
		WHERE user_id = $1`

	rating := &models.PlayerRating{}
	err := r.exec(exec).QueryRowContext(ctx, query, userID).Scan(
		&rating.UserID,
		&rating.MMR,
		&rating.Wins,
		&rating.Losses,
		&rating.TotalGames,
		&rating.WinStreak,
		&rating.HighestMMR,
		&rating.LastPlayed,
		&rating.GracePeriodUntil,
		&rating.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRatingNotFound
		}
		return nil, fmt.Errorf("failed to scan global rating for user %d: %w", userID, err)
	}
	return rating, nil
}

func (r *postgresRatingRepository) GetQueue(ctx context.Context, exec SQLExecutor, tenantID int, queueName string, userID int) (*models.QueueRating, error) {
	query := `
		SELECT user_id, tenant_id, queue_name, mmr, wins, losses, games_played, last_played
		FROM queue_ratings
		WHERE user_id = $1 AND tenant_id = $2 AND queue_name = $3`

	rating := &models.QueueRating{}
	err := r.exec(exec).QueryRowContext(ctx, query, userID, tenantID, queueName).Scan(
		&rating.UserID,
		&rating.TenantID,
		&rating.QueueName,
		&rating.MMR,
		&rating.Wins,
		&rating.Losses,
		&rating.GamesPlayed,
		&rating.LastPlayed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRatingNotFound
		}
		return nil, fmt.Errorf("failed to scan queue rating for user %d in %d/%s: %w", userID, tenantID, queueName, err)
	}
	return rating, nil
}

func (r *postgresRatingRepository) GetQueueMany(ctx context.Context, tenantID int, queueName string, userIDs []int) (map[int]*models.QueueRating, error) {
	query := `
		SELECT user_id, tenant_id, queue_name, mmr, wins, losses, games_played, last_played
		FROM queue_ratings
		WHERE tenant_id = $1 AND queue_name = $2 AND user_id = ANY($3)`

	rows, err := r.db.QueryContext(ctx, query, tenantID, queueName, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query queue ratings for %d/%s: %w", tenantID, queueName, err)
	}
	defer rows.Close()

	ratings := make(map[int]*models.QueueRating, len(userIDs))
	for rows.Next() {
		var rating models.QueueRating
		if err := rows.Scan(
			&rating.UserID,
			&rating.TenantID,
			&rating.QueueName,
			&rating.MMR,
			&rating.Wins,
			&rating.Losses,
			&rating.GamesPlayed,
			&rating.LastPlayed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan queue rating row: %w", err)
		}
		ratings[rating.UserID] = &rating
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during queue rating rows iteration: %w", err)
	}
	return ratings, nil
}

func (r *postgresRatingRepository) SaveGlobal(ctx context.Context, exec SQLExecutor, rating *models.PlayerRating) error {
	query := `
		UPDATE player_ratings
		SET mmr = $1, wins = $2, losses = $3, total_games = $4,
		    win_streak = $5, highest_mmr = $6, last_played = $7
		WHERE user_id = $8`

	result, err := r.exec(exec).ExecContext(ctx, query,
		rating.MMR,
		rating.Wins,
		rating.Losses,
		rating.TotalGames,
		rating.WinStreak,
		rating.HighestMMR,
		rating.LastPlayed,
		rating.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to save global rating for user %d: %w", rating.UserID, err)
	}
	return checkAffectedRows(result, ErrRatingNotFound)
}

func (r *postgresRatingRepository) SaveQueue(ctx context.Context, exec SQLExecutor, rating *models.QueueRating) error {
	query := `
		UPDATE queue_ratings
		SET mmr = $1, wins = $2, losses = $3, games_played = $4, last_played = $5
		WHERE user_id = $6 AND tenant_id = $7 AND queue_name = $8`

	result, err := r.exec(exec).ExecContext(ctx, query,
		rating.MMR,
		rating.Wins,
		rating.Losses,
		rating.GamesPlayed,
		rating.LastPlayed,
		rating.UserID,
		rating.TenantID,
		rating.QueueName,
	)
	if err != nil {
		return fmt.Errorf("failed to save queue rating for user %d in %d/%s: %w", rating.UserID, rating.TenantID, rating.QueueName, err)
	}
	return checkAffectedRows(result, ErrRatingNotFound)
}

func (r *postgresRatingRepository) Leaderboard(ctx context.Context, tenantID int, queueName string, limit int) ([]*models.QueueRating, error) {
	query := `
		SELECT user_id, tenant_id, queue_name, mmr, wins, losses, games_played, last_played
		FROM queue_ratings
		WHERE tenant_id = $1 AND queue_name = $2
		ORDER BY mmr DESC, wins DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, tenantID, queueName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard for %d/%s: %w", tenantID, queueName, err)
	}
	defer rows.Close()

	ratings := make([]*models.QueueRating, 0, limit)
	for rows.Next() {
		var rating models.QueueRating
		if err := rows.Scan(
			&rating.UserID,
			&rating.TenantID,
			&rating.QueueName,
			&rating.MMR,
			&rating.Wins,
			&rating.Losses,
			&rating.GamesPlayed,
			&rating.LastPlayed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		ratings = append(ratings, &rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during leaderboard rows iteration: %w", err)
	}
	return ratings, nil
}

func (r *postgresRatingRepository) GlobalLeaderboard(ctx context.Context, limit int) ([]*models.PlayerRating, error) {
	query := `
		SELECT user_id, mmr, wins, losses, total_games, win_streak,
		       highest_mmr, last_played, grace_period_until, joined_at
		FROM player_ratings
		ORDER BY mmr DESC, wins DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query global leaderboard: %w", err)
	}
	defer rows.Close()

	ratings := make([]*models.PlayerRating, 0, limit)
	for rows.Next() {
		var rating models.PlayerRating
		if err := rows.Scan(
			&rating.UserID,
			&rating.MMR,
			&rating.Wins,
			&rating.Losses,
			&rating.TotalGames,
			&rating.WinStreak,
			&rating.HighestMMR,
			&rating.LastPlayed,
			&rating.GracePeriodUntil,
			&rating.JoinedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan global leaderboard row: %w", err)
		}
		ratings = append(ratings, &rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during global leaderboard rows iteration: %w", err)
	}
	return ratings, nil
}

func (r *postgresRatingRepository) SetGracePeriod(ctx context.Context, userID int, until time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE player_ratings SET grace_period_until = $1 WHERE user_id = $2`,
		until, userID)
	if err != nil {
		return fmt.Errorf("failed to set grace period for user %d: %w", userID, err)
	}
	return checkAffectedRows(result, ErrRatingNotFound)
}

func (r *postgresRatingRepository) ListDecayCandidates(ctx context.Context, tenantID int, queueName string, inactiveSince time.Time) ([]*models.QueueRating, error) {
	// Players with no last_played never finished a match and have nothing
	// to decay. Grace periods live on the global record.
	query := `
		SELECT q.user_id, q.tenant_id, q.queue_name, q.mmr, q.wins, q.losses, q.games_played, q.last_played
		FROM queue_ratings q
		JOIN player_ratings p ON p.user_id = q.user_id
		WHERE q.tenant_id = $1 AND q.queue_name = $2
		  AND q.mmr > 0
		  AND q.last_played IS NOT NULL AND q.last_played < $3
		  AND (p.grace_period_until IS NULL OR p.grace_period_until < now())`

	rows, err := r.db.QueryContext(ctx, query, tenantID, queueName, inactiveSince)
	if err != nil {
		return nil, fmt.Errorf("failed to query decay candidates for %d/%s: %w", tenantID, queueName, err)
	}
	defer rows.Close()

	ratings := make([]*models.QueueRating, 0)
	for rows.Next() {
		var rating models.QueueRating
		if err := rows.Scan(
			&rating.UserID,
			&rating.TenantID,
			&rating.QueueName,
			&rating.MMR,
			&rating.Wins,
			&rating.Losses,
			&rating.GamesPlayed,
			&rating.LastPlayed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan decay candidate row: %w", err)
		}
		ratings = append(ratings, &rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during decay candidate rows iteration: %w", err)
	}
	return ratings, nil
}

func (r *postgresRatingRepository) ApplyDecay(ctx context.Context, tenantID int, queueName string, userID int, step int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE queue_ratings SET mmr = GREATEST(0, mmr - $1)
		 WHERE tenant_id = $2 AND queue_name = $3 AND user_id = $4`,
		step, tenantID, queueName, userID)
	if err != nil {
		return fmt.Errorf("failed to apply decay for user %d in %d/%s: %w", userID, tenantID, queueName, err)
	}
	return checkAffectedRows(result, ErrRatingNotFound)
}
