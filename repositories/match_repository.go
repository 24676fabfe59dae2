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
	ErrMatchNotFound = errors.New("match not found")

	// ErrMatchAlreadyResolved and ErrGameAlreadyRecorded are the guards
	// that make result writes idempotent: a retried transaction that finds
	// the row already written must not apply rating deltas a second time.
	ErrMatchAlreadyResolved = errors.New("match already resolved")
	ErrGameAlreadyRecorded  = errors.New("game result already recorded")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	CreateParticipants(ctx context.Context, exec SQLExecutor, participants []models.MatchParticipant) error
	ListParticipants(ctx context.Context, matchID int) ([]models.MatchParticipant, error)
	GetByUID(ctx context.Context, uid string) (*models.Match, error)
	GetByID(ctx context.Context, id int) (*models.Match, error)
	RecordGameResult(ctx context.Context, exec SQLExecutor, matchID, gameIndex, winner int) error
	Complete(ctx context.Context, exec SQLExecutor, matchID, winner, team1Score, team2Score int) error
	Cancel(ctx context.Context, exec SQLExecutor, matchID int) error
	SetResult(ctx context.Context, exec SQLExecutor, matchID int, winner *int) error
	ListHistory(ctx context.Context, tenantID int, queueName string, limit int) ([]*models.Match, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) exec(e SQLExecutor) SQLExecutor {
	if e == nil {
		return r.db
	}
	return e
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	// seq_no is the per-(tenant, queue) human-facing match number. The
	// caller runs Create inside a transaction, so MAX+1 cannot race with
	// another creation on the same queue.
	query := `
		INSERT INTO matches (uid, tenant_id, queue_name, seq_no, team1, team2)
		VALUES ($1, $2, $3,
		        (SELECT COALESCE(MAX(seq_no), 0) + 1 FROM matches WHERE tenant_id = $2 AND queue_name = $3),
		        $4, $5)
		RETURNING id, seq_no, created_at`

	e := r.exec(exec)
	err := e.QueryRowContext(ctx, query,
		match.UID,
		match.TenantID,
		match.QueueName,
		pq.Array(intsToInt64(match.Team1)),
		pq.Array(intsToInt64(match.Team2)),
	).Scan(&match.ID, &match.SeqNo, &match.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match for queue %d/%s: %w", match.TenantID, match.QueueName, err)
	}

	for i, game := range match.Games {
		_, err := e.ExecContext(ctx,
			`INSERT INTO match_games (match_id, game_index, map_name, mode) VALUES ($1, $2, $3, $4)`,
			match.ID, i+1, game.Map, game.Mode)
		if err != nil {
			return fmt.Errorf("failed to create game plan %d for match %d: %w", i+1, match.ID, err)
		}
	}
	return nil
}

func (r *postgresMatchRepository) CreateParticipants(ctx context.Context, exec SQLExecutor, participants []models.MatchParticipant) error {
	e := r.exec(exec)
	for _, p := range participants {
		_, err := e.ExecContext(ctx,
			`INSERT INTO match_participants (match_id, user_id, team, queue_mmr_before, global_mmr_before)
			 VALUES ($1, $2, $3, $4, $5)`,
			p.MatchID, p.UserID, p.Team, p.QueueMMRBefore, p.GlobalMMRBefore)
		if err != nil {
			return fmt.Errorf("failed to create participant %d for match %d: %w", p.UserID, p.MatchID, err)
		}
	}
	return nil
}

func (r *postgresMatchRepository) ListParticipants(ctx context.Context, matchID int) ([]models.MatchParticipant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id, user_id, team, queue_mmr_before, global_mmr_before
		 FROM match_participants WHERE match_id = $1 ORDER BY team, user_id`,
		matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for match %d: %w", matchID, err)
	}
	defer rows.Close()

	participants := make([]models.MatchParticipant, 0)
	for rows.Next() {
		var p models.MatchParticipant
		if err := rows.Scan(&p.MatchID, &p.UserID, &p.Team, &p.QueueMMRBefore, &p.GlobalMMRBefore); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during participant rows iteration: %w", err)
	}
	return participants, nil
}

func (r *postgresMatchRepository) GetByUID(ctx context.Context, uid string) (*models.Match, error) {
	return r.getOne(ctx, `WHERE uid = $1`, uid)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *postgresMatchRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Match, error) {
	query := `
		SELECT id, uid, tenant_id, queue_name, seq_no, team1, team2,
		       team1_score, team2_score, winner, cancelled, created_at
		FROM matches ` + where

	match := &models.Match{}
	var team1, team2 pq.Int64Array
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&match.ID,
		&match.UID,
		&match.TenantID,
		&match.QueueName,
		&match.SeqNo,
		&team1,
		&team2,
		&match.Team1Score,
		&match.Team2Score,
		&match.Winner,
		&match.Cancelled,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	match.Team1 = int64sToInts(team1)
	match.Team2 = int64sToInts(team2)

	games, err := r.listGames(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	match.Games = games
	return match, nil
}

func (r *postgresMatchRepository) listGames(ctx context.Context, matchID int) ([]models.GamePlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT map_name, mode FROM match_games WHERE match_id = $1 ORDER BY game_index`,
		matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query games for match %d: %w", matchID, err)
	}
	defer rows.Close()

	games := make([]models.GamePlan, 0, 3)
	for rows.Next() {
		var game models.GamePlan
		if err := rows.Scan(&game.Map, &game.Mode); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during game rows iteration: %w", err)
	}
	return games, nil
}

func (r *postgresMatchRepository) RecordGameResult(ctx context.Context, exec SQLExecutor, matchID, gameIndex, winner int) error {
	result, err := r.exec(exec).ExecContext(ctx,
		`UPDATE match_games SET winner = $1
		 WHERE match_id = $2 AND game_index = $3 AND winner IS NULL`,
		winner, matchID, gameIndex)
	if err != nil {
		return fmt.Errorf("failed to record game %d result for match %d: %w", gameIndex, matchID, err)
	}
	return checkAffectedRows(result, ErrGameAlreadyRecorded)
}

func (r *postgresMatchRepository) Complete(ctx context.Context, exec SQLExecutor, matchID, winner, team1Score, team2Score int) error {
	result, err := r.exec(exec).ExecContext(ctx,
		`UPDATE matches SET winner = $1, team1_score = $2, team2_score = $3
		 WHERE id = $4 AND winner IS NULL AND NOT cancelled`,
		winner, team1Score, team2Score, matchID)
	if err != nil {
		return fmt.Errorf("failed to complete match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchAlreadyResolved)
}

func (r *postgresMatchRepository) Cancel(ctx context.Context, exec SQLExecutor, matchID int) error {
	result, err := r.exec(exec).ExecContext(ctx,
		`UPDATE matches SET cancelled = TRUE
		 WHERE id = $1 AND winner IS NULL AND NOT cancelled`,
		matchID)
	if err != nil {
		return fmt.Errorf("failed to cancel match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchAlreadyResolved)
}

// SetResult overwrites the winner slot without the already-resolved guard.
// Used only by the staff result correction path.
func (r *postgresMatchRepository) SetResult(ctx context.Context, exec SQLExecutor, matchID int, winner *int) error {
	result, err := r.exec(exec).ExecContext(ctx,
		`UPDATE matches SET winner = $1 WHERE id = $2`,
		winner, matchID)
	if err != nil {
		return fmt.Errorf("failed to set result for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) ListHistory(ctx context.Context, tenantID int, queueName string, limit int) ([]*models.Match, error) {
	query := `
		SELECT id, uid, tenant_id, queue_name, seq_no, team1, team2,
		       team1_score, team2_score, winner, cancelled, created_at
		FROM matches
		WHERE tenant_id = $1 AND queue_name = $2 AND NOT cancelled
		ORDER BY id DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, tenantID, queueName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query match history for %d/%s: %w", tenantID, queueName, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0, limit)
	for rows.Next() {
		match := &models.Match{}
		var team1, team2 pq.Int64Array
		if err := rows.Scan(
			&match.ID,
			&match.UID,
			&match.TenantID,
			&match.QueueName,
			&match.SeqNo,
			&team1,
			&team2,
			&match.Team1Score,
			&match.Team2Score,
			&match.Winner,
			&match.Cancelled,
			&match.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match history row: %w", err)
		}
		match.Team1 = int64sToInts(team1)
		match.Team2 = int64sToInts(team2)
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match history rows iteration: %w", err)
	}
	return matches, nil
}

func intsToInt64(values []int) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}

func int64sToInts(values []int64) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}
