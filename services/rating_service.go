package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/matchmaking-system/models"
	"github.com/Dosada05/matchmaking-system/repositories"
)

// MMRDelta is the fixed per-series rating delta. Winners gain it, losers
// lose it, floored at zero. This is deliberately not a skill-estimation
// scheme.
const MMRDelta = 25

type DecayConfig struct {
	Step              int
	InactiveThreshold time.Duration
}

type PlayerStats struct {
	Queue  *models.QueueRating  `json:"queue,omitempty"`
	Global *models.PlayerRating `json:"global"`
}

type RatingService interface {
	EnsureRecords(ctx context.Context, tenantID int, queueName string, userID int) error
	QueueRatings(ctx context.Context, tenantID int, queueName string, userIDs []int) (map[int]*models.QueueRating, error)

	// ApplyResult applies the fixed series delta to every winner and
	// loser, on both the per-queue and the global record. It must run
	// inside the same transaction as the match result write.
	ApplyResult(ctx context.Context, exec repositories.SQLExecutor, tenantID int, queueName string, winners, losers []int) error

	// ApplyCorrection rewrites participants' ratings as if newWinner had
	// been the outcome from the start, using the pre-match snapshots.
	// newWinner nil voids the result entirely.
	ApplyCorrection(ctx context.Context, exec repositories.SQLExecutor, tenantID int, queueName string, participants []models.MatchParticipant, oldWinner, newWinner *int) error

	Stats(ctx context.Context, tenantID int, queueName string, userID int) (*PlayerStats, error)
	Leaderboard(ctx context.Context, tenantID int, queueName string, limit int) ([]*models.QueueRating, error)
	GlobalLeaderboard(ctx context.Context, limit int) ([]*models.PlayerRating, error)

	SetMMR(ctx context.Context, tenantID int, queueName string, userID, mmr int) error
	AdjustMMR(ctx context.Context, tenantID int, queueName string, userID, delta int) error
	GrantGracePeriod(ctx context.Context, userID int, days int) error
	RunDecay(ctx context.Context) error
}

type ratingService struct {
	ratingRepo repositories.RatingRepository
	configRepo repositories.QueueConfigRepository
	decay      DecayConfig
	logger     *slog.Logger
}

func NewRatingService(
	ratingRepo repositories.RatingRepository,
	configRepo repositories.QueueConfigRepository,
	decay DecayConfig,
	logger *slog.Logger,
) RatingService {
	return &ratingService{
		ratingRepo: ratingRepo,
		configRepo: configRepo,
		decay:      decay,
		logger:     logger,
	}
}

func (s *ratingService) EnsureRecords(ctx context.Context, tenantID int, queueName string, userID int) error {
	if err := s.ratingRepo.EnsureGlobal(ctx, nil, userID); err != nil {
		return err
	}
	return s.ratingRepo.EnsureQueue(ctx, nil, tenantID, queueName, userID)
}

func (s *ratingService) QueueRatings(ctx context.Context, tenantID int, queueName string, userIDs []int) (map[int]*models.QueueRating, error) {
	return s.ratingRepo.GetQueueMany(ctx, tenantID, queueName, userIDs)
}

func clampMMR(mmr int) int {
	if mmr < 0 {
		return 0
	}
	return mmr
}

func (s *ratingService) ApplyResult(ctx context.Context, exec repositories.SQLExecutor, tenantID int, queueName string, winners, losers []int) error {
	now := time.Now()

	for _, userID := range winners {
		if err := s.applyOne(ctx, exec, tenantID, queueName, userID, MMRDelta, true, now); err != nil {
			return err
		}
	}
	for _, userID := range losers {
		if err := s.applyOne(ctx, exec, tenantID, queueName, userID, -MMRDelta, false, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *ratingService) applyOne(ctx context.Context, exec repositories.SQLExecutor, tenantID int, queueName string, userID, delta int, won bool, now time.Time) error {
	queue, err := s.ratingRepo.GetQueue(ctx, exec, tenantID, queueName, userID)
	if err != nil {
		return fmt.Errorf("load queue rating for user %d: %w", userID, err)
	}
	queue.MMR = clampMMR(queue.MMR + delta)
	queue.GamesPlayed++
	if won {
		queue.Wins++
	} else {
		queue.Losses++
	}
	queue.LastPlayed = &now
	if err := s.ratingRepo.SaveQueue(ctx, exec, queue); err != nil {
		return err
	}

	global, err := s.ratingRepo.GetGlobal(ctx, exec, userID)
	if err != nil {
		return fmt.Errorf("load global rating for user %d: %w", userID, err)
	}
	global.MMR = clampMMR(global.MMR + delta)
	global.TotalGames++
	if won {
		global.Wins++
		global.WinStreak++
	} else {
		global.Losses++
		global.WinStreak = 0
	}
	if global.MMR > global.HighestMMR {
		global.HighestMMR = global.MMR
	}
	global.LastPlayed = &now
	return s.ratingRepo.SaveGlobal(ctx, exec, global)
}

func (s *ratingService) ApplyCorrection(ctx context.Context, exec repositories.SQLExecutor, tenantID int, queueName string, participants []models.MatchParticipant, oldWinner, newWinner *int) error {
	for _, p := range participants {
		wasWin := oldWinner != nil && *oldWinner == p.Team
		wasLoss := oldWinner != nil && *oldWinner != p.Team
		isWin := newWinner != nil && *newWinner == p.Team
		isLoss := newWinner != nil && *newWinner != p.Team

		delta := 0
		switch {
		case isWin:
			delta = MMRDelta
		case isLoss:
			delta = -MMRDelta
		}

		queue, err := s.ratingRepo.GetQueue(ctx, exec, tenantID, queueName, p.UserID)
		if err != nil {
			return fmt.Errorf("load queue rating for correction of user %d: %w", p.UserID, err)
		}
		queue.MMR = clampMMR(p.QueueMMRBefore + delta)
		queue.Wins += boolToInt(isWin) - boolToInt(wasWin)
		queue.Losses += boolToInt(isLoss) - boolToInt(wasLoss)
		queue.GamesPlayed += boolToInt(newWinner != nil) - boolToInt(oldWinner != nil)
		if err := s.ratingRepo.SaveQueue(ctx, exec, queue); err != nil {
			return err
		}

		global, err := s.ratingRepo.GetGlobal(ctx, exec, p.UserID)
		if err != nil {
			return fmt.Errorf("load global rating for correction of user %d: %w", p.UserID, err)
		}
		global.MMR = clampMMR(p.GlobalMMRBefore + delta)
		global.Wins += boolToInt(isWin) - boolToInt(wasWin)
		global.Losses += boolToInt(isLoss) - boolToInt(wasLoss)
		global.TotalGames += boolToInt(newWinner != nil) - boolToInt(oldWinner != nil)
		if global.MMR > global.HighestMMR {
			global.HighestMMR = global.MMR
		}
		// win_streak is not reconstructed on correction; the original
		// record of intermediate matches is gone.
		if err := s.ratingRepo.SaveGlobal(ctx, exec, global); err != nil {
			return err
		}
	}
	return nil
}

func (s *ratingService) Stats(ctx context.Context, tenantID int, queueName string, userID int) (*PlayerStats, error) {
	global, err := s.ratingRepo.GetGlobal(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrRatingNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	stats := &PlayerStats{Global: global}
	if queueName != "" {
		queue, err := s.ratingRepo.GetQueue(ctx, nil, tenantID, queueName, userID)
		if err != nil && !errors.Is(err, repositories.ErrRatingNotFound) {
			return nil, err
		}
		stats.Queue = queue
	}
	return stats, nil
}

func (s *ratingService) Leaderboard(ctx context.Context, tenantID int, queueName string, limit int) ([]*models.QueueRating, error) {
	return s.ratingRepo.Leaderboard(ctx, tenantID, queueName, limit)
}

func (s *ratingService) GlobalLeaderboard(ctx context.Context, limit int) ([]*models.PlayerRating, error) {
	return s.ratingRepo.GlobalLeaderboard(ctx, limit)
}

// SetMMR and AdjustMMR are staff-only direct writes; they bypass
// win/loss bookkeeping on purpose.
func (s *ratingService) SetMMR(ctx context.Context, tenantID int, queueName string, userID, mmr int) error {
	queue, err := s.ratingRepo.GetQueue(ctx, nil, tenantID, queueName, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrRatingNotFound) {
			return ErrNotFound
		}
		return err
	}
	queue.MMR = clampMMR(mmr)
	return s.ratingRepo.SaveQueue(ctx, nil, queue)
}

func (s *ratingService) AdjustMMR(ctx context.Context, tenantID int, queueName string, userID, delta int) error {
	queue, err := s.ratingRepo.GetQueue(ctx, nil, tenantID, queueName, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrRatingNotFound) {
			return ErrNotFound
		}
		return err
	}
	queue.MMR = clampMMR(queue.MMR + delta)
	return s.ratingRepo.SaveQueue(ctx, nil, queue)
}

func (s *ratingService) GrantGracePeriod(ctx context.Context, userID int, days int) error {
	if days < 0 || days > 365 {
		return fmt.Errorf("%w: grace period days must be between 0 and 365", ErrForbiddenOperation)
	}
	until := time.Now().AddDate(0, 0, days)
	if err := s.ratingRepo.SetGracePeriod(ctx, userID, until); err != nil {
		if errors.Is(err, repositories.ErrRatingNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// RunDecay walks every queue with decay enabled and reduces the MMR of
// participants inactive past the threshold, skipping grace periods.
func (s *ratingService) RunDecay(ctx context.Context) error {
	configs, err := s.configRepo.ListDecayEnabled(ctx)
	if err != nil {
		return fmt.Errorf("list decay-enabled queues: %w", err)
	}

	cutoff := time.Now().Add(-s.decay.InactiveThreshold)
	for _, cfg := range configs {
		candidates, err := s.ratingRepo.ListDecayCandidates(ctx, cfg.TenantID, cfg.QueueName, cutoff)
		if err != nil {
			s.logger.Error("decay: failed to list candidates",
				slog.Int("tenant_id", cfg.TenantID),
				slog.String("queue", cfg.QueueName),
				slog.Any("error", err))
			continue
		}
		for _, candidate := range candidates {
			if err := s.ratingRepo.ApplyDecay(ctx, cfg.TenantID, cfg.QueueName, candidate.UserID, s.decay.Step); err != nil {
				s.logger.Error("decay: failed to apply",
					slog.Int("user_id", candidate.UserID),
					slog.Any("error", err))
			}
		}
		if len(candidates) > 0 {
			s.logger.Info("decay applied",
				slog.Int("tenant_id", cfg.TenantID),
				slog.String("queue", cfg.QueueName),
				slog.Int("players", len(candidates)))
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
