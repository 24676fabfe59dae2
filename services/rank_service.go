package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/matchmaking-system/models"
	"github.com/Dosada05/matchmaking-system/repositories"
)

// RoleService is the external role provider. Grant and revoke are
// best-effort; ErrRoleForbidden and ErrRoleTargetGone are expected
// failure modes and must not abort reconciliation.
type RoleService interface {
	GrantRole(ctx context.Context, tenantID int, userID int, roleID string) error
	RevokeRole(ctx context.Context, tenantID int, userID int, roleID string) error
}

var (
	ErrRoleForbidden  = errors.New("role provider denied the operation")
	ErrRoleTargetGone = errors.New("role target no longer exists")
)

// RoleChange is a single grant or revoke resolved by Reconcile.
type RoleChange struct {
	UserID int
	RoleID string
	Grant  bool
}

type RankService interface {
	ListBands(ctx context.Context, tenantID int, queueName string) ([]models.RankBand, error)
	UpsertBand(ctx context.Context, band *models.RankBand) error
	RemoveBand(ctx context.Context, tenantID int, queueName, name string) error

	// ReconcileAfterMatch recomputes rank roles for the given players
	// from their current queue MMR and pushes grants and revokes to the
	// role provider concurrently.
	ReconcileAfterMatch(ctx context.Context, tenantID int, queueName string, userIDs []int) error
}

type rankService struct {
	rankRepo        repositories.RankBandRepository
	ratingRepo      repositories.RatingRepository
	eligibilityRepo repositories.EligibilityRepository
	roles           RoleService
	logger          *slog.Logger
}

func NewRankService(
	rankRepo repositories.RankBandRepository,
	ratingRepo repositories.RatingRepository,
	eligibilityRepo repositories.EligibilityRepository,
	roles RoleService,
	logger *slog.Logger,
) RankService {
	return &rankService{
		rankRepo:        rankRepo,
		ratingRepo:      ratingRepo,
		eligibilityRepo: eligibilityRepo,
		roles:           roles,
		logger:          logger,
	}
}

func (s *rankService) ListBands(ctx context.Context, tenantID int, queueName string) ([]models.RankBand, error) {
	return s.rankRepo.List(ctx, tenantID, queueName)
}

func (s *rankService) UpsertBand(ctx context.Context, band *models.RankBand) error {
	if band.MinMMR < 0 || band.MaxMMR < band.MinMMR {
		return ErrInvalidRankBand
	}
	if band.Name == "" || band.RoleID == "" {
		return ErrInvalidRankBand
	}
	return s.rankRepo.Upsert(ctx, band)
}

func (s *rankService) RemoveBand(ctx context.Context, tenantID int, queueName, name string) error {
	if err := s.rankRepo.Remove(ctx, tenantID, queueName, name); err != nil {
		if errors.Is(err, repositories.ErrRankBandNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Reconcile computes which band roles each player should gain and lose
// given their MMR and currently held roles. Pure; no I/O.
func Reconcile(bands []models.RankBand, mmr int, held []string) []RoleChange {
	heldSet := make(map[string]bool, len(held))
	for _, roleID := range held {
		heldSet[roleID] = true
	}

	var changes []RoleChange
	for _, band := range bands {
		should := band.Contains(mmr)
		has := heldSet[band.RoleID]
		switch {
		case should && !has:
			changes = append(changes, RoleChange{RoleID: band.RoleID, Grant: true})
		case !should && has:
			changes = append(changes, RoleChange{RoleID: band.RoleID, Grant: false})
		}
	}
	return changes
}

func (s *rankService) ReconcileAfterMatch(ctx context.Context, tenantID int, queueName string, userIDs []int) error {
	bands, err := s.rankRepo.List(ctx, tenantID, queueName)
	if err != nil {
		return fmt.Errorf("list rank bands for %d/%s: %w", tenantID, queueName, err)
	}
	if len(bands) == 0 {
		return nil
	}

	ratings, err := s.ratingRepo.GetQueueMany(ctx, tenantID, queueName, userIDs)
	if err != nil {
		return fmt.Errorf("load ratings for rank reconciliation: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, userID := range userIDs {
		userID := userID
		rating, ok := ratings[userID]
		if !ok {
			continue
		}
		g.Go(func() error {
			return s.reconcileOne(gctx, tenantID, userID, bands, rating.MMR)
		})
	}
	return g.Wait()
}

func (s *rankService) reconcileOne(ctx context.Context, tenantID, userID int, bands []models.RankBand, mmr int) error {
	held, err := s.eligibilityRepo.ListParticipantRoles(ctx, tenantID, userID)
	if err != nil {
		return fmt.Errorf("list held roles for user %d: %w", userID, err)
	}

	for _, change := range Reconcile(bands, mmr, held) {
		change.UserID = userID
		if err := s.apply(ctx, tenantID, change); err != nil {
			return err
		}
	}
	return nil
}

func (s *rankService) apply(ctx context.Context, tenantID int, change RoleChange) error {
	var err error
	if change.Grant {
		err = s.roles.GrantRole(ctx, tenantID, change.UserID, change.RoleID)
	} else {
		err = s.roles.RevokeRole(ctx, tenantID, change.UserID, change.RoleID)
	}
	if err == nil {
		return nil
	}
	// Permission and missing-target failures are logged and swallowed;
	// the next match will retry the same change.
	if errors.Is(err, ErrRoleForbidden) || errors.Is(err, ErrRoleTargetGone) {
		s.logger.Warn("rank role change skipped",
			slog.Int("user_id", change.UserID),
			slog.String("role_id", change.RoleID),
			slog.Bool("grant", change.Grant),
			slog.Any("error", err))
		return nil
	}
	return fmt.Errorf("apply rank role change for user %d: %w", change.UserID, err)
}
