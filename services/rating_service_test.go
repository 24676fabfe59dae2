package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/matchmaking-system/models"
)

type ratingFixture struct {
	ratings    RatingService
	ratingRepo *memRatingRepo
	configRepo *memConfigRepo
}

func newRatingFixture(t *testing.T, decay DecayConfig) *ratingFixture {
	t.Helper()
	ratingRepo := newMemRatingRepo()
	configRepo := newMemConfigRepo()
	return &ratingFixture{
		ratings:    NewRatingService(ratingRepo, configRepo, decay, testLogger()),
		ratingRepo: ratingRepo,
		configRepo: configRepo,
	}
}

func (f *ratingFixture) ensure(t *testing.T, tenantID int, queueName string, userIDs ...int) {
	t.Helper()
	for _, id := range userIDs {
		require.NoError(t, f.ratings.EnsureRecords(context.Background(), tenantID, queueName, id))
	}
}

func (f *ratingFixture) setQueueMMR(t *testing.T, tenantID int, queueName string, userID, mmr int) {
	t.Helper()
	queue, err := f.ratingRepo.GetQueue(context.Background(), nil, tenantID, queueName, userID)
	require.NoError(t, err)
	queue.MMR = mmr
	require.NoError(t, f.ratingRepo.SaveQueue(context.Background(), nil, queue))
}

func TestApplyResultUpdatesBothRecords(t *testing.T) {
	f := newRatingFixture(t, DecayConfig{})
	f.ensure(t, 1, "pugs", 1, 2)

	err := f.ratings.ApplyResult(context.Background(), nil, 1, "pugs", []int{1}, []int{2})
	require.NoError(t, err)

	winner, err := f.ratingRepo.GetQueue(context.Background(), nil, 1, "pugs", 1)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMMR+MMRDelta, winner.MMR)
	assert.Equal(t, 1, winner.Wins)
	assert.Equal(t, 1, winner.GamesPlayed)
	require.NotNil(t, winner.LastPlayed)

	loser, err := f.ratingRepo.GetQueue(context.Background(), nil, 1, "pugs", 2)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMMR-MMRDelta, loser.MMR)
	assert.Equal(t, 1, loser.Losses)

	winnerGlobal, err := f.ratingRepo.GetGlobal(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMMR+MMRDelta, winnerGlobal.MMR)
	assert.Equal(t, 1, winnerGlobal.WinStreak)
	assert.Equal(t, models.DefaultMMR+MMRDelta, winnerGlobal.HighestMMR)

	loserGlobal, err := f.ratingRepo.GetGlobal(context.Background(), nil, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, loserGlobal.WinStreak)
	assert.Equal(t, models.DefaultMMR, loserGlobal.HighestMMR)
}

func TestApplyResultClampsAtZero(t *testing.T) {
	f := newRatingFixture(t, DecayConfig{})
	f.ensure(t, 1, "pugs", 1, 2)
	f.setQueueMMR(t, 1, "pugs", 2, 10)

	err := f.ratings.ApplyResult(context.Background(), nil, 1, "pugs", []int{1}, []int{2})
	require.NoError(t, err)

	loser, err := f.ratingRepo.GetQueue(context.Background(), nil, 1, "pugs", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, loser.MMR)
}

func TestWinStreakResetsOnLoss(t *testing.T) {
	f := newRatingFixture(t, DecayConfig{})
	f.ensure(t, 1, "pugs", 1, 2)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.ratings.ApplyResult(context.Background(), nil, 1, "pugs", []int{1}, []int{2}))
	}
	global, err := f.ratingRepo.GetGlobal(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, global.WinStreak)

	require.NoError(t, f.ratings.ApplyResult(context.Background(), nil, 1, "pugs", []int{2}, []int{1}))
	global, err = f.ratingRepo.GetGlobal(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, global.WinStreak)
}

// A player near the floor loses a match, clipping their loss to zero.
// Correcting the result to a win must land on snapshot+delta, not on
// the clipped value plus two deltas.
func TestApplyCorrectionRecomputesThroughFloor(t *testing.T) {
	f := newRatingFixture(t, DecayConfig{})
	f.ensure(t, 1, "pugs", 1)
	f.setQueueMMR(t, 1, "pugs", 1, 10)

	require.NoError(t, f.ratings.ApplyResult(context.Background(), nil, 1, "pugs", nil, []int{1}))
	clipped, err := f.ratingRepo.GetQueue(context.Background(), nil, 1, "pugs", 1)
	require.NoError(t, err)
	require.Equal(t, 0, clipped.MMR)

	participants := []models.MatchParticipant{
		{MatchID: 1, UserID: 1, Team: 1, QueueMMRBefore: 10, GlobalMMRBefore: models.DefaultMMR},
	}
	oldWinner, newWinner := 2, 1
	err = f.ratings.ApplyCorrection(context.Background(), nil, 1, "pugs", participants, &oldWinner, &newWinner)
	require.NoError(t, err)

	corrected, err := f.ratingRepo.GetQueue(context.Background(), nil, 1, "pugs", 1)
	require.NoError(t, err)
	assert.Equal(t, 35, corrected.MMR)
	assert.Equal(t, 1, corrected.Wins)
	assert.Equal(t, 0, corrected.Losses)
	assert.Equal(t, 1, corrected.GamesPlayed)
}

func TestApplyCorrectionVoidRemovesGame(t *testing.T) {
	f := newRatingFixture(t, DecayConfig{})
	f.ensure(t, 1, "pugs", 1)

	require.NoError(t, f.ratings.ApplyResult(context.Background(), nil, 1, "pugs", []int{1}, nil))

	participants := []models.MatchParticipant{
		{MatchID: 1, UserID: 1, Team: 1, QueueMMRBefore: models.DefaultMMR, GlobalMMRBefore: models.DefaultMMR},
	}
	oldWinner := 1
	err := f.ratings.ApplyCorrection(context.Background(), nil, 1, "pugs", participants, &oldWinner, nil)
	require.NoError(t, err)

	queue, err := f.ratingRepo.GetQueue(context.Background(), nil, 1, "pugs", 1)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMMR, queue.MMR)
	assert.Equal(t, 0, queue.Wins)
	assert.Equal(t, 0, queue.GamesPlayed)

	global, err := f.ratingRepo.GetGlobal(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMMR, global.MMR)
	assert.Equal(t, 0, global.TotalGames)
}

func TestSetAndAdjustMMR(t *testing.T) {
	f := newRatingFixture(t, DecayConfig{})
	f.ensure(t, 1, "pugs", 1)

	require.NoError(t, f.ratings.SetMMR(context.Background(), 1, "pugs", 1, 1800))
	queue, err := f.ratingRepo.GetQueue(context.Background(), nil, 1, "pugs", 1)
	require.NoError(t, err)
	assert.Equal(t, 1800, queue.MMR)

	require.NoError(t, f.ratings.AdjustMMR(context.Background(), 1, "pugs", 1, -2000))
	queue, err = f.ratingRepo.GetQueue(context.Background(), nil, 1, "pugs", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, queue.MMR)

	err = f.ratings.SetMMR(context.Background(), 1, "pugs", 99, 1200)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGrantGracePeriodValidation(t *testing.T) {
	f := newRatingFixture(t, DecayConfig{})
	f.ensure(t, 1, "pugs", 1)

	assert.ErrorIs(t, f.ratings.GrantGracePeriod(context.Background(), 1, -1), ErrForbiddenOperation)
	assert.ErrorIs(t, f.ratings.GrantGracePeriod(context.Background(), 1, 400), ErrForbiddenOperation)
	assert.ErrorIs(t, f.ratings.GrantGracePeriod(context.Background(), 99, 7), ErrNotFound)

	require.NoError(t, f.ratings.GrantGracePeriod(context.Background(), 1, 7))
	global, err := f.ratingRepo.GetGlobal(context.Background(), nil, 1)
	require.NoError(t, err)
	require.NotNil(t, global.GracePeriodUntil)
	assert.True(t, global.GracePeriodUntil.After(time.Now().AddDate(0, 0, 6)))
}

func TestRunDecaySkipsActiveAndGracedPlayers(t *testing.T) {
	f := newRatingFixture(t, DecayConfig{Step: 10, InactiveThreshold: 14 * 24 * time.Hour})

	cfg := models.DefaultQueueConfig(1, "pugs")
	cfg.MMRDecayEnabled = true
	require.NoError(t, f.configRepo.Upsert(context.Background(), cfg))

	f.ensure(t, 1, "pugs", 1, 2, 3, 4)

	stale := time.Now().Add(-30 * 24 * time.Hour)
	fresh := time.Now().Add(-time.Hour)
	setLastPlayed := func(userID int, at time.Time) {
		queue, err := f.ratingRepo.GetQueue(context.Background(), nil, 1, "pugs", userID)
		require.NoError(t, err)
		queue.LastPlayed = &at
		require.NoError(t, f.ratingRepo.SaveQueue(context.Background(), nil, queue))
	}
	setLastPlayed(1, stale)
	setLastPlayed(2, fresh)
	setLastPlayed(3, stale)
	// User 4 never played; no decay without a last-played mark.

	require.NoError(t, f.ratings.GrantGracePeriod(context.Background(), 3, 30))

	require.NoError(t, f.ratings.RunDecay(context.Background()))

	mmr := func(userID int) int {
		queue, err := f.ratingRepo.GetQueue(context.Background(), nil, 1, "pugs", userID)
		require.NoError(t, err)
		return queue.MMR
	}
	assert.Equal(t, models.DefaultMMR-10, mmr(1), "inactive player decays")
	assert.Equal(t, models.DefaultMMR, mmr(2), "recently active player keeps MMR")
	assert.Equal(t, models.DefaultMMR, mmr(3), "grace period blocks decay")
	assert.Equal(t, models.DefaultMMR, mmr(4), "player with no games keeps MMR")
}

func TestRunDecayIgnoresQueuesWithDecayDisabled(t *testing.T) {
	f := newRatingFixture(t, DecayConfig{Step: 10, InactiveThreshold: time.Hour})

	cfg := models.DefaultQueueConfig(1, "pugs")
	require.NoError(t, f.configRepo.Upsert(context.Background(), cfg))
	f.ensure(t, 1, "pugs", 1)

	stale := time.Now().Add(-48 * time.Hour)
	queue, err := f.ratingRepo.GetQueue(context.Background(), nil, 1, "pugs", 1)
	require.NoError(t, err)
	queue.LastPlayed = &stale
	require.NoError(t, f.ratingRepo.SaveQueue(context.Background(), nil, queue))

	require.NoError(t, f.ratings.RunDecay(context.Background()))

	queue, err = f.ratingRepo.GetQueue(context.Background(), nil, 1, "pugs", 1)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMMR, queue.MMR)
}

func TestLeaderboardOrdersByMMR(t *testing.T) {
	f := newRatingFixture(t, DecayConfig{})
	f.ensure(t, 1, "pugs", 1, 2, 3)
	f.setQueueMMR(t, 1, "pugs", 1, 900)
	f.setQueueMMR(t, 1, "pugs", 2, 1600)
	f.setQueueMMR(t, 1, "pugs", 3, 1200)

	board, err := f.ratings.Leaderboard(context.Background(), 1, "pugs", 2)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, 2, board[0].UserID)
	assert.Equal(t, 3, board[1].UserID)
}
