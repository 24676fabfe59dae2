package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/matchmaking-system/live"
	"github.com/Dosada05/matchmaking-system/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type admissionFixture struct {
	admission   AdmissionService
	configRepo  *memConfigRepo
	eligibility *memEligibilityRepo
	activity    *memActivityRepo
	creator     *recordingMatchCreator
}

func newAdmissionFixture(t *testing.T) *admissionFixture {
	t.Helper()

	configRepo := newMemConfigRepo()
	eligibility := newMemEligibilityRepo()
	activity := &memActivityRepo{}
	ratingRepo := newMemRatingRepo()
	creator := &recordingMatchCreator{}

	ratings := NewRatingService(ratingRepo, configRepo, DecayConfig{}, testLogger())
	admission := NewAdmissionService(
		configRepo,
		eligibility,
		activity,
		ratings,
		creator,
		live.NewNotifier(live.NewHub()),
		testLogger(),
	)

	return &admissionFixture{
		admission:   admission,
		configRepo:  configRepo,
		eligibility: eligibility,
		activity:    activity,
		creator:     creator,
	}
}

func (f *admissionFixture) setConfig(t *testing.T, cfg *models.QueueConfig) {
	t.Helper()
	require.NoError(t, f.configRepo.Upsert(context.Background(), cfg))
}

func TestJoinUsesDefaultConfigForUnknownQueue(t *testing.T) {
	f := newAdmissionFixture(t)

	state, err := f.admission.Join(context.Background(), 1, "pugs", 42)
	require.NoError(t, err)

	assert.Equal(t, []int{42}, state.Members)
	assert.Equal(t, 10, state.Capacity)
}

func TestJoinRejectsLockedQueue(t *testing.T) {
	f := newAdmissionFixture(t)
	cfg := models.DefaultQueueConfig(1, "pugs")
	cfg.Locked = true
	f.setConfig(t, cfg)

	_, err := f.admission.Join(context.Background(), 1, "pugs", 42)
	assert.ErrorIs(t, err, ErrQueueLocked)
}

func TestJoinRejectsBlacklistedUser(t *testing.T) {
	f := newAdmissionFixture(t)
	require.NoError(t, f.eligibility.AddToBlacklist(context.Background(), 1, "pugs", 42, "toxic"))

	_, err := f.admission.Join(context.Background(), 1, "pugs", 42)
	assert.ErrorIs(t, err, ErrBlacklisted)
}

func TestJoinRejectsUserWithoutRequiredRole(t *testing.T) {
	f := newAdmissionFixture(t)
	require.NoError(t, f.eligibility.AddRequiredRole(context.Background(), 1, "pugs", "member"))

	_, err := f.admission.Join(context.Background(), 1, "pugs", 42)
	assert.ErrorIs(t, err, ErrRoleIneligible)

	require.NoError(t, f.eligibility.GrantParticipantRole(context.Background(), 1, 42, "member"))
	_, err = f.admission.Join(context.Background(), 1, "pugs", 42)
	assert.NoError(t, err)
}

func TestJoinRejectsDuplicate(t *testing.T) {
	f := newAdmissionFixture(t)

	_, err := f.admission.Join(context.Background(), 1, "pugs", 42)
	require.NoError(t, err)

	_, err = f.admission.Join(context.Background(), 1, "pugs", 42)
	assert.ErrorIs(t, err, ErrAlreadyQueued)
}

func TestLeaveUnknownUser(t *testing.T) {
	f := newAdmissionFixture(t)

	_, err := f.admission.Leave(context.Background(), 1, "pugs", 42)
	assert.ErrorIs(t, err, ErrNotQueued)
}

func TestQueueDrainsInJoinOrderAtCapacity(t *testing.T) {
	f := newAdmissionFixture(t)
	cfg := models.DefaultQueueConfig(1, "pugs")
	cfg.TeamSize = 2
	f.setConfig(t, cfg)

	for userID := 1; userID <= 3; userID++ {
		state, err := f.admission.Join(context.Background(), 1, "pugs", userID)
		require.NoError(t, err)
		assert.Len(t, state.Members, userID)
	}
	require.Empty(t, f.creator.rosters)

	state, err := f.admission.Join(context.Background(), 1, "pugs", 4)
	require.NoError(t, err)

	assert.Empty(t, state.Members)
	require.Len(t, f.creator.rosters, 1)
	assert.Equal(t, []int{1, 2, 3, 4}, f.creator.rosters[0])
}

func TestForceAddBypassesEligibility(t *testing.T) {
	f := newAdmissionFixture(t)
	cfg := models.DefaultQueueConfig(1, "pugs")
	cfg.Locked = true
	f.setConfig(t, cfg)
	require.NoError(t, f.eligibility.AddToBlacklist(context.Background(), 1, "pugs", 42, "toxic"))

	state, err := f.admission.ForceAdd(context.Background(), 1, "pugs", 42)
	require.NoError(t, err)
	assert.Equal(t, []int{42}, state.Members)

	_, err = f.admission.ForceAdd(context.Background(), 1, "pugs", 42)
	assert.ErrorIs(t, err, ErrAlreadyQueued)
}

func TestClearEmptiesQueue(t *testing.T) {
	f := newAdmissionFixture(t)

	_, err := f.admission.Join(context.Background(), 1, "pugs", 1)
	require.NoError(t, err)
	_, err = f.admission.Join(context.Background(), 1, "pugs", 2)
	require.NoError(t, err)

	cleared, err := f.admission.Clear(context.Background(), 1, "pugs")
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)

	state, err := f.admission.State(context.Background(), 1, "pugs")
	require.NoError(t, err)
	assert.Empty(t, state.Members)

	cleared, err = f.admission.Clear(context.Background(), 1, "pugs")
	require.NoError(t, err)
	assert.Zero(t, cleared)
}

func TestQueuesAreIsolatedPerTenant(t *testing.T) {
	f := newAdmissionFixture(t)

	_, err := f.admission.Join(context.Background(), 1, "pugs", 42)
	require.NoError(t, err)

	state, err := f.admission.Join(context.Background(), 2, "pugs", 42)
	require.NoError(t, err)
	assert.Equal(t, []int{42}, state.Members)
}

func TestConcurrentJoinsDrainExactlyOnce(t *testing.T) {
	f := newAdmissionFixture(t)
	cfg := models.DefaultQueueConfig(1, "pugs")
	cfg.TeamSize = 5
	f.setConfig(t, cfg)

	const players = 30 // three full drains

	var wg sync.WaitGroup
	for userID := 1; userID <= players; userID++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			_, err := f.admission.Join(context.Background(), 1, "pugs", userID)
			assert.NoError(t, err)
		}(userID)
	}
	wg.Wait()

	require.Len(t, f.creator.rosters, 3)

	seen := make(map[int]int)
	for _, roster := range f.creator.rosters {
		assert.Len(t, roster, 10)
		for _, userID := range roster {
			seen[userID]++
		}
	}
	assert.Len(t, seen, players)
	for userID, count := range seen {
		assert.Equalf(t, 1, count, "user %d drained %d times", userID, count)
	}

	state, err := f.admission.State(context.Background(), 1, "pugs")
	require.NoError(t, err)
	assert.Empty(t, state.Members)
}
