package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/matchmaking-system/models"
)

func intPtr(n int) *int { return &n }

func teamModePtr(m models.TeamMode) *models.TeamMode { return &m }

func gameModePtr(m models.GameMode) *models.GameMode { return &m }

func boolPtr(b bool) *bool { return &b }

func newConfigService() (ConfigService, *memConfigRepo, *memEligibilityRepo) {
	configRepo := newMemConfigRepo()
	eligibility := newMemEligibilityRepo()
	return NewConfigService(configRepo, eligibility), configRepo, eligibility
}

func TestGetReturnsDefaultsForUnknownQueue(t *testing.T) {
	svc, _, _ := newConfigService()

	cfg, err := svc.Get(context.Background(), 1, "pugs")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.TeamSize)
	assert.Equal(t, models.TeamModeBalanced, cfg.TeamMode)
	assert.Equal(t, models.GameModeMix, cfg.GameMode)
	assert.False(t, cfg.Locked)
}

func TestUpdatePersistsPartialChanges(t *testing.T) {
	svc, repo, _ := newConfigService()

	cfg, err := svc.Update(context.Background(), 1, "pugs", ConfigUpdate{
		TeamSize: intPtr(3),
		GameMode: gameModePtr(models.GameModeSND),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.TeamSize)
	assert.Equal(t, models.GameModeSND, cfg.GameMode)
	assert.Equal(t, models.TeamModeBalanced, cfg.TeamMode, "untouched field keeps default")

	stored, err := repo.Get(context.Background(), 1, "pugs")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.TeamSize)

	// A later partial update keeps the earlier change.
	cfg, err = svc.Update(context.Background(), 1, "pugs", ConfigUpdate{
		MMRDecayEnabled: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.TeamSize)
	assert.True(t, cfg.MMRDecayEnabled)
}

func TestUpdateValidation(t *testing.T) {
	svc, _, _ := newConfigService()

	_, err := svc.Update(context.Background(), 1, "pugs", ConfigUpdate{TeamSize: intPtr(0)})
	assert.ErrorIs(t, err, ErrInvalidTeamSize)

	_, err = svc.Update(context.Background(), 1, "pugs", ConfigUpdate{TeamSize: intPtr(11)})
	assert.ErrorIs(t, err, ErrInvalidTeamSize)

	_, err = svc.Update(context.Background(), 1, "pugs", ConfigUpdate{TeamMode: teamModePtr("draft")})
	assert.ErrorIs(t, err, ErrInvalidTeamMode)

	_, err = svc.Update(context.Background(), 1, "pugs", ConfigUpdate{GameMode: gameModePtr("ctf")})
	assert.ErrorIs(t, err, ErrInvalidGameMode)
}

func TestMapPoolManagement(t *testing.T) {
	svc, _, _ := newConfigService()

	require.NoError(t, svc.AddMap(context.Background(), 1, "pugs", "Fortress"))
	require.NoError(t, svc.AddMap(context.Background(), 1, "pugs", "Skyline"))
	assert.ErrorIs(t, svc.AddMap(context.Background(), 1, "pugs", ""), ErrForbiddenOperation)

	maps, err := svc.ListMaps(context.Background(), 1, "pugs")
	require.NoError(t, err)
	assert.Equal(t, []string{"Fortress", "Skyline"}, maps)

	require.NoError(t, svc.RemoveMap(context.Background(), 1, "pugs", "Fortress"))
	maps, err = svc.ListMaps(context.Background(), 1, "pugs")
	require.NoError(t, err)
	assert.Equal(t, []string{"Skyline"}, maps)
}

func TestBlacklistManagement(t *testing.T) {
	svc, _, eligibility := newConfigService()

	require.NoError(t, svc.Blacklist(context.Background(), 1, "pugs", 7, "toxicity"))
	blocked, err := eligibility.IsBlacklisted(context.Background(), 1, "pugs", 7)
	require.NoError(t, err)
	assert.True(t, blocked)

	require.NoError(t, svc.Unblacklist(context.Background(), 1, "pugs", 7))
	blocked, err = eligibility.IsBlacklisted(context.Background(), 1, "pugs", 7)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestRequiredRoleManagement(t *testing.T) {
	svc, _, _ := newConfigService()

	require.NoError(t, svc.AddRequiredRole(context.Background(), 1, "pugs", "member"))
	assert.ErrorIs(t, svc.AddRequiredRole(context.Background(), 1, "pugs", ""), ErrForbiddenOperation)

	roles, err := svc.ListRequiredRoles(context.Background(), 1, "pugs")
	require.NoError(t, err)
	assert.Equal(t, []string{"member"}, roles)

	require.NoError(t, svc.RemoveRequiredRole(context.Background(), 1, "pugs", "member"))
	roles, err = svc.ListRequiredRoles(context.Background(), 1, "pugs")
	require.NoError(t, err)
	assert.Empty(t, roles)
}
