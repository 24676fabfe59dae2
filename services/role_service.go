package services

import (
	"context"

	"github.com/Dosada05/matchmaking-system/repositories"
)

// dbRoleService stores tenant roles in the participant_roles table.
// Deployments that mirror roles into an external platform swap in their
// own RoleService implementation.
type dbRoleService struct {
	eligibilityRepo repositories.EligibilityRepository
}

func NewDBRoleService(eligibilityRepo repositories.EligibilityRepository) RoleService {
	return &dbRoleService{eligibilityRepo: eligibilityRepo}
}

func (s *dbRoleService) GrantRole(ctx context.Context, tenantID int, userID int, roleID string) error {
	return s.eligibilityRepo.GrantParticipantRole(ctx, tenantID, userID, roleID)
}

func (s *dbRoleService) RevokeRole(ctx context.Context, tenantID int, userID int, roleID string) error {
	return s.eligibilityRepo.RevokeParticipantRole(ctx, tenantID, userID, roleID)
}
