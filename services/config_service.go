package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/matchmaking-system/models"
	"github.com/Dosada05/matchmaking-system/repositories"
)

const maxTeamSize = 10

// ConfigUpdate carries the mutable queue settings. Nil fields keep the
// current value.
type ConfigUpdate struct {
	TeamSize        *int             `json:"team_size,omitempty"`
	TeamMode        *models.TeamMode `json:"team_mode,omitempty"`
	Team1Name       *string          `json:"team1_name,omitempty"`
	Team2Name       *string          `json:"team2_name,omitempty"`
	GameMode        *models.GameMode `json:"game_mode,omitempty"`
	MMRDecayEnabled *bool            `json:"mmr_decay_enabled,omitempty"`
}

type ConfigService interface {
	Get(ctx context.Context, tenantID int, queueName string) (*models.QueueConfig, error)
	Update(ctx context.Context, tenantID int, queueName string, update ConfigUpdate) (*models.QueueConfig, error)

	ListMaps(ctx context.Context, tenantID int, queueName string) ([]string, error)
	AddMap(ctx context.Context, tenantID int, queueName, mapName string) error
	RemoveMap(ctx context.Context, tenantID int, queueName, mapName string) error

	Blacklist(ctx context.Context, tenantID int, queueName string, userID int, reason string) error
	Unblacklist(ctx context.Context, tenantID int, queueName string, userID int) error

	ListRequiredRoles(ctx context.Context, tenantID int, queueName string) ([]string, error)
	AddRequiredRole(ctx context.Context, tenantID int, queueName, roleID string) error
	RemoveRequiredRole(ctx context.Context, tenantID int, queueName, roleID string) error
}

type configService struct {
	configRepo      repositories.QueueConfigRepository
	eligibilityRepo repositories.EligibilityRepository
}

func NewConfigService(
	configRepo repositories.QueueConfigRepository,
	eligibilityRepo repositories.EligibilityRepository,
) ConfigService {
	return &configService{
		configRepo:      configRepo,
		eligibilityRepo: eligibilityRepo,
	}
}

func (s *configService) Get(ctx context.Context, tenantID int, queueName string) (*models.QueueConfig, error) {
	cfg, err := s.configRepo.Get(ctx, tenantID, queueName)
	if err != nil {
		if errors.Is(err, repositories.ErrQueueConfigNotFound) {
			return models.DefaultQueueConfig(tenantID, queueName), nil
		}
		return nil, err
	}
	return cfg, nil
}

func (s *configService) Update(ctx context.Context, tenantID int, queueName string, update ConfigUpdate) (*models.QueueConfig, error) {
	cfg, err := s.Get(ctx, tenantID, queueName)
	if err != nil {
		return nil, err
	}

	if update.TeamSize != nil {
		if *update.TeamSize < 1 || *update.TeamSize > maxTeamSize {
			return nil, ErrInvalidTeamSize
		}
		cfg.TeamSize = *update.TeamSize
	}
	if update.TeamMode != nil {
		switch *update.TeamMode {
		case models.TeamModeBalanced, models.TeamModeRandom, models.TeamModeCaptains:
			cfg.TeamMode = *update.TeamMode
		default:
			return nil, ErrInvalidTeamMode
		}
	}
	if update.Team1Name != nil {
		cfg.Team1Name = *update.Team1Name
	}
	if update.Team2Name != nil {
		cfg.Team2Name = *update.Team2Name
	}
	if update.GameMode != nil {
		switch *update.GameMode {
		case models.GameModeMix, models.GameModeHP, models.GameModeSND, models.GameModeOverload:
			cfg.GameMode = *update.GameMode
		default:
			return nil, ErrInvalidGameMode
		}
	}
	if update.MMRDecayEnabled != nil {
		cfg.MMRDecayEnabled = *update.MMRDecayEnabled
	}

	if err := s.configRepo.Upsert(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save queue config for %d/%s: %w", tenantID, queueName, err)
	}
	return cfg, nil
}

func (s *configService) ListMaps(ctx context.Context, tenantID int, queueName string) ([]string, error) {
	return s.configRepo.ListMaps(ctx, tenantID, queueName)
}

func (s *configService) AddMap(ctx context.Context, tenantID int, queueName, mapName string) error {
	if mapName == "" {
		return fmt.Errorf("%w: map name is empty", ErrForbiddenOperation)
	}
	return s.configRepo.AddMap(ctx, tenantID, queueName, mapName)
}

func (s *configService) RemoveMap(ctx context.Context, tenantID int, queueName, mapName string) error {
	return s.configRepo.RemoveMap(ctx, tenantID, queueName, mapName)
}

func (s *configService) Blacklist(ctx context.Context, tenantID int, queueName string, userID int, reason string) error {
	return s.eligibilityRepo.AddToBlacklist(ctx, tenantID, queueName, userID, reason)
}

func (s *configService) Unblacklist(ctx context.Context, tenantID int, queueName string, userID int) error {
	if err := s.eligibilityRepo.RemoveFromBlacklist(ctx, tenantID, queueName, userID); err != nil {
		if errors.Is(err, repositories.ErrBlacklistEntryNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *configService) ListRequiredRoles(ctx context.Context, tenantID int, queueName string) ([]string, error) {
	return s.eligibilityRepo.ListRequiredRoles(ctx, tenantID, queueName)
}

func (s *configService) AddRequiredRole(ctx context.Context, tenantID int, queueName, roleID string) error {
	if roleID == "" {
		return fmt.Errorf("%w: role id is empty", ErrForbiddenOperation)
	}
	return s.eligibilityRepo.AddRequiredRole(ctx, tenantID, queueName, roleID)
}

func (s *configService) RemoveRequiredRole(ctx context.Context, tenantID int, queueName, roleID string) error {
	return s.eligibilityRepo.RemoveRequiredRole(ctx, tenantID, queueName, roleID)
}
