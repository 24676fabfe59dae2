package models

import "time"

type TeamMode string

const (
	TeamModeBalanced TeamMode = "balanced"
	TeamModeRandom   TeamMode = "random"
	TeamModeCaptains TeamMode = "captains"
)

type GameMode string

const (
	GameModeMix      GameMode = "mix"
	GameModeHP       GameMode = "hp"
	GameModeSND      GameMode = "snd"
	GameModeOverload GameMode = "overload"
)

// QueueConfig holds per-(tenant, queue) matchmaking settings.
// A config row is created on the first configuration write; until then
// DefaultQueueConfig applies.
type QueueConfig struct {
	TenantID        int      `json:"tenant_id"`
	QueueName       string   `json:"queue_name"`
	TeamSize        int      `json:"team_size"`
	TeamMode        TeamMode `json:"team_mode"`
	Locked          bool     `json:"locked"`
	Team1Name       string   `json:"team1_name"`
	Team2Name       string   `json:"team2_name"`
	GameMode        GameMode `json:"game_mode"`
	MMRDecayEnabled bool     `json:"mmr_decay_enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Capacity is the number of participants needed to fill a match.
func (c *QueueConfig) Capacity() int {
	return c.TeamSize * 2
}

// DefaultQueueConfig is the single default-construction path for queues
// that have never been configured.
func DefaultQueueConfig(tenantID int, queueName string) *QueueConfig {
	return &QueueConfig{
		TenantID:  tenantID,
		QueueName: queueName,
		TeamSize:  5,
		TeamMode:  TeamModeBalanced,
		Locked:    false,
		Team1Name: "Team 1",
		Team2Name: "Team 2",
		GameMode:  GameModeMix,
	}
}
