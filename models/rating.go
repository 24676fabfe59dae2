package models

import "time"

const DefaultMMR = 1000

// PlayerRating is the tenant-independent, aggregated rating record of a
// player. Created lazily on first queue join, mutated only by the rating
// service; reset-to-default is a mutation, never a delete.
type PlayerRating struct {
	UserID           int        `json:"user_id"`
	MMR              int        `json:"mmr"`
	Wins             int        `json:"wins"`
	Losses           int        `json:"losses"`
	TotalGames       int        `json:"total_games"`
	WinStreak        int        `json:"win_streak"`
	HighestMMR       int        `json:"highest_mmr"`
	LastPlayed       *time.Time `json:"last_played,omitempty"`
	GracePeriodUntil *time.Time `json:"grace_period_until,omitempty"`
	JoinedAt         time.Time  `json:"joined_at"`
}

// QueueRating is the per-(tenant, queue) rating snapshot of a player.
type QueueRating struct {
	UserID      int        `json:"user_id"`
	TenantID    int        `json:"tenant_id"`
	QueueName   string     `json:"queue_name"`
	MMR         int        `json:"mmr"`
	Wins        int        `json:"wins"`
	Losses      int        `json:"losses"`
	GamesPlayed int        `json:"games_played"`
	LastPlayed  *time.Time `json:"last_played,omitempty"`
}
