package models

import "time"

// GamePlan is one pre-selected game within a best-of-three series:
// the map to play and the game mode for that map.
type GamePlan struct {
	Map  string   `json:"map"`
	Mode GameMode `json:"mode"`
}

// GameResult is one decided game within a series. Append-only while the
// series is in progress.
type GameResult struct {
	MatchID   int `json:"match_id"`
	GameIndex int `json:"game_index"` // 1..3
	Winner    int `json:"winner"`     // 1 or 2
}

// MatchParticipant pins one roster member to a team together with the
// rating snapshots taken at match creation. The snapshots make staff
// result corrections exact: a reversed delta is recomputed from the
// pre-match value instead of guessing through the MMR floor clamp.
type MatchParticipant struct {
	MatchID         int `json:"match_id"`
	UserID          int `json:"user_id"`
	Team            int `json:"team"` // 1 or 2
	QueueMMRBefore  int `json:"queue_mmr_before"`
	GlobalMMRBefore int `json:"global_mmr_before"`
}

// Match is one best-of-three series between two fixed rosters.
// The rosters are immutable once created; only the result slot
// (winner, scores, cancelled) is mutated, and the record is terminal
// once Winner is set or Cancelled is true.
type Match struct {
	ID        int        `json:"id"`
	UID       string     `json:"uid"`
	TenantID  int        `json:"tenant_id"`
	QueueName string     `json:"queue_name"`
	SeqNo     int        `json:"seq_no"`
	Team1     []int      `json:"team1"`
	Team2     []int      `json:"team2"`
	Games     []GamePlan `json:"games"`

	Team1Score int  `json:"team1_score"`
	Team2Score int  `json:"team2_score"`
	Winner     *int `json:"winner,omitempty"` // 1 or 2, nil while in progress
	Cancelled  bool `json:"cancelled"`

	CreatedAt time.Time `json:"created_at"`
}

// Terminal reports whether the match result can no longer change through
// the normal lifecycle (staff correction is the only remaining path).
func (m *Match) Terminal() bool {
	return m.Winner != nil || m.Cancelled
}

// Roster returns the union of both teams.
func (m *Match) Roster() []int {
	roster := make([]int, 0, len(m.Team1)+len(m.Team2))
	roster = append(roster, m.Team1...)
	roster = append(roster, m.Team2...)
	return roster
}

// OnTeam reports which team the user plays on: 1, 2, or 0 if neither.
func (m *Match) OnTeam(userID int) int {
	for _, id := range m.Team1 {
		if id == userID {
			return 1
		}
	}
	for _, id := range m.Team2 {
		if id == userID {
			return 2
		}
	}
	return 0
}
