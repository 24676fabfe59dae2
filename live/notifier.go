package live

import (
	"github.com/Dosada05/matchmaking-system/models"
)

// Message types pushed to subscribers.
const (
	TypeQueueState      = "QUEUE_STATE"
	TypeMatchCreated    = "MATCH_CREATED"
	TypeVoteProgress    = "VOTE_PROGRESS"
	TypeGameResolved    = "GAME_RESOLVED"
	TypeSeriesCompleted = "SERIES_COMPLETED"
	TypeMatchCancelled  = "MATCH_CANCELLED"
)

// Notifier renders core state transitions into hub broadcasts. Failures
// to deliver never roll back the transition that produced them.
type Notifier struct {
	hub *Hub
}

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

type queueStatePayload struct {
	TenantID  int    `json:"tenant_id"`
	QueueName string `json:"queue_name"`
	Members   []int  `json:"members"`
	Capacity  int    `json:"capacity"`
}

func (n *Notifier) RenderQueueState(tenantID int, queueName string, members []int, capacity int) {
	n.hub.BroadcastToRoom(QueueRoom(tenantID, queueName), Message{
		Type: TypeQueueState,
		Payload: queueStatePayload{
			TenantID:  tenantID,
			QueueName: queueName,
			Members:   members,
			Capacity:  capacity,
		},
	})
}

func (n *Notifier) AnnounceMatchCreated(match *models.Match) {
	msg := Message{Type: TypeMatchCreated, Payload: match}
	n.hub.BroadcastToRoom(QueueRoom(match.TenantID, match.QueueName), msg)
	n.hub.BroadcastToRoom(MatchRoom(match.UID), msg)
}

type voteProgressPayload struct {
	MatchUID      string `json:"match_uid"`
	GameIndex     int    `json:"game_index"`
	Team1Votes    int    `json:"team1_votes"`
	Team2Votes    int    `json:"team2_votes"`
	RequiredVotes int    `json:"required_votes"`
}

func (n *Notifier) AnnounceVoteProgress(match *models.Match, gameIndex, team1Votes, team2Votes, requiredVotes int) {
	n.hub.BroadcastToRoom(MatchRoom(match.UID), Message{
		Type: TypeVoteProgress,
		Payload: voteProgressPayload{
			MatchUID:      match.UID,
			GameIndex:     gameIndex,
			Team1Votes:    team1Votes,
			Team2Votes:    team2Votes,
			RequiredVotes: requiredVotes,
		},
	})
}

type gameResolvedPayload struct {
	MatchUID   string `json:"match_uid"`
	GameIndex  int    `json:"game_index"`
	Winner     int    `json:"winner"`
	Team1Score int    `json:"team1_score"`
	Team2Score int    `json:"team2_score"`
}

func (n *Notifier) AnnounceGameResolved(match *models.Match, gameIndex, winner int) {
	n.hub.BroadcastToRoom(MatchRoom(match.UID), Message{
		Type: TypeGameResolved,
		Payload: gameResolvedPayload{
			MatchUID:   match.UID,
			GameIndex:  gameIndex,
			Winner:     winner,
			Team1Score: match.Team1Score,
			Team2Score: match.Team2Score,
		},
	})
}

type seriesCompletedPayload struct {
	Match  *models.Match `json:"match"`
	Winner int           `json:"winner"`
}

func (n *Notifier) AnnounceSeriesCompleted(match *models.Match, winner int) {
	msg := Message{Type: TypeSeriesCompleted, Payload: seriesCompletedPayload{Match: match, Winner: winner}}
	n.hub.BroadcastToRoom(MatchRoom(match.UID), msg)
	n.hub.BroadcastToRoom(QueueRoom(match.TenantID, match.QueueName), msg)
}

func (n *Notifier) AnnounceMatchCancelled(match *models.Match) {
	msg := Message{Type: TypeMatchCancelled, Payload: match}
	n.hub.BroadcastToRoom(MatchRoom(match.UID), msg)
	n.hub.BroadcastToRoom(QueueRoom(match.TenantID, match.QueueName), msg)
}
