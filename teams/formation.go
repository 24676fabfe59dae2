// Package teams holds the pure team-formation algorithms. Functions here
// take an already-drained roster plus current ratings and return two
// disjoint teams; they never touch storage or live state.
package teams

import (
	"errors"
	"math/rand"
	"sort"
)

// ErrCaptainsNotImplemented is returned for queues configured with the
// captain-draft mode. There is no silent fallback to balanced teams.
var ErrCaptainsNotImplemented = errors.New("captain draft mode is not implemented")

// Player is a roster member with the per-queue MMR used for balancing.
type Player struct {
	UserID int
	MMR    int
}

// Balanced sorts the roster by MMR descending and greedily assigns each
// player to whichever team currently has the lower MMR sum, team 1 on
// ties. Not globally optimal, but deterministic and bounded: the final
// gap between team sums never exceeds the largest single MMR in the
// roster.
func Balanced(roster []Player) (team1, team2 []Player) {
	sorted := make([]Player, len(roster))
	copy(sorted, roster)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MMR > sorted[j].MMR
	})

	// Team 1 takes the larger half of an odd roster.
	cap1 := (len(sorted) + 1) / 2
	cap2 := len(sorted) / 2

	var sum1, sum2 int
	for _, p := range sorted {
		switch {
		case len(team1) >= cap1:
			team2 = append(team2, p)
			sum2 += p.MMR
		case len(team2) >= cap2:
			team1 = append(team1, p)
			sum1 += p.MMR
		case sum1 <= sum2:
			team1 = append(team1, p)
			sum1 += p.MMR
		default:
			team2 = append(team2, p)
			sum2 += p.MMR
		}
	}
	return team1, team2
}

// Random shuffles the roster and splits it down the middle. An odd roster
// puts the extra player on team 1.
func Random(roster []Player, rng *rand.Rand) (team1, team2 []Player) {
	shuffled := make([]Player, len(roster))
	copy(shuffled, roster)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	mid := (len(shuffled) + 1) / 2
	return shuffled[:mid], shuffled[mid:]
}

// IDs extracts the user IDs of a team in assignment order.
func IDs(team []Player) []int {
	ids := make([]int, len(team))
	for i, p := range team {
		ids[i] = p.UserID
	}
	return ids
}
