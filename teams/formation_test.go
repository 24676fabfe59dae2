package teams

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster(mmrs ...int) []Player {
	players := make([]Player, len(mmrs))
	for i, mmr := range mmrs {
		players[i] = Player{UserID: i + 1, MMR: mmr}
	}
	return players
}

func sumMMR(team []Player) int {
	total := 0
	for _, p := range team {
		total += p.MMR
	}
	return total
}

func allIDs(team1, team2 []Player) []int {
	return append(IDs(team1), IDs(team2)...)
}

func TestBalancedSplitsEvenRoster(t *testing.T) {
	team1, team2 := Balanced(roster(1500, 1400, 1300, 1200, 1100, 1000, 900, 800, 700, 600))

	assert.Len(t, team1, 5)
	assert.Len(t, team2, 5)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, allIDs(team1, team2))
}

func TestBalancedGreedyAssignment(t *testing.T) {
	// Descending order: 1500 to team1, then each player goes to the
	// lower-sum team, ties to team1.
	team1, team2 := Balanced(roster(1500, 1400, 1300, 1200))

	assert.Equal(t, []int{1, 4}, IDs(team1))
	assert.Equal(t, []int{2, 3}, IDs(team2))
	assert.Equal(t, 2700, sumMMR(team1))
	assert.Equal(t, 2700, sumMMR(team2))
}

func TestBalancedOddRosterFavorsTeam1(t *testing.T) {
	team1, team2 := Balanced(roster(1200, 1100, 1000, 900, 800))

	assert.Len(t, team1, 3)
	assert.Len(t, team2, 2)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, allIDs(team1, team2))
}

func TestBalancedIdenticalRatingsFillTeam1First(t *testing.T) {
	// Equal sums tie on every step until team 1 is full.
	team1, team2 := Balanced(roster(1000, 1000, 1000, 1000))

	assert.Equal(t, []int{1, 3}, IDs(team1))
	assert.Equal(t, []int{2, 4}, IDs(team2))
}

func TestBalancedGapBounded(t *testing.T) {
	mmrs := []int{2400, 1900, 1700, 1500, 1300, 1200, 1000, 700, 500, 200}
	team1, team2 := Balanced(roster(mmrs...))

	gap := sumMMR(team1) - sumMMR(team2)
	if gap < 0 {
		gap = -gap
	}
	assert.LessOrEqual(t, gap, 2400)
}

func TestBalancedDoesNotMutateInput(t *testing.T) {
	players := roster(900, 1500, 1200)
	Balanced(players)
	assert.Equal(t, []Player{{1, 900}, {2, 1500}, {3, 1200}}, players)
}

func TestBalancedEmptyRoster(t *testing.T) {
	team1, team2 := Balanced(nil)
	assert.Empty(t, team1)
	assert.Empty(t, team2)
}

func TestRandomPartitionsRoster(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	players := roster(1500, 1400, 1300, 1200, 1100, 1000)

	team1, team2 := Random(players, rng)

	assert.Len(t, team1, 3)
	assert.Len(t, team2, 3)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6}, allIDs(team1, team2))
}

func TestRandomOddRosterFavorsTeam1(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	team1, team2 := Random(roster(1000, 1000, 1000), rng)

	assert.Len(t, team1, 2)
	assert.Len(t, team2, 1)
}

func TestRandomSeededReproducible(t *testing.T) {
	players := roster(1500, 1400, 1300, 1200, 1100, 1000, 900, 800)

	a1, a2 := Random(players, rand.New(rand.NewSource(42)))
	b1, b2 := Random(players, rand.New(rand.NewSource(42)))

	assert.Equal(t, IDs(a1), IDs(b1))
	assert.Equal(t, IDs(a2), IDs(b2))
}

func TestIDsPreservesOrder(t *testing.T) {
	team := []Player{{UserID: 9, MMR: 1}, {UserID: 4, MMR: 2}, {UserID: 7, MMR: 3}}
	require.Equal(t, []int{9, 4, 7}, IDs(team))
}
