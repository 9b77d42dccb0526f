package brackets

import (
	"context"

	"github.com/Dosada05/bracket-engine/models"
)

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*models.Bracket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rounds := buildEliminationTree(params, models.SideMain)
	return &models.Bracket{Format: models.FormatSingleElimination, Rounds: rounds}, nil
}

// SeedOrder returns the standard draw for a bracket of size (a power of two):
// adjacent entries meet in round 1 and seeds 1 and 2 can only meet in the final.
func SeedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		n := len(order) * 2
		next := make([]int, 0, n)
		for _, s := range order {
			next = append(next, s, n+1-s)
		}
		order = next
	}
	return order
}

// buildEliminationTree lays out a seeded knockout tree. Seeds beyond the
// roster become BYE slots, so byes always fall to the top seeds.
func buildEliminationTree(params GenerateBracketParams, side models.Side) []*models.Round {
	players := params.Players
	numRounds := log2Ceil(len(players))
	size := 1 << uint(numRounds)
	order := SeedOrder(size)

	rounds := make([]*models.Round, 0, numRounds)
	first := &models.Round{Number: 1, Side: side}
	for i := 0; i < size/2; i++ {
		m := newMatch(params, side, 1, i+1)
		m.Slots[0] = seedSlot(players, order[2*i])
		m.Slots[1] = seedSlot(players, order[2*i+1])
		first.Matches = append(first.Matches, m)
	}
	rounds = append(rounds, first)

	prev := first
	for r := 2; r <= numRounds; r++ {
		round := &models.Round{Number: r, Side: side}
		for i := 0; i < len(prev.Matches)/2; i++ {
			round.Matches = append(round.Matches, newMatch(params, side, r, i+1))
		}
		for i, m := range prev.Matches {
			m.WinnerTo = &models.SlotRef{MatchID: round.Matches[i/2].ID, Slot: i%2 + 1}
		}
		rounds = append(rounds, round)
		prev = round
	}
	return rounds
}
