package brackets

import (
	"context"

	"github.com/Dosada05/bracket-engine/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateBracket builds Berger tables with the circle method. Position 0 is
// fixed (seed 1, or a virtual BYE when N is odd) and every other position
// rotates one step clockwise per round; position i plays position M-1-i.
//
// Slot 1 is the home side. The fixed board alternates each round, board i
// hosts its top-row player when i is even, so every player stays within one
// of an even home/away split.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*models.Bracket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	players := params.Players
	n := len(players)

	const bye = 0
	positions := make([]int, 0, n+1)
	if n%2 == 1 {
		positions = append(positions, bye)
	}
	for seed := 1; seed <= n; seed++ {
		positions = append(positions, seed)
	}
	size := len(positions)

	slot := func(seed int) models.Slot {
		if seed == bye {
			return models.ByeSlot()
		}
		return models.SeedSlot(seed, players[seed-1].PlayerID)
	}

	rounds := make([]*models.Round, 0, size-1)
	for r := 0; r < size-1; r++ {
		round := &models.Round{Number: r + 1, Side: models.SideMain}
		for i := 0; i < size/2; i++ {
			top, bottom := positions[i], positions[size-1-i]
			home, away := top, bottom
			switch {
			case i == 0 && r%2 == 1:
				home, away = bottom, top
			case i > 0 && i%2 == 1:
				home, away = bottom, top
			}
			// Bye boards keep the player in slot 1.
			if home == bye {
				home, away = away, home
			}
			m := newMatch(params, models.SideMain, r+1, i+1)
			m.Slots[0] = slot(home)
			m.Slots[1] = slot(away)
			round.Matches = append(round.Matches, m)
		}
		rounds = append(rounds, round)

		rotated := make([]int, 0, size)
		rotated = append(rotated, positions[0], positions[size-1])
		rotated = append(rotated, positions[1:size-1]...)
		positions = rotated
	}

	return &models.Bracket{Format: models.FormatRoundRobin, Rounds: rounds}, nil
}
