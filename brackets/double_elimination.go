package brackets

import (
	"context"

	"github.com/Dosada05/bracket-engine/models"
)

// DoubleEliminationGenerator builds a true double elimination bracket: a
// winners tree, a losers tree of 2(k-1) rounds and a grand final with an
// optional reset match.
type DoubleEliminationGenerator struct {
}

func NewDoubleEliminationGenerator() BracketGenerator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) GetName() string {
	return "DoubleElimination"
}

func (g *DoubleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*models.Bracket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	winners := buildEliminationTree(params, models.SideWinners)
	k := len(winners)
	size := 1 << uint(k)
	rounds := append([]*models.Round{}, winners...)

	// Losers round r (1-based):
	//   r = 1      losers of WB round 1, paired
	//   r = 2j     LB round 2j-1 winners vs losers dropping from WB round j+1
	//   r = 2j+1   LB round 2j winners, paired
	lbRounds := 2 * (k - 1)
	losers := make([]*models.Round, lbRounds)
	for r := 1; r <= lbRounds; r++ {
		var count int
		switch {
		case r == 1:
			count = size / 4
		case r%2 == 0:
			count = size >> uint(r/2+1)
		default:
			count = size >> uint((r-1)/2+2)
		}
		number := k + r
		round := &models.Round{Number: number, Side: models.SideLosers}
		for i := 1; i <= count; i++ {
			round.Matches = append(round.Matches, newMatch(params, models.SideLosers, number, i))
		}
		losers[r-1] = round
	}
	rounds = append(rounds, losers...)

	gfNumber := k + lbRounds + 1
	grandFinal := newMatch(params, models.SideGrandFinal, gfNumber, 1)
	rounds = append(rounds, &models.Round{Number: gfNumber, Side: models.SideGrandFinal, Matches: []*models.Match{grandFinal}})

	wbFinal := winners[k-1].Matches[0]
	wbFinal.WinnerTo = &models.SlotRef{MatchID: grandFinal.ID, Slot: 1}

	if k == 1 {
		wbFinal.LoserTo = &models.SlotRef{MatchID: grandFinal.ID, Slot: 2}
	} else {
		for i, m := range winners[0].Matches {
			m.LoserTo = &models.SlotRef{MatchID: losers[0].Matches[i/2].ID, Slot: i%2 + 1}
		}
		for j := 1; j < k; j++ {
			drop := losers[2*j-1]
			n := len(drop.Matches)
			for i, m := range winners[j].Matches {
				target := i
				// Odd drops are mirrored so a player does not meet the
				// opponent they just beat in the winners bracket.
				if j%2 == 1 {
					target = n - 1 - i
				}
				m.LoserTo = &models.SlotRef{MatchID: drop.Matches[target].ID, Slot: 2}
			}
		}
		for r := 1; r <= lbRounds; r++ {
			for i, m := range losers[r-1].Matches {
				switch {
				case r == lbRounds:
					m.WinnerTo = &models.SlotRef{MatchID: grandFinal.ID, Slot: 2}
				case r%2 == 1:
					m.WinnerTo = &models.SlotRef{MatchID: losers[r].Matches[i].ID, Slot: 1}
				default:
					m.WinnerTo = &models.SlotRef{MatchID: losers[r].Matches[i/2].ID, Slot: i%2 + 1}
				}
			}
		}
	}

	if params.GrandFinalReset {
		reset := newMatch(params, models.SideGrandFinal, gfNumber+1, 1)
		// Played only when the losers bracket champion takes the first final.
		grandFinal.WinnerTo = &models.SlotRef{MatchID: reset.ID, Slot: 1}
		grandFinal.LoserTo = &models.SlotRef{MatchID: reset.ID, Slot: 2}
		rounds = append(rounds, &models.Round{Number: gfNumber + 1, Side: models.SideGrandFinal, Matches: []*models.Match{reset}})
	}

	return &models.Bracket{
		Format:          models.FormatDoubleElimination,
		Rounds:          rounds,
		GrandFinalReset: params.GrandFinalReset,
	}, nil
}

// ResetMatch returns the grand final reset match of a double elimination
// bracket, or nil when the bracket was built without one.
func ResetMatch(b *models.Bracket) *models.Match {
	if b.Format != models.FormatDoubleElimination || !b.GrandFinalReset || len(b.Rounds) == 0 {
		return nil
	}
	last := b.Rounds[len(b.Rounds)-1]
	if last.Side != models.SideGrandFinal || len(last.Matches) != 1 {
		return nil
	}
	if len(b.Rounds) < 2 || b.Rounds[len(b.Rounds)-2].Side != models.SideGrandFinal {
		return nil
	}
	return last.Matches[0]
}
