package brackets

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dosada05/bracket-engine/models"
)

type SwissRoundOne string

const (
	// SwissTopVsBottom pairs seed i with seed i+N/2 in round 1.
	SwissTopVsBottom SwissRoundOne = "top_vs_bottom"
	// SwissAdjacent pairs seed 1 with 2, 3 with 4 and so on.
	SwissAdjacent SwissRoundOne = "adjacent"
)

// pairingBudget bounds the backtracking search of a single pairing attempt.
const pairingBudget = 50000

// SwissPolicy configures Swiss pairing. The zero value is the default policy:
// top half vs bottom half in round 1, rematches allowed only when no
// rematch-free pairing exists.
type SwissPolicy struct {
	RoundOne        SwissRoundOne `json:"round_one"`
	StrictRematches bool          `json:"strict_rematches"`
}

func (p SwissPolicy) roundOne() SwissRoundOne {
	if p.RoundOne == SwissAdjacent {
		return SwissAdjacent
	}
	return SwissTopVsBottom
}

type SwissGenerator struct{}

func NewSwissGenerator() BracketGenerator {
	return &SwissGenerator{}
}

func (g *SwissGenerator) GetName() string {
	return "Swiss"
}

// GenerateBracket pairs round 1 and lays out later rounds with TBD slots.
// Those are filled by PairNextRound once the previous round is finished.
func (g *SwissGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*models.Bracket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	players := params.Players
	n := len(players)
	numRounds := log2Ceil(n)

	rounds := make([]*models.Round, 0, numRounds)
	for r := 1; r <= numRounds; r++ {
		round := &models.Round{Number: r, Side: models.SideMain}
		for i := 1; i <= n/2; i++ {
			round.Matches = append(round.Matches, newMatch(params, models.SideMain, r, i))
		}
		if n%2 == 1 {
			m := newMatch(params, models.SideMain, r, n/2+1)
			m.Slots[1] = models.ByeSlot()
			m.IsBye = true
			round.Matches = append(round.Matches, m)
		}
		rounds = append(rounds, round)
	}

	first := rounds[0]
	seeds := make([]int, 0, n)
	for s := 1; s <= n; s++ {
		seeds = append(seeds, s)
	}
	if n%2 == 1 {
		// The lowest seed sits out round 1.
		last := seeds[len(seeds)-1]
		seeds = seeds[:len(seeds)-1]
		first.Matches[len(first.Matches)-1].Slots[0] = models.SeedSlot(last, players[last-1].PlayerID)
	}
	half := len(seeds) / 2
	for i := 0; i < half; i++ {
		var a, b int
		if params.Swiss.roundOne() == SwissAdjacent {
			a, b = seeds[2*i], seeds[2*i+1]
		} else {
			a, b = seeds[i], seeds[i+half]
		}
		// Alternate colors down the boards.
		if i%2 == 1 {
			a, b = b, a
		}
		m := first.Matches[i]
		m.Slots[0] = models.SeedSlot(a, players[a-1].PlayerID)
		m.Slots[1] = models.SeedSlot(b, players[b-1].PlayerID)
	}

	return &models.Bracket{Format: models.FormatSwiss, Rounds: rounds}, nil
}

// PairNextRound fills the slots of the given round from the standings of all
// previous rounds. It returns the matches it filled, or nil if the round was
// already paired.
func PairNextRound(b *models.Bracket, round int, policy SwissPolicy) ([]*models.Match, error) {
	if b.Format != models.FormatSwiss {
		return nil, fmt.Errorf("%w: pairing requested for %s", ErrUnsupportedFormat, b.Format)
	}
	if round < 2 || round > len(b.Rounds) {
		return nil, fmt.Errorf("%w: round %d out of range", ErrPairingUnavailable, round)
	}
	for _, r := range b.Rounds[:round-1] {
		for _, m := range r.Matches {
			if !m.IsTerminal() {
				return nil, fmt.Errorf("%w: match %s is %s", ErrRoundNotReady, m.ID, m.Status)
			}
		}
	}
	target := b.Rounds[round-1]
	for _, m := range target.Matches {
		if m.Slots[0].HasPlayer() {
			return nil, nil
		}
	}

	standings := standingsByPlayer(b)
	order := make([]*models.Standing, 0, len(standings))
	for _, p := range b.Players {
		order = append(order, standings[p.PlayerID])
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Points != order[j].Points {
			return order[i].Points > order[j].Points
		}
		return order[i].Seed < order[j].Seed
	})

	var byePlayer *models.Standing
	if len(order)%2 == 1 {
		byePlayer = pickBye(order)
		if byePlayer == nil {
			return nil, fmt.Errorf("%w: every player already had a bye", ErrPairingUnavailable)
		}
		rest := make([]*models.Standing, 0, len(order)-1)
		for _, s := range order {
			if s != byePlayer {
				rest = append(rest, s)
			}
		}
		order = rest
	}

	met := make(map[string]map[string]bool, len(order))
	for _, s := range order {
		met[s.PlayerID] = make(map[string]bool, len(s.Opponents))
		for _, o := range s.Opponents {
			met[s.PlayerID][o] = true
		}
	}

	pairs := pairPlayers(order, met, false)
	if pairs == nil && !policy.StrictRematches {
		pairs = pairPlayers(order, met, true)
	}
	if pairs == nil {
		return nil, fmt.Errorf("%w: round %d", ErrPairingUnavailable, round)
	}

	var filled []*models.Match
	for i, pr := range pairs {
		white, black := pr[0], pr[1]
		if black.Whites < white.Whites || (black.Whites == white.Whites && black.Seed < white.Seed) {
			white, black = black, white
		}
		m := target.Matches[i]
		m.Slots[0] = models.ResolvedSlot(white.PlayerID)
		m.Slots[1] = models.ResolvedSlot(black.PlayerID)
		filled = append(filled, m)
	}
	if byePlayer != nil {
		m := target.Matches[len(target.Matches)-1]
		m.Slots[0] = models.ResolvedSlot(byePlayer.PlayerID)
		filled = append(filled, m)
	}
	return filled, nil
}

// pickBye prefers the lowest scored, then lowest seeded player without a bye.
func pickBye(order []*models.Standing) *models.Standing {
	var pick *models.Standing
	for _, s := range order {
		if s.Byes > 0 {
			continue
		}
		if pick == nil || s.Points < pick.Points || (s.Points == pick.Points && s.Seed > pick.Seed) {
			pick = s
		}
	}
	return pick
}

// pairPlayers pairs an ordered list by proximity: the first unpaired player
// takes the nearest partner that keeps the rest pairable. Odd score groups
// therefore float their lowest seed into the next group.
func pairPlayers(order []*models.Standing, met map[string]map[string]bool, allowRematch bool) [][2]*models.Standing {
	budget := pairingBudget
	var rec func(rest []*models.Standing) ([][2]*models.Standing, bool)
	rec = func(rest []*models.Standing) ([][2]*models.Standing, bool) {
		if len(rest) == 0 {
			return nil, true
		}
		budget--
		if budget < 0 {
			return nil, false
		}
		a := rest[0]
		for j := 1; j < len(rest); j++ {
			b := rest[j]
			if !allowRematch && met[a.PlayerID][b.PlayerID] {
				continue
			}
			remaining := make([]*models.Standing, 0, len(rest)-2)
			remaining = append(remaining, rest[1:j]...)
			remaining = append(remaining, rest[j+1:]...)
			if tail, ok := rec(remaining); ok {
				return append([][2]*models.Standing{{a, b}}, tail...), true
			}
		}
		return nil, false
	}
	pairs, ok := rec(order)
	if !ok {
		return nil
	}
	return pairs
}
