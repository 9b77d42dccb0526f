package brackets

import (
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

type ValidationResult struct {
	Valid   bool           `json:"valid"`
	Errors  []string       `json:"errors,omitempty"`
	Details map[string]any `json:"details"`
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Validate checks the structure of a generated or stored bracket: closed-form
// counts, pair uniqueness, bye balance, distinct participants and the
// integrity of advancement pointers.
func Validate(b *models.Bracket) ValidationResult {
	res := ValidationResult{Valid: true, Details: make(map[string]any)}
	if b == nil {
		res.fail("bracket is nil")
		return res
	}
	if !b.Format.Valid() {
		res.fail("unsupported format %q", b.Format)
		return res
	}

	n := len(b.Players)
	roster := make(map[string]bool, n)
	for _, p := range b.Players {
		roster[p.PlayerID] = true
	}
	res.Details["players"] = n

	expectedRounds := ExpectedRounds(b.Format, n, b.GrandFinalReset)
	expectedMatches := ExpectedMatches(b.Format, n)
	res.Details["expected_total_rounds"] = expectedRounds
	res.Details["declared_total_rounds"] = b.TotalRounds
	res.Details["actual_total_rounds"] = len(b.Rounds)
	if b.TotalRounds != expectedRounds {
		res.fail("totalRounds is %d, expected %d", b.TotalRounds, expectedRounds)
	}
	if len(b.Rounds) != expectedRounds {
		res.fail("bracket has %d rounds, expected %d", len(b.Rounds), expectedRounds)
	}

	reset := ResetMatch(b)
	ids := make(map[string]*models.Match)
	playable := 0
	for i, r := range b.Rounds {
		if r.Number != i+1 {
			res.fail("round at position %d is numbered %d", i+1, r.Number)
		}
		for _, m := range r.Matches {
			if _, dup := ids[m.ID]; dup {
				res.fail("duplicate match id %s", m.ID)
			}
			ids[m.ID] = m
			if m.Round != r.Number {
				res.fail("match %s has round %d inside round %d", m.ID, m.Round, r.Number)
			}
			if !m.IsBye && m != reset {
				playable++
			}
		}
	}
	res.Details["expected_total_matches"] = expectedMatches
	res.Details["declared_total_matches"] = b.TotalMatches
	res.Details["actual_total_matches"] = playable
	if b.TotalMatches != expectedMatches {
		res.fail("totalMatches is %d, expected %d", b.TotalMatches, expectedMatches)
	}
	if playable != expectedMatches {
		res.fail("bracket has %d playable matches, expected %d", playable, expectedMatches)
	}

	checkParticipants(&res, b, roster)
	checkByes(&res, b, n)
	if b.Format == models.FormatRoundRobin {
		checkUniquePairs(&res, b)
	}
	if b.Format.IsElimination() {
		checkPointers(&res, b, ids)
	}
	return res
}

func checkParticipants(res *ValidationResult, b *models.Bracket, roster map[string]bool) {
	for _, m := range b.Matches() {
		for _, s := range m.Slots {
			if s.HasPlayer() && !roster[s.PlayerID] {
				res.fail("match %s references unknown player %s", m.ID, s.PlayerID)
			}
		}
		if m.IsBye {
			continue
		}
		if m.Slots[0].IsBye() || m.Slots[1].IsBye() {
			res.fail("match %s has a BYE slot but is not marked as a bye", m.ID)
		}
		if m.Slots[0].HasPlayer() && m.Slots[1].HasPlayer() && m.Slots[0].PlayerID == m.Slots[1].PlayerID {
			res.fail("match %s pairs player %s with themselves", m.ID, m.Slots[0].PlayerID)
		}
	}
}

func checkByes(res *ValidationResult, b *models.Bracket, n int) {
	type key struct {
		player string
		side   models.Side
	}
	perSide := make(map[key]int)
	total := make(map[string]int)
	for _, m := range b.Matches() {
		if !m.IsBye {
			continue
		}
		for _, s := range m.Slots {
			if s.HasPlayer() {
				perSide[key{s.PlayerID, m.Side}]++
				total[s.PlayerID]++
			}
		}
	}
	res.Details["byes"] = total

	switch b.Format {
	case models.FormatRoundRobin:
		want := 0
		if n%2 == 1 {
			want = 1
		}
		for _, p := range b.Players {
			if total[p.PlayerID] != want {
				res.fail("player %s has %d byes, expected %d", p.PlayerID, total[p.PlayerID], want)
			}
		}
	case models.FormatSwiss:
		for _, p := range b.Players {
			if total[p.PlayerID] > 1 {
				res.fail("player %s has %d byes, at most 1 allowed", p.PlayerID, total[p.PlayerID])
			}
		}
	default:
		for k, c := range perSide {
			if c > 1 {
				res.fail("player %s has %d byes in the %s bracket", k.player, c, k.side)
			}
		}
		for _, r := range b.Rounds {
			if r.Number != 1 {
				continue
			}
			for _, m := range r.Matches {
				if m.Slots[0].IsBye() && m.Slots[1].IsBye() {
					res.fail("byes meet each other in match %s", m.ID)
				}
			}
		}
	}
}

func checkUniquePairs(res *ValidationResult, b *models.Bracket) {
	seen := make(map[[2]string]string)
	for _, m := range b.Matches() {
		if m.IsBye || !m.Slots[0].HasPlayer() || !m.Slots[1].HasPlayer() {
			continue
		}
		a, c := m.Slots[0].PlayerID, m.Slots[1].PlayerID
		if c < a {
			a, c = c, a
		}
		pair := [2]string{a, c}
		if prev, dup := seen[pair]; dup {
			res.fail("players %s and %s meet twice (matches %s and %s)", a, c, prev, m.ID)
			continue
		}
		seen[pair] = m.ID
	}
	res.Details["unique_pairs"] = len(seen)
}

func checkPointers(res *ValidationResult, b *models.Bracket, ids map[string]*models.Match) {
	fed := make(map[models.SlotRef]string)
	finals := 0
	check := func(m *models.Match, ref *models.SlotRef, kind string) {
		if ref == nil {
			return
		}
		if ref.Slot != 1 && ref.Slot != 2 {
			res.fail("match %s %s pointer has slot %d", m.ID, kind, ref.Slot)
			return
		}
		target, ok := ids[ref.MatchID]
		if !ok {
			res.fail("match %s %s pointer targets unknown match %s", m.ID, kind, ref.MatchID)
			return
		}
		if target.Round <= m.Round {
			res.fail("match %s %s pointer goes backwards to round %d", m.ID, kind, target.Round)
		}
		if prev, dup := fed[*ref]; dup {
			res.fail("slot %d of match %s is fed by both %s and %s", ref.Slot, ref.MatchID, prev, m.ID)
			return
		}
		fed[*ref] = m.ID
	}
	for _, m := range b.Matches() {
		if m.WinnerTo == nil {
			finals++
		}
		check(m, m.WinnerTo, "winner")
		check(m, m.LoserTo, "loser")
	}
	res.Details["matches_without_winner_pointer"] = finals
	if finals != 1 {
		res.fail("expected exactly one final without a winner pointer, found %d", finals)
	}
}
