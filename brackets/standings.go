package brackets

import (
	"errors"
	"sort"

	"github.com/Dosada05/bracket-engine/models"
)

var ErrBracketNotFinished = errors.New("bracket still has open matches")

const (
	pointsWin  = 1.0
	pointsDraw = 0.5
	// A Swiss bye scores as a win. Round robin byes are rest rounds worth nothing.
	pointsSwissBye = 1.0
)

func standingsByPlayer(b *models.Bracket) map[string]*models.Standing {
	table := make(map[string]*models.Standing, len(b.Players))
	for _, p := range b.Players {
		table[p.PlayerID] = &models.Standing{PlayerID: p.PlayerID, Seed: p.Seed}
	}
	for _, m := range b.Matches() {
		if m.Status != models.MatchStatusCompleted {
			continue
		}
		if m.IsBye {
			if s, ok := table[m.WinnerID]; ok {
				s.Byes++
				if b.Format == models.FormatSwiss {
					s.Points += pointsSwissBye
				}
			}
			continue
		}
		a, c := table[m.Slots[0].PlayerID], table[m.Slots[1].PlayerID]
		if a == nil || c == nil {
			continue
		}
		a.Played++
		c.Played++
		a.Whites++
		a.Opponents = append(a.Opponents, c.PlayerID)
		c.Opponents = append(c.Opponents, a.PlayerID)
		switch {
		case m.IsDraw:
			a.Draws++
			c.Draws++
			a.Points += pointsDraw
			c.Points += pointsDraw
		case m.WinnerID == a.PlayerID:
			a.Wins++
			c.Losses++
			a.Points += pointsWin
		case m.WinnerID == c.PlayerID:
			c.Wins++
			a.Losses++
			c.Points += pointsWin
		}
	}
	return table
}

// Standings ranks round robin and Swiss players by points, then tiebreak
// (Sonneborn-Berger for round robin, Buchholz for Swiss), wins and seed.
func Standings(b *models.Bracket) []models.Standing {
	table := standingsByPlayer(b)

	for _, m := range b.Matches() {
		if m.Status != models.MatchStatusCompleted || m.IsBye {
			continue
		}
		a, c := table[m.Slots[0].PlayerID], table[m.Slots[1].PlayerID]
		if a == nil || c == nil {
			continue
		}
		if b.Format == models.FormatSwiss {
			a.Tiebreak += c.Points
			c.Tiebreak += a.Points
			continue
		}
		switch {
		case m.IsDraw:
			a.Tiebreak += c.Points / 2
			c.Tiebreak += a.Points / 2
		case m.WinnerID == a.PlayerID:
			a.Tiebreak += c.Points
		case m.WinnerID == c.PlayerID:
			c.Tiebreak += a.Points
		}
	}

	out := make([]models.Standing, 0, len(table))
	for _, p := range b.Players {
		out = append(out, *table[p.PlayerID])
	}
	sort.SliceStable(out, func(i, j int) bool {
		x, y := out[i], out[j]
		if x.Points != y.Points {
			return x.Points > y.Points
		}
		if x.Tiebreak != y.Tiebreak {
			return x.Tiebreak > y.Tiebreak
		}
		if x.Wins != y.Wins {
			return x.Wins > y.Wins
		}
		return x.Seed < y.Seed
	})
	return out
}

// Placements computes final positions of a finished bracket.
func Placements(b *models.Bracket) ([]models.Placement, error) {
	if !b.AllTerminal() {
		return nil, ErrBracketNotFinished
	}
	if b.Format.IsElimination() {
		return eliminationPlacements(b), nil
	}

	standings := Standings(b)
	out := make([]models.Placement, len(standings))
	for i, s := range standings {
		out[i] = models.Placement{Place: i + 1, PlayerID: s.PlayerID, Points: s.Points, Wins: s.Wins, Losses: s.Losses}
	}
	return out, nil
}

// eliminationPlacements ranks the champion first and everyone else by the
// round they were knocked out in; players out in the same round share a place.
func eliminationPlacements(b *models.Bracket) []models.Placement {
	index := make(map[string]*models.Match)
	for _, m := range b.Matches() {
		index[m.ID] = m
	}
	deadEnd := func(ref *models.SlotRef) bool {
		if ref == nil {
			return true
		}
		next, ok := index[ref.MatchID]
		return !ok || next.Status == models.MatchStatusCancelled
	}

	wins := make(map[string]int)
	losses := make(map[string]int)
	outRound := make(map[string]int)
	champion := ""
	for _, m := range b.Matches() {
		if m.Status != models.MatchStatusCompleted || m.IsBye || m.WinnerID == "" {
			continue
		}
		wins[m.WinnerID]++
		losses[m.LoserID]++
		if deadEnd(m.WinnerTo) {
			champion = m.WinnerID
		}
		if deadEnd(m.LoserTo) {
			outRound[m.LoserID] = m.Round
		}
	}

	type ranked struct {
		id    string
		round int
		seed  int
	}
	var rest []ranked
	for _, p := range b.Players {
		if p.PlayerID == champion {
			continue
		}
		rest = append(rest, ranked{id: p.PlayerID, round: outRound[p.PlayerID], seed: p.Seed})
	}
	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].round != rest[j].round {
			return rest[i].round > rest[j].round
		}
		return rest[i].seed < rest[j].seed
	})

	var out []models.Placement
	if champion != "" {
		out = append(out, models.Placement{Place: 1, PlayerID: champion, Wins: wins[champion], Losses: losses[champion]})
	}
	for i, r := range rest {
		place := len(out) + 1
		if i > 0 && rest[i-1].round == r.round {
			place = out[len(out)-1].Place
		}
		out = append(out, models.Placement{Place: place, PlayerID: r.id, Wins: wins[r.id], Losses: losses[r.id]})
	}
	return out
}
