package models

import "time"

// SkillSnapshot holds the factors used for seeding. Optional sub-scores are on a 0..100 scale.
type SkillSnapshot struct {
	Rating      float64  `json:"rating"`
	Performance *float64 `json:"performance,omitempty"`
	History     *float64 `json:"history,omitempty"`
	Regional    *float64 `json:"regional,omitempty"`
	Consistency *float64 `json:"consistency,omitempty"`
}

type PlayerEntry struct {
	PlayerID     string        `json:"player_id"`
	Seed         int           `json:"seed"`
	Skill        SkillSnapshot `json:"skill"`
	RegisteredAt time.Time     `json:"registered_at"`
}

type Round struct {
	Number  int      `json:"number"`
	Side    Side     `json:"side"`
	Matches []*Match `json:"matches"`
}

type Bracket struct {
	TournamentID    int           `json:"tournament_id"`
	Format          Format        `json:"format"`
	Rounds          []*Round      `json:"rounds"`
	TotalRounds     int           `json:"total_rounds"`
	TotalMatches    int           `json:"total_matches"`
	Players         []PlayerEntry `json:"players"`
	GrandFinalReset bool          `json:"grand_final_reset"`
	GeneratedAt     time.Time     `json:"generated_at"`
}

func (b *Bracket) Matches() []*Match {
	var all []*Match
	for _, r := range b.Rounds {
		all = append(all, r.Matches...)
	}
	return all
}

func (b *Bracket) MatchByID(id string) *Match {
	for _, r := range b.Rounds {
		for _, m := range r.Matches {
			if m.ID == id {
				return m
			}
		}
	}
	return nil
}

func (b *Bracket) Player(playerID string) (PlayerEntry, bool) {
	for _, p := range b.Players {
		if p.PlayerID == playerID {
			return p, true
		}
	}
	return PlayerEntry{}, false
}

// AllTerminal reports whether every match is COMPLETED or CANCELLED.
func (b *Bracket) AllTerminal() bool {
	for _, r := range b.Rounds {
		for _, m := range r.Matches {
			if !m.IsTerminal() {
				return false
			}
		}
	}
	return true
}

func (b *Bracket) Clone() *Bracket {
	if b == nil {
		return nil
	}
	c := *b
	c.Players = append([]PlayerEntry(nil), b.Players...)
	c.Rounds = make([]*Round, len(b.Rounds))
	for i, r := range b.Rounds {
		nr := &Round{Number: r.Number, Side: r.Side, Matches: make([]*Match, len(r.Matches))}
		for j, m := range r.Matches {
			nr.Matches[j] = m.Clone()
		}
		c.Rounds[i] = nr
	}
	return &c
}
