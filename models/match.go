package models

import "time"

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "PENDING"
	MatchStatusWaiting   MatchStatus = "WAITING"
	MatchStatusActive    MatchStatus = "ACTIVE"
	MatchStatusCompleted MatchStatus = "COMPLETED"
	MatchStatusCancelled MatchStatus = "CANCELLED"
)

// Side identifies the part of a bracket a match belongs to.
type Side string

const (
	SideMain       Side = "main"
	SideWinners    Side = "winners"
	SideLosers     Side = "losers"
	SideGrandFinal Side = "grand_final"
)

// SlotRef points at a participant slot (1 or 2) of a downstream match.
type SlotRef struct {
	MatchID string `json:"match_id"`
	Slot    int    `json:"slot"`
}

type Match struct {
	ID           string      `json:"id"`
	TournamentID int         `json:"tournament_id"`
	Side         Side        `json:"side"`
	Round        int         `json:"round"`
	Order        int         `json:"order"`
	Slots        [2]Slot     `json:"slots"`
	Status       MatchStatus `json:"status"`
	WinnerID     string      `json:"winner_id,omitempty"`
	LoserID      string      `json:"loser_id,omitempty"`
	IsDraw       bool        `json:"is_draw"`
	IsBye        bool        `json:"is_bye"`
	WinnerTo     *SlotRef    `json:"winner_to,omitempty"`
	LoserTo      *SlotRef    `json:"loser_to,omitempty"`
	Version      int         `json:"version"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
}

func (m *Match) IsTerminal() bool {
	return m.Status == MatchStatusCompleted || m.Status == MatchStatusCancelled
}

// Playable reports whether the match is a real game between two players.
func (m *Match) Playable() bool {
	return !m.IsBye
}

func (m *Match) HasParticipant(playerID string) bool {
	if playerID == "" {
		return false
	}
	return m.Slots[0].PlayerID == playerID || m.Slots[1].PlayerID == playerID
}

// Opponent returns the other participant of the match, or "" if there is none.
func (m *Match) Opponent(playerID string) string {
	switch playerID {
	case m.Slots[0].PlayerID:
		return m.Slots[1].PlayerID
	case m.Slots[1].PlayerID:
		return m.Slots[0].PlayerID
	}
	return ""
}

func (m *Match) Participants() []string {
	ids := make([]string, 0, 2)
	for _, s := range m.Slots {
		if s.HasPlayer() {
			ids = append(ids, s.PlayerID)
		}
	}
	return ids
}

func (m *Match) Clone() *Match {
	c := *m
	if m.WinnerTo != nil {
		ref := *m.WinnerTo
		c.WinnerTo = &ref
	}
	if m.LoserTo != nil {
		ref := *m.LoserTo
		c.LoserTo = &ref
	}
	if m.StartedAt != nil {
		t := *m.StartedAt
		c.StartedAt = &t
	}
	if m.CompletedAt != nil {
		t := *m.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
