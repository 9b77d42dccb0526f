package models

import "time"

// TournamentStatus mirrors the tournament_status column.
type TournamentStatus string

const (
	StatusOpen      TournamentStatus = "OPEN"
	StatusActive    TournamentStatus = "ACTIVE"
	StatusClosed    TournamentStatus = "CLOSED"
	StatusCompleted TournamentStatus = "COMPLETED"
	StatusCancelled TournamentStatus = "CANCELLED"
)

func (s TournamentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Tournament struct {
	ID              int              `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	GameID          string           `json:"game_id" db:"game_id"`
	Format          Format           `json:"format" db:"format"`
	Capacity        int              `json:"capacity" db:"capacity"`
	Status          TournamentStatus `json:"status" db:"status"`
	GrandFinalReset bool             `json:"grand_final_reset" db:"grand_final_reset"`
	Placements      []Placement      `json:"placements,omitempty" db:"placements"`
	Version         int              `json:"version" db:"version"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`

	Roster  []PlayerEntry `json:"roster,omitempty" db:"-"`
	Bracket *Bracket      `json:"bracket,omitempty" db:"-"`
}

// Placement is a final position; players eliminated in the same stage share a place.
type Placement struct {
	Place    int     `json:"place"`
	PlayerID string  `json:"player_id"`
	Points   float64 `json:"points,omitempty"`
	Wins     int     `json:"wins,omitempty"`
	Losses   int     `json:"losses,omitempty"`
}
