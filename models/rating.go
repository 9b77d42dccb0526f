package models

import "time"

type RatingRecord struct {
	PlayerID    string    `json:"player_id" db:"player_id"`
	GameID      string    `json:"game_id" db:"game_id"`
	Rating      int       `json:"rating" db:"rating"`
	PeakRating  int       `json:"peak_rating" db:"peak_rating"`
	GamesPlayed int       `json:"games_played" db:"games_played"`
	GamesWon    int       `json:"games_won" db:"games_won"`
	GamesLost   int       `json:"games_lost" db:"games_lost"`
	GamesDrawn  int       `json:"games_drawn" db:"games_drawn"`
	Version     int       `json:"-" db:"version"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// RatingChange is the audit row written with every rating update.
type RatingChange struct {
	MatchID    string    `json:"match_id" db:"match_id"`
	PlayerID   string    `json:"player_id" db:"player_id"`
	GameID     string    `json:"game_id" db:"game_id"`
	OldRating  int       `json:"old_rating" db:"old_rating"`
	NewRating  int       `json:"new_rating" db:"new_rating"`
	Delta      int       `json:"delta" db:"delta"`
	Expected   float64   `json:"expected" db:"expected"`
	K          float64   `json:"k" db:"k"`
	Tournament bool      `json:"tournament" db:"tournament"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
