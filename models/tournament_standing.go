package models

// Standing is a per-player aggregate computed from completed matches of a
// round robin or Swiss bracket.
type Standing struct {
	PlayerID  string   `json:"player_id"`
	Seed      int      `json:"seed"`
	Points    float64  `json:"points"`
	Played    int      `json:"played"`
	Wins      int      `json:"wins"`
	Draws     int      `json:"draws"`
	Losses    int      `json:"losses"`
	Byes      int      `json:"byes"`
	Whites    int      `json:"whites"`
	Tiebreak  float64  `json:"tiebreak"`
	Opponents []string `json:"-"`
}
