// Package rating implements the ELO update applied after every decided or drawn match.
package rating

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Dosada05/bracket-engine/models"
)

type Score float64

const (
	ScoreLoss Score = 0
	ScoreDraw Score = 0.5
	ScoreWin  Score = 1
)

var ErrInvalidConfig = errors.New("invalid rating configuration")

// KTier applies K to players with fewer than MaxGames games. MaxGames 0 means no upper bound.
type KTier struct {
	MaxGames int     `json:"max_games"`
	K        float64 `json:"k"`
}

type Config struct {
	BaseRating           int     `json:"base_rating"`
	MinRating            int     `json:"min_rating"`
	MaxRating            int     `json:"max_rating"`
	KTiers               []KTier `json:"k_tiers"`
	TournamentMultiplier float64 `json:"tournament_multiplier"`
}

func DefaultConfig() Config {
	return Config{
		BaseRating: 1200,
		MinRating:  100,
		MaxRating:  3000,
		KTiers: []KTier{
			{MaxGames: 30, K: 40},
			{MaxGames: 0, K: 20},
		},
		TournamentMultiplier: 1.5,
	}
}

func (c Config) Validate() error {
	if c.MinRating >= c.MaxRating {
		return fmt.Errorf("%w: min rating %d must be below max %d", ErrInvalidConfig, c.MinRating, c.MaxRating)
	}
	if c.BaseRating < c.MinRating || c.BaseRating > c.MaxRating {
		return fmt.Errorf("%w: base rating %d outside [%d, %d]", ErrInvalidConfig, c.BaseRating, c.MinRating, c.MaxRating)
	}
	if len(c.KTiers) == 0 {
		return fmt.Errorf("%w: at least one K tier is required", ErrInvalidConfig)
	}
	for _, t := range c.KTiers {
		if t.K <= 0 {
			return fmt.Errorf("%w: K must be positive", ErrInvalidConfig)
		}
	}
	if c.TournamentMultiplier <= 0 {
		return fmt.Errorf("%w: tournament multiplier must be positive", ErrInvalidConfig)
	}
	return nil
}

type Engine struct {
	cfg   Config
	tiers []KTier
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tiers := append([]KTier(nil), cfg.KTiers...)
	// Bounded tiers ascending, the open-ended tier last.
	sort.SliceStable(tiers, func(i, j int) bool {
		a, b := tiers[i].MaxGames, tiers[j].MaxGames
		if a == 0 || b == 0 {
			return b == 0 && a != 0
		}
		return a < b
	})
	return &Engine{cfg: cfg, tiers: tiers}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// NewRecord is the lazily created record for a player's first game.
func (e *Engine) NewRecord(playerID, gameID string) models.RatingRecord {
	return models.RatingRecord{
		PlayerID:   playerID,
		GameID:     gameID,
		Rating:     e.cfg.BaseRating,
		PeakRating: e.cfg.BaseRating,
	}
}

// ExpectedScore is the logistic ELO expectation of player against opponent.
func ExpectedScore(player, opponent float64) float64 {
	return 1 / (1 + math.Pow(10, (opponent-player)/400))
}

// KFactor returns the sensitivity for a player with gamesPlayed prior games.
func (e *Engine) KFactor(gamesPlayed int, tournament bool) float64 {
	k := e.tiers[len(e.tiers)-1].K
	for _, t := range e.tiers {
		if t.MaxGames == 0 || gamesPlayed < t.MaxGames {
			k = t.K
			break
		}
	}
	if tournament {
		k *= e.cfg.TournamentMultiplier
	}
	return k
}

// Side is one player's part of an applied update.
type Side struct {
	OldRating int
	NewRating int
	Delta     int
	Expected  float64
	K         float64
}

// MatchK is the K shared by both sides of a game, the mean of the two
// players' tier K. Decisive updates are zero-sum unless a rating is clamped.
func (e *Engine) MatchK(a, b models.RatingRecord, tournament bool) float64 {
	return (e.KFactor(a.GamesPlayed, tournament) + e.KFactor(b.GamesPlayed, tournament)) / 2
}

// Apply rates a game between a and b where scoreA is a's result. Both new
// records are returned together; neither input is modified.
func (e *Engine) Apply(a, b models.RatingRecord, scoreA Score, tournament bool) (models.RatingRecord, models.RatingRecord, Side, Side) {
	scoreB := 1 - scoreA
	k := e.MatchK(a, b, tournament)
	expectedA := ExpectedScore(float64(a.Rating), float64(b.Rating))
	change := int(math.Round(k * (float64(scoreA) - expectedA)))

	sideA := e.side(a, expectedA, change, k)
	sideB := e.side(b, 1-expectedA, -change, k)
	return e.record(a, sideA, scoreA), e.record(b, sideB, scoreB), sideA, sideB
}

func (e *Engine) side(player models.RatingRecord, expected float64, change int, k float64) Side {
	next := e.clamp(player.Rating + change)
	return Side{
		OldRating: player.Rating,
		NewRating: next,
		Delta:     next - player.Rating,
		Expected:  expected,
		K:         k,
	}
}

func (e *Engine) record(r models.RatingRecord, s Side, score Score) models.RatingRecord {
	r.Rating = s.NewRating
	if r.Rating > r.PeakRating {
		r.PeakRating = r.Rating
	}
	r.GamesPlayed++
	switch score {
	case ScoreWin:
		r.GamesWon++
	case ScoreLoss:
		r.GamesLost++
	default:
		r.GamesDrawn++
	}
	return r
}

func (e *Engine) clamp(rating int) int {
	if rating < e.cfg.MinRating {
		return e.cfg.MinRating
	}
	if rating > e.cfg.MaxRating {
		return e.cfg.MaxRating
	}
	return rating
}
