package rating

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	return e
}

func TestExpectedScore(t *testing.T) {
	assert.InDelta(t, 0.5, ExpectedScore(1500, 1500), 1e-12)
	assert.InDelta(t, 0.909, ExpectedScore(1800, 1400), 1e-3)
	assert.InDelta(t, 1.0, ExpectedScore(1700, 1300)+ExpectedScore(1300, 1700), 1e-12)
}

func TestKFactorTiers(t *testing.T) {
	e := newEngine(t)
	assert.Equal(t, 40.0, e.KFactor(0, false))
	assert.Equal(t, 40.0, e.KFactor(29, false))
	assert.Equal(t, 20.0, e.KFactor(30, false))
	assert.Equal(t, 20.0, e.KFactor(500, false))
	assert.Equal(t, 60.0, e.KFactor(0, true))
	assert.Equal(t, 30.0, e.KFactor(100, true))
}

func TestKFactorTierOrderIgnored(t *testing.T) {
	e, err := NewEngine(Config{
		BaseRating: 1000, MinRating: 0, MaxRating: 4000,
		KTiers:               []KTier{{MaxGames: 0, K: 10}, {MaxGames: 50, K: 24}, {MaxGames: 10, K: 32}},
		TournamentMultiplier: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 32.0, e.KFactor(5, false))
	assert.Equal(t, 24.0, e.KFactor(10, false))
	assert.Equal(t, 10.0, e.KFactor(50, false))
}

func TestApply_DecisiveIsZeroSum(t *testing.T) {
	e := newEngine(t)
	ratings := [][2]int{{1200, 1200}, {1500, 1300}, {1250, 1900}, {2200, 2210}, {1000, 1001}}
	for _, tournament := range []bool{false, true} {
		for _, pair := range ratings {
			a := models.RatingRecord{PlayerID: "a", GameID: "chess", Rating: pair[0], PeakRating: pair[0], GamesPlayed: 12}
			b := models.RatingRecord{PlayerID: "b", GameID: "chess", Rating: pair[1], PeakRating: pair[1], GamesPlayed: 12}

			_, _, sa, sb := e.Apply(a, b, ScoreWin, tournament)
			assert.LessOrEqual(t, math.Abs(float64(sa.Delta+sb.Delta)), 1.0, "pair %v", pair)
			assert.Positive(t, sa.Delta)
			assert.Negative(t, sb.Delta)
		}
	}
}

func TestApply_MixedTiersShareK(t *testing.T) {
	e := newEngine(t)
	newcomer := models.RatingRecord{PlayerID: "new", Rating: 1200, PeakRating: 1200}
	veteran := models.RatingRecord{PlayerID: "vet", Rating: 1200, PeakRating: 1200, GamesPlayed: 40}

	// Tournament K: (60 + 30) / 2 = 45.
	assert.Equal(t, 45.0, e.MatchK(newcomer, veteran, true))

	_, _, sn, sv := e.Apply(newcomer, veteran, ScoreWin, true)
	assert.Equal(t, 23, sn.Delta)
	assert.Equal(t, -23, sv.Delta)
	assert.Equal(t, sn.K, sv.K)

	for _, pair := range [][2]int{{1200, 1200}, {1400, 1150}, {1100, 1850}} {
		a := models.RatingRecord{Rating: pair[0], PeakRating: pair[0], GamesPlayed: 3}
		b := models.RatingRecord{Rating: pair[1], PeakRating: pair[1], GamesPlayed: 75}
		for _, score := range []Score{ScoreWin, ScoreLoss} {
			_, _, sa, sb := e.Apply(a, b, score, false)
			assert.Zero(t, sa.Delta+sb.Delta, "pair %v score %v", pair, score)
		}
	}
}

func TestApply_UpdatesCountsAndPeak(t *testing.T) {
	e := newEngine(t)
	a := e.NewRecord("a", "chess")
	b := e.NewRecord("b", "chess")

	na, nb, sa, sb := e.Apply(a, b, ScoreWin, false)
	// Equal ratings, K=40: +20 / -20.
	assert.Equal(t, 20, sa.Delta)
	assert.Equal(t, -20, sb.Delta)
	assert.Equal(t, 1220, na.Rating)
	assert.Equal(t, 1220, na.PeakRating)
	assert.Equal(t, 1180, nb.Rating)
	assert.Equal(t, 1200, nb.PeakRating)
	assert.Equal(t, 1, na.GamesPlayed)
	assert.Equal(t, 1, na.GamesWon)
	assert.Equal(t, 1, nb.GamesLost)

	assert.Equal(t, 1200, a.Rating, "inputs are not modified")
	assert.Equal(t, 0, a.GamesPlayed)
}

func TestApply_Draw(t *testing.T) {
	e := newEngine(t)
	a := models.RatingRecord{Rating: 1600, PeakRating: 1600, GamesPlayed: 40}
	b := models.RatingRecord{Rating: 1400, PeakRating: 1400, GamesPlayed: 40}

	na, nb, sa, sb := e.Apply(a, b, ScoreDraw, false)
	// E(a) = 0.7597, K=20: a loses round(20*-0.2597) = -5.
	assert.Equal(t, -5, sa.Delta)
	assert.Equal(t, 5, sb.Delta)
	assert.Equal(t, 1, na.GamesDrawn)
	assert.Equal(t, 1, nb.GamesDrawn)
	assert.Equal(t, 1600, na.PeakRating)
}

func TestApply_Clamped(t *testing.T) {
	e := newEngine(t)
	low := models.RatingRecord{Rating: 110, PeakRating: 1200}
	opp := models.RatingRecord{Rating: 110, PeakRating: 110}

	// Tournament K is 60, so the loss would be -30.
	nl, no, sl, so := e.Apply(low, opp, ScoreLoss, true)
	assert.Equal(t, 100, nl.Rating)
	assert.Equal(t, -10, sl.Delta)
	assert.Equal(t, 140, no.Rating)
	assert.Equal(t, 30, so.Delta)

	nh, _, _, _ := e.Apply(models.RatingRecord{Rating: 2990, PeakRating: 2990}, models.RatingRecord{Rating: 2990}, ScoreWin, true)
	assert.Equal(t, 3000, nh.Rating)
	assert.Equal(t, 3000, nh.PeakRating)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinRating = 4000
	_, err := NewEngine(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.KTiers = nil
	_, err = NewEngine(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.TournamentMultiplier = 0
	_, err = NewEngine(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
