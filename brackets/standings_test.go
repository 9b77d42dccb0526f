package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

func TestPlacements_SingleEliminationSharesPlaces(t *testing.T) {
	b := generate(t, models.FormatSingleElimination, 8, false)

	_, err := Placements(b)
	assert.ErrorIs(t, err, ErrBracketNotFinished)

	playOut(t, b, favourite)
	placements, err := Placements(b)
	require.NoError(t, err)
	require.Len(t, placements, 8)

	places := make(map[string]int)
	for _, p := range placements {
		places[p.PlayerID] = p.Place
	}
	assert.Equal(t, map[string]int{
		"p1": 1, "p2": 2,
		"p3": 3, "p4": 3,
		"p5": 5, "p6": 5, "p7": 5, "p8": 5,
	}, places)
	assert.Equal(t, 3, placements[0].Wins)
}

func TestStandings_RoundRobinTiebreak(t *testing.T) {
	b := generate(t, models.FormatRoundRobin, 3, false)
	// Rock-paper-scissors: everyone finishes on one point.
	beats := map[[2]string]string{
		{"p1", "p2"}: "p1",
		{"p2", "p3"}: "p2",
		{"p1", "p3"}: "p3",
	}
	for m := nextPlayable(b); m != nil; m = nextPlayable(b) {
		a, c := m.Slots[0].PlayerID, m.Slots[1].PlayerID
		if c < a {
			a, c = c, a
		}
		_, err := Progress(b, Result{MatchID: m.ID, WinnerID: beats[[2]string{a, c}], At: testNow}, ProgressOptions{})
		require.NoError(t, err)
	}

	standings := Standings(b)
	require.Len(t, standings, 3)
	for _, s := range standings {
		assert.Equal(t, 1.0, s.Points)
		assert.Equal(t, 1.0, s.Tiebreak)
		assert.Equal(t, 1, s.Byes)
	}
	// Full tie falls back to seed.
	assert.Equal(t, "p1", standings[0].PlayerID)
	assert.Equal(t, "p3", standings[2].PlayerID)
}

func TestStandings_DrawsAndSonnebornBerger(t *testing.T) {
	b := generate(t, models.FormatRoundRobin, 4, false)
	for m := nextPlayable(b); m != nil; m = nextPlayable(b) {
		res := Result{MatchID: m.ID, At: testNow}
		switch {
		case m.HasParticipant("p1") && m.HasParticipant("p2"):
			res.Draw = true
		default:
			res.WinnerID = favourite(m)
		}
		_, err := Progress(b, res, ProgressOptions{})
		require.NoError(t, err)
	}

	standings := Standings(b)
	require.Len(t, standings, 4)
	// p1 and p2 both have 2.5 points; p1 beat p3 and p4 like p2 did, so
	// Sonneborn-Berger ties too and seed decides.
	assert.Equal(t, "p1", standings[0].PlayerID)
	assert.Equal(t, 2.5, standings[0].Points)
	assert.Equal(t, "p2", standings[1].PlayerID)
	assert.Equal(t, 2.5, standings[1].Points)
	assert.Equal(t, 1, standings[0].Draws)
	assert.Equal(t, 1.0, standings[2].Points)
	assert.Equal(t, 2.25, standings[0].Tiebreak)
}
