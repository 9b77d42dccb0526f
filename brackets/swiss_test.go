package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

func TestSwiss_RoundOneTopVersusBottom(t *testing.T) {
	b := generate(t, models.FormatSwiss, 8, false)

	assert.Equal(t, 3, b.TotalRounds)
	assert.Equal(t, 12, b.TotalMatches)
	require.Len(t, b.Rounds, 3)

	var pairs [][]string
	for _, m := range b.Rounds[0].Matches {
		pairs = append(pairs, []string{m.Slots[0].PlayerID, m.Slots[1].PlayerID})
	}
	assert.Equal(t, [][]string{{"p1", "p5"}, {"p6", "p2"}, {"p3", "p7"}, {"p8", "p4"}}, pairs)

	for _, m := range b.Rounds[1].Matches {
		assert.True(t, m.Slots[0].IsUnresolved())
		assert.Equal(t, models.MatchStatusWaiting, m.Status)
	}
}

func TestSwiss_AdjacentRoundOne(t *testing.T) {
	b, err := Generate(context.Background(), models.FormatSwiss, GenerateBracketParams{
		Players: testPlayers(4),
		Swiss:   SwissPolicy{RoundOne: SwissAdjacent},
		NewID:   sequentialIDs(),
	})
	require.NoError(t, err)
	first := b.Rounds[0].Matches
	assert.ElementsMatch(t, []string{"p1", "p2"}, first[0].Participants())
	assert.ElementsMatch(t, []string{"p3", "p4"}, first[1].Participants())
}

func TestSwiss_NextRoundPairsScoreGroups(t *testing.T) {
	b := generate(t, models.FormatSwiss, 8, false)
	for _, m := range b.Rounds[0].Matches {
		out, err := Progress(b, Result{MatchID: m.ID, WinnerID: favourite(m), At: testNow}, ProgressOptions{})
		require.NoError(t, err)
		if m == b.Rounds[0].Matches[3] {
			assert.Equal(t, 2, out.Paired)
		} else {
			assert.Zero(t, out.Paired)
		}
	}

	// Winners p1..p4 meet each other, losers p5..p8 likewise.
	second := b.Rounds[1].Matches
	assert.ElementsMatch(t, []string{"p1", "p2"}, second[0].Participants())
	assert.ElementsMatch(t, []string{"p3", "p4"}, second[1].Participants())
	assert.ElementsMatch(t, []string{"p5", "p6"}, second[2].Participants())
	assert.ElementsMatch(t, []string{"p7", "p8"}, second[3].Participants())
	for _, m := range second {
		assert.Equal(t, models.MatchStatusPending, m.Status)
	}
}

func TestSwiss_OddGroupFloatsLowestSeed(t *testing.T) {
	b := generate(t, models.FormatSwiss, 6, false)
	// Round 1: p1-p4, p5-p2, p3-p6. Let p6 upset p3: winners p1, p2, p6.
	for _, m := range b.Rounds[0].Matches {
		w := favourite(m)
		if m.HasParticipant("p6") {
			w = "p6"
		}
		_, err := Progress(b, Result{MatchID: m.ID, WinnerID: w, At: testNow}, ProgressOptions{})
		require.NoError(t, err)
	}

	second := b.Rounds[1].Matches
	assert.ElementsMatch(t, []string{"p1", "p2"}, second[0].Participants())
	// p6 floats out of the 1-point group. p3 is the nearest opponent but
	// already played p6, so the float goes one further to p4.
	assert.ElementsMatch(t, []string{"p6", "p4"}, second[1].Participants())
	assert.ElementsMatch(t, []string{"p3", "p5"}, second[2].Participants())
}

func TestSwiss_AvoidsRematchesAndRepeatedByes(t *testing.T) {
	for n := 2; n <= 25; n++ {
		b := generate(t, models.FormatSwiss, n, false)
		playOut(t, b, favourite)
		require.True(t, b.AllTerminal(), "n=%d", n)

		met := make(map[[2]string]bool)
		byes := make(map[string]int)
		for _, m := range b.Matches() {
			if m.IsBye {
				byes[m.WinnerID]++
				continue
			}
			a, c := m.Slots[0].PlayerID, m.Slots[1].PlayerID
			if c < a {
				a, c = c, a
			}
			assert.False(t, met[[2]string{a, c}], "n=%d rematch %s-%s", n, a, c)
			met[[2]string{a, c}] = true
		}
		for id, c := range byes {
			assert.Equal(t, 1, c, "n=%d player %s", n, id)
		}

		res := Validate(b)
		assert.True(t, res.Valid, "n=%d: %v", n, res.Errors)

		placements, err := Placements(b)
		require.NoError(t, err)
		assert.Len(t, placements, n)
		assert.Equal(t, "p1", placements[0].PlayerID, "n=%d", n)
	}
}

func TestSwiss_ByeGoesToLowestPlayerWithoutBye(t *testing.T) {
	b := generate(t, models.FormatSwiss, 5, false)
	bye := b.Rounds[0].Matches[2]
	require.True(t, bye.IsBye)
	assert.Equal(t, "p5", bye.WinnerID)
	assert.Equal(t, models.MatchStatusCompleted, bye.Status)

	playOut(t, b, favourite)
	// After round 1 p5 has a point from the bye, so the bye moves to p4.
	second := b.Rounds[1].Matches[2]
	assert.Equal(t, "p4", second.WinnerID)
}

func TestSwiss_DrawsAllowed(t *testing.T) {
	b := generate(t, models.FormatSwiss, 4, false)
	m := b.Rounds[0].Matches[0]
	out, err := Progress(b, Result{MatchID: m.ID, Draw: true, At: testNow}, ProgressOptions{})
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.True(t, m.IsDraw)
	assert.Empty(t, m.WinnerID)
}
