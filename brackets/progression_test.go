package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

func TestProgress_AdvancesWinner(t *testing.T) {
	b := generate(t, models.FormatSingleElimination, 4, false)
	semi := b.Rounds[0].Matches[0]
	final := b.Rounds[1].Matches[0]

	out, err := Progress(b, Result{MatchID: semi.ID, WinnerID: "p4", LoserID: "p1", At: testNow}, ProgressOptions{})
	require.NoError(t, err)

	assert.True(t, out.Applied)
	assert.Equal(t, semi, out.Source)
	assert.Equal(t, []*models.Match{semi, final}, out.Changed)
	assert.Empty(t, out.Cascaded)
	require.Len(t, out.Steps, 1)
	assert.Equal(t, Step{MatchID: final.ID, Slot: 1, Filled: models.ResolvedSlot("p4"), Status: models.MatchStatusWaiting}, out.Steps[0])

	assert.Equal(t, models.MatchStatusCompleted, semi.Status)
	assert.Equal(t, "p4", semi.WinnerID)
	assert.Equal(t, "p1", semi.LoserID)
	require.NotNil(t, semi.CompletedAt)
	assert.Equal(t, models.ResolvedSlot("p4"), final.Slots[0])
	assert.Equal(t, models.MatchStatusWaiting, final.Status)

	_, err = Progress(b, Result{MatchID: b.Rounds[0].Matches[1].ID, WinnerID: "p2", At: testNow}, ProgressOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusPending, final.Status)
}

func TestProgress_IsIdempotent(t *testing.T) {
	b := generate(t, models.FormatSingleElimination, 4, false)
	semi := b.Rounds[0].Matches[0]

	_, err := Progress(b, Result{MatchID: semi.ID, WinnerID: "p1", At: testNow}, ProgressOptions{})
	require.NoError(t, err)
	before := b.Clone()

	out, err := Progress(b, Result{MatchID: semi.ID, WinnerID: "p1", At: testNow}, ProgressOptions{})
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Empty(t, out.Changed)
	assert.Equal(t, before, b)

	// A different winner for an already completed match is also a no-op.
	out, err = Progress(b, Result{MatchID: semi.ID, WinnerID: "p4", At: testNow}, ProgressOptions{})
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, "p1", semi.WinnerID)
}

func TestProgress_RejectsUnresolvedMatch(t *testing.T) {
	b := generate(t, models.FormatSingleElimination, 4, false)
	final := b.Rounds[1].Matches[0]

	_, err := Progress(b, Result{MatchID: final.ID, WinnerID: "p1", At: testNow}, ProgressOptions{})
	assert.ErrorIs(t, err, ErrUnresolvedSlots)
	assert.Equal(t, models.MatchStatusWaiting, final.Status)
}

func TestProgress_RejectsInvalidResults(t *testing.T) {
	b := generate(t, models.FormatSingleElimination, 4, false)
	semi := b.Rounds[0].Matches[0]

	_, err := Progress(b, Result{MatchID: "missing", WinnerID: "p1"}, ProgressOptions{})
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = Progress(b, Result{MatchID: semi.ID, WinnerID: "p2"}, ProgressOptions{})
	assert.ErrorIs(t, err, ErrInvalidResult)

	_, err = Progress(b, Result{MatchID: semi.ID, WinnerID: "p1", LoserID: "p3"}, ProgressOptions{})
	assert.ErrorIs(t, err, ErrInvalidResult)

	_, err = Progress(b, Result{MatchID: semi.ID, Draw: true}, ProgressOptions{})
	assert.ErrorIs(t, err, ErrInvalidResult)

	assert.Equal(t, models.MatchStatusPending, semi.Status)
}

func TestProgress_AcceptsActiveMatch(t *testing.T) {
	b := generate(t, models.FormatRoundRobin, 4, false)
	m := b.Rounds[0].Matches[0]
	m.Status = models.MatchStatusActive

	out, err := Progress(b, Result{MatchID: m.ID, WinnerID: m.Slots[1].PlayerID, At: testNow}, ProgressOptions{})
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, []*models.Match{m}, out.Changed)
}

func TestProgress_ByeCascade(t *testing.T) {
	// Five players in double elimination: WB round 1 is 1-8, 4-5, 2-7, 3-6
	// with seeds 6..8 absent, so losers round 1 holds two bye matches.
	b := generate(t, models.FormatDoubleElimination, 5, false)
	wb := b.Rounds[0].Matches
	lb1 := b.Rounds[3].Matches
	lb2 := b.Rounds[4].Matches

	assert.True(t, lb1[0].IsBye)
	assert.Equal(t, models.MatchStatusWaiting, lb1[0].Status)
	assert.True(t, lb1[1].IsBye)
	assert.Equal(t, models.MatchStatusCompleted, lb1[1].Status)
	assert.Empty(t, lb1[1].WinnerID)
	assert.True(t, lb2[1].Slots[0].IsBye())

	out, err := Progress(b, Result{MatchID: wb[1].ID, WinnerID: "p4", At: testNow}, ProgressOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{lb1[0].ID}, out.Cascaded)
	assert.Equal(t, models.MatchStatusCompleted, lb1[0].Status)
	assert.Equal(t, "p5", lb1[0].WinnerID)
	assert.Equal(t, models.ResolvedSlot("p5"), lb2[0].Slots[0])
	assert.Equal(t, models.MatchStatusWaiting, lb2[0].Status)
	assert.Contains(t, out.Changed, lb1[0])
	assert.Contains(t, out.Changed, lb2[0])
}

func TestResolveInitialByes_SingleElimination(t *testing.T) {
	b := generate(t, models.FormatSingleElimination, 3, false)
	// 1 v BYE completes and p1 waits in the final for 2 v 3.
	first := b.Rounds[0].Matches[0]
	assert.Equal(t, models.MatchStatusCompleted, first.Status)
	assert.Equal(t, "p1", first.WinnerID)
	assert.True(t, first.IsBye)

	final := b.Rounds[1].Matches[0]
	assert.Equal(t, models.ResolvedSlot("p1"), final.Slots[0])

	out, err := Progress(b, Result{MatchID: b.Rounds[0].Matches[1].ID, WinnerID: "p3", At: testNow}, ProgressOptions{})
	require.NoError(t, err)
	assert.Empty(t, out.Cascaded)
	assert.Equal(t, models.MatchStatusPending, final.Status)
	assert.Equal(t, []string{"p1", "p3"}, final.Participants())
}
