package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

func TestSeedOrder(t *testing.T) {
	assert.Equal(t, []int{1, 2}, SeedOrder(2))
	assert.Equal(t, []int{1, 4, 2, 3}, SeedOrder(4))
	assert.Equal(t, []int{1, 8, 4, 5, 2, 7, 3, 6}, SeedOrder(8))
}

func TestSingleElimination_EightPlayers(t *testing.T) {
	b := generate(t, models.FormatSingleElimination, 8, false)

	assert.Equal(t, 3, b.TotalRounds)
	assert.Equal(t, 7, b.TotalMatches)
	require.Len(t, b.Rounds, 3)
	assert.Len(t, b.Matches(), 7)

	first := b.Rounds[0].Matches[0]
	assert.Equal(t, 1, first.Order)
	assert.Equal(t, models.SeedSlot(1, "p1"), first.Slots[0])
	assert.Equal(t, models.SeedSlot(8, "p8"), first.Slots[1])
	for _, m := range b.Rounds[0].Matches {
		assert.Equal(t, models.MatchStatusPending, m.Status)
		assert.False(t, m.IsBye)
	}
	for _, r := range b.Rounds[1:] {
		for _, m := range r.Matches {
			assert.Equal(t, models.MatchStatusWaiting, m.Status)
		}
	}

	res := Validate(b)
	assert.True(t, res.Valid, res.Errors)
}

func TestSingleElimination_CountsAndSingleFinal(t *testing.T) {
	for n := 2; n <= 40; n++ {
		b := generate(t, models.FormatSingleElimination, n, false)

		playable, finals := 0, 0
		for _, m := range b.Matches() {
			if !m.IsBye {
				playable++
			}
			if m.WinnerTo == nil {
				finals++
			}
		}
		assert.Equal(t, n-1, playable, "n=%d", n)
		assert.Equal(t, 1, finals, "n=%d", n)

		res := Validate(b)
		require.True(t, res.Valid, "n=%d: %v", n, res.Errors)

		played := playOut(t, b, favourite)
		assert.Equal(t, n-1, played, "n=%d", n)
		assert.True(t, b.AllTerminal())
	}
}

func TestSingleElimination_ByesGoToTopSeeds(t *testing.T) {
	b := generate(t, models.FormatSingleElimination, 5, false)

	var byeWinners []string
	for _, m := range b.Rounds[0].Matches {
		if m.IsBye {
			assert.Equal(t, models.MatchStatusCompleted, m.Status)
			byeWinners = append(byeWinners, m.WinnerID)
		}
	}
	assert.ElementsMatch(t, []string{"p1", "p2", "p3"}, byeWinners)

	// p2 and p3 both had byes and now meet in round 2.
	second := b.Rounds[1].Matches[1]
	assert.Equal(t, models.MatchStatusPending, second.Status)
	assert.ElementsMatch(t, []string{"p2", "p3"}, second.Participants())

	// p1 waits for the winner of 4 v 5.
	top := b.Rounds[1].Matches[0]
	assert.Equal(t, models.MatchStatusWaiting, top.Status)
	assert.Equal(t, models.ResolvedSlot("p1"), top.Slots[0])
	assert.True(t, top.Slots[1].IsUnresolved())
}

func TestGenerate_RejectsBadInput(t *testing.T) {
	ctx := context.Background()

	_, err := Generate(ctx, models.Format("ladder"), GenerateBracketParams{Players: testPlayers(4)})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Generate(ctx, models.FormatRoundRobin, GenerateBracketParams{Players: testPlayers(1)})
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	gapped := testPlayers(4)
	gapped[3].Seed = 7
	_, err = Generate(ctx, models.FormatSwiss, GenerateBracketParams{Players: gapped})
	assert.ErrorIs(t, err, ErrInvalidSeeds)

	dup := testPlayers(3)
	dup[2].PlayerID = "p1"
	_, err = Generate(ctx, models.FormatSingleElimination, GenerateBracketParams{Players: dup})
	assert.ErrorIs(t, err, ErrInvalidSeeds)
}

func TestGenerate_AssignsUUIDsByDefault(t *testing.T) {
	b, err := Generate(context.Background(), models.FormatSingleElimination, GenerateBracketParams{
		TournamentID: 9,
		Players:      testPlayers(4),
	})
	require.NoError(t, err)
	for _, m := range b.Matches() {
		assert.Len(t, m.ID, 36)
		assert.Equal(t, 9, m.TournamentID)
	}
}
