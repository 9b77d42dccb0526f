package brackets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testPlayers(n int) []models.PlayerEntry {
	players := make([]models.PlayerEntry, n)
	for i := range players {
		players[i] = models.PlayerEntry{
			PlayerID:     fmt.Sprintf("p%d", i+1),
			Seed:         i + 1,
			Skill:        models.SkillSnapshot{Rating: float64(2000 - 10*i)},
			RegisteredAt: testNow,
		}
	}
	return players
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("m%03d", n)
	}
}

func generate(t *testing.T, format models.Format, n int, reset bool) *models.Bracket {
	t.Helper()
	b, err := Generate(context.Background(), format, GenerateBracketParams{
		TournamentID:    1,
		Players:         testPlayers(n),
		GrandFinalReset: reset,
		NewID:           sequentialIDs(),
		Now:             func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return b
}

func seedOf(playerID string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(playerID, "p"))
	return n
}

// favourite picks the better seeded participant.
func favourite(m *models.Match) string {
	a, b := m.Slots[0].PlayerID, m.Slots[1].PlayerID
	if seedOf(a) < seedOf(b) {
		return a
	}
	return b
}

func nextPlayable(b *models.Bracket) *models.Match {
	for _, m := range b.Matches() {
		if m.Status == models.MatchStatusPending || m.Status == models.MatchStatusActive {
			return m
		}
	}
	return nil
}

// playOut reports a result for every playable match until none is left and
// returns the number of reported matches.
func playOut(t *testing.T, b *models.Bracket, pick func(*models.Match) string) int {
	t.Helper()
	played := 0
	for m := nextPlayable(b); m != nil; m = nextPlayable(b) {
		out, err := Progress(b, Result{MatchID: m.ID, WinnerID: pick(m), At: testNow}, ProgressOptions{})
		require.NoError(t, err)
		require.True(t, out.Applied)
		played++
		require.LessOrEqual(t, played, 10000, "bracket does not terminate")
	}
	return played
}
