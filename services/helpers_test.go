package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/rating"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/Dosada05/bracket-engine/seeding"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	fail   error
}

func (p *recordingPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count(eventType EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) failWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = err
}

type testEnv struct {
	store       *repositories.MemoryStore
	publisher   *recordingPublisher
	ratings     RatingService
	tournaments TournamentService
	bracketSvc  BracketService
	matches     MatchService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithSinks(t)
}

// newTestEnvWithSinks fans events out to the recording publisher and sinks.
func newTestEnvWithSinks(t *testing.T, sinks ...EventPublisher) *testEnv {
	t.Helper()
	logger := discardLogger()
	store := repositories.NewMemoryStore()
	engine, err := rating.NewEngine(rating.DefaultConfig())
	require.NoError(t, err)

	retryCfg := RetryConfig{MaxRetries: 50, Base: time.Millisecond}
	publisher := &recordingPublisher{}
	var delivered EventPublisher = publisher
	if len(sinks) > 0 {
		delivered = NewMultiPublisher(append([]EventPublisher{publisher}, sinks...)...)
	}
	ratings := NewRatingService(store, engine, retryCfg, logger)
	tournaments := NewTournamentService(store, store, ratings, repositories.NewLocalLocker(), delivered, true, logger)
	bracketSvc := NewBracketService(store, store, delivered, seeding.DefaultConfig(), brackets.SwissPolicy{}, logger)
	matches := NewMatchService(store, store, ratings, tournaments, delivered, brackets.SwissPolicy{}, retryCfg, logger)

	return &testEnv{
		store:       store,
		publisher:   publisher,
		ratings:     ratings,
		tournaments: tournaments,
		bracketSvc:  bracketSvc,
		matches:     matches,
	}
}

// startTournament creates a tournament, registers p1..pn with descending
// ratings so that pi gets seed i, and generates the bracket.
func (e *testEnv) startTournament(t *testing.T, format models.Format, n int) (*models.Tournament, *models.Bracket) {
	t.Helper()
	ctx := context.Background()
	tournament, err := e.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name:     fmt.Sprintf("%s cup", format),
		GameID:   "chess",
		Format:   format,
		Capacity: n,
	})
	require.NoError(t, err)

	for i := 1; i <= n; i++ {
		r := float64(2000 - 10*i)
		_, err := e.tournaments.RegisterPlayer(ctx, tournament.ID, RegisterPlayerInput{PlayerID: fmt.Sprintf("p%d", i), Rating: &r})
		require.NoError(t, err)
	}

	b, err := e.bracketSvc.GenerateBracket(ctx, tournament.ID, format, nil)
	require.NoError(t, err)
	return tournament, b
}

func (e *testEnv) bracket(t *testing.T, tournamentID int) *models.Bracket {
	t.Helper()
	view, err := e.bracketSvc.GetBracket(context.Background(), tournamentID)
	require.NoError(t, err)
	return view.Bracket
}

func favouriteOf(b *models.Bracket, m *models.Match) (string, string) {
	a, c := m.Slots[0].PlayerID, m.Slots[1].PlayerID
	pa, _ := b.Player(a)
	pc, _ := b.Player(c)
	if pa.Seed < pc.Seed {
		return a, c
	}
	return c, a
}

func playableMatches(b *models.Bracket) []*models.Match {
	var out []*models.Match
	for _, m := range b.Matches() {
		if m.Status == models.MatchStatusPending || m.Status == models.MatchStatusActive {
			out = append(out, m)
		}
	}
	return out
}

// playAll reports favourite wins until no playable match is left.
func (e *testEnv) playAll(t *testing.T, tournamentID int) {
	t.Helper()
	for {
		b := e.bracket(t, tournamentID)
		playable := playableMatches(b)
		if len(playable) == 0 {
			return
		}
		m := playable[0]
		winner, _ := favouriteOf(b, m)
		_, err := e.matches.ReportMatchResult(context.Background(), MatchResultInput{MatchID: m.ID, WinnerID: winner})
		require.NoError(t, err)
	}
}
