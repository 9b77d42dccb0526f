package brackets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedFormat  = errors.New("unsupported bracket format")
	ErrNotEnoughPlayers   = errors.New("not enough players to generate a bracket")
	ErrInvalidSeeds       = errors.New("player seeds must be dense 1..N with unique player ids")
	ErrMatchNotFound      = errors.New("match not found in bracket")
	ErrUnresolvedSlots    = errors.New("match still has unresolved participants")
	ErrInvalidResult      = errors.New("invalid match result")
	ErrRoundNotReady      = errors.New("previous swiss round is not finished")
	ErrPairingUnavailable = errors.New("no pairing available for swiss round")
)

// MinPlayers is the smallest legal roster for every format.
const MinPlayers = 2

type GenerateBracketParams struct {
	TournamentID    int
	Players         []models.PlayerEntry
	GrandFinalReset bool
	Swiss           SwissPolicy
	// NewID and Now are replaceable in tests.
	NewID func() string
	Now   func() time.Time
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) (*models.Bracket, error)

	GetName() string
}

func NewGenerator(format models.Format) (BracketGenerator, error) {
	switch format {
	case models.FormatSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.FormatDoubleElimination:
		return NewDoubleEliminationGenerator(), nil
	case models.FormatRoundRobin:
		return NewRoundRobinGenerator(), nil
	case models.FormatSwiss:
		return NewSwissGenerator(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Generate builds the initial bracket for format and resolves every bye that
// is already decided by the draw.
func Generate(ctx context.Context, format models.Format, params GenerateBracketParams) (*models.Bracket, error) {
	gen, err := NewGenerator(format)
	if err != nil {
		return nil, err
	}
	if params.NewID == nil {
		params.NewID = uuid.NewString
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	players, err := sortedBySeed(params.Players)
	if err != nil {
		return nil, err
	}
	params.Players = players

	b, err := gen.GenerateBracket(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s generator: %w", gen.GetName(), err)
	}
	b.TournamentID = params.TournamentID
	b.Players = players
	b.GeneratedAt = params.Now().UTC()
	b.TotalRounds = ExpectedRounds(format, len(players), b.GrandFinalReset)
	b.TotalMatches = ExpectedMatches(format, len(players))

	resolveInitialByes(b, b.GeneratedAt)
	return b, nil
}

// ExpectedRounds is the closed-form round count for a format and roster size.
func ExpectedRounds(format models.Format, n int, reset bool) int {
	k := log2Ceil(n)
	switch format {
	case models.FormatSingleElimination, models.FormatSwiss:
		return k
	case models.FormatDoubleElimination:
		rounds := k + 2*(k-1) + 1
		if reset {
			rounds++
		}
		return rounds
	case models.FormatRoundRobin:
		if n%2 == 0 {
			return n - 1
		}
		return n
	}
	return 0
}

// ExpectedMatches counts playable matches. Bye matches and the grand final
// reset are not included.
func ExpectedMatches(format models.Format, n int) int {
	switch format {
	case models.FormatSingleElimination:
		return n - 1
	case models.FormatDoubleElimination:
		return 2*n - 2
	case models.FormatRoundRobin:
		return n * (n - 1) / 2
	case models.FormatSwiss:
		return log2Ceil(n) * (n / 2)
	}
	return 0
}

func sortedBySeed(players []models.PlayerEntry) ([]models.PlayerEntry, error) {
	n := len(players)
	if n < MinPlayers {
		return nil, fmt.Errorf("%w: got %d, need at least %d", ErrNotEnoughPlayers, n, MinPlayers)
	}
	out := make([]models.PlayerEntry, n)
	copy(out, players)
	sort.Slice(out, func(i, j int) bool { return out[i].Seed < out[j].Seed })

	ids := make(map[string]struct{}, n)
	for i, p := range out {
		if p.Seed != i+1 {
			return nil, fmt.Errorf("%w: expected seed %d, got %d", ErrInvalidSeeds, i+1, p.Seed)
		}
		if p.PlayerID == "" {
			return nil, fmt.Errorf("%w: seed %d has no player id", ErrInvalidSeeds, p.Seed)
		}
		if _, dup := ids[p.PlayerID]; dup {
			return nil, fmt.Errorf("%w: duplicate player %s", ErrInvalidSeeds, p.PlayerID)
		}
		ids[p.PlayerID] = struct{}{}
	}
	return out, nil
}

func newMatch(params GenerateBracketParams, side models.Side, round, order int) *models.Match {
	return &models.Match{
		ID:           params.NewID(),
		TournamentID: params.TournamentID,
		Side:         side,
		Round:        round,
		Order:        order,
		Slots:        [2]models.Slot{models.UnresolvedSlot(), models.UnresolvedSlot()},
		Status:       models.MatchStatusWaiting,
		Version:      1,
	}
}

func seedSlot(players []models.PlayerEntry, seed int) models.Slot {
	if seed > len(players) {
		return models.ByeSlot()
	}
	return models.SeedSlot(seed, players[seed-1].PlayerID)
}

// log2Ceil returns ceil(log2(n)) for n >= 1.
func log2Ceil(n int) int {
	k := 0
	for size := 1; size < n; size <<= 1 {
		k++
	}
	return k
}
