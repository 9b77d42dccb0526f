package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/Dosada05/bracket-engine/seeding"
	"golang.org/x/sync/errgroup"
)

// BracketView is a stored bracket with the current standings of its
// round robin or Swiss table.
type BracketView struct {
	Bracket   *models.Bracket         `json:"bracket"`
	Standings []models.Standing       `json:"standings,omitempty"`
	Status    models.TournamentStatus `json:"status"`
}

type BracketService interface {
	// PreviewSeeding seeds the registered roster without storing anything. A
	// nil cfg uses the service's configured weights.
	PreviewSeeding(ctx context.Context, tournamentID int, cfg *seeding.Config) ([]models.PlayerEntry, error)
	// GenerateBracket builds, validates and stores the bracket and moves the
	// tournament from OPEN to ACTIVE. A nil seeded list seeds the roster.
	GenerateBracket(ctx context.Context, tournamentID int, format models.Format, seeded []models.PlayerEntry) (*models.Bracket, error)
	GetBracket(ctx context.Context, tournamentID int) (*BracketView, error)
	AuditBracket(ctx context.Context, tournamentID int) (*brackets.ValidationResult, error)
}

type bracketService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	publisher      EventPublisher
	seeding        seeding.Config
	swiss          brackets.SwissPolicy
	logger         *slog.Logger
}

func NewBracketService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	publisher EventPublisher,
	seedingCfg seeding.Config,
	swiss brackets.SwissPolicy,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		publisher:      publisher,
		seeding:        seedingCfg,
		swiss:          swiss,
		logger:         logger,
	}
}

func (s *bracketService) loadTournamentAndRoster(ctx context.Context, tournamentID int) (*models.Tournament, []models.PlayerEntry, error) {
	var (
		t      *models.Tournament
		roster []models.PlayerEntry
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		t, err = s.tournamentRepo.GetByID(gCtx, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		roster, err = s.tournamentRepo.ListPlayers(gCtx, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, mapRepositoryError(err)
	}
	return t, roster, nil
}

func (s *bracketService) PreviewSeeding(ctx context.Context, tournamentID int, cfg *seeding.Config) ([]models.PlayerEntry, error) {
	_, roster, err := s.loadTournamentAndRoster(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	weights := s.seeding
	if cfg != nil {
		weights = *cfg
	}
	seeded, err := seeding.Calculate(roster, weights)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return seeded, nil
}

func (s *bracketService) GenerateBracket(ctx context.Context, tournamentID int, format models.Format, seeded []models.PlayerEntry) (*models.Bracket, error) {
	t, roster, err := s.loadTournamentAndRoster(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.StatusOpen {
		return nil, ErrTournamentNotOpen
	}
	if format == "" {
		format = t.Format
	}
	if !format.Valid() || format != t.Format {
		return nil, fmt.Errorf("%w: format %q does not match tournament format %q", ErrInvalidConfiguration, format, t.Format)
	}

	if seeded == nil {
		seeded, err = seeding.Calculate(roster, s.seeding)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
		}
	} else if err := checkRegistered(seeded, roster); err != nil {
		return nil, err
	}

	b, err := brackets.Generate(ctx, format, brackets.GenerateBracketParams{
		TournamentID:    tournamentID,
		Players:         seeded,
		GrandFinalReset: t.GrandFinalReset,
		Swiss:           s.swiss,
	})
	if err != nil {
		return nil, mapBracketError(err)
	}

	// Невалидная сетка никогда не сохраняется.
	if res := brackets.Validate(b); !res.Valid {
		s.logger.ErrorContext(ctx, "Generated bracket failed validation",
			slog.Int("tournament_id", tournamentID), slog.Any("errors", res.Errors))
		return nil, fmt.Errorf("%w: %s", ErrStructuralValidation, strings.Join(res.Errors, "; "))
	}

	if err := s.matchRepo.SaveBracket(ctx, b); err != nil {
		if errors.Is(err, repositories.ErrConcurrentUpdate) || errors.Is(err, repositories.ErrBracketExists) {
			return nil, ErrTournamentNotOpen
		}
		return nil, fmt.Errorf("failed to save bracket of tournament %d: %w", tournamentID, mapRepositoryError(err))
	}
	s.logger.InfoContext(ctx, "Bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.String("format", string(format)),
		slog.Int("players", len(b.Players)),
		slog.Int("rounds", b.TotalRounds),
		slog.Int("matches", b.TotalMatches),
	)

	if err := s.publisher.Publish(ctx, newEvent(EventBracketGenerated, tournamentID, b)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish bracket", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}
	return b, nil
}

// checkRegistered rejects a caller-supplied seeding that names players who
// are not on the roster.
func checkRegistered(seeded, roster []models.PlayerEntry) error {
	registered := make(map[string]bool, len(roster))
	for _, p := range roster {
		registered[p.PlayerID] = true
	}
	for _, p := range seeded {
		if !registered[p.PlayerID] {
			return fmt.Errorf("%w: player %q is not registered", ErrInvalidConfiguration, p.PlayerID)
		}
	}
	return nil
}

func (s *bracketService) GetBracket(ctx context.Context, tournamentID int) (*BracketView, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	b, err := s.matchRepo.GetBracket(ctx, tournamentID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	view := &BracketView{Bracket: b, Status: t.Status}
	if !b.Format.IsElimination() {
		view.Standings = brackets.Standings(b)
	}
	return view, nil
}

func (s *bracketService) AuditBracket(ctx context.Context, tournamentID int) (*brackets.ValidationResult, error) {
	b, err := s.matchRepo.GetBracket(ctx, tournamentID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	res := brackets.Validate(b)
	if !res.Valid {
		s.logger.WarnContext(ctx, "Stored bracket failed audit",
			slog.Int("tournament_id", tournamentID), slog.Any("errors", res.Errors))
	}
	return &res, nil
}
