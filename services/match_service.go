package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
	"golang.org/x/sync/errgroup"
)

type MatchResultInput struct {
	MatchID  string `json:"-"`
	WinnerID string `json:"winner_id"`
	// LoserID is optional and only checked against the actual opponent.
	LoserID   string    `json:"loser_id,omitempty"`
	Draw      bool      `json:"draw"`
	Timestamp time.Time `json:"timestamp"`
}

type MatchResultOutput struct {
	Applied             bool            `json:"applied"`
	Match               *models.Match   `json:"match"`
	Cascaded            []string        `json:"cascaded"`
	Steps               []brackets.Step `json:"steps,omitempty"`
	PairedRound         int             `json:"paired_round,omitempty"`
	TournamentCompleted bool            `json:"tournament_completed"`
}

type MatchService interface {
	// ReportMatchResult applies a result and advances every affected match in
	// one atomic write. Reporting an already processed match is a no-op with
	// Applied=false.
	ReportMatchResult(ctx context.Context, input MatchResultInput) (*MatchResultOutput, error)
	StartMatch(ctx context.Context, matchID string) (*models.Match, error)
}

type matchService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	ratings        RatingService
	completion     CompletionChecker
	publisher      EventPublisher
	swiss          brackets.SwissPolicy
	retry          RetryConfig
	logger         *slog.Logger
	now            func() time.Time
}

func NewMatchService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	ratings RatingService,
	completion CompletionChecker,
	publisher EventPublisher,
	swiss brackets.SwissPolicy,
	retryCfg RetryConfig,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		ratings:        ratings,
		completion:     completion,
		publisher:      publisher,
		swiss:          swiss,
		retry:          retryCfg,
		logger:         logger,
		now:            time.Now,
	}
}

// snapshot is the state a progression step reads once before computing.
type snapshot struct {
	tournament *models.Tournament
	bracket    *models.Bracket
}

func (s *matchService) load(ctx context.Context, tournamentID int) (*snapshot, error) {
	snap := &snapshot{}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.tournament, err = s.tournamentRepo.GetByID(gCtx, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.bracket, err = s.matchRepo.GetBracket(gCtx, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *matchService) ReportMatchResult(ctx context.Context, input MatchResultInput) (*MatchResultOutput, error) {
	input.MatchID = strings.TrimSpace(input.MatchID)
	if input.MatchID == "" {
		return nil, ErrMatchNotFound
	}
	if !input.Draw && strings.TrimSpace(input.WinnerID) == "" {
		return nil, fmt.Errorf("%w: winner_id is required unless the match is a draw", ErrInvalidResult)
	}
	at := input.Timestamp
	if at.IsZero() {
		at = s.now()
	}

	tournamentID, err := s.matchRepo.TournamentIDForMatch(ctx, input.MatchID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	var (
		out     *MatchResultOutput
		outcome *brackets.Outcome
		gameID  string
	)
	err = withRetry(ctx, s.retry, func(ctx context.Context) error {
		snap, err := s.load(ctx, tournamentID)
		if err != nil {
			return err
		}
		gameID = snap.tournament.GameID

		current := snap.bracket.MatchByID(input.MatchID)
		if current == nil {
			return ErrMatchNotFound
		}
		if !current.IsTerminal() && snap.tournament.Status != models.StatusActive {
			return fmt.Errorf("%w: tournament %d is %s", ErrTournamentNotActive, tournamentID, snap.tournament.Status)
		}

		outcome, err = brackets.Progress(snap.bracket, brackets.Result{
			MatchID:  input.MatchID,
			WinnerID: input.WinnerID,
			LoserID:  input.LoserID,
			Draw:     input.Draw,
			At:       at.UTC(),
		}, brackets.ProgressOptions{Swiss: s.swiss})
		if err != nil {
			return mapBracketError(err)
		}
		if !outcome.Applied {
			s.logger.DebugContext(ctx, "Duplicate result absorbed",
				slog.String("match_id", input.MatchID), slog.Any("reason", ErrAlreadyProcessed))
			out = &MatchResultOutput{Applied: false, Match: outcome.Source, Cascaded: []string{}}
			return nil
		}

		if err := s.matchRepo.UpdateMatches(ctx, outcome.Changed); err != nil {
			return err
		}
		out = &MatchResultOutput{
			Applied:     true,
			Match:       outcome.Source,
			Cascaded:    outcome.Cascaded,
			Steps:       outcome.Steps,
			PairedRound: outcome.Paired,
		}
		if out.Cascaded == nil {
			out.Cascaded = []string{}
		}
		return nil
	})
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	if out.Applied {
		s.logger.InfoContext(ctx, "Match result applied",
			slog.Int("tournament_id", tournamentID),
			slog.String("match_id", input.MatchID),
			slog.String("winner_id", out.Match.WinnerID),
			slog.Int("changed", len(outcome.Changed)),
			slog.Int("cascaded", len(out.Cascaded)),
		)
		event := newEvent(EventMatchUpdated, tournamentID, MatchUpdatedPayload{Matches: outcome.Changed, Cascaded: out.Cascaded})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish match update", slog.String("match_id", input.MatchID), slog.Any("error", err))
		}
	} else {
		s.logger.InfoContext(ctx, "Match result already processed",
			slog.Int("tournament_id", tournamentID), slog.String("match_id", input.MatchID))
	}

	// Rating and completion run after progression is durable. Both are
	// idempotent, so a duplicate report also repairs a step that failed before.
	s.applyRating(ctx, gameID, out.Match)

	completed, err := s.completion.CheckCompletion(ctx, tournamentID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Completion check failed",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}
	out.TournamentCompleted = completed
	return out, nil
}

func (s *matchService) applyRating(ctx context.Context, gameID string, m *models.Match) {
	if m == nil || m.Status != models.MatchStatusCompleted || m.IsBye {
		return
	}
	input := RatingMatchInput{GameID: gameID, MatchID: m.ID, Draw: m.IsDraw}
	if m.IsDraw {
		input.WinnerID, input.LoserID = m.Slots[0].PlayerID, m.Slots[1].PlayerID
	} else {
		input.WinnerID, input.LoserID = m.WinnerID, m.LoserID
	}
	if _, err := s.ratings.ApplyMatch(ctx, input); err != nil {
		s.logger.ErrorContext(ctx, "Failed to apply rating",
			slog.String("match_id", m.ID), slog.Any("error", err))
	}
}

func (s *matchService) StartMatch(ctx context.Context, matchID string) (*models.Match, error) {
	tournamentID, err := s.matchRepo.TournamentIDForMatch(ctx, matchID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	var (
		started *models.Match
		changed bool
	)
	err = withRetry(ctx, s.retry, func(ctx context.Context) error {
		snap, err := s.load(ctx, tournamentID)
		if err != nil {
			return err
		}
		if snap.tournament.Status != models.StatusActive {
			return fmt.Errorf("%w: tournament %d is %s", ErrTournamentNotActive, tournamentID, snap.tournament.Status)
		}
		m := snap.bracket.MatchByID(matchID)
		if m == nil {
			return ErrMatchNotFound
		}
		switch m.Status {
		case models.MatchStatusActive:
			started, changed = m, false
			return nil
		case models.MatchStatusPending:
		default:
			return fmt.Errorf("%w: match %s is %s", ErrMatchNotStartable, matchID, m.Status)
		}

		at := s.now().UTC()
		m.Status = models.MatchStatusActive
		m.StartedAt = &at
		if err := s.matchRepo.UpdateMatches(ctx, []*models.Match{m}); err != nil {
			return err
		}
		started, changed = m, true
		return nil
	})
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	if changed {
		s.logger.InfoContext(ctx, "Match started", slog.Int("tournament_id", tournamentID), slog.String("match_id", matchID))
		event := newEvent(EventMatchUpdated, tournamentID, MatchUpdatedPayload{Matches: []*models.Match{started}})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish match start", slog.String("match_id", matchID), slog.Any("error", err))
		}
	}
	return started, nil
}
