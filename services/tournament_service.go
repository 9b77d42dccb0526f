package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
)

type CreateTournamentInput struct {
	Name     string        `json:"name"`
	GameID   string        `json:"game_id"`
	Format   models.Format `json:"format"`
	Capacity int           `json:"capacity"`
	// GrandFinalReset defaults to the service setting when omitted.
	GrandFinalReset *bool `json:"grand_final_reset,omitempty"`
}

// RegisterPlayerInput carries the skill snapshot taken at registration. A nil
// Rating is filled from the player's current rating for the tournament game.
type RegisterPlayerInput struct {
	PlayerID    string   `json:"player_id"`
	Rating      *float64 `json:"rating,omitempty"`
	Performance *float64 `json:"performance,omitempty"`
	History     *float64 `json:"history,omitempty"`
	Regional    *float64 `json:"regional,omitempty"`
	Consistency *float64 `json:"consistency,omitempty"`
}

// CompletionChecker finalizes a tournament once all of its matches are done.
type CompletionChecker interface {
	CheckCompletion(ctx context.Context, tournamentID int) (bool, error)
}

type TournamentService interface {
	CompletionChecker
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	RegisterPlayer(ctx context.Context, tournamentID int, input RegisterPlayerInput) (*models.PlayerEntry, error)
	CancelTournament(ctx context.Context, tournamentID int) (*models.Tournament, error)
	// SweepUnfinished re-runs the completion check for ACTIVE and CLOSED
	// tournaments so a lost notification or a failed publish is recovered.
	SweepUnfinished(ctx context.Context) (int, error)
	RunFinalizer(ctx context.Context, interval time.Duration)
}

type tournamentService struct {
	tournamentRepo  repositories.TournamentRepository
	matchRepo       repositories.MatchRepository
	ratings         RatingService
	locker          repositories.Locker
	publisher       EventPublisher
	grandFinalReset bool
	logger          *slog.Logger
	now             func() time.Time
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	ratings RatingService,
	locker repositories.Locker,
	publisher EventPublisher,
	grandFinalReset bool,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo:  tournamentRepo,
		matchRepo:       matchRepo,
		ratings:         ratings,
		locker:          locker,
		publisher:       publisher,
		grandFinalReset: grandFinalReset,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	gameID := strings.TrimSpace(input.GameID)
	if name == "" || gameID == "" {
		return nil, fmt.Errorf("%w: name and game_id are required", ErrValidationFailed)
	}
	if !input.Format.Valid() {
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidConfiguration, input.Format)
	}
	if input.Capacity < brackets.MinPlayers {
		return nil, ErrTournamentInvalidCapacity
	}

	reset := s.grandFinalReset
	if input.GrandFinalReset != nil {
		reset = *input.GrandFinalReset
	}
	t := &models.Tournament{
		Name:            name,
		GameID:          gameID,
		Format:          input.Format,
		Capacity:        input.Capacity,
		Status:          models.StatusOpen,
		GrandFinalReset: reset && input.Format == models.FormatDoubleElimination,
	}
	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	s.logger.InfoContext(ctx, "Tournament created",
		slog.Int("tournament_id", t.ID), slog.String("format", string(t.Format)), slog.Int("capacity", t.Capacity))
	return t, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	roster, err := s.tournamentRepo.ListPlayers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list players of tournament %d: %w", id, err)
	}
	t.Roster = roster
	return t, nil
}

func validSubScore(v *float64) bool {
	return v == nil || (*v >= 0 && *v <= 100)
}

func (s *tournamentService) RegisterPlayer(ctx context.Context, tournamentID int, input RegisterPlayerInput) (*models.PlayerEntry, error) {
	playerID := strings.TrimSpace(input.PlayerID)
	if playerID == "" {
		return nil, fmt.Errorf("%w: player_id is required", ErrValidationFailed)
	}
	for _, v := range []*float64{input.Performance, input.History, input.Regional, input.Consistency} {
		if !validSubScore(v) {
			return nil, fmt.Errorf("%w: sub-scores must be within 0..100", ErrValidationFailed)
		}
	}

	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if t.Status != models.StatusOpen {
		return nil, ErrTournamentNotOpen
	}

	entry := models.PlayerEntry{
		PlayerID: playerID,
		Skill: models.SkillSnapshot{
			Performance: input.Performance,
			History:     input.History,
			Regional:    input.Regional,
			Consistency: input.Consistency,
		},
		RegisteredAt: s.now().UTC(),
	}
	if input.Rating != nil {
		entry.Skill.Rating = *input.Rating
	} else {
		snapshot, err := s.ratings.GetRatingSnapshot(ctx, playerID, t.GameID)
		if err != nil {
			return nil, err
		}
		entry.Skill.Rating = float64(snapshot.Rating)
	}

	if err := s.tournamentRepo.AddPlayer(ctx, tournamentID, entry); err != nil {
		return nil, mapRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Player registered",
		slog.Int("tournament_id", tournamentID), slog.String("player_id", playerID))
	return &entry, nil
}

func (s *tournamentService) CancelTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	unlock, err := s.locker.Lock(ctx, repositories.TournamentLockKey(tournamentID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock tournament %d: %w", tournamentID, err)
	}
	defer unlock()

	cancelled, err := s.matchRepo.CancelTournament(ctx, tournamentID, s.now().UTC())
	if err != nil {
		if errors.Is(err, repositories.ErrConcurrentUpdate) {
			return nil, fmt.Errorf("%w: tournament %d is already finished", ErrTournamentInvalidStatusTransition, tournamentID)
		}
		return nil, mapRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Tournament cancelled",
		slog.Int("tournament_id", tournamentID), slog.Int("cancelled_matches", len(cancelled)))

	event := newEvent(EventTournamentCancelled, tournamentID, TournamentCancelledPayload{
		TournamentID:     tournamentID,
		CancelledMatches: cancelled,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish cancellation", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}
	return s.GetTournament(ctx, tournamentID)
}

// CheckCompletion finalizes the tournament when every match is COMPLETED or
// CANCELLED. It reports true only to the caller that delivered the
// tournamentCompleted event.
func (s *tournamentService) CheckCompletion(ctx context.Context, tournamentID int) (bool, error) {
	unlock, err := s.locker.Lock(ctx, repositories.TournamentLockKey(tournamentID))
	if err != nil {
		return false, fmt.Errorf("failed to lock tournament %d: %w", tournamentID, err)
	}
	defer unlock()

	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return false, mapRepositoryError(err)
	}

	switch t.Status {
	case models.StatusActive:
		b, err := s.matchRepo.GetBracket(ctx, tournamentID)
		if err != nil {
			return false, mapRepositoryError(err)
		}
		if !b.AllTerminal() {
			return false, nil
		}
		placements, err := brackets.Placements(b)
		if err != nil {
			return false, fmt.Errorf("failed to compute placements of tournament %d: %w", tournamentID, err)
		}
		err = s.tournamentRepo.UpdateStatus(ctx, tournamentID, models.StatusActive, models.StatusClosed, placements)
		if errors.Is(err, repositories.ErrConcurrentUpdate) {
			s.logger.InfoContext(ctx, "Tournament finalization lost the race",
				slog.Int("tournament_id", tournamentID), slog.Any("error", ErrConcurrentFinalization))
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to close tournament %d: %w", tournamentID, err)
		}
		t.Placements = placements
	case models.StatusClosed:
		s.logger.InfoContext(ctx, "Re-publishing completion of closed tournament", slog.Int("tournament_id", tournamentID))
	default:
		return false, nil
	}

	event := newEvent(EventTournamentCompleted, tournamentID, TournamentCompletedPayload{
		TournamentID: tournamentID,
		Placements:   t.Placements,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		return false, fmt.Errorf("failed to publish completion of tournament %d: %w", tournamentID, err)
	}

	err = s.tournamentRepo.UpdateStatus(ctx, tournamentID, models.StatusClosed, models.StatusCompleted, nil)
	if err != nil && !errors.Is(err, repositories.ErrConcurrentUpdate) {
		return true, fmt.Errorf("failed to complete tournament %d: %w", tournamentID, err)
	}
	s.logger.InfoContext(ctx, "Tournament completed",
		slog.Int("tournament_id", tournamentID), slog.Int("placements", len(t.Placements)))
	return true, nil
}

func (s *tournamentService) SweepUnfinished(ctx context.Context) (int, error) {
	finalized := 0
	for _, status := range []models.TournamentStatus{models.StatusClosed, models.StatusActive} {
		ids, err := s.tournamentRepo.ListIDsByStatus(ctx, status)
		if err != nil {
			return finalized, fmt.Errorf("failed to list %s tournaments: %w", status, err)
		}
		for _, id := range ids {
			done, err := s.CheckCompletion(ctx, id)
			if err != nil {
				s.logger.WarnContext(ctx, "Completion check failed", slog.Int("tournament_id", id), slog.Any("error", err))
				continue
			}
			if done {
				finalized++
			}
		}
	}
	return finalized, nil
}

func (s *tournamentService) RunFinalizer(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.SweepUnfinished(ctx); err != nil {
				s.logger.WarnContext(ctx, "Finalizer sweep failed", slog.Any("error", err))
			} else if n > 0 {
				s.logger.InfoContext(ctx, "Finalizer completed tournaments", slog.Int("count", n))
			}
		}
	}
}
