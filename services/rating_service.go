package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/rating"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RatingMatchInput describes one finished game between two players.
type RatingMatchInput struct {
	GameID   string `json:"game_id"`
	MatchID  string `json:"match_id"`
	WinnerID string `json:"winner_id"`
	LoserID  string `json:"loser_id"`
	// Draw marks WinnerID and LoserID as the two drawing players.
	Draw       bool `json:"draw"`
	Tournament bool `json:"-"`
}

type RatingUpdate struct {
	Applied bool                  `json:"applied"`
	Changes []models.RatingChange `json:"changes"`
}

type RatingService interface {
	GetRatingSnapshot(ctx context.Context, playerID, gameID string) (*models.RatingRecord, error)
	ApplyMatch(ctx context.Context, input RatingMatchInput) (*RatingUpdate, error)
	ApplyCasual(ctx context.Context, input RatingMatchInput) (*RatingUpdate, error)
}

type ratingService struct {
	ratingRepo repositories.RatingRepository
	engine     *rating.Engine
	retry      RetryConfig
	logger     *slog.Logger
	now        func() time.Time
}

func NewRatingService(
	ratingRepo repositories.RatingRepository,
	engine *rating.Engine,
	retryCfg RetryConfig,
	logger *slog.Logger,
) RatingService {
	return &ratingService{
		ratingRepo: ratingRepo,
		engine:     engine,
		retry:      retryCfg,
		logger:     logger,
		now:        time.Now,
	}
}

// GetRatingSnapshot returns the stored record, or an unsaved record at the
// base rating for a player who has not played the game yet.
func (s *ratingService) GetRatingSnapshot(ctx context.Context, playerID, gameID string) (*models.RatingRecord, error) {
	playerID, gameID = strings.TrimSpace(playerID), strings.TrimSpace(gameID)
	if playerID == "" || gameID == "" {
		return nil, fmt.Errorf("%w: player id and game id are required", ErrValidationFailed)
	}
	rec, err := s.ratingRepo.Get(ctx, playerID, gameID)
	if errors.Is(err, repositories.ErrRatingNotFound) {
		fresh := s.engine.NewRecord(playerID, gameID)
		return &fresh, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rating of %s for %s: %w", playerID, gameID, err)
	}
	return rec, nil
}

func (s *ratingService) ApplyMatch(ctx context.Context, input RatingMatchInput) (*RatingUpdate, error) {
	input.Tournament = true
	return s.apply(ctx, input)
}

func (s *ratingService) ApplyCasual(ctx context.Context, input RatingMatchInput) (*RatingUpdate, error) {
	input.Tournament = false
	if strings.TrimSpace(input.MatchID) == "" {
		input.MatchID = uuid.NewString()
	}
	return s.apply(ctx, input)
}

func (s *ratingService) apply(ctx context.Context, input RatingMatchInput) (*RatingUpdate, error) {
	if input.GameID == "" || input.MatchID == "" || input.WinnerID == "" || input.LoserID == "" {
		return nil, fmt.Errorf("%w: game, match and both players are required", ErrInvalidResult)
	}
	if input.WinnerID == input.LoserID {
		return nil, fmt.Errorf("%w: a player cannot play against themselves", ErrInvalidResult)
	}

	var update *RatingUpdate
	err := withRetry(ctx, s.retry, func(ctx context.Context) error {
		var a, b models.RatingRecord
		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			a, err = s.loadOrNew(gCtx, input.WinnerID, input.GameID)
			return err
		})
		g.Go(func() error {
			var err error
			b, err = s.loadOrNew(gCtx, input.LoserID, input.GameID)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		score := rating.ScoreWin
		if input.Draw {
			score = rating.ScoreDraw
		}
		nextA, nextB, sideA, sideB := s.engine.Apply(a, b, score, input.Tournament)
		now := s.now().UTC()
		nextA.UpdatedAt, nextB.UpdatedAt = now, now

		changes := []models.RatingChange{
			s.change(input, input.WinnerID, sideA, now),
			s.change(input, input.LoserID, sideB, now),
		}
		if err := s.ratingRepo.SavePair(ctx, []*models.RatingRecord{&nextA, &nextB}, changes); err != nil {
			return err
		}
		update = &RatingUpdate{Applied: true, Changes: changes}
		return nil
	})

	if errors.Is(err, repositories.ErrRatingAlreadyApplied) {
		stored, loadErr := s.ratingRepo.ChangesForMatch(ctx, input.MatchID)
		if loadErr != nil {
			return nil, fmt.Errorf("failed to load applied rating changes for match %s: %w", input.MatchID, loadErr)
		}
		return &RatingUpdate{Applied: false, Changes: stored}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply rating for match %s: %w", input.MatchID, mapRepositoryError(err))
	}

	s.logger.InfoContext(ctx, "Ratings updated",
		slog.String("match_id", input.MatchID),
		slog.String("game_id", input.GameID),
		slog.Int("winner_delta", update.Changes[0].Delta),
		slog.Int("loser_delta", update.Changes[1].Delta),
	)
	return update, nil
}

func (s *ratingService) loadOrNew(ctx context.Context, playerID, gameID string) (models.RatingRecord, error) {
	rec, err := s.ratingRepo.Get(ctx, playerID, gameID)
	if errors.Is(err, repositories.ErrRatingNotFound) {
		return s.engine.NewRecord(playerID, gameID), nil
	}
	if err != nil {
		return models.RatingRecord{}, err
	}
	return *rec, nil
}

func (s *ratingService) change(input RatingMatchInput, playerID string, side rating.Side, at time.Time) models.RatingChange {
	return models.RatingChange{
		MatchID:    input.MatchID,
		PlayerID:   playerID,
		GameID:     input.GameID,
		OldRating:  side.OldRating,
		NewRating:  side.NewRating,
		Delta:      side.Delta,
		Expected:   side.Expected,
		K:          side.K,
		Tournament: input.Tournament,
		CreatedAt:  at,
	}
}
