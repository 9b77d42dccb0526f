package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

type RatingRepository interface {
	Get(ctx context.Context, playerID, gameID string) (*models.RatingRecord, error)
	// SavePair writes the change rows and both records in one transaction.
	// A record with Version 0 is inserted, any other is updated only if its
	// stored version is unchanged. A change row that already exists for
	// (match, player) yields ErrRatingAlreadyApplied and nothing is written.
	SavePair(ctx context.Context, records []*models.RatingRecord, changes []models.RatingChange) error
	ChangesForMatch(ctx context.Context, matchID string) ([]models.RatingChange, error)
}

type postgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) RatingRepository {
	return &postgresRatingRepository{db: db}
}

func (r *postgresRatingRepository) Get(ctx context.Context, playerID, gameID string) (*models.RatingRecord, error) {
	query := `
		SELECT player_id, game_id, rating, peak_rating, games_played, games_won, games_lost, games_drawn, version, updated_at
		FROM rating_records
		WHERE player_id = $1 AND game_id = $2`

	rec := &models.RatingRecord{}
	err := r.db.QueryRowContext(ctx, query, playerID, gameID).Scan(
		&rec.PlayerID, &rec.GameID, &rec.Rating, &rec.PeakRating,
		&rec.GamesPlayed, &rec.GamesWon, &rec.GamesLost, &rec.GamesDrawn,
		&rec.Version, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRatingNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *postgresRatingRepository) SavePair(ctx context.Context, records []*models.RatingRecord, changes []models.RatingChange) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		// Change rows go first so a duplicate report fails on the primary key
		// before any version check.
		for _, c := range changes {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO rating_changes (
					match_id, player_id, game_id, old_rating, new_rating, delta, expected, k, tournament, created_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				c.MatchID, c.PlayerID, c.GameID, c.OldRating, c.NewRating, c.Delta, c.Expected, c.K, c.Tournament, c.CreatedAt,
			)
			if err != nil {
				return mapPqError(err)
			}
		}

		for _, rec := range records {
			if rec.Version == 0 {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO rating_records (
						player_id, game_id, rating, peak_rating, games_played, games_won, games_lost, games_drawn, version, updated_at
					) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9)`,
					rec.PlayerID, rec.GameID, rec.Rating, rec.PeakRating,
					rec.GamesPlayed, rec.GamesWon, rec.GamesLost, rec.GamesDrawn, rec.UpdatedAt,
				)
				if err != nil {
					return mapPqError(err)
				}
				continue
			}

			result, err := tx.ExecContext(ctx, `
				UPDATE rating_records SET
					rating = $4, peak_rating = $5,
					games_played = $6, games_won = $7, games_lost = $8, games_drawn = $9,
					version = version + 1, updated_at = $10
				WHERE player_id = $1 AND game_id = $2 AND version = $3`,
				rec.PlayerID, rec.GameID, rec.Version, rec.Rating, rec.PeakRating,
				rec.GamesPlayed, rec.GamesWon, rec.GamesLost, rec.GamesDrawn, rec.UpdatedAt,
			)
			if err != nil {
				return mapPqError(err)
			}
			if err := checkAffectedRows(result, ErrConcurrentUpdate); err != nil {
				return fmt.Errorf("rating of %s: %w", rec.PlayerID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, rec := range records {
		rec.Version++
	}
	return nil
}

func (r *postgresRatingRepository) ChangesForMatch(ctx context.Context, matchID string) ([]models.RatingChange, error) {
	query := `
		SELECT match_id, player_id, game_id, old_rating, new_rating, delta, expected, k, tournament, created_at
		FROM rating_changes
		WHERE match_id = $1
		ORDER BY player_id`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := make([]models.RatingChange, 0, 2)
	for rows.Next() {
		var c models.RatingChange
		if scanErr := rows.Scan(
			&c.MatchID, &c.PlayerID, &c.GameID, &c.OldRating, &c.NewRating,
			&c.Delta, &c.Expected, &c.K, &c.Tournament, &c.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		changes = append(changes, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}
