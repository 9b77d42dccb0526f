package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	// AddPlayer registers a player while the tournament is OPEN and below capacity.
	AddPlayer(ctx context.Context, tournamentID int, entry models.PlayerEntry) error
	ListPlayers(ctx context.Context, tournamentID int) ([]models.PlayerEntry, error)
	ListIDsByStatus(ctx context.Context, status models.TournamentStatus) ([]int, error)
	// UpdateStatus moves the tournament from one status to another and fails
	// with ErrConcurrentUpdate when the stored status is not from. Placements
	// are written only when non-nil.
	UpdateStatus(ctx context.Context, id int, from, to models.TournamentStatus, placements []models.Placement) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, game_id, format, capacity, status, grand_final_reset)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, version, created_at, updated_at`

	if t.Status == "" {
		t.Status = models.StatusOpen
	}
	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.GameID, t.Format, t.Capacity, t.Status, t.GrandFinalReset,
	).Scan(&t.ID, &t.Version, &t.CreatedAt, &t.UpdatedAt)

	return mapPqError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `
		SELECT
			id, name, game_id, format, capacity, status, grand_final_reset,
			placements, version, created_at, updated_at
		FROM tournaments
		WHERE id = $1`

	t := &models.Tournament{}
	var placements []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.GameID, &t.Format, &t.Capacity, &t.Status, &t.GrandFinalReset,
		&placements, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if len(placements) > 0 {
		if err := json.Unmarshal(placements, &t.Placements); err != nil {
			return nil, fmt.Errorf("failed to decode placements of tournament %d: %w", id, err)
		}
	}
	return t, nil
}

func (r *postgresTournamentRepository) AddPlayer(ctx context.Context, tournamentID int, p models.PlayerEntry) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			status   models.TournamentStatus
			capacity int
		)
		err := tx.QueryRowContext(ctx,
			`SELECT status, capacity FROM tournaments WHERE id = $1 FOR UPDATE`, tournamentID,
		).Scan(&status, &capacity)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrTournamentNotFound
			}
			return err
		}
		if status != models.StatusOpen {
			return ErrRegistrationClosed
		}

		var registered int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM tournament_players WHERE tournament_id = $1`, tournamentID,
		).Scan(&registered); err != nil {
			return err
		}
		if registered >= capacity {
			return ErrCapacityReached
		}

		query := `
			INSERT INTO tournament_players (
				tournament_id, player_id, rating, performance, history, regional, consistency, registered_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		_, err = tx.ExecContext(ctx, query,
			tournamentID, p.PlayerID, p.Skill.Rating,
			nullFloat(p.Skill.Performance), nullFloat(p.Skill.History),
			nullFloat(p.Skill.Regional), nullFloat(p.Skill.Consistency),
			p.RegisteredAt,
		)
		return mapPqError(err)
	})
}

func (r *postgresTournamentRepository) ListPlayers(ctx context.Context, tournamentID int) ([]models.PlayerEntry, error) {
	query := `
		SELECT player_id, rating, performance, history, regional, consistency, registered_at
		FROM tournament_players
		WHERE tournament_id = $1
		ORDER BY registered_at, player_id`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]models.PlayerEntry, 0)
	for rows.Next() {
		var (
			p                                           models.PlayerEntry
			performance, history, regional, consistency sql.NullFloat64
		)
		if scanErr := rows.Scan(
			&p.PlayerID, &p.Skill.Rating,
			&performance, &history, &regional, &consistency,
			&p.RegisteredAt,
		); scanErr != nil {
			return nil, scanErr
		}
		p.Skill.Performance = floatPtr(performance)
		p.Skill.History = floatPtr(history)
		p.Skill.Regional = floatPtr(regional)
		p.Skill.Consistency = floatPtr(consistency)
		players = append(players, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *postgresTournamentRepository) ListIDsByStatus(ctx context.Context, status models.TournamentStatus) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM tournaments WHERE status = $1 ORDER BY id`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, id int, from, to models.TournamentStatus, placements []models.Placement) error {
	var encoded interface{}
	if placements != nil {
		data, err := json.Marshal(placements)
		if err != nil {
			return fmt.Errorf("failed to encode placements: %w", err)
		}
		encoded = string(data)
	}

	query := `
		UPDATE tournaments SET
			status = $3,
			placements = COALESCE($4::jsonb, placements),
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND status = $2`

	result, err := r.db.ExecContext(ctx, query, id, from, to, encoded)
	if err != nil {
		return mapPqError(err)
	}
	if err := checkAffectedRows(result, ErrConcurrentUpdate); err != nil {
		if errors.Is(err, ErrConcurrentUpdate) {
			if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
		}
		return err
	}
	return nil
}

// Отсутствующая оценка хранится как NULL, а не 0.
func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
