package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/lib/pq"
)

type MatchRepository interface {
	// SaveBracket stores a generated bracket and moves its tournament from
	// OPEN to ACTIVE in the same write.
	SaveBracket(ctx context.Context, bracket *models.Bracket) error
	GetBracket(ctx context.Context, tournamentID int) (*models.Bracket, error)
	TournamentIDForMatch(ctx context.Context, matchID string) (int, error)
	// UpdateMatches writes every match only if all stored versions still equal
	// the given ones. On success each match's Version is incremented in place.
	UpdateMatches(ctx context.Context, matches []*models.Match) error
	// CancelTournament marks the tournament and all of its open matches
	// CANCELLED and returns the IDs of the cancelled matches.
	CancelTournament(ctx context.Context, tournamentID int, at time.Time) ([]string, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, tournament_id, side, round, match_order,
	slot1_kind, slot1_seed, slot1_player, slot2_kind, slot2_seed, slot2_player,
	status, winner_id, loser_id, is_draw, is_bye,
	winner_to_match, winner_to_slot, loser_to_match, loser_to_slot,
	version, started_at, completed_at`

func refArgs(ref *models.SlotRef) (interface{}, interface{}) {
	if ref == nil {
		return nil, nil
	}
	return ref.MatchID, ref.Slot
}

func (r *postgresMatchRepository) SaveBracket(ctx context.Context, b *models.Bracket) error {
	players, err := json.Marshal(b.Players)
	if err != nil {
		return fmt.Errorf("failed to encode bracket players: %w", err)
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE tournaments SET status = $2, version = version + 1, updated_at = NOW()
			WHERE id = $1 AND status = $3`,
			b.TournamentID, models.StatusActive, models.StatusOpen)
		if err != nil {
			return mapPqError(err)
		}
		if err := checkAffectedRows(result, ErrConcurrentUpdate); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO brackets (tournament_id, format, total_rounds, total_matches, grand_final_reset, players, generated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			b.TournamentID, b.Format, b.TotalRounds, b.TotalMatches, b.GrandFinalReset, string(players), b.GeneratedAt)
		if err != nil {
			return mapPqError(err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO matches (`+matchColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`)
		if err != nil {
			return fmt.Errorf("failed to prepare match insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range b.Matches() {
			winnerMatch, winnerSlot := refArgs(m.WinnerTo)
			loserMatch, loserSlot := refArgs(m.LoserTo)
			if _, err := stmt.ExecContext(ctx,
				m.ID, b.TournamentID, m.Side, m.Round, m.Order,
				m.Slots[0].Kind, m.Slots[0].Seed, m.Slots[0].PlayerID,
				m.Slots[1].Kind, m.Slots[1].Seed, m.Slots[1].PlayerID,
				m.Status, m.WinnerID, m.LoserID, m.IsDraw, m.IsBye,
				winnerMatch, winnerSlot, loserMatch, loserSlot,
				m.Version, m.StartedAt, m.CompletedAt,
			); err != nil {
				return mapPqError(fmt.Errorf("failed to insert match %s: %w", m.ID, err))
			}
		}
		return nil
	})
}

func scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	var (
		winnerMatch, loserMatch *string
		winnerSlot, loserSlot   *int
	)
	err := rowScanner.Scan(
		&m.ID, &m.TournamentID, &m.Side, &m.Round, &m.Order,
		&m.Slots[0].Kind, &m.Slots[0].Seed, &m.Slots[0].PlayerID,
		&m.Slots[1].Kind, &m.Slots[1].Seed, &m.Slots[1].PlayerID,
		&m.Status, &m.WinnerID, &m.LoserID, &m.IsDraw, &m.IsBye,
		&winnerMatch, &winnerSlot, &loserMatch, &loserSlot,
		&m.Version, &m.StartedAt, &m.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if winnerMatch != nil && winnerSlot != nil {
		m.WinnerTo = &models.SlotRef{MatchID: *winnerMatch, Slot: *winnerSlot}
	}
	if loserMatch != nil && loserSlot != nil {
		m.LoserTo = &models.SlotRef{MatchID: *loserMatch, Slot: *loserSlot}
	}
	return m, nil
}

func (r *postgresMatchRepository) GetBracket(ctx context.Context, tournamentID int) (*models.Bracket, error) {
	b := &models.Bracket{TournamentID: tournamentID}
	var players []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT format, total_rounds, total_matches, grand_final_reset, players, generated_at
		FROM brackets WHERE tournament_id = $1`, tournamentID,
	).Scan(&b.Format, &b.TotalRounds, &b.TotalMatches, &b.GrandFinalReset, &players, &b.GeneratedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(players, &b.Players); err != nil {
		return nil, fmt.Errorf("failed to decode bracket players: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+matchColumns+`
		FROM matches WHERE tournament_id = $1
		ORDER BY round, match_order`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var current *models.Round
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		if current == nil || current.Number != m.Round {
			current = &models.Round{Number: m.Round, Side: m.Side}
			b.Rounds = append(b.Rounds, current)
		}
		current.Matches = append(current.Matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *postgresMatchRepository) TournamentIDForMatch(ctx context.Context, matchID string) (int, error) {
	var tournamentID int
	err := r.db.QueryRowContext(ctx, `SELECT tournament_id FROM matches WHERE id = $1`, matchID).Scan(&tournamentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrMatchNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextRepresentation {
			// not a UUID, so no such match
			return 0, ErrMatchNotFound
		}
		return 0, err
	}
	return tournamentID, nil
}

func (r *postgresMatchRepository) UpdateMatches(ctx context.Context, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE matches SET
				slot1_kind = $3, slot1_seed = $4, slot1_player = $5,
				slot2_kind = $6, slot2_seed = $7, slot2_player = $8,
				status = $9, winner_id = $10, loser_id = $11, is_draw = $12, is_bye = $13,
				started_at = $14, completed_at = $15,
				version = version + 1
			WHERE id = $1 AND version = $2`)
		if err != nil {
			return fmt.Errorf("failed to prepare match update: %w", err)
		}
		defer stmt.Close()

		for _, m := range matches {
			result, err := stmt.ExecContext(ctx,
				m.ID, m.Version,
				m.Slots[0].Kind, m.Slots[0].Seed, m.Slots[0].PlayerID,
				m.Slots[1].Kind, m.Slots[1].Seed, m.Slots[1].PlayerID,
				m.Status, m.WinnerID, m.LoserID, m.IsDraw, m.IsBye,
				m.StartedAt, m.CompletedAt,
			)
			if err != nil {
				return mapPqError(err)
			}
			if err := checkAffectedRows(result, ErrConcurrentUpdate); err != nil {
				return fmt.Errorf("match %s: %w", m.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, m := range matches {
		m.Version++
	}
	return nil
}

func (r *postgresMatchRepository) CancelTournament(ctx context.Context, tournamentID int, at time.Time) ([]string, error) {
	var cancelled []string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var status models.TournamentStatus
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM tournaments WHERE id = $1 FOR UPDATE`, tournamentID,
		).Scan(&status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrTournamentNotFound
			}
			return err
		}
		if status.Terminal() {
			return ErrConcurrentUpdate
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE tournaments SET status = $2, version = version + 1, updated_at = $3
			WHERE id = $1`, tournamentID, models.StatusCancelled, at); err != nil {
			return mapPqError(err)
		}

		rows, err := tx.QueryContext(ctx, `
			UPDATE matches SET status = $2, completed_at = $3, version = version + 1
			WHERE tournament_id = $1 AND status NOT IN ($4, $2)
			RETURNING id`,
			tournamentID, models.MatchStatusCancelled, at, models.MatchStatusCompleted)
		if err != nil {
			return mapPqError(err)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			cancelled = append(cancelled, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}
