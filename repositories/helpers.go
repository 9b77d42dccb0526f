package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var (
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrBracketNotFound      = errors.New("bracket not found")
	ErrRatingNotFound       = errors.New("rating record not found")
	ErrPlayerAlreadyEntered = errors.New("player is already registered for this tournament")
	ErrCapacityReached      = errors.New("tournament capacity reached")
	ErrRegistrationClosed   = errors.New("tournament is not accepting registrations")
	ErrBracketExists        = errors.New("bracket already generated for this tournament")
	// ErrConcurrentUpdate means a version or status check failed; the caller
	// should reload and retry.
	ErrConcurrentUpdate     = errors.New("concurrent update detected")
	ErrRatingAlreadyApplied = errors.New("rating change already applied for this match")
)

// Postgres error codes handled explicitly.
const (
	pqUniqueViolation      = "23505"
	pqForeignKeyViolation  = "23503"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"

	pqInvalidTextRepresentation = "22P02"
)

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

// mapPqError translates driver errors into repository sentinels. Unknown
// errors are returned unchanged.
func mapPqError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pqSerializationFailure, pqDeadlockDetected:
		return fmt.Errorf("%w: %s", ErrConcurrentUpdate, pqErr.Message)
	case pqUniqueViolation:
		switch pqErr.Constraint {
		case "tournament_players_pkey":
			return ErrPlayerAlreadyEntered
		case "rating_changes_pkey":
			return ErrRatingAlreadyApplied
		case "rating_records_pkey":
			return fmt.Errorf("%w: rating record created concurrently", ErrConcurrentUpdate)
		case "brackets_pkey":
			return ErrBracketExists
		}
	case pqForeignKeyViolation:
		if pqErr.Constraint == "tournament_players_tournament_id_fkey" || pqErr.Constraint == "brackets_tournament_id_fkey" {
			return ErrTournamentNotFound
		}
	}
	return err
}

// withTx runs fn in a transaction and commits when it returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (txErr error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			_ = tx.Rollback()
		} else {
			txErr = tx.Commit()
			if txErr != nil {
				txErr = mapPqError(fmt.Errorf("failed to commit transaction: %w", txErr))
			}
		}
	}()
	return fn(tx)
}
