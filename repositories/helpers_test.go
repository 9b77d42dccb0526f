package repositories

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapPqError(t *testing.T) {
	plain := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"not a driver error", plain, plain},
		{"duplicate registration", &pq.Error{Code: pqUniqueViolation, Constraint: "tournament_players_pkey"}, ErrPlayerAlreadyEntered},
		{"duplicate rating change", &pq.Error{Code: pqUniqueViolation, Constraint: "rating_changes_pkey"}, ErrRatingAlreadyApplied},
		{"concurrent rating insert", &pq.Error{Code: pqUniqueViolation, Constraint: "rating_records_pkey"}, ErrConcurrentUpdate},
		{"second bracket", &pq.Error{Code: pqUniqueViolation, Constraint: "brackets_pkey"}, ErrBracketExists},
		{"serialization failure", &pq.Error{Code: pqSerializationFailure}, ErrConcurrentUpdate},
		{"deadlock", &pq.Error{Code: pqDeadlockDetected}, ErrConcurrentUpdate},
		{"unknown tournament", &pq.Error{Code: pqForeignKeyViolation, Constraint: "tournament_players_tournament_id_fkey"}, ErrTournamentNotFound},
		{"wrapped", fmt.Errorf("failed to commit transaction: %w", &pq.Error{Code: pqSerializationFailure}), ErrConcurrentUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapPqError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}
