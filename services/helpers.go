package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/sethvargo/go-retry"
)

// RetryConfig controls how a conflicting or failed atomic write is retried.
type RetryConfig struct {
	MaxRetries uint64
	Base       time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 5, Base: 10 * time.Millisecond}
}

// withRetry runs fn until it succeeds, returns a permanent error or the
// retries are used up. fn must reload its inputs on every attempt.
func withRetry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(cfg.MaxRetries, retry.WithJitterPercent(20, retry.NewExponential(cfg.Base)))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// isTransient reports whether repeating the whole step may succeed.
func isTransient(err error) bool {
	if errors.Is(err, repositories.ErrConcurrentUpdate) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// mapRepositoryError переводит ошибки репозиториев в ошибки сервисного слоя.
func mapRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrBracketNotFound):
		return ErrBracketNotFound
	case errors.Is(err, repositories.ErrPlayerAlreadyEntered):
		return ErrRegistrationConflict
	case errors.Is(err, repositories.ErrCapacityReached):
		return ErrTournamentFull
	case errors.Is(err, repositories.ErrRegistrationClosed):
		return ErrTournamentNotOpen
	case errors.Is(err, repositories.ErrConcurrentUpdate):
		return fmt.Errorf("%w: %v", ErrConcurrentUpdate, err)
	}
	return err
}

// mapBracketError переводит ошибки движка сетки.
func mapBracketError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, brackets.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, brackets.ErrUnresolvedSlots), errors.Is(err, brackets.ErrRoundNotReady):
		return fmt.Errorf("%w: %v", ErrUnresolvedParticipants, err)
	case errors.Is(err, brackets.ErrInvalidResult):
		return fmt.Errorf("%w: %v", ErrInvalidResult, err)
	case errors.Is(err, brackets.ErrNotEnoughPlayers),
		errors.Is(err, brackets.ErrInvalidSeeds),
		errors.Is(err, brackets.ErrUnsupportedFormat):
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	case errors.Is(err, brackets.ErrPairingUnavailable):
		return fmt.Errorf("%w: %v", ErrStructuralValidation, err)
	}
	return err
}
