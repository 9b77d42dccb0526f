package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrBracketNotFound    = errors.New("bracket has not been generated")

	// Ошибки конфигурации и валидации сетки
	ErrInvalidConfiguration = errors.New("invalid tournament configuration")
	ErrStructuralValidation = errors.New("bracket failed structural validation")
	ErrValidationFailed     = errors.New("validation failed")

	// Ошибки результатов матчей.
	// ErrAlreadyProcessed не возвращается: повторный отчёт поглощается как Applied=false.
	ErrAlreadyProcessed       = errors.New("match result already processed")
	ErrUnresolvedParticipants = errors.New("match participants are not resolved yet")
	ErrInvalidResult          = errors.New("invalid match result")
	ErrMatchNotStartable      = errors.New("match cannot be started in its current status")

	// Ошибки состояния турнира
	ErrTournamentNotOpen                 = errors.New("tournament registration is not open")
	ErrTournamentNotActive               = errors.New("tournament is not active")
	ErrTournamentFull                    = errors.New("tournament registration is full")
	ErrRegistrationConflict              = errors.New("player is already registered for this tournament")
	ErrTournamentInvalidCapacity         = errors.New("tournament capacity must be at least 2")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")

	// Ошибки конкурентного доступа.
	// ErrConcurrentFinalization только логируется, наружу не выходит.
	ErrConcurrentFinalization = errors.New("tournament finalized concurrently")
	ErrConcurrentUpdate       = errors.New("concurrent update, retries exhausted")
)
