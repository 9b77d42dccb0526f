package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

var ErrArchiveUnavailable = errors.New("results archive is temporarily unavailable")

type ArchiveConfig struct {
	Prefix      string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	MaxFailures uint32
}

func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Prefix:      "results",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		MaxFailures: 3,
	}
}

// ResultsArchive stores final tournament results in an object store behind a
// circuit breaker.
type ResultsArchive struct {
	uploader FileUploader
	breaker  *gobreaker.CircuitBreaker
	prefix   string
	logger   *slog.Logger
}

func NewResultsArchive(uploader FileUploader, cfg ArchiveConfig, logger *slog.Logger) *ResultsArchive {
	maxFailures := cfg.MaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "results-archive",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Results archive circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from_state", from.String()),
				slog.String("to_state", to.String()),
			)
		},
	})

	return &ResultsArchive{
		uploader: uploader,
		breaker:  cb,
		prefix:   cfg.Prefix,
		logger:   logger,
	}
}

func (a *ResultsArchive) key(tournamentID int) string {
	if a.prefix == "" {
		return fmt.Sprintf("tournament_%d.json", tournamentID)
	}
	return fmt.Sprintf("%s/tournament_%d.json", a.prefix, tournamentID)
}

// ArchiveResults uploads the document under a key derived from the tournament
// ID, so a repeated upload overwrites the previous one. Returns the location.
func (a *ResultsArchive) ArchiveResults(ctx context.Context, tournamentID int, document []byte) (string, error) {
	key := a.key(tournamentID)
	res, err := a.breaker.Execute(func() (interface{}, error) {
		return a.uploader.Upload(ctx, key, "application/json", bytes.NewReader(document))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrArchiveUnavailable, err)
		}
		return "", err
	}

	uploaded := res.(*UploadResult)
	a.logger.DebugContext(ctx, "Results document uploaded",
		slog.Int("tournament_id", tournamentID),
		slog.String("key", uploaded.Key),
		slog.String("etag", uploaded.ETag),
	)
	return uploaded.Location, nil
}
