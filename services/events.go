package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type EventType string

const (
	EventBracketGenerated    EventType = "bracket_generated"
	EventMatchUpdated        EventType = "match_updated"
	EventTournamentCompleted EventType = "tournament_completed"
	EventTournamentCancelled EventType = "tournament_cancelled"
)

type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	TournamentID int         `json:"tournament_id"`
	Payload      interface{} `json:"payload"`
	OccurredAt   time.Time   `json:"occurred_at"`
}

func newEvent(eventType EventType, tournamentID int, payload interface{}) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		TournamentID: tournamentID,
		Payload:      payload,
		OccurredAt:   time.Now().UTC(),
	}
}

// TournamentCompletedPayload is the tournamentCompleted notification.
type TournamentCompletedPayload struct {
	TournamentID int                `json:"tournamentId"`
	Placements   []models.Placement `json:"placements"`
}

type MatchUpdatedPayload struct {
	Matches  []*models.Match `json:"matches"`
	Cascaded []string        `json:"cascaded,omitempty"`
}

type TournamentCancelledPayload struct {
	TournamentID     int      `json:"tournamentId"`
	CancelledMatches []string `json:"cancelled_matches"`
}

// EventPublisher delivers events to the outside world. A non-nil error means
// the event may not have been delivered and can be published again.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// MultiPublisher fans an event out to every publisher concurrently and
// returns the joined errors of the ones that failed.
type MultiPublisher struct {
	publishers []EventPublisher
}

func NewMultiPublisher(publishers ...EventPublisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

func (m *MultiPublisher) Publish(ctx context.Context, event Event) error {
	errs := make([]error, len(m.publishers))
	var g errgroup.Group
	for i, p := range m.publishers {
		g.Go(func() error {
			errs[i] = p.Publish(ctx, event)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// BestEffortPublisher wraps a sink whose failures are logged and never fail
// delivery. A completion is re-published only when a required sink failed.
type BestEffortPublisher struct {
	next   EventPublisher
	name   string
	logger *slog.Logger
}

func NewBestEffortPublisher(name string, next EventPublisher, logger *slog.Logger) *BestEffortPublisher {
	return &BestEffortPublisher{next: next, name: name, logger: logger}
}

func (p *BestEffortPublisher) Publish(ctx context.Context, event Event) error {
	if err := p.next.Publish(ctx, event); err != nil {
		p.logger.WarnContext(ctx, "Optional event sink failed",
			slog.String("sink", p.name),
			slog.String("type", string(event.Type)),
			slog.Int("tournament_id", event.TournamentID),
			slog.Any("error", err),
		)
	}
	return nil
}

// HubPublisher pushes events to the WebSocket room of their tournament.
type HubPublisher struct {
	hub *brackets.Hub
}

func NewHubPublisher(hub *brackets.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, event Event) error {
	room := brackets.RoomForTournament(event.TournamentID)
	return p.hub.BroadcastToRoom(room, brackets.WebSocketMessage{
		Type:    string(event.Type),
		Payload: event,
		RoomID:  room,
	})
}

// ResultArchiver stores the final results document of a tournament.
type ResultArchiver interface {
	ArchiveResults(ctx context.Context, tournamentID int, document []byte) (string, error)
}

// ArchivePublisher writes tournament_completed events to the results archive
// and ignores every other event type.
type ArchivePublisher struct {
	archiver ResultArchiver
	logger   *slog.Logger
}

func NewArchivePublisher(archiver ResultArchiver, logger *slog.Logger) *ArchivePublisher {
	return &ArchivePublisher{archiver: archiver, logger: logger}
}

func (p *ArchivePublisher) Publish(ctx context.Context, event Event) error {
	if event.Type != EventTournamentCompleted {
		return nil
	}
	document, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode results of tournament %d: %w", event.TournamentID, err)
	}
	location, err := p.archiver.ArchiveResults(ctx, event.TournamentID, document)
	if err != nil {
		return fmt.Errorf("failed to archive results of tournament %d: %w", event.TournamentID, err)
	}
	p.logger.InfoContext(ctx, "Tournament results archived",
		slog.Int("tournament_id", event.TournamentID), slog.String("location", location))
	return nil
}

// LogPublisher records every event in the service log.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "Event published",
		slog.String("event_id", event.ID),
		slog.String("type", string(event.Type)),
		slog.Int("tournament_id", event.TournamentID),
	)
	return nil
}
