package gameevent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/bankrun/internal/models"
)

// ErrEmptyMessage is returned when an append carries no message text.
var ErrEmptyMessage = errors.New("event message is required")

// EventsRepository defines what the app layer needs from the repository.
type EventsRepository interface {
	AppendEvent(ctx context.Context, gameID uuid.UUID, eventType models.EventType, message string) (*models.GameEvent, error)
	ListEventsByGame(ctx context.Context, gameID uuid.UUID) ([]models.GameEvent, error)
}

// App wraps the append-only game event log.
type App struct {
	repo EventsRepository
}

func NewApp(repo EventsRepository) *App {
	return &App{
		repo: repo,
	}
}

// Append inserts one log entry. Consumers observe it through the change feed.
func (a *App) Append(ctx context.Context, gameID uuid.UUID, eventType models.EventType, message string) (*models.GameEvent, error) {
	if message == "" {
		return nil, ErrEmptyMessage
	}

	event, err := a.repo.AppendEvent(ctx, gameID, eventType, message)
	if err != nil {
		return nil, fmt.Errorf("failed to append %s event: %w", eventType, err)
	}
	return event, nil
}

// ListByGame returns the full event history for a game in insertion order.
func (a *App) ListByGame(ctx context.Context, gameID uuid.UUID) ([]models.GameEvent, error) {
	return a.repo.ListEventsByGame(ctx, gameID)
}
