package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of a game event log entry.
type EventType string

const (
	EventTypeGameStart  EventType = "game_start"
	EventTypeFTXMessage EventType = "ftx_message"
	EventTypeJournalist EventType = "journalist"
	EventTypePause      EventType = "pause"
	EventTypeResume     EventType = "resume"
	EventTypeGameEnd    EventType = "game_end"
)

// GameEvent is an append-only broadcast/audit log entry. Entries are never
// mutated or deleted and are retained for the life of the game.
type GameEvent struct {
	ID        uuid.UUID `json:"id"`
	GameID    uuid.UUID `json:"game_id"`
	EventType EventType `json:"event_type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
