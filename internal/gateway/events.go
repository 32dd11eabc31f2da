package gateway

import (
	"encoding/json"
	"time"

	"github.com/mcdev12/bankrun/internal/feed"
)

// Event is the wire format pushed to WebSocket clients. Data carries the
// changed row; clients treat events as refresh hints and refetch state rather
// than replaying them, so a dropped event never desyncs a viewer.
type Event struct {
	GameID    string          `json:"game_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType represents the type of gateway event.
type EventType string

const (
	EventTypeGameUpdated   EventType = "GameUpdated"
	EventTypePlayerUpdated EventType = "PlayerUpdated"
	EventTypeEventAppended EventType = "EventAppended"
)

// eventTypeForTable maps a feed table to the client-facing event type.
func eventTypeForTable(table string) (EventType, bool) {
	switch table {
	case feed.TableGames:
		return EventTypeGameUpdated, true
	case feed.TablePlayers:
		return EventTypePlayerUpdated, true
	case feed.TableGameEvents:
		return EventTypeEventAppended, true
	default:
		return "", false
	}
}
