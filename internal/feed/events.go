// Package feed is the change-notification transport: row changes in the state
// store are pushed to every active subscriber of a game. Delivery is
// at-least-once with no ordering guarantee; viewers stay consistent anyway
// because they re-derive their state from current timestamps every tick
// instead of accumulating a message sequence.
package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is the kind of row change.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Table names covered by the feed.
const (
	TableGames      = "games"
	TablePlayers    = "players"
	TableGameEvents = "game_events"
)

// Envelope is one row-change notification. Row carries the changed row as
// emitted by the database trigger.
type Envelope struct {
	Table     string          `json:"table"`
	Kind      Kind            `json:"kind"`
	GameID    uuid.UUID       `json:"game_id"`
	Row       json.RawMessage `json:"row"`
	Timestamp time.Time       `json:"timestamp"`
}

// StreamName is the JetStream stream carrying all feed envelopes.
const StreamName = "BANKRUN_FEED"

const subjectPrefix = "bankrun.feed"

// Subject returns the per-game, per-table subject for an envelope.
func (e Envelope) Subject() string {
	return fmt.Sprintf("%s.%s.%s.%s", subjectPrefix, e.GameID, e.Table, e.Kind)
}

// GameSubjectFilter returns the subject filter matching every change of one
// game.
func GameSubjectFilter(gameID uuid.UUID) string {
	return fmt.Sprintf("%s.%s.>", subjectPrefix, gameID)
}

// AllSubjects is the stream-wide subject wildcard.
const AllSubjects = subjectPrefix + ".>"
