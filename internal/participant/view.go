package participant

import (
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/bankrun/internal/clock"
	"github.com/mcdev12/bankrun/internal/models"
)

// View is what one player's screen renders. Like the host view it is
// re-derived from absolute timestamps every tick; the balance shown is a pure
// function of elapsed time, never an accumulator.
type View struct {
	GameID     uuid.UUID         `json:"game_id"`
	PlayerID   uuid.UUID         `json:"player_id"`
	PlayerName string            `json:"player_name"`
	Status     models.GameStatus `json:"status"`
	Elapsed    int64             `json:"elapsed_sec"`
	Phase      clock.Phase       `json:"phase"`

	Balance         float64 `json:"balance"`
	HasWithdrawn    bool    `json:"has_withdrawn"`
	WithdrawnAmount float64 `json:"withdrawn_amount"`
	CanWithdraw     bool    `json:"can_withdraw"`
	WithdrawPending bool    `json:"withdraw_pending"`
	Frozen          bool    `json:"frozen"`

	Broadcast  *Notice `json:"broadcast,omitempty"`
	Journalist *Notice `json:"journalist,omitempty"`
	PauseText  string  `json:"pause_text,omitempty"`
	Outcome    Outcome `json:"outcome,omitempty"`
}

// Notice is a transient on-screen message with its display deadline. The
// shake deadline is only set for journalist interrupts.
type Notice struct {
	Message    string    `json:"message"`
	ShownUntil time.Time `json:"shown_until"`
	ShakeUntil time.Time `json:"shake_until,omitempty"`
}

// Outcome is the player's final result once the game has ended.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeEscaped Outcome = "escaped"
	OutcomeLost    Outcome = "lost"
)
