package host

import (
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/bankrun/internal/clock"
	"github.com/mcdev12/bankrun/internal/models"
)

// View is the host's derived state. It is recomputed from scratch every tick
// from (now, store snapshot); nothing in it is carried forward as a mutable
// accumulator.
type View struct {
	GameID   uuid.UUID         `json:"game_id"`
	Code     string            `json:"code"`
	Status   models.GameStatus `json:"status"`
	Elapsed  int64             `json:"elapsed_sec"`
	Phase    clock.Phase       `json:"phase"`
	Vault    float64           `json:"vault_total"`
	Players  []PlayerStatus    `json:"players"`
	Joined   int               `json:"joined"`
	Escaped  int               `json:"escaped"`
	Active   int               `json:"active_depositors"`
	CanStart bool              `json:"can_start"`

	LastBroadcast string      `json:"last_broadcast,omitempty"`
	Journalist    *Alert      `json:"journalist,omitempty"`
	PauseInfo     *PauseInfo  `json:"pause_info,omitempty"`
	Settlement    *Settlement `json:"settlement,omitempty"`
}

// PlayerStatus is one row of the host's player board.
type PlayerStatus struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Balance      float64   `json:"balance"`
	HasWithdrawn bool      `json:"has_withdrawn"`
	Withdrawn    float64   `json:"withdrawn_amount"`
}

// Alert is a transient full-screen interrupt. The shake effect ends before
// the alert itself disappears.
type Alert struct {
	Message    string    `json:"message"`
	ShownUntil time.Time `json:"shown_until"`
	ShakeUntil time.Time `json:"shake_until"`
}

// PauseInfo is the story overlay shown while the game is paused.
type PauseInfo struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Settlement is the bankruptcy summary at game end. Total claims count every
// balance the display promised; actual cash is zero by design.
type Settlement struct {
	TotalClaims    float64 `json:"total_claims"`
	TotalWithdrawn float64 `json:"total_withdrawn"`
	ActualCash     float64 `json:"actual_cash"`
	WithdrawnCount int     `json:"withdrawn_count"`
	LostCount      int     `json:"lost_count"`
}

// settle computes the end-state figures from the final player rows: claims
// are the sum of remaining stored balances plus everything already withdrawn.
func settle(players []models.Player) *Settlement {
	s := &Settlement{}
	for _, p := range players {
		s.TotalClaims += p.Balance + p.WithdrawnAmount
		s.TotalWithdrawn += p.WithdrawnAmount
		if p.HasWithdrawn {
			s.WithdrawnCount++
		} else {
			s.LostCount++
		}
	}
	return s
}
