package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayerRole defines the role of a joined participant. Only customer is
// exercised by the current flows; the others exist for scripted variants.
type PlayerRole string

const (
	PlayerRoleCustomer PlayerRole = "customer"
	PlayerRoleFTX      PlayerRole = "ftx"
	PlayerRoleAlameda  PlayerRole = "alameda"
	PlayerRoleObserver PlayerRole = "observer"
)

// Player represents a joined participant. Once HasWithdrawn is true it never
// reverts: WithdrawnAmount is frozen at the moment of withdrawal and the live
// balance is zeroed.
type Player struct {
	ID              uuid.UUID  `json:"id"`
	GameID          uuid.UUID  `json:"game_id"`
	Name            string     `json:"name"`
	Role            PlayerRole `json:"role"`
	Balance         float64    `json:"balance"`
	HasWithdrawn    bool       `json:"has_withdrawn"`
	WithdrawnAmount float64    `json:"withdrawn_amount"`
	CreatedAt       time.Time  `json:"created_at"`
}
