package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus defines the lifecycle state of a game session.
type GameStatus string

const (
	GameStatusWaiting GameStatus = "waiting"
	GameStatusPlaying GameStatus = "playing"
	GameStatusPaused  GameStatus = "paused"
	GameStatusEnded   GameStatus = "ended"
)

// Game represents one play session. StartedAt is set exactly once at the
// waiting→playing transition and only ever moves forward by the resume-side
// epoch shift. PausedAt is non-nil iff Status is paused.
type Game struct {
	ID                uuid.UUID  `json:"id"`
	Code              string     `json:"code"`
	Status            GameStatus `json:"status"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	PausedAt          *time.Time `json:"paused_at,omitempty"`
	TotalVaultDisplay float64    `json:"total_vault_display"`
	ActualVault       float64    `json:"actual_vault"`
	CreatedAt         time.Time  `json:"created_at"`
}
