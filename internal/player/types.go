package player

import (
	"github.com/google/uuid"

	"github.com/mcdev12/bankrun/internal/models"
)

// CreatePlayerRequest represents a request to create a new player row.
type CreatePlayerRequest struct {
	ID      uuid.UUID         `json:"id"`
	GameID  uuid.UUID         `json:"game_id"`
	Name    string            `json:"name"`
	Role    models.PlayerRole `json:"role"`
	Balance float64           `json:"balance"`
}

// JoinGameRequest represents a join attempt by code and display name.
type JoinGameRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
