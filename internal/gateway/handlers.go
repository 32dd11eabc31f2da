package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bankrun/internal/clock"
	"github.com/mcdev12/bankrun/internal/game"
	"github.com/mcdev12/bankrun/internal/gameevent"
	"github.com/mcdev12/bankrun/internal/models"
	"github.com/mcdev12/bankrun/internal/player"
)

// GameCommands is what the API handlers need from the game layer.
type GameCommands interface {
	CreateGame(ctx context.Context) (*models.Game, error)
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	GetGameByCode(ctx context.Context, code string) (*models.Game, error)
	StartGame(ctx context.Context, gameID uuid.UUID) (*models.Game, error)
	ResumeGame(ctx context.Context, gameID uuid.UUID) (*models.Game, error)
}

// PlayerCommands is what the API handlers need from the player layer.
type PlayerCommands interface {
	JoinGame(ctx context.Context, req player.JoinGameRequest) (*models.Player, *models.Game, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	ListPlayersByGame(ctx context.Context, gameID uuid.UUID) ([]models.Player, error)
	Withdraw(ctx context.Context, playerID uuid.UUID, elapsedSec int64) (*models.Player, error)
}

// EventLister reads the game event log.
type EventLister interface {
	ListByGame(ctx context.Context, gameID uuid.UUID) ([]models.GameEvent, error)
}

// APIHandler exposes game and player commands over plain HTTP+JSON. Commands
// mutate the store; reads return snapshots. All live updating happens over
// the WebSocket feed, so none of these endpoints block on game time except
// withdraw, which deliberately hangs past the freeze threshold.
type APIHandler struct {
	games   GameCommands
	players PlayerCommands
	events  EventLister
	clock   clockwork.Clock
}

func NewAPIHandler(games GameCommands, players PlayerCommands, events EventLister, clk clockwork.Clock) *APIHandler {
	return &APIHandler{
		games:   games,
		players: players,
		events:  events,
		clock:   clk,
	}
}

// GameStateResponse is the full snapshot of a game for a freshly connected
// or reconnecting viewer.
type GameStateResponse struct {
	Game       *models.Game       `json:"game"`
	Players    []models.Player    `json:"players"`
	Events     []models.GameEvent `json:"events"`
	ElapsedSec int64              `json:"elapsed_sec"`
}

// JoinGameResponse carries the new player and the game they joined.
type JoinGameResponse struct {
	Player *models.Player `json:"player"`
	Game   *models.Game   `json:"game"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HandleCreateGame handles POST /api/games.
func (h *APIHandler) HandleCreateGame(w http.ResponseWriter, r *http.Request) {
	g, err := h.games.CreateGame(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// HandleJoinGame handles POST /api/games/join.
func (h *APIHandler) HandleJoinGame(w http.ResponseWriter, r *http.Request) {
	var req player.JoinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	p, g, err := h.players.JoinGame(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, JoinGameResponse{Player: p, Game: g})
}

// HandleStartGame handles POST /api/games/{id}/start.
func (h *APIHandler) HandleStartGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := parseID(w, r.PathValue("id"))
	if !ok {
		return
	}

	g, err := h.games.StartGame(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleResumeGame handles POST /api/games/{id}/resume.
func (h *APIHandler) HandleResumeGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := parseID(w, r.PathValue("id"))
	if !ok {
		return
	}

	g, err := h.games.ResumeGame(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleGetGameState handles GET /api/games/{id}/state. The elapsed figure in
// the response is advisory; clients re-derive it locally every tick from the
// game's timestamps.
func (h *APIHandler) HandleGetGameState(w http.ResponseWriter, r *http.Request) {
	gameID, ok := parseID(w, r.PathValue("id"))
	if !ok {
		return
	}

	g, err := h.games.GetGame(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	players, err := h.players.ListPlayersByGame(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	events, err := h.events.ListByGame(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, GameStateResponse{
		Game:       g,
		Players:    players,
		Events:     events,
		ElapsedSec: clock.DisplaySeconds(g.Status, g.StartedAt, g.PausedAt, h.clock.Now()),
	})
}

// HandleGetGameByCode handles GET /api/games/code/{code}.
func (h *APIHandler) HandleGetGameByCode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PathValue("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "game code is required")
		return
	}

	g, err := h.games.GetGameByCode(r.Context(), code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleGetPlayer handles GET /api/players/{id}.
func (h *APIHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, ok := parseID(w, r.PathValue("id"))
	if !ok {
		return
	}

	p, err := h.players.GetPlayer(r.Context(), playerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleWithdraw handles POST /api/players/{id}/withdraw. Eligibility is
// evaluated server-side at this instant; past the freeze threshold the
// request blocks for the fail delay before the rejection comes back.
func (h *APIHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	playerID, ok := parseID(w, r.PathValue("id"))
	if !ok {
		return
	}

	p, err := h.players.GetPlayer(r.Context(), playerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	g, err := h.games.GetGame(r.Context(), p.GameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	elapsed, running := clock.ElapsedSeconds(g.Status, g.StartedAt, g.PausedAt, h.clock.Now())
	if !running {
		writeError(w, http.StatusConflict, "game_not_running", "withdrawals are only possible while the game is running")
		return
	}

	p, err = h.players.Withdraw(r.Context(), playerID, elapsed)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RegisterAPIRoutes registers the command and state routes.
func (h *APIHandler) RegisterAPIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/games", h.HandleCreateGame)
	mux.HandleFunc("POST /api/games/join", h.HandleJoinGame)
	mux.HandleFunc("POST /api/games/{id}/start", h.HandleStartGame)
	mux.HandleFunc("POST /api/games/{id}/resume", h.HandleResumeGame)
	mux.HandleFunc("GET /api/games/{id}/state", h.HandleGetGameState)
	mux.HandleFunc("GET /api/games/code/{code}", h.HandleGetGameByCode)
	mux.HandleFunc("GET /api/players/{id}", h.HandleGetPlayer)
	mux.HandleFunc("POST /api/players/{id}/withdraw", h.HandleWithdraw)
}

func parseID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}

// writeDomainError maps domain errors onto HTTP statuses. The scripted
// freeze rejection gets its own code so clients can tell it apart from
// infrastructure failures and know not to retry.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNotFound), errors.Is(err, player.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, game.ErrAlreadyStarted):
		writeError(w, http.StatusConflict, "already_started", err.Error())
	case errors.Is(err, game.ErrNotEnoughPlayers):
		writeError(w, http.StatusConflict, "not_enough_players", err.Error())
	case errors.Is(err, game.ErrNotPaused):
		writeError(w, http.StatusConflict, "not_paused", err.Error())
	case errors.Is(err, player.ErrAlreadyWithdrawn):
		writeError(w, http.StatusConflict, "already_withdrawn", err.Error())
	case errors.Is(err, player.ErrWithdrawalsFrozen):
		writeError(w, http.StatusConflict, "withdrawals_frozen", err.Error())
	case errors.Is(err, player.ErrInvalidJoin), errors.Is(err, gameevent.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
