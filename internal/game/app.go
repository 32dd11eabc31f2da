package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bankrun/internal/clock"
	"github.com/mcdev12/bankrun/internal/models"
)

var (
	// ErrNotEnoughPlayers is returned when a start is requested before two
	// players have joined.
	ErrNotEnoughPlayers = errors.New("at least 2 players required to start")

	// ErrAlreadyStarted is returned when a start is requested for a game
	// that has left the waiting state.
	ErrAlreadyStarted = errors.New("game already started")

	// ErrNotPaused is returned when a resume is requested for a game that
	// is not paused.
	ErrNotPaused = errors.New("game is not paused")
)

// GameRepository defines what the app layer needs from the repository.
type GameRepository interface {
	CreateGame(ctx context.Context, id uuid.UUID, code string) (*models.Game, error)
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	GetGameByCode(ctx context.Context, code string) (*models.Game, error)
	MarkStarted(ctx context.Context, id uuid.UUID, startedAt time.Time) (*models.Game, error)
	MarkPaused(ctx context.Context, id uuid.UUID, pausedAt time.Time) (*models.Game, error)
	MarkResumed(ctx context.Context, id uuid.UUID, shiftedStart time.Time) (*models.Game, error)
	MarkEnded(ctx context.Context, id uuid.UUID, vaultDisplay float64) (*models.Game, bool, error)
}

// EventLog defines what the app layer needs from the game event log.
type EventLog interface {
	Append(ctx context.Context, gameID uuid.UUID, eventType models.EventType, message string) (*models.GameEvent, error)
}

// PlayerCounter reports how many players have joined a game.
type PlayerCounter interface {
	CountPlayersByGame(ctx context.Context, gameID uuid.UUID) (int, error)
}

// App handles game lifecycle commands: create, start, pause, resume, end.
type App struct {
	repo    GameRepository
	events  EventLog
	players PlayerCounter
	clock   clockwork.Clock
}

func NewApp(repo GameRepository, events EventLog, players PlayerCounter, clk clockwork.Clock) *App {
	return &App{
		repo:    repo,
		events:  events,
		players: players,
		clock:   clk,
	}
}

// CreateGame creates a new waiting game with a fresh join code.
func (a *App) CreateGame(ctx context.Context) (*models.Game, error) {
	code := GenerateJoinCode()

	game, err := a.repo.CreateGame(ctx, uuid.New(), code)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	log.Info().
		Str("game_id", game.ID.String()).
		Str("code", game.Code).
		Msg("game created")
	return game, nil
}

// GetGame retrieves a game by ID.
func (a *App) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	return a.repo.GetGame(ctx, id)
}

// GetGameByCode retrieves a game by join code.
func (a *App) GetGameByCode(ctx context.Context, code string) (*models.Game, error) {
	return a.repo.GetGameByCode(ctx, code)
}

// StartGame moves a waiting game to playing once at least two players have
// joined, stamps the start epoch and logs the game_start event.
func (a *App) StartGame(ctx context.Context, gameID uuid.UUID) (*models.Game, error) {
	game, err := a.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != models.GameStatusWaiting {
		return nil, ErrAlreadyStarted
	}

	count, err := a.players.CountPlayersByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to count players: %w", err)
	}
	if count < 2 {
		return nil, ErrNotEnoughPlayers
	}

	game, err = a.repo.MarkStarted(ctx, gameID, a.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	if _, err := a.events.Append(ctx, gameID, models.EventTypeGameStart, "Game has started!"); err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("failed to append game_start event")
	}

	log.Info().
		Str("game_id", gameID.String()).
		Int("players", count).
		Msg("game started")
	return game, nil
}

// PauseGame moves a playing game to paused, recording the pause instant and
// logging a pause event carrying the explanatory text for all viewers.
func (a *App) PauseGame(ctx context.Context, gameID uuid.UUID, text string) (*models.Game, error) {
	game, err := a.repo.MarkPaused(ctx, gameID, a.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to pause game: %w", err)
	}

	if _, err := a.events.Append(ctx, gameID, models.EventTypePause, text); err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("failed to append pause event")
	}

	log.Info().Str("game_id", gameID.String()).Msg("game paused")
	return game, nil
}

// ResumeGame resumes a paused game. The start epoch shifts forward by exactly
// the paused wall-clock duration, so elapsed seconds at resume equal elapsed
// seconds at pause.
func (a *App) ResumeGame(ctx context.Context, gameID uuid.UUID) (*models.Game, error) {
	game, err := a.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != models.GameStatusPaused || game.PausedAt == nil || game.StartedAt == nil {
		return nil, ErrNotPaused
	}

	shifted := clock.ShiftedStart(*game.StartedAt, *game.PausedAt, a.clock.Now())

	game, err = a.repo.MarkResumed(ctx, gameID, shifted)
	if err != nil {
		return nil, fmt.Errorf("failed to resume game: %w", err)
	}

	if _, err := a.events.Append(ctx, gameID, models.EventTypeResume, "Game resumed"); err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("failed to append resume event")
	}

	log.Info().
		Str("game_id", gameID.String()).
		Time("shifted_start", shifted).
		Msg("game resumed")
	return game, nil
}

// EndGame finalizes the game: the displayed vault freezes at its last value
// and the actual vault is revealed as zero. Repeated end triggers after the
// first are no-ops and append no second game_end event.
func (a *App) EndGame(ctx context.Context, gameID uuid.UUID, vaultDisplay float64) (*models.Game, error) {
	game, ended, err := a.repo.MarkEnded(ctx, gameID, vaultDisplay)
	if err != nil {
		return nil, fmt.Errorf("failed to end game: %w", err)
	}
	if !ended {
		return nil, nil
	}

	if _, err := a.events.Append(ctx, gameID, models.EventTypeGameEnd, "FTX has filed for bankruptcy."); err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("failed to append game_end event")
	}

	log.Info().
		Str("game_id", gameID.String()).
		Float64("vault_display", vaultDisplay).
		Msg("game ended")
	return game, nil
}
