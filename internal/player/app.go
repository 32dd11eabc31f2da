package player

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bankrun/internal/clock"
	"github.com/mcdev12/bankrun/internal/models"
)

var (
	// ErrAlreadyWithdrawn is returned when a player attempts a second
	// withdrawal. The withdrawn state is terminal.
	ErrAlreadyWithdrawn = errors.New("player has already withdrawn")

	// ErrWithdrawalsFrozen is the designed-in rejection past the freeze
	// threshold. It is not an infrastructure failure and must not be
	// retried.
	ErrWithdrawalsFrozen = errors.New("withdrawals are frozen")

	// ErrInvalidJoin is returned when a join request is missing the game
	// code or display name.
	ErrInvalidJoin = errors.New("game code and name are required")
)

// PlayersRepository defines what the app layer needs from the repository.
type PlayersRepository interface {
	CreatePlayer(ctx context.Context, req CreatePlayerRequest) (*models.Player, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	ListPlayersByGame(ctx context.Context, gameID uuid.UUID) ([]models.Player, error)
	CountPlayersByGame(ctx context.Context, gameID uuid.UUID) (int, error)
	Withdraw(ctx context.Context, id uuid.UUID, amount float64) (*models.Player, bool, error)
}

// GameFinder resolves a join code to a game.
type GameFinder interface {
	GetGameByCode(ctx context.Context, code string) (*models.Game, error)
}

// App handles player joins and the withdraw state machine.
type App struct {
	repo  PlayersRepository
	games GameFinder
	clock clockwork.Clock
}

func NewApp(repo PlayersRepository, games GameFinder, clk clockwork.Clock) *App {
	return &App{
		repo:  repo,
		games: games,
		clock: clk,
	}
}

// JoinGame creates a player row in the game matching the join code. New
// players always start as customers with the fixed principal balance.
func (a *App) JoinGame(ctx context.Context, req JoinGameRequest) (*models.Player, *models.Game, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	name := strings.TrimSpace(req.Name)
	if code == "" || name == "" {
		return nil, nil, ErrInvalidJoin
	}

	game, err := a.games.GetGameByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	p, err := a.repo.CreatePlayer(ctx, CreatePlayerRequest{
		ID:      uuid.New(),
		GameID:  game.ID,
		Name:    name,
		Role:    models.PlayerRoleCustomer,
		Balance: clock.Principal,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to join game: %w", err)
	}

	log.Info().
		Str("game_id", game.ID.String()).
		Str("player_id", p.ID.String()).
		Str("name", p.Name).
		Msg("player joined")
	return p, game, nil
}

// GetPlayer retrieves a player by ID.
func (a *App) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	return a.repo.GetPlayer(ctx, id)
}

// ListPlayersByGame returns all players of a game in join order.
func (a *App) ListPlayersByGame(ctx context.Context, gameID uuid.UUID) ([]models.Player, error) {
	return a.repo.ListPlayersByGame(ctx, gameID)
}

// CountPlayersByGame returns the number of joined players.
func (a *App) CountPlayersByGame(ctx context.Context, gameID uuid.UUID) (int, error) {
	return a.repo.CountPlayersByGame(ctx, gameID)
}

// Withdraw attempts the one-time Active→Withdrawn transition at the given
// elapsed seconds.
//
// Past the freeze threshold the request deliberately blocks for the fixed
// fail delay, simulating network congestion, and then fails without ever
// consulting the store. There is no race window: eligibility is evaluated
// here, so a request issued just before the threshold but evaluated after it
// fails like any other.
func (a *App) Withdraw(ctx context.Context, playerID uuid.UUID, elapsedSec int64) (*models.Player, error) {
	p, err := a.repo.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if p.HasWithdrawn {
		return nil, ErrAlreadyWithdrawn
	}

	if clock.Frozen(elapsedSec) {
		select {
		case <-a.clock.After(clock.WithdrawFailDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		log.Info().
			Str("player_id", playerID.String()).
			Int64("elapsed_sec", elapsedSec).
			Msg("withdraw rejected after freeze")
		return nil, ErrWithdrawalsFrozen
	}

	amount := clock.Balance(elapsedSec)

	p, ok, err := a.repo.Withdraw(ctx, playerID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to withdraw: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyWithdrawn
	}

	log.Info().
		Str("player_id", playerID.String()).
		Float64("amount", amount).
		Int64("elapsed_sec", elapsedSec).
		Msg("player withdrew")
	return p, nil
}
