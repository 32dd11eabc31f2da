// Package participant runs the player side of a game: a per-player control
// loop deriving the player view each tick, plus the withdraw command with its
// single-flight guard.
package participant

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bankrun/internal/clock"
	"github.com/mcdev12/bankrun/internal/feed"
	"github.com/mcdev12/bankrun/internal/models"
	"github.com/mcdev12/bankrun/internal/script"
)

var (
	// ErrGameNotRunning is returned when a withdraw is requested while the
	// game is not in the playing state.
	ErrGameNotRunning = errors.New("game is not running")

	// ErrWithdrawInFlight is returned when a withdraw is requested while a
	// previous one has not completed yet.
	ErrWithdrawInFlight = errors.New("withdrawal already in progress")
)

// GameReader fetches the current game row.
type GameReader interface {
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
}

// PlayerService is what the controller needs from the player layer.
type PlayerService interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	Withdraw(ctx context.Context, playerID uuid.UUID, elapsedSec int64) (*models.Player, error)
}

// FeedSource hands out per-game change subscriptions.
type FeedSource interface {
	Subscribe(ctx context.Context, gameID uuid.UUID) (*feed.Subscription, error)
}

// Controller owns one player's loop. Refetch-on-notify plus tick-time
// derivation gives the same convergence story as the host: a missed envelope
// costs freshness, never correctness.
type Controller struct {
	gameID   uuid.UUID
	playerID uuid.UUID
	games    GameReader
	players  PlayerService
	source   FeedSource
	clock    clockwork.Clock

	mu   sync.RWMutex
	game *models.Game
	self *models.Player
	view View

	broadcast  *Notice
	journalist *Notice
	pauseText  string

	withdrawMu sync.Mutex
	inFlight   bool
}

func NewController(gameID, playerID uuid.UUID, games GameReader, players PlayerService, source FeedSource, clk clockwork.Clock) *Controller {
	return &Controller{
		gameID:   gameID,
		playerID: playerID,
		games:    games,
		players:  players,
		source:   source,
		clock:    clk,
	}
}

// Run drives the loop until the context is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.refetchGame(ctx); err != nil {
		return err
	}
	if err := c.refetchSelf(ctx); err != nil {
		return err
	}

	sub, err := c.source.Subscribe(ctx, c.gameID)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	ticker := c.clock.NewTicker(clock.TickInterval)
	defer ticker.Stop()

	c.tick()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("player_id", c.playerID.String()).Msg("participant controller stopping")
			return ctx.Err()
		case env := <-sub.C:
			c.handleEnvelope(ctx, env)
		case <-ticker.Chan():
			c.tick()
		}
	}
}

// Snapshot returns the latest derived view.
func (c *Controller) Snapshot() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Withdraw attempts the player's one-time withdrawal at the elapsed time of
// this instant. At most one withdraw runs at a time per controller; while one
// is in flight further requests are rejected instead of queued.
func (c *Controller) Withdraw(ctx context.Context) (*models.Player, error) {
	c.withdrawMu.Lock()
	if c.inFlight {
		c.withdrawMu.Unlock()
		return nil, ErrWithdrawInFlight
	}
	c.inFlight = true
	c.withdrawMu.Unlock()

	defer func() {
		c.withdrawMu.Lock()
		c.inFlight = false
		c.withdrawMu.Unlock()
		c.tick()
	}()

	c.mu.RLock()
	game := c.game
	c.mu.RUnlock()
	if game == nil {
		return nil, ErrGameNotRunning
	}

	elapsed, running := clock.ElapsedSeconds(game.Status, game.StartedAt, game.PausedAt, c.clock.Now())
	if !running {
		return nil, ErrGameNotRunning
	}

	p, err := c.players.Withdraw(ctx, c.playerID, elapsed)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.self = p
	c.mu.Unlock()
	return p, nil
}

func (c *Controller) handleEnvelope(ctx context.Context, env feed.Envelope) {
	switch env.Table {
	case feed.TableGames:
		if err := c.refetchGame(ctx); err != nil {
			log.Error().Err(err).Str("game_id", c.gameID.String()).Msg("failed to refetch game")
		}
	case feed.TablePlayers:
		if err := c.refetchSelf(ctx); err != nil {
			log.Error().Err(err).Str("player_id", c.playerID.String()).Msg("failed to refetch player")
		}
	case feed.TableGameEvents:
		c.applyEventRow(env.Row)
	}
	c.tick()
}

// applyEventRow turns persisted narrative events into transient display
// state. Every viewer renders the same persisted message; only the display
// deadline is local.
func (c *Controller) applyEventRow(row json.RawMessage) {
	var ev models.GameEvent
	if err := json.Unmarshal(row, &ev); err != nil {
		log.Error().Err(err).Msg("failed to decode game event row")
		return
	}

	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.EventType {
	case models.EventTypeFTXMessage:
		c.broadcast = &Notice{
			Message:    ev.Message,
			ShownUntil: now.Add(script.BroadcastDisplayDuration),
		}
	case models.EventTypeJournalist:
		c.journalist = &Notice{
			Message:    ev.Message,
			ShownUntil: now.Add(script.JournalistDisplayDuration),
			ShakeUntil: now.Add(script.JournalistShakeDuration),
		}
	case models.EventTypePause:
		c.pauseText = ev.Message
	case models.EventTypeResume:
		c.pauseText = ""
	}
}

func (c *Controller) refetchGame(ctx context.Context) error {
	game, err := c.games.GetGame(ctx, c.gameID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.game = game
	c.mu.Unlock()
	return nil
}

func (c *Controller) refetchSelf(ctx context.Context) error {
	p, err := c.players.GetPlayer(ctx, c.playerID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.self = p
	c.mu.Unlock()
	return nil
}

func (c *Controller) tick() {
	c.mu.RLock()
	game := c.game
	self := c.self
	c.mu.RUnlock()
	if game == nil || self == nil {
		return
	}

	now := c.clock.Now()

	c.withdrawMu.Lock()
	pending := c.inFlight
	c.withdrawMu.Unlock()

	c.mu.Lock()
	c.view = c.derive(game, self, pending, now)
	c.mu.Unlock()
}

func (c *Controller) derive(game *models.Game, self *models.Player, withdrawPending bool, now time.Time) View {
	elapsed := clock.DisplaySeconds(game.Status, game.StartedAt, game.PausedAt, now)

	v := View{
		GameID:          game.ID,
		PlayerID:        self.ID,
		PlayerName:      self.Name,
		Status:          game.Status,
		Elapsed:         elapsed,
		Phase:           clock.PhaseAt(elapsed),
		HasWithdrawn:    self.HasWithdrawn,
		WithdrawnAmount: self.WithdrawnAmount,
		WithdrawPending: withdrawPending,
		Frozen:          clock.Frozen(elapsed),
	}

	if !self.HasWithdrawn {
		switch game.Status {
		case models.GameStatusWaiting:
			v.Balance = clock.Principal
		case models.GameStatusEnded:
			v.Balance = 0
		default:
			v.Balance = clock.Balance(elapsed)
		}
	}

	v.CanWithdraw = game.Status == models.GameStatusPlaying && !self.HasWithdrawn && !withdrawPending

	switch game.Status {
	case models.GameStatusPaused:
		v.PauseText = c.pauseText
	case models.GameStatusEnded:
		if self.HasWithdrawn {
			v.Outcome = OutcomeEscaped
		} else {
			v.Outcome = OutcomeLost
		}
	}

	if game.Status == models.GameStatusPlaying || game.Status == models.GameStatusPaused {
		if c.broadcast != nil && now.Before(c.broadcast.ShownUntil) {
			v.Broadcast = c.broadcast
		}
		if c.journalist != nil && now.Before(c.journalist.ShownUntil) {
			v.Journalist = c.journalist
		}
	}

	return v
}
