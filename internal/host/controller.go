// Package host runs the projector-screen side of a game: a per-game control
// loop that derives the host view every tick and drives the scripted
// narrative (reassurance broadcasts, journalist interrupts, story pauses and
// the final collapse).
package host

import (
	"context"
	"encoding/json"
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

// GameService is what the controller needs from the game lifecycle layer.
type GameService interface {
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	PauseGame(ctx context.Context, id uuid.UUID, text string) (*models.Game, error)
	EndGame(ctx context.Context, id uuid.UUID, vaultDisplay float64) (*models.Game, error)
}

// PlayerLister reports the full roster of a game.
type PlayerLister interface {
	ListPlayersByGame(ctx context.Context, gameID uuid.UUID) ([]models.Player, error)
}

// EventLog appends narrative events to the game's event log.
type EventLog interface {
	Append(ctx context.Context, gameID uuid.UUID, eventType models.EventType, message string) (*models.GameEvent, error)
}

// FeedSource hands out per-game change subscriptions.
type FeedSource interface {
	Subscribe(ctx context.Context, gameID uuid.UUID) (*feed.Subscription, error)
}

// Controller owns one game's host loop. It holds the latest store snapshot,
// refetches when the feed says a row changed, and re-derives the view from
// absolute timestamps every tick. The scripted engine only ever consumes
// derived elapsed seconds, so a controller restart mid-game picks the
// narrative back up from the store with no drift.
type Controller struct {
	gameID  uuid.UUID
	games   GameService
	players PlayerLister
	events  EventLog
	source  FeedSource
	engine  *script.Engine
	clock   clockwork.Clock

	mu     sync.RWMutex
	game   *models.Game
	roster []models.Player
	view   View

	nextBroadcastAt time.Time
	lastBroadcast   string
	journalist      *Alert
	pauseInfo       *PauseInfo
	endTriggered    bool
}

func NewController(gameID uuid.UUID, games GameService, players PlayerLister, events EventLog, source FeedSource, engine *script.Engine, clk clockwork.Clock) *Controller {
	return &Controller{
		gameID:  gameID,
		games:   games,
		players: players,
		events:  events,
		source:  source,
		engine:  engine,
		clock:   clk,
	}
}

// Run drives the control loop until the context is cancelled. It returns the
// error of the initial snapshot load; after that, transient failures are
// logged and retried on the next tick or envelope.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.refetchGame(ctx); err != nil {
		return err
	}
	if err := c.refetchRoster(ctx); err != nil {
		return err
	}

	sub, err := c.source.Subscribe(ctx, c.gameID)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	ticker := c.clock.NewTicker(clock.TickInterval)
	defer ticker.Stop()

	c.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("game_id", c.gameID.String()).Msg("host controller stopping")
			return ctx.Err()
		case env := <-sub.C:
			c.handleEnvelope(ctx, env)
		case <-ticker.Chan():
			c.tick(ctx)
		}
	}
}

// Snapshot returns the latest derived view.
func (c *Controller) Snapshot() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

func (c *Controller) handleEnvelope(ctx context.Context, env feed.Envelope) {
	switch env.Table {
	case feed.TableGames:
		if err := c.refetchGame(ctx); err != nil {
			log.Error().Err(err).Str("game_id", c.gameID.String()).Msg("failed to refetch game")
		}
	case feed.TablePlayers:
		if err := c.refetchRoster(ctx); err != nil {
			log.Error().Err(err).Str("game_id", c.gameID.String()).Msg("failed to refetch players")
		}
	case feed.TableGameEvents:
		c.applyEventRow(env.Row)
	}
	c.tick(ctx)
}

// applyEventRow picks the narrative events out of the change feed so a host
// restarted mid-game still shows the latest broadcast. Duplicate deliveries
// just overwrite with the same value.
func (c *Controller) applyEventRow(row json.RawMessage) {
	var ev models.GameEvent
	if err := json.Unmarshal(row, &ev); err != nil {
		log.Error().Err(err).Msg("failed to decode game event row")
		return
	}
	if ev.EventType == models.EventTypeFTXMessage {
		c.lastBroadcast = ev.Message
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

func (c *Controller) refetchRoster(ctx context.Context) error {
	roster, err := c.players.ListPlayersByGame(ctx, c.gameID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.roster = roster
	c.mu.Unlock()
	return nil
}

// tick re-derives the view and fires any scripted actions that are due.
func (c *Controller) tick(ctx context.Context) {
	c.mu.RLock()
	game := c.game
	roster := c.roster
	c.mu.RUnlock()
	if game == nil {
		return
	}

	now := c.clock.Now()
	elapsed := clock.DisplaySeconds(game.Status, game.StartedAt, game.PausedAt, now)
	_, running := clock.ElapsedSeconds(game.Status, game.StartedAt, game.PausedAt, now)

	if running {
		c.runScript(ctx, game, roster, elapsed, now)
	} else {
		// Broadcast cadence restarts fresh after a pause or before a start.
		c.nextBroadcastAt = time.Time{}
	}

	c.mu.Lock()
	c.view = c.derive(game, roster, elapsed, now)
	c.mu.Unlock()
}

func (c *Controller) runScript(ctx context.Context, game *models.Game, roster []models.Player, elapsed int64, now time.Time) {
	if c.nextBroadcastAt.IsZero() {
		c.nextBroadcastAt = now.Add(clock.BroadcastInterval)
	}
	if !now.Before(c.nextBroadcastAt) && !clock.Frozen(elapsed) {
		msg := c.engine.NextBroadcast()
		if msg != "" {
			if _, err := c.events.Append(ctx, game.ID, models.EventTypeFTXMessage, msg); err != nil {
				log.Error().Err(err).Str("game_id", game.ID.String()).Msg("failed to append broadcast")
			} else {
				c.lastBroadcast = msg
			}
		}
		c.nextBroadcastAt = now.Add(clock.BroadcastInterval)
	}

	for _, action := range c.engine.Evaluate(elapsed, game.Status == models.GameStatusPaused) {
		switch action.Kind {
		case script.ActionJournalist:
			if _, err := c.events.Append(ctx, game.ID, models.EventTypeJournalist, action.Message); err != nil {
				log.Error().Err(err).Str("game_id", game.ID.String()).Msg("failed to append journalist event")
			}
			c.journalist = &Alert{
				Message:    action.Message,
				ShownUntil: now.Add(script.JournalistDisplayDuration),
				ShakeUntil: now.Add(script.JournalistShakeDuration),
			}
		case script.ActionStoryPause:
			if _, err := c.games.PauseGame(ctx, game.ID, action.Message); err != nil {
				log.Error().Err(err).Str("game_id", game.ID.String()).Msg("failed to pause for story beat")
				continue
			}
			c.pauseInfo = &PauseInfo{Title: action.Title, Text: action.Message}
		}
	}

	if clock.GameOver(elapsed) && !c.endTriggered {
		vault := clock.VaultTotal(elapsed, activeDepositors(roster))
		if _, err := c.games.EndGame(ctx, game.ID, vault); err != nil {
			log.Error().Err(err).Str("game_id", game.ID.String()).Msg("failed to end game")
		} else {
			c.endTriggered = true
		}
	}
}

func (c *Controller) derive(game *models.Game, roster []models.Player, elapsed int64, now time.Time) View {
	active := activeDepositors(roster)

	v := View{
		GameID:   game.ID,
		Code:     game.Code,
		Status:   game.Status,
		Elapsed:  elapsed,
		Phase:    clock.PhaseAt(elapsed),
		Vault:    clock.VaultTotal(elapsed, active),
		Joined:   len(roster),
		Escaped:  len(roster) - active,
		Active:   active,
		CanStart: game.Status == models.GameStatusWaiting && len(roster) >= 2,
	}

	v.Players = make([]PlayerStatus, 0, len(roster))
	for _, p := range roster {
		v.Players = append(v.Players, PlayerStatus{
			ID:           p.ID,
			Name:         p.Name,
			Balance:      p.Balance,
			HasWithdrawn: p.HasWithdrawn,
			Withdrawn:    p.WithdrawnAmount,
		})
	}

	switch game.Status {
	case models.GameStatusEnded:
		v.Vault = game.TotalVaultDisplay
		v.Settlement = settle(roster)
	case models.GameStatusPaused:
		v.PauseInfo = c.pauseInfo
	}

	if game.Status == models.GameStatusPlaying || game.Status == models.GameStatusPaused {
		v.LastBroadcast = c.lastBroadcast
		if c.journalist != nil && now.Before(c.journalist.ShownUntil) {
			v.Journalist = c.journalist
		}
	}

	return v
}

func activeDepositors(roster []models.Player) int {
	active := 0
	for _, p := range roster {
		if !p.HasWithdrawn {
			active++
		}
	}
	return active
}
