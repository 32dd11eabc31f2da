package participant

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/bankrun/internal/clock"
	"github.com/mcdev12/bankrun/internal/feed"
	"github.com/mcdev12/bankrun/internal/models"
	"github.com/mcdev12/bankrun/internal/player"
	"github.com/mcdev12/bankrun/internal/script"
)

type fakeGameReader struct {
	game *models.Game
}

func (f *fakeGameReader) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	g := *f.game
	return &g, nil
}

type fakePlayerService struct {
	self     *models.Player
	clk      clockwork.Clock
	withdraw chan struct{} // closed when Withdraw is entered, nil to skip
	release  chan struct{} // Withdraw blocks until closed, nil to skip
	calls    int
}

func (f *fakePlayerService) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	p := *f.self
	return &p, nil
}

func (f *fakePlayerService) Withdraw(ctx context.Context, playerID uuid.UUID, elapsedSec int64) (*models.Player, error) {
	f.calls++
	if f.withdraw != nil {
		close(f.withdraw)
	}
	if f.release != nil {
		<-f.release
	}
	if f.self.HasWithdrawn {
		return nil, player.ErrAlreadyWithdrawn
	}
	if clock.Frozen(elapsedSec) {
		return nil, player.ErrWithdrawalsFrozen
	}
	f.self.HasWithdrawn = true
	f.self.WithdrawnAmount = clock.Balance(elapsedSec)
	f.self.Balance = 0
	p := *f.self
	return &p, nil
}

type fakeSource struct {
	ch chan feed.Envelope
}

func (f *fakeSource) Subscribe(ctx context.Context, gameID uuid.UUID) (*feed.Subscription, error) {
	return &feed.Subscription{C: f.ch}, nil
}

type fixture struct {
	ctrl    *Controller
	games   *fakeGameReader
	players *fakePlayerService
	clk     *clockwork.FakeClock
}

func newFixture(t *testing.T, game *models.Game, self *models.Player, clk *clockwork.FakeClock) *fixture {
	t.Helper()
	games := &fakeGameReader{game: game}
	players := &fakePlayerService{self: self, clk: clk}
	ctrl := NewController(game.ID, self.ID, games, players, &fakeSource{ch: make(chan feed.Envelope, 8)}, clk)

	ctx := context.Background()
	require.NoError(t, ctrl.refetchGame(ctx))
	require.NoError(t, ctrl.refetchSelf(ctx))

	return &fixture{ctrl: ctrl, games: games, players: players, clk: clk}
}

func playingGame(startedAgo time.Duration, now time.Time) *models.Game {
	started := now.Add(-startedAgo)
	return &models.Game{
		ID:        uuid.New(),
		Code:      "ABCDEF",
		Status:    models.GameStatusPlaying,
		StartedAt: &started,
	}
}

func activePlayer(gameID uuid.UUID) *models.Player {
	return &models.Player{
		ID:      uuid.New(),
		GameID:  gameID,
		Name:    "alice",
		Role:    models.PlayerRoleCustomer,
		Balance: 100,
	}
}

func TestViewDerivesBalanceFromElapsed(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	game := playingGame(50*time.Second, clk.Now())
	f := newFixture(t, game, activePlayer(game.ID), clk)

	f.ctrl.tick()
	view := f.ctrl.Snapshot()
	require.Equal(t, int64(50), view.Elapsed)
	require.InDelta(t, 150.0, view.Balance, 1e-9)
	require.Equal(t, clock.PhaseNormal, view.Phase)
	require.True(t, view.CanWithdraw)
	require.False(t, view.Frozen)

	clk.Advance(190 * time.Second)
	f.ctrl.tick()
	view = f.ctrl.Snapshot()
	require.Equal(t, int64(240), view.Elapsed)
	require.Equal(t, clock.PhaseCrisis, view.Phase)
	require.True(t, view.Frozen)
}

func TestWithdrawUpdatesSelf(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	game := playingGame(100*time.Second, clk.Now())
	f := newFixture(t, game, activePlayer(game.ID), clk)

	p, err := f.ctrl.Withdraw(context.Background())
	require.NoError(t, err)
	require.True(t, p.HasWithdrawn)
	require.InDelta(t, 200.0, p.WithdrawnAmount, 1e-9)

	view := f.ctrl.Snapshot()
	require.True(t, view.HasWithdrawn)
	require.Equal(t, 0.0, view.Balance)
	require.False(t, view.CanWithdraw)
}

func TestWithdrawRejectedWhileNotPlaying(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	game := &models.Game{ID: uuid.New(), Code: "ABCDEF", Status: models.GameStatusWaiting}
	f := newFixture(t, game, activePlayer(game.ID), clk)

	_, err := f.ctrl.Withdraw(context.Background())
	require.ErrorIs(t, err, ErrGameNotRunning)
	require.Zero(t, f.players.calls, "store must not be consulted")
}

func TestWithdrawSingleFlight(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	game := playingGame(100*time.Second, clk.Now())
	f := newFixture(t, game, activePlayer(game.ID), clk)
	f.players.withdraw = make(chan struct{})
	f.players.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Withdraw(context.Background())
		done <- err
	}()

	<-f.players.withdraw
	_, err := f.ctrl.Withdraw(context.Background())
	require.ErrorIs(t, err, ErrWithdrawInFlight)
	require.Equal(t, 1, f.players.calls)

	close(f.players.release)
	require.NoError(t, <-done)
}

func TestBroadcastNoticeExpires(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	game := playingGame(40*time.Second, clk.Now())
	f := newFixture(t, game, activePlayer(game.ID), clk)
	ctx := context.Background()

	row, err := json.Marshal(models.GameEvent{
		ID:        uuid.New(),
		GameID:    game.ID,
		EventType: models.EventTypeFTXMessage,
		Message:   "Yield is up! Your funds are SAFU!",
	})
	require.NoError(t, err)

	f.ctrl.handleEnvelope(ctx, feed.Envelope{Table: feed.TableGameEvents, Row: row})
	view := f.ctrl.Snapshot()
	require.NotNil(t, view.Broadcast)
	require.Equal(t, "Yield is up! Your funds are SAFU!", view.Broadcast.Message)

	clk.Advance(script.BroadcastDisplayDuration)
	f.ctrl.tick()
	require.Nil(t, f.ctrl.Snapshot().Broadcast)
}

func TestPauseOverlayFromEvents(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	game := playingGame(60*time.Second, clk.Now())
	f := newFixture(t, game, activePlayer(game.ID), clk)
	ctx := context.Background()

	pausedAt := clk.Now()
	f.games.game.Status = models.GameStatusPaused
	f.games.game.PausedAt = &pausedAt

	row, err := json.Marshal(models.GameEvent{
		ID:        uuid.New(),
		GameID:    game.ID,
		EventType: models.EventTypePause,
		Message:   "Behind the scenes, FTX secretly funneled customer deposits to Alameda Research.",
	})
	require.NoError(t, err)

	f.ctrl.handleEnvelope(ctx, feed.Envelope{Table: feed.TableGames})
	f.ctrl.handleEnvelope(ctx, feed.Envelope{Table: feed.TableGameEvents, Row: row})

	view := f.ctrl.Snapshot()
	require.Equal(t, models.GameStatusPaused, view.Status)
	require.Equal(t, int64(60), view.Elapsed)
	require.Contains(t, view.PauseText, "Alameda Research")
	require.False(t, view.CanWithdraw, "no withdrawals while paused")

	// Wall time during the pause must not leak into the display.
	clk.Advance(45 * time.Second)
	f.ctrl.tick()
	require.Equal(t, int64(60), f.ctrl.Snapshot().Elapsed)

	resumeRow, err := json.Marshal(models.GameEvent{
		ID:        uuid.New(),
		GameID:    game.ID,
		EventType: models.EventTypeResume,
		Message:   "Game resumed",
	})
	require.NoError(t, err)

	shifted := clock.ShiftedStart(*game.StartedAt, pausedAt, clk.Now())
	f.games.game.Status = models.GameStatusPlaying
	f.games.game.StartedAt = &shifted
	f.games.game.PausedAt = nil

	f.ctrl.handleEnvelope(ctx, feed.Envelope{Table: feed.TableGames})
	f.ctrl.handleEnvelope(ctx, feed.Envelope{Table: feed.TableGameEvents, Row: resumeRow})

	view = f.ctrl.Snapshot()
	require.Equal(t, models.GameStatusPlaying, view.Status)
	require.Equal(t, int64(60), view.Elapsed, "elapsed picks up where the pause left off")
	require.Empty(t, view.PauseText)
}

func TestOutcomeAtGameEnd(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	game := playingGame(301*time.Second, clk.Now())
	self := activePlayer(game.ID)
	f := newFixture(t, game, self, clk)
	ctx := context.Background()

	f.games.game.Status = models.GameStatusEnded
	f.ctrl.handleEnvelope(ctx, feed.Envelope{Table: feed.TableGames})

	view := f.ctrl.Snapshot()
	require.Equal(t, OutcomeLost, view.Outcome)
	require.Equal(t, 0.0, view.Balance)

	f.players.self.HasWithdrawn = true
	f.players.self.WithdrawnAmount = 180
	f.ctrl.handleEnvelope(ctx, feed.Envelope{Table: feed.TablePlayers})

	view = f.ctrl.Snapshot()
	require.Equal(t, OutcomeEscaped, view.Outcome)
	require.InDelta(t, 180.0, view.WithdrawnAmount, 1e-9)
}
