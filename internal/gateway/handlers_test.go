package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/bankrun/internal/game"
	"github.com/mcdev12/bankrun/internal/models"
	"github.com/mcdev12/bankrun/internal/player"
)

type fakeGames struct {
	games map[uuid.UUID]*models.Game
}

func (f *fakeGames) CreateGame(ctx context.Context) (*models.Game, error) {
	g := &models.Game{ID: uuid.New(), Code: "ABC234", Status: models.GameStatusWaiting}
	f.games[g.ID] = g
	return g, nil
}

func (f *fakeGames) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	g, ok := f.games[id]
	if !ok {
		return nil, game.ErrNotFound
	}
	out := *g
	return &out, nil
}

func (f *fakeGames) GetGameByCode(ctx context.Context, code string) (*models.Game, error) {
	for _, g := range f.games {
		if g.Code == code {
			out := *g
			return &out, nil
		}
	}
	return nil, game.ErrNotFound
}

func (f *fakeGames) StartGame(ctx context.Context, gameID uuid.UUID) (*models.Game, error) {
	return nil, game.ErrNotEnoughPlayers
}

func (f *fakeGames) ResumeGame(ctx context.Context, gameID uuid.UUID) (*models.Game, error) {
	return nil, game.ErrNotPaused
}

type fakePlayers struct {
	players       map[uuid.UUID]*models.Player
	games         *fakeGames
	withdrawCalls []int64
	withdrawErr   error
}

func (f *fakePlayers) JoinGame(ctx context.Context, req player.JoinGameRequest) (*models.Player, *models.Game, error) {
	if req.Code == "" || req.Name == "" {
		return nil, nil, player.ErrInvalidJoin
	}
	g, err := f.games.GetGameByCode(ctx, req.Code)
	if err != nil {
		return nil, nil, err
	}
	p := &models.Player{ID: uuid.New(), GameID: g.ID, Name: req.Name, Role: models.PlayerRoleCustomer, Balance: 100}
	f.players[p.ID] = p
	return p, g, nil
}

func (f *fakePlayers) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	p, ok := f.players[id]
	if !ok {
		return nil, player.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (f *fakePlayers) ListPlayersByGame(ctx context.Context, gameID uuid.UUID) ([]models.Player, error) {
	var out []models.Player
	for _, p := range f.players {
		if p.GameID == gameID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePlayers) Withdraw(ctx context.Context, playerID uuid.UUID, elapsedSec int64) (*models.Player, error) {
	f.withdrawCalls = append(f.withdrawCalls, elapsedSec)
	if f.withdrawErr != nil {
		return nil, f.withdrawErr
	}
	p := f.players[playerID]
	p.HasWithdrawn = true
	p.WithdrawnAmount = 100 * (1 + 0.01*float64(elapsedSec))
	p.Balance = 0
	out := *p
	return &out, nil
}

type fakeEvents struct {
	events []models.GameEvent
}

func (f *fakeEvents) ListByGame(ctx context.Context, gameID uuid.UUID) ([]models.GameEvent, error) {
	return f.events, nil
}

type apiFixture struct {
	mux     *http.ServeMux
	games   *fakeGames
	players *fakePlayers
	clk     *clockwork.FakeClock
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	games := &fakeGames{games: make(map[uuid.UUID]*models.Game)}
	players := &fakePlayers{players: make(map[uuid.UUID]*models.Player), games: games}

	mux := http.NewServeMux()
	NewAPIHandler(games, players, &fakeEvents{}, clk).RegisterAPIRoutes(mux)

	return &apiFixture{mux: mux, games: games, players: players, clk: clk}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) addGame(status models.GameStatus, startedAgo time.Duration) *models.Game {
	g := &models.Game{ID: uuid.New(), Code: "XYZ789", Status: status}
	if status == models.GameStatusPlaying {
		started := f.clk.Now().Add(-startedAgo)
		g.StartedAt = &started
	}
	f.games.games[g.ID] = g
	return g
}

func (f *apiFixture) addPlayer(gameID uuid.UUID) *models.Player {
	p := &models.Player{ID: uuid.New(), GameID: gameID, Name: "alice", Role: models.PlayerRoleCustomer, Balance: 100}
	f.players.players[p.ID] = p
	return p
}

func TestCreateGame(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/games", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var g models.Game
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	require.Equal(t, models.GameStatusWaiting, g.Status)
	require.NotEmpty(t, g.Code)
}

func TestJoinGame(t *testing.T) {
	f := newAPIFixture(t)
	g := f.addGame(models.GameStatusWaiting, 0)

	rec := f.do(t, http.MethodPost, "/api/games/join", map[string]string{"code": g.Code, "name": "bob"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp JoinGameResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, g.ID, resp.Game.ID)
	require.Equal(t, "bob", resp.Player.Name)
	require.Equal(t, 100.0, resp.Player.Balance)
}

func TestJoinGameValidation(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/games/join", map[string]string{"code": "", "name": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "invalid_request", resp.Code)
}

func TestJoinGameUnknownCode(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/games/join", map[string]string{"code": "NOPE22", "name": "bob"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "not_found", resp.Code)
}

func TestStartGameConflict(t *testing.T) {
	f := newAPIFixture(t)
	g := f.addGame(models.GameStatusWaiting, 0)

	rec := f.do(t, http.MethodPost, "/api/games/"+g.ID.String()+"/start", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "not_enough_players", resp.Code)
}

func TestWithdrawComputesElapsedServerSide(t *testing.T) {
	f := newAPIFixture(t)
	g := f.addGame(models.GameStatusPlaying, 150*time.Second)
	p := f.addPlayer(g.ID)

	rec := f.do(t, http.MethodPost, "/api/players/"+p.ID.String()+"/withdraw", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int64{150}, f.players.withdrawCalls)

	var out models.Player
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, out.HasWithdrawn)
	require.InDelta(t, 250.0, out.WithdrawnAmount, 1e-9)
}

func TestWithdrawRejectedWhileWaiting(t *testing.T) {
	f := newAPIFixture(t)
	g := f.addGame(models.GameStatusWaiting, 0)
	p := f.addPlayer(g.ID)

	rec := f.do(t, http.MethodPost, "/api/players/"+p.ID.String()+"/withdraw", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Empty(t, f.players.withdrawCalls, "withdraw must not reach the player layer")

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "game_not_running", resp.Code)
}

func TestWithdrawFrozenCode(t *testing.T) {
	f := newAPIFixture(t)
	g := f.addGame(models.GameStatusPlaying, 250*time.Second)
	p := f.addPlayer(g.ID)
	f.players.withdrawErr = player.ErrWithdrawalsFrozen

	rec := f.do(t, http.MethodPost, "/api/players/"+p.ID.String()+"/withdraw", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "withdrawals_frozen", resp.Code)
}

func TestGetGameState(t *testing.T) {
	f := newAPIFixture(t)
	g := f.addGame(models.GameStatusPlaying, 42*time.Second)
	f.addPlayer(g.ID)
	f.addPlayer(g.ID)

	rec := f.do(t, http.MethodGet, "/api/games/"+g.ID.String()+"/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GameStateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, g.ID, resp.Game.ID)
	require.Len(t, resp.Players, 2)
	require.Equal(t, int64(42), resp.ElapsedSec)
}

func TestGetGameStateNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/games/"+uuid.NewString()+"/state", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
