// Package bankrunclient is a typed HTTP/WebSocket client for the game API.
// It satisfies the participant controller's backend interfaces, so a terminal
// client or bot runs the exact same control loop as any other viewer.
package bankrunclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bankrun/internal/feed"
	"github.com/mcdev12/bankrun/internal/models"
)

type Client struct {
	baseURL string
	wsURL   string
	client  *http.Client
}

func New(baseURL string) *Client {
	base := strings.TrimSuffix(baseURL, "/")
	ws := strings.Replace(strings.Replace(base, "https://", "wss://", 1), "http://", "ws://", 1)
	return &Client{
		baseURL: base,
		wsURL:   ws,
		client: &http.Client{
			// Longer than the withdraw fail delay, which is the slowest
			// response the server intentionally produces.
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var parsed struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if err := json.Unmarshal(respBody, &parsed); err == nil {
			apiErr.Code = parsed.Code
			apiErr.Message = parsed.Error
		} else {
			apiErr.Message = string(respBody)
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// CreateGame creates a new waiting game.
func (c *Client) CreateGame(ctx context.Context) (*models.Game, error) {
	var g models.Game
	if err := c.do(ctx, http.MethodPost, "/api/games", nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGame fetches the current game row.
func (c *Client) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	var state struct {
		Game *models.Game `json:"game"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/games/"+id.String()+"/state", nil, &state); err != nil {
		return nil, err
	}
	if state.Game == nil {
		return nil, fmt.Errorf("state response missing game")
	}
	return state.Game, nil
}

// GetGameByCode resolves a join code.
func (c *Client) GetGameByCode(ctx context.Context, code string) (*models.Game, error) {
	var g models.Game
	if err := c.do(ctx, http.MethodGet, "/api/games/code/"+strings.ToUpper(strings.TrimSpace(code)), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// JoinGame joins a game by code and display name.
func (c *Client) JoinGame(ctx context.Context, code, name string) (*models.Player, *models.Game, error) {
	var resp struct {
		Player *models.Player `json:"player"`
		Game   *models.Game   `json:"game"`
	}
	body := map[string]string{"code": code, "name": name}
	if err := c.do(ctx, http.MethodPost, "/api/games/join", body, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Player, resp.Game, nil
}

// StartGame starts a waiting game.
func (c *Client) StartGame(ctx context.Context, gameID uuid.UUID) (*models.Game, error) {
	var g models.Game
	if err := c.do(ctx, http.MethodPost, "/api/games/"+gameID.String()+"/start", nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// ResumeGame resumes a paused game.
func (c *Client) ResumeGame(ctx context.Context, gameID uuid.UUID) (*models.Game, error) {
	var g models.Game
	if err := c.do(ctx, http.MethodPost, "/api/games/"+gameID.String()+"/resume", nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetPlayer fetches one player row via the game state snapshot.
func (c *Client) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	var p models.Player
	if err := c.do(ctx, http.MethodGet, "/api/players/"+id.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Withdraw attempts the player's one-time withdrawal. Eligibility and the
// elapsed time are evaluated server-side; the elapsed argument exists to
// satisfy the controller interface and is not sent.
func (c *Client) Withdraw(ctx context.Context, playerID uuid.UUID, elapsedSec int64) (*models.Player, error) {
	var p models.Player
	if err := c.do(ctx, http.MethodPost, "/api/players/"+playerID.String()+"/withdraw", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// wsEvent mirrors the gateway's WebSocket wire format.
type wsEvent struct {
	GameID    string          `json:"game_id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func tableForEventType(eventType string) (string, bool) {
	switch eventType {
	case "GameUpdated":
		return feed.TableGames, true
	case "PlayerUpdated":
		return feed.TablePlayers, true
	case "EventAppended":
		return feed.TableGameEvents, true
	default:
		return "", false
	}
}

// Subscribe opens the game's WebSocket and relays server events as feed
// envelopes, so controllers built against the in-process feed run unchanged
// over the network.
func (c *Client) Subscribe(ctx context.Context, gameID uuid.UUID) (*feed.Subscription, error) {
	url := c.wsURL + "/ws/game?game_id=" + gameID.String() + "&role=player"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial WebSocket: %w", err)
	}

	ch := make(chan feed.Envelope, 64)
	done := make(chan struct{})

	go func() {
		defer close(ch)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-done:
				default:
					log.Error().Err(err).Str("game_id", gameID.String()).Msg("WebSocket read failed")
				}
				return
			}

			var ev wsEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				log.Error().Err(err).Msg("failed to decode server event")
				continue
			}
			table, ok := tableForEventType(ev.Type)
			if !ok {
				continue
			}

			select {
			case ch <- feed.Envelope{
				Table:     table,
				GameID:    gameID,
				Row:       ev.Data,
				Timestamp: ev.Timestamp,
			}:
			default:
				// Controller is not draining; it self-corrects on its
				// next tick.
			}
		}
	}()

	return feed.NewSubscription(gameID, ch, func() {
		close(done)
		conn.Close()
	}), nil
}
