package participant

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Identity persists which player a device is in each game, so a page reload
// or client restart rejoins as the same player instead of creating a new one.
// It is a small JSON file keyed by game ID.
type Identity struct {
	mu      sync.Mutex
	path    string
	players map[uuid.UUID]uuid.UUID
}

// LoadIdentity reads the identity file, creating an empty identity if the
// file does not exist yet.
func LoadIdentity(path string) (*Identity, error) {
	id := &Identity{
		path:    path,
		players: make(map[uuid.UUID]uuid.UUID),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return id, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}

	if err := json.Unmarshal(data, &id.players); err != nil {
		return nil, fmt.Errorf("parse identity file: %w", err)
	}
	return id, nil
}

// PlayerFor returns the remembered player ID for a game, if any.
func (i *Identity) PlayerFor(gameID uuid.UUID) (uuid.UUID, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	playerID, ok := i.players[gameID]
	return playerID, ok
}

// Remember records the player ID for a game and writes the file.
func (i *Identity) Remember(gameID, playerID uuid.UUID) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.players[gameID] = playerID

	data, err := json.MarshalIndent(i.players, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(i.path), 0o755); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	if err := os.WriteFile(i.path, data, 0o644); err != nil {
		return fmt.Errorf("write identity file: %w", err)
	}
	return nil
}
