package participant

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestIdentityRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "identity.json")

	id, err := LoadIdentity(path)
	require.NoError(t, err)

	gameID := uuid.New()
	_, ok := id.PlayerFor(gameID)
	require.False(t, ok)

	playerID := uuid.New()
	require.NoError(t, id.Remember(gameID, playerID))

	// A fresh load sees the remembered player, like a reloaded client.
	reloaded, err := LoadIdentity(path)
	require.NoError(t, err)
	got, ok := reloaded.PlayerFor(gameID)
	require.True(t, ok)
	require.Equal(t, playerID, got)
}

func TestIdentityKeepsOtherGames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")

	id, err := LoadIdentity(path)
	require.NoError(t, err)

	g1, p1 := uuid.New(), uuid.New()
	g2, p2 := uuid.New(), uuid.New()
	require.NoError(t, id.Remember(g1, p1))
	require.NoError(t, id.Remember(g2, p2))

	reloaded, err := LoadIdentity(path)
	require.NoError(t, err)
	got1, ok := reloaded.PlayerFor(g1)
	require.True(t, ok)
	require.Equal(t, p1, got1)
	got2, ok := reloaded.PlayerFor(g2)
	require.True(t, ok)
	require.Equal(t, p2, got2)
}
