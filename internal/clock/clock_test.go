package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcdev12/bankrun/internal/models"
)

func ptr(t time.Time) *time.Time { return &t }

func TestElapsedSeconds(t *testing.T) {
	t0 := time.Date(2022, 11, 8, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		status    models.GameStatus
		startedAt *time.Time
		pausedAt  *time.Time
		now       time.Time
		want      int64
		wantOK    bool
	}{
		{"not playing", models.GameStatusWaiting, ptr(t0), nil, t0.Add(10 * time.Second), 0, false},
		{"no start timestamp", models.GameStatusPlaying, nil, nil, t0, 0, false},
		{"simple elapsed", models.GameStatusPlaying, ptr(t0), nil, t0.Add(42 * time.Second), 42, true},
		{"floors sub-second", models.GameStatusPlaying, ptr(t0), nil, t0.Add(42*time.Second + 900*time.Millisecond), 42, true},
		{"clamped below zero", models.GameStatusPlaying, ptr(t0), nil, t0.Add(-5 * time.Second), 0, true},
		{
			// pausedAt set but the resume shift has not landed yet: elapsed
			// holds at the pause moment no matter how long ago the pause was.
			"in-flight pause compensation",
			models.GameStatusPlaying, ptr(t0), ptr(t0.Add(50 * time.Second)), t0.Add(80 * time.Second),
			50, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ElapsedSeconds(tt.status, tt.startedAt, tt.pausedAt, tt.now)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestElapsedMonotonicWhilePlaying(t *testing.T) {
	t0 := time.Date(2022, 11, 8, 12, 0, 0, 0, time.UTC)

	prev := int64(-1)
	for d := time.Duration(0); d < 10*time.Second; d += 333 * time.Millisecond {
		got, ok := ElapsedSeconds(models.GameStatusPlaying, ptr(t0), nil, t0.Add(d))
		require.True(t, ok)
		require.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestBalance(t *testing.T) {
	require.InDelta(t, 100.00, Balance(0), 1e-9)
	require.InDelta(t, 200.00, Balance(100), 1e-9)
	require.InDelta(t, 340.00, Balance(240), 1e-9)
	require.InDelta(t, 400.00, Balance(300), 1e-9)
}

func TestVaultTotal(t *testing.T) {
	// Three active depositors at elapsed 100s: 100 * 2.0 * 3.
	require.InDelta(t, 600.00, VaultTotal(100, 3), 1e-9)
	require.InDelta(t, 0, VaultTotal(150, 0), 1e-9)

	// The vault is a display aggregate over active depositors only, not the
	// sum of individual balances.
	require.InDelta(t, Balance(100)*3, VaultTotal(100, 3), 1e-9)
}

func TestPhaseAndFreeze(t *testing.T) {
	require.Equal(t, PhaseNormal, PhaseAt(0))
	require.Equal(t, PhaseNormal, PhaseAt(239))
	require.Equal(t, PhaseCrisis, PhaseAt(240))
	require.False(t, Frozen(239))
	require.True(t, Frozen(240))
}

func TestGameOver(t *testing.T) {
	require.False(t, GameOver(299))
	require.True(t, GameOver(300))
	require.True(t, GameOver(301))
}

func TestShiftedStartPreservesElapsed(t *testing.T) {
	// Pause at T0+50s, resume 10s later: new start is T0+10s and elapsed
	// immediately after resume is still 50s, not 60s.
	t0 := time.Date(2022, 11, 8, 12, 0, 0, 0, time.UTC)
	pausedAt := t0.Add(50 * time.Second)
	resumeAt := pausedAt.Add(10 * time.Second)

	shifted := ShiftedStart(t0, pausedAt, resumeAt)
	require.Equal(t, t0.Add(10*time.Second), shifted)

	elapsed, ok := ElapsedSeconds(models.GameStatusPlaying, ptr(shifted), nil, resumeAt)
	require.True(t, ok)
	require.Equal(t, int64(50), elapsed)
}

func TestDisplaySeconds(t *testing.T) {
	t0 := time.Date(2022, 11, 8, 12, 0, 0, 0, time.UTC)
	started := t0
	pausedAt := t0.Add(75 * time.Second)
	now := t0.Add(200 * time.Second)

	require.Equal(t, int64(0), DisplaySeconds(models.GameStatusWaiting, nil, nil, now))
	require.Equal(t, int64(200), DisplaySeconds(models.GameStatusPlaying, ptr(started), nil, now))
	// Paused display holds at the pause moment no matter how much wall time
	// passes.
	require.Equal(t, int64(75), DisplaySeconds(models.GameStatusPaused, ptr(started), ptr(pausedAt), now))
	require.Equal(t, int64(300), DisplaySeconds(models.GameStatusEnded, ptr(started), nil, now))
}
