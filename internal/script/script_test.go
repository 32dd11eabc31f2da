package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJournalistFiresOncePerWindow(t *testing.T) {
	eng := NewEngine(Default())

	// The tick loop samples the [120, 122) window many times; the interrupt
	// must fire exactly once.
	fired := 0
	for _, sec := range []int64{119, 120, 120, 121, 121, 122} {
		for _, a := range eng.Evaluate(sec, false) {
			if a.Kind == ActionJournalist {
				fired++
			}
		}
	}
	require.Equal(t, 1, fired)
}

func TestJournalistWindowIsHalfOpen(t *testing.T) {
	eng := NewEngine(Default())

	require.Empty(t, eng.Evaluate(119, false))
	require.Len(t, eng.Evaluate(121, false), 1)

	// elapsed == time+2 is outside the window entirely.
	eng2 := NewEngine(Default())
	require.Empty(t, eng2.Evaluate(122, false))
}

func TestStoryPauseExactSecondOnly(t *testing.T) {
	eng := NewEngine(Default())

	require.Empty(t, eng.Evaluate(59, false))

	actions := eng.Evaluate(60, false)
	require.Len(t, actions, 1)
	require.Equal(t, ActionStoryPause, actions[0].Kind)
	require.Equal(t, "The Setup", actions[0].Title)

	// Re-sampling the same second fires nothing more.
	require.Empty(t, eng.Evaluate(60, false))

	// A skipped second is missed for good, no catch-up.
	eng2 := NewEngine(Default())
	require.Empty(t, eng2.Evaluate(61, false))
}

func TestStoryPauseSuppressedWhilePaused(t *testing.T) {
	eng := NewEngine(Default())

	for _, sec := range []int64{60, 120, 180, 240} {
		for _, a := range eng.Evaluate(sec, true) {
			require.NotEqual(t, ActionStoryPause, a.Kind)
		}
	}
}

func TestAllThresholdsFireOnceOverFullRun(t *testing.T) {
	eng := NewEngine(Default())

	journalist := 0
	pauses := 0
	// Sample every 100ms tick of a full 5-minute run.
	for tick := int64(0); tick <= 3000; tick++ {
		sec := tick / 10
		for _, a := range eng.Evaluate(sec, false) {
			switch a.Kind {
			case ActionJournalist:
				journalist++
			case ActionStoryPause:
				pauses++
			}
		}
	}
	require.Equal(t, 3, journalist)
	require.Equal(t, 4, pauses)
}

func TestNextBroadcastDrawsFromPool(t *testing.T) {
	s := Default()
	eng := NewEngine(s)

	pool := make(map[string]bool, len(s.BroadcastMessages))
	for _, m := range s.BroadcastMessages {
		pool[m] = true
	}
	for i := 0; i < 50; i++ {
		require.True(t, pool[eng.NextBroadcast()])
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	err := os.WriteFile(path, []byte("broadcast_messages:\n  - \"All good.\"\n"), 0o644)
	require.NoError(t, err)

	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"All good."}, s.BroadcastMessages)
	require.Len(t, s.JournalistEvents, 3)
	require.Len(t, s.StoryPauses, 4)
}
