// Package clock is the pure game-clock model. Everything here is a total,
// deterministic function of timestamps already known to the caller; viewers
// recompute from these every tick instead of accumulating derived state, which
// is what keeps independently-polling host and player views consistent.
package clock

import (
	"time"

	"github.com/mcdev12/bankrun/internal/models"
)

const (
	// Principal is the fixed starting balance per player, in currency units.
	Principal = 100.0

	// GrowthRate is the advertised yield per elapsed second.
	GrowthRate = 0.01

	// FreezeThreshold is the elapsed time after which withdrawals are
	// guaranteed to fail.
	FreezeThreshold = 240 * time.Second

	// GameDuration is the elapsed time at which the game ends unconditionally.
	GameDuration = 300 * time.Second

	// TickInterval is the local recomputation cadence. It is a refresh rate,
	// not a correctness requirement: a missed tick self-corrects on the next
	// one because elapsed time is re-derived from absolute timestamps.
	TickInterval = 100 * time.Millisecond

	// WithdrawFailDelay is how long a frozen withdraw blocks before failing.
	WithdrawFailDelay = 3 * time.Second

	// BroadcastInterval is the cadence of reassurance broadcasts.
	BroadcastInterval = 30 * time.Second
)

// Phase is the coarse game phase derived from elapsed time.
type Phase string

const (
	PhaseNormal Phase = "normal"
	PhaseCrisis Phase = "crisis"
)

// ElapsedSeconds derives whole elapsed seconds since game start, net of any
// paused duration. ok is false when the game is not playing or has no start
// timestamp, in which case the caller skips the tick.
//
// While pausedAt is set but the resume-side epoch shift has not yet landed in
// this viewer's copy of startedAt, the (now - pausedAt) delta holds elapsed
// constant at the pause moment.
func ElapsedSeconds(status models.GameStatus, startedAt, pausedAt *time.Time, now time.Time) (int64, bool) {
	if status != models.GameStatusPlaying || startedAt == nil {
		return 0, false
	}

	var pausedDelta time.Duration
	if pausedAt != nil {
		pausedDelta = now.Sub(*pausedAt)
	}

	elapsed := int64((now.Sub(*startedAt) - pausedDelta) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed, true
}

// DisplaySeconds is the elapsed figure viewers render for any status: zero
// before start, live elapsed while playing, held at the pause moment while
// paused, and the full game duration once ended.
func DisplaySeconds(status models.GameStatus, startedAt, pausedAt *time.Time, now time.Time) int64 {
	switch status {
	case models.GameStatusPlaying:
		elapsed, _ := ElapsedSeconds(status, startedAt, pausedAt, now)
		return elapsed
	case models.GameStatusPaused:
		if startedAt == nil || pausedAt == nil {
			return 0
		}
		elapsed := int64(pausedAt.Sub(*startedAt) / time.Second)
		if elapsed < 0 {
			elapsed = 0
		}
		return elapsed
	case models.GameStatusEnded:
		return int64(GameDuration / time.Second)
	default:
		return 0
	}
}

// Balance is the live balance of a not-yet-withdrawn player at the given
// elapsed seconds: principal plus 1% simple growth per second.
func Balance(elapsedSec int64) float64 {
	return Principal * (1 + GrowthRate*float64(elapsedSec))
}

// VaultTotal is the displayed aggregate vault figure: every active depositor's
// principal earning full yield simultaneously. It deliberately is not the sum
// of individual balances; it models a promise that exceeds any real backing.
func VaultTotal(elapsedSec int64, activeDepositors int) float64 {
	return float64(activeDepositors) * Principal * (1 + GrowthRate*float64(elapsedSec))
}

// PhaseAt returns the phase for the given elapsed seconds.
func PhaseAt(elapsedSec int64) Phase {
	if elapsedSec < int64(FreezeThreshold/time.Second) {
		return PhaseNormal
	}
	return PhaseCrisis
}

// Frozen reports whether withdrawals are past the freeze threshold.
func Frozen(elapsedSec int64) bool {
	return elapsedSec >= int64(FreezeThreshold/time.Second)
}

// GameOver reports whether the game-end condition has been reached.
func GameOver(elapsedSec int64) bool {
	return elapsedSec >= int64(GameDuration/time.Second)
}

// ShiftedStart computes the new start epoch on resume: the old epoch moved
// forward by exactly the paused wall-clock duration, so elapsed seconds at
// resume equal elapsed seconds at pause.
func ShiftedStart(startedAt, pausedAt, now time.Time) time.Time {
	return startedAt.Add(now.Sub(pausedAt))
}
