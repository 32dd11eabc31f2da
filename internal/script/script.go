// Package script decides which one-shot narrative events fire at a given
// elapsed time: reassurance broadcasts, journalist interrupts and scheduled
// story pauses. The engine tracks what already fired this run so a trigger
// window sampled by many ticks still fires at most once.
package script

import (
	"math/rand/v2"
	"time"
)

// JournalistEvent is a point-in-time narrative interrupt. It fires once when
// elapsed enters the half-open window [TimeSec, TimeSec+2).
type JournalistEvent struct {
	TimeSec int64  `yaml:"time_sec"`
	Message string `yaml:"message"`
}

// StoryPause is a scheduled pause in the game with an explanation shown to
// everyone. It fires when elapsed exactly equals Minute*60 at tick
// granularity, so a viewer that skips that second misses it entirely.
type StoryPause struct {
	Minute int64  `yaml:"minute"`
	Title  string `yaml:"title"`
	Text   string `yaml:"text"`
}

// Script is the full fixed schedule for a game run.
type Script struct {
	BroadcastMessages []string          `yaml:"broadcast_messages"`
	JournalistEvents  []JournalistEvent `yaml:"journalist_events"`
	StoryPauses       []StoryPause      `yaml:"story_pauses"`
}

// journalistWindowSec is how long a journalist trigger window stays open.
const journalistWindowSec = 2

// Display durations for viewer-side transient state.
const (
	JournalistDisplayDuration = 8 * time.Second
	JournalistShakeDuration   = 500 * time.Millisecond
	BroadcastDisplayDuration  = 10 * time.Second
)

// Default returns the built-in FTX collapse script.
func Default() Script {
	return Script{
		BroadcastMessages: []string{
			"Yield is up! Your funds are SAFU!",
			"FTX is the most liquid exchange on earth.",
			"We have the best risk management in the industry.",
			"Customer funds are always 1:1 backed.",
			"FTX reserves are fully audited.",
			"Trust the process. Your assets are secure.",
		},
		JournalistEvents: []JournalistEvent{
			{TimeSec: 120, Message: "BREAKING: Report suggests FTX and Alameda Research are mixing customer funds"},
			{TimeSec: 180, Message: "ALERT: FTT Token value crashing — down 40% in the last hour"},
			{TimeSec: 240, Message: "LEAKED: Internal memo reveals 'the vault may be empty'"},
		},
		StoryPauses: []StoryPause{
			{Minute: 1, Title: "The Setup", Text: "In 2019, Sam Bankman-Fried created FTX, marketed as a safe, regulated exchange. Customers deposited billions, trusting their money was secure."},
			{Minute: 2, Title: "The Secret", Text: "Behind the scenes, FTX secretly funneled customer deposits to Alameda Research — their own trading firm — to make risky bets."},
			{Minute: 3, Title: "The Cracks", Text: "When reporters started asking questions, FTX reassured everyone. But the truth was: customer money had been gambled away."},
			{Minute: 4, Title: "The Run", Text: "Once trust broke, everyone tried to withdraw at once. But the money wasn't there. This is called a 'bank run.'"},
		},
	}
}

// ActionKind is the kind of scripted action due at a tick.
type ActionKind string

const (
	ActionJournalist ActionKind = "journalist"
	ActionStoryPause ActionKind = "story_pause"
)

// Action is a scripted event the engine decided should fire now.
type Action struct {
	Kind    ActionKind
	Message string // journalist message or story pause text
	Title   string // set for story pauses
}

// Engine evaluates one game run against a script. It is not safe for
// concurrent use; each controller owns its own engine, matching the
// single-execution-context model of a viewer.
type Engine struct {
	script          Script
	firedJournalist map[int64]bool
	firedPauses     map[int64]bool
	intn            func(n int) int
}

// NewEngine creates an engine for a fresh run of the given script.
func NewEngine(s Script) *Engine {
	return &Engine{
		script:          s,
		firedJournalist: make(map[int64]bool),
		firedPauses:     make(map[int64]bool),
		intn:            rand.IntN,
	}
}

// Evaluate returns the scripted actions due at the given elapsed seconds,
// marking each as fired so repeated sampling of the same window returns it
// only once. Story pauses are suppressed while already paused.
func (e *Engine) Evaluate(elapsedSec int64, paused bool) []Action {
	var actions []Action

	for _, ev := range e.script.JournalistEvents {
		if elapsedSec >= ev.TimeSec && elapsedSec < ev.TimeSec+journalistWindowSec && !e.firedJournalist[ev.TimeSec] {
			e.firedJournalist[ev.TimeSec] = true
			actions = append(actions, Action{Kind: ActionJournalist, Message: ev.Message})
		}
	}

	if !paused {
		for _, p := range e.script.StoryPauses {
			pauseSec := p.Minute * 60
			if elapsedSec == pauseSec && !e.firedPauses[pauseSec] {
				e.firedPauses[pauseSec] = true
				actions = append(actions, Action{Kind: ActionStoryPause, Title: p.Title, Message: p.Text})
			}
		}
	}

	return actions
}

// NextBroadcast draws one reassurance message uniformly at random. The caller
// persists it as a game event; other viewers only ever render the persisted
// row, never their own draw.
func (e *Engine) NextBroadcast() string {
	if len(e.script.BroadcastMessages) == 0 {
		return ""
	}
	return e.script.BroadcastMessages[e.intn(len(e.script.BroadcastMessages))]
}
