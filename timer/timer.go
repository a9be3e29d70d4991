// Package timer implements the work/break countdown state machine.
//
// The engine is not safe for concurrent use. It is driven from a single
// goroutine (the TUI update loop); ticks are requested with Schedule and
// delivered back with Tick, and any state change that alters what the next
// tick should do invalidates handles issued before it.
package timer

import (
	"errors"

	"pomo-cli/model"
)

// ErrNotOnBreak is returned by SkipBreak outside of a break phase.
var ErrNotOnBreak = errors.New("not on a break")

// State is a read-only snapshot of the engine.
type State struct {
	Phase       model.Phase
	SecondsLeft int
	Running     bool
	HasTask     bool
	Sessions    int
}

// Handle identifies one scheduled tick. A handle becomes stale as soon as the
// engine changes in a way that should cancel the pending tick.
type Handle struct {
	generation uint64
}

// Transition describes a phase change caused by the countdown reaching zero.
type Transition struct {
	From     model.Phase
	To       model.Phase
	Sessions int
}

// CompletedWork reports whether the transition credits a pomodoro.
func (t Transition) CompletedWork() bool {
	return t.From == model.PhaseWork
}

// Engine is the countdown state machine.
type Engine struct {
	settings    model.Settings
	phase       model.Phase
	secondsLeft int
	running     bool
	hasTask     bool
	sessions    int
	generation  uint64
	pending     bool
}

// New creates an engine in the initial state: work phase, full work duration,
// paused, no task. sessions seeds the session counter.
func New(settings model.Settings, sessions int) *Engine {
	if sessions < 0 {
		sessions = 0
	}
	engine := &Engine{
		settings: settings,
		phase:    model.PhaseWork,
		sessions: sessions,
	}
	engine.secondsLeft = engine.durationOf(model.PhaseWork)
	return engine
}

// State returns a snapshot of the engine.
func (e *Engine) State() State {
	return State{
		Phase:       e.phase,
		SecondsLeft: e.secondsLeft,
		Running:     e.running,
		HasTask:     e.hasTask,
		Sessions:    e.sessions,
	}
}

// Settings returns the durations the engine currently uses.
func (e *Engine) Settings() model.Settings {
	return e.settings
}

// Duration returns the configured length of the current phase in seconds.
func (e *Engine) Duration() int {
	return e.durationOf(e.phase)
}

// Toggle starts or pauses the countdown. It is a no-op without a task and
// reports whether anything changed. From zero it starts a fresh interval.
func (e *Engine) Toggle() bool {
	if !e.hasTask {
		return false
	}
	if e.secondsLeft == 0 {
		e.secondsLeft = e.durationOf(e.phase)
		e.running = true
	} else {
		e.running = !e.running
	}
	e.invalidate()
	return true
}

// Reset stops the countdown and restores the current phase's full duration.
// The phase and the session counter are left alone.
func (e *Engine) Reset() {
	e.running = false
	e.secondsLeft = e.durationOf(e.phase)
	e.invalidate()
}

// SkipBreak ends the current break without the natural-expiry side effects.
func (e *Engine) SkipBreak() error {
	if !e.phase.IsBreak() {
		return ErrNotOnBreak
	}
	e.phase = model.PhaseWork
	e.secondsLeft = e.durationOf(model.PhaseWork)
	e.running = false
	e.invalidate()
	return nil
}

// SwitchTask reacts to a change of the selected task. Selecting forces the
// work phase at the task's remaining time (or a full interval when it has
// none); deselecting returns to the initial state. Either way the countdown
// is paused.
func (e *Engine) SwitchTask(selected bool, remaining int) {
	work := e.durationOf(model.PhaseWork)
	e.hasTask = selected
	e.phase = model.PhaseWork
	e.running = false
	switch {
	case !selected || remaining <= 0:
		e.secondsLeft = work
	case remaining > work:
		e.secondsLeft = work
	default:
		e.secondsLeft = remaining
	}
	e.invalidate()
}

// Restore puts the engine back into a persisted phase, always paused.
func (e *Engine) Restore(phase model.Phase, secondsLeft int) {
	if !phase.Valid() {
		return
	}
	if secondsLeft < 0 {
		secondsLeft = 0
	}
	if limit := e.durationOf(phase); secondsLeft > limit {
		secondsLeft = limit
	}
	e.phase = phase
	e.secondsLeft = secondsLeft
	e.running = false
	e.invalidate()
}

// ApplySettings swaps in new durations. A paused engine whose current phase
// length changed jumps to the new length; a running interval is never resized.
func (e *Engine) ApplySettings(settings model.Settings) {
	previous := e.durationOf(e.phase)
	e.settings = settings
	if e.running {
		return
	}
	if next := e.durationOf(e.phase); next != previous {
		e.secondsLeft = next
		e.invalidate()
	}
}

// Schedule claims the next tick. ok is false when the engine is paused,
// exhausted, has no task, or a tick for the current generation is already
// outstanding.
func (e *Engine) Schedule() (Handle, bool) {
	if !e.running || e.secondsLeft <= 0 || !e.hasTask || e.pending {
		return Handle{}, false
	}
	e.pending = true
	return Handle{generation: e.generation}, true
}

// Tick advances the countdown by one second. Stale handles are dropped.
// When the countdown reaches zero the phase transition runs immediately and
// is returned with expired set.
func (e *Engine) Tick(h Handle) (tr Transition, expired bool) {
	if h.generation != e.generation {
		return Transition{}, false
	}
	e.pending = false
	if !e.running || e.secondsLeft <= 0 {
		return Transition{}, false
	}
	e.secondsLeft--
	if e.secondsLeft > 0 {
		return Transition{}, false
	}
	return e.expire(), true
}

func (e *Engine) expire() Transition {
	from := e.phase
	switch from {
	case model.PhaseWork:
		if (e.sessions+1)%e.longBreakInterval() == 0 {
			e.phase = model.PhaseLongBreak
			e.sessions = 0
		} else {
			e.phase = model.PhaseShortBreak
			e.sessions++
		}
	default:
		e.phase = model.PhaseWork
	}
	e.secondsLeft = e.durationOf(e.phase)
	e.running = false
	e.invalidate()
	return Transition{From: from, To: e.phase, Sessions: e.sessions}
}

func (e *Engine) invalidate() {
	e.generation++
	e.pending = false
}

func (e *Engine) durationOf(phase model.Phase) int {
	d := e.settings.DurationFor(phase)
	if d < 0 {
		return 0
	}
	return d
}

func (e *Engine) longBreakInterval() int {
	if e.settings.LongBreakInterval < 1 {
		return 1
	}
	return e.settings.LongBreakInterval
}
