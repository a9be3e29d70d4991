package app

import (
	"errors"
	"log/slog"

	"pomo-cli/model"
	"pomo-cli/sound"
	"pomo-cli/timer"
)

var (
	ErrOnBreak      = errors.New("finish or skip the break first")
	ErrTimerRunning = errors.New("pause the timer first")
)

// BreakStorage persists the in-progress break so it survives restarts.
type BreakStorage interface {
	SaveBreakResume(resume model.BreakResume) error
	ClearBreakResume() error
}

// Snapshot is what the UI needs to draw the timer.
type Snapshot struct {
	timer.State
	Duration int
	Task     model.Task
	Settings model.Settings
}

// Controller owns the timer engine and the Service. Every gesture goes
// through it so that the engine, the task list and storage stay in step.
type Controller struct {
	svc    *Service
	engine *timer.Engine
	breaks BreakStorage
	player sound.Player
	logger *slog.Logger
	breakW *throttle
}

// NewController wires the engine to svc, restoring the selected task's
// remaining time and, when present, a persisted break (always paused).
func NewController(svc *Service, breaks BreakStorage, resume *model.BreakResume, player sound.Player, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if player == nil {
		player = sound.Nop{}
	}
	c := &Controller{
		svc:    svc,
		engine: timer.New(svc.Settings(), svc.CompletedWorkSessions()),
		breaks: breaks,
		player: player,
		logger: logger,
		breakW: newThrottle(svc.saveInterval, svc.now),
	}

	if task, ok := svc.CurrentTask(); ok {
		c.engine.SwitchTask(true, task.RemainingSeconds)
		if resume != nil {
			c.engine.Restore(resume.Mode, resume.SecondsLeft)
			logger.Info("break restored", "mode", resume.Mode, "secondsLeft", resume.SecondsLeft)
		}
	} else if resume != nil {
		logger.Info("dropping break state without a current task", "mode", resume.Mode)
	}
	c.syncBreak(true)
	return c
}

// Service exposes the task store for read access and task-only operations.
func (c *Controller) Service() *Service {
	return c.svc
}

// Snapshot returns the timer state together with the current task.
func (c *Controller) Snapshot() Snapshot {
	task, _ := c.svc.CurrentTask()
	return Snapshot{
		State:    c.engine.State(),
		Duration: c.engine.Duration(),
		Task:     task,
		Settings: c.svc.Settings(),
	}
}

// Toggle starts or pauses the countdown. Without a task it does nothing and
// returns false.
func (c *Controller) Toggle() bool {
	if !c.engine.Toggle() {
		return false
	}
	c.syncTask(true)
	c.syncBreak(true)
	c.logger.Debug("timer toggled", "running", c.engine.State().Running, "phase", c.engine.State().Phase)
	return true
}

// Reset stops the countdown at the full length of the current phase.
func (c *Controller) Reset() {
	c.engine.Reset()
	c.syncTask(true)
	c.syncBreak(true)
}

// SkipBreak jumps from a break straight to a paused work interval.
func (c *Controller) SkipBreak() error {
	if err := c.engine.SkipBreak(); err != nil {
		return err
	}
	c.syncTask(true)
	c.syncBreak(true)
	c.logger.Info("break skipped")
	return nil
}

// Schedule asks for the next tick; see timer.Engine.Schedule.
func (c *Controller) Schedule() (timer.Handle, bool) {
	return c.engine.Schedule()
}

// Tick delivers a scheduled tick. On expiry the transition's side effects
// (pomodoro credit, session counter, cue) are applied before returning it.
func (c *Controller) Tick(h timer.Handle) (timer.Transition, bool) {
	tr, expired := c.engine.Tick(h)
	if !expired {
		c.syncTask(false)
		c.syncBreak(false)
		return tr, false
	}

	settings := c.svc.Settings()
	if tr.CompletedWork() {
		if id := c.svc.CurrentTaskID(); id != "" {
			if _, err := c.svc.IncrementPomodoros(id); err != nil {
				c.logger.Warn("credit pomodoro", "task", id, "err", err)
			}
			if err := c.svc.UpdateRemainingSeconds(id, settings.DurationFor(model.PhaseWork)); err != nil {
				c.logger.Warn("reset task time", "task", id, "err", err)
			}
			c.svc.Flush()
		}
		c.svc.SetCompletedWorkSessions(tr.Sessions)
		c.play(sound.CueWorkComplete, settings)
	} else {
		c.syncTask(true)
		c.play(sound.CueBreakComplete, settings)
	}
	c.syncBreak(true)
	c.logger.Info("phase complete", "from", tr.From, "to", tr.To, "sessions", tr.Sessions)
	return tr, true
}

// SelectTask toggles the selection. It is refused during a break and while
// the timer runs.
func (c *Controller) SelectTask(id string) error {
	st := c.engine.State()
	if st.Phase.IsBreak() {
		return ErrOnBreak
	}
	if st.Running {
		return ErrTimerRunning
	}
	c.syncTask(true)

	selected, err := c.svc.SelectTask(id)
	if err != nil {
		return err
	}
	remaining := 0
	if selected {
		if task, ok := c.svc.CurrentTask(); ok {
			remaining = task.RemainingSeconds
		}
	}
	c.engine.SwitchTask(selected, remaining)
	c.syncBreak(true)
	return nil
}

// ToggleComplete flips a task's completed flag. When the current task leaves
// the active slot the engine goes back to its no-task state.
func (c *Controller) ToggleComplete(id string) (model.Task, error) {
	wasCurrent := c.svc.CurrentTaskID() == id
	if wasCurrent {
		c.syncTask(true)
	}
	task, err := c.svc.ToggleComplete(id)
	if err != nil {
		return model.Task{}, err
	}
	if wasCurrent {
		c.engine.SwitchTask(false, 0)
		c.syncBreak(true)
	}
	return task, nil
}

func (c *Controller) AddTask(name string) (model.Task, error) {
	return c.svc.AddTask(name)
}

func (c *Controller) RemoveTask(id string) error {
	return c.svc.RemoveTask(id)
}

func (c *Controller) RenameTask(id, name string) (model.Task, error) {
	return c.svc.RenameTask(id, name)
}

func (c *Controller) UpdateEstimate(id string, n int) (model.Task, error) {
	return c.svc.UpdateEstimate(id, n)
}

func (c *Controller) MoveTaskUp(id string) (model.Task, error) {
	return c.svc.MoveTaskUp(id)
}

func (c *Controller) MoveTaskDown(id string) (model.Task, error) {
	return c.svc.MoveTaskDown(id)
}

// SaveSettings is refused while the timer runs. A paused engine picks up the
// new length of its current phase immediately.
func (c *Controller) SaveSettings(settings model.Settings) error {
	if c.engine.State().Running {
		return ErrTimerRunning
	}
	if err := c.svc.SaveSettings(settings); err != nil {
		return err
	}
	c.engine.ApplySettings(settings)
	c.syncBreak(true)
	return nil
}

// Flush forces out throttled writes; call it before exiting.
func (c *Controller) Flush() {
	c.syncTask(true)
	c.syncBreak(true)
}

// syncTask mirrors the engine's seconds onto the current task while working.
func (c *Controller) syncTask(force bool) {
	st := c.engine.State()
	id := c.svc.CurrentTaskID()
	if !st.HasTask || id == "" || st.Phase != model.PhaseWork {
		if force {
			c.svc.Flush()
		}
		return
	}
	if err := c.svc.UpdateRemainingSeconds(id, st.SecondsLeft); err != nil {
		c.logger.Warn("update remaining time", "task", id, "err", err)
	}
	if force {
		c.svc.Flush()
	}
}

// syncBreak writes the break-resume key during breaks and removes it otherwise.
func (c *Controller) syncBreak(force bool) {
	if c.breaks == nil {
		return
	}
	st := c.engine.State()
	if !st.Phase.IsBreak() {
		if err := c.breaks.ClearBreakResume(); err != nil {
			c.logger.Warn("clear break state", "err", err)
		}
		return
	}
	if force {
		c.breakW.mark()
	} else if !c.breakW.allow() {
		return
	}
	resume := model.BreakResume{Mode: st.Phase, SecondsLeft: st.SecondsLeft, Running: st.Running}
	if err := c.breaks.SaveBreakResume(resume); err != nil {
		c.logger.Warn("persist break state", "err", err)
	}
}

func (c *Controller) play(cue sound.Cue, settings model.Settings) {
	if !settings.SoundEnabled {
		return
	}
	c.player.Play(cue, settings.SoundVolume)
}
