package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pomo-cli/model"
)

const defaultSaveInterval = time.Second

var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrInvalidTaskName     = errors.New("task name must not be empty")
	ErrInvalidEstimate     = errors.New("estimate must not be negative")
	ErrTaskSelected        = errors.New("cannot delete the current task")
	ErrTaskCompleted       = errors.New("completed tasks cannot be selected")
	ErrInvalidSettings     = errors.New("durations and interval must be at least 1, volume between 0 and 1")
	ErrInvalidFilter       = errors.New("invalid filter")
	ErrTaskAlreadyAtTop    = errors.New("task is already at top")
	ErrTaskAlreadyAtBottom = errors.New("task is already at bottom")
)

// Storage persists the keys owned by the Service.
type Storage interface {
	SaveTasks(tasks []model.Task) error
	SetCurrentTaskID(id string) error
	SaveSettings(settings model.Settings) error
	SaveCompletedWorkSessions(n int) error
}

// Option configures a Service.
type Option func(*Service)

// WithSaveInterval sets how often remaining-time updates may reach storage.
func WithSaveInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.saveInterval = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service holds the task list, the selection, the settings and the session
// counter. Every mutation is persisted right away, except remaining-time
// updates which are throttled. Persistence is best effort: failures are
// logged and never undo the in-memory change.
type Service struct {
	tasks    []model.Task
	current  string
	settings model.Settings
	sessions int

	storage      Storage
	logger       *slog.Logger
	saveInterval time.Duration
	now          func() time.Time
	remaining    *throttle
	tasksDirty   bool
}

// NewService creates a service over a copy of the provided state.
func NewService(state model.AppState, storage Storage, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	state = normalizeState(state)
	s := &Service{
		tasks:        state.Tasks,
		current:      state.CurrentTaskID,
		settings:     state.Settings,
		sessions:     state.CompletedWorkSessions,
		storage:      storage,
		logger:       logger,
		saveInterval: defaultSaveInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.remaining = newThrottle(s.saveInterval, s.now)
	return s
}

// Tasks returns all tasks in list order as a copy.
func (s *Service) Tasks() []model.Task {
	return copyTasks(s.tasks)
}

// FilteredTasks returns the tasks matching filter, in list order.
func (s *Service) FilteredTasks(filter model.Filter) ([]model.Task, error) {
	switch filter {
	case model.FilterAll, model.FilterActive, model.FilterCompleted:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, filter)
	}
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !matchesFilter(filter, t.Completed) {
			continue
		}
		out = append(out, copyTask(t))
	}
	return out, nil
}

// GetTask returns a task by id.
func (s *Service) GetTask(id string) (model.Task, error) {
	idx := s.indexOf(id)
	if idx == -1 {
		return model.Task{}, ErrTaskNotFound
	}
	return copyTask(s.tasks[idx]), nil
}

// CurrentTaskID returns the selected task id, or "" when none is selected.
func (s *Service) CurrentTaskID() string {
	return s.current
}

// CurrentTask returns the selected task.
func (s *Service) CurrentTask() (model.Task, bool) {
	if s.current == "" {
		return model.Task{}, false
	}
	t, err := s.GetTask(s.current)
	if err != nil {
		return model.Task{}, false
	}
	return t, true
}

func (s *Service) Settings() model.Settings {
	return s.settings
}

func (s *Service) CompletedWorkSessions() int {
	return s.sessions
}

// AddTask appends a new task sized to the current work duration.
func (s *Service) AddTask(name string) (model.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Task{}, ErrInvalidTaskName
	}
	task := model.Task{
		ID:               uuid.NewString(),
		Name:             name,
		RemainingSeconds: s.settings.DurationFor(model.PhaseWork),
	}
	s.tasks = append(s.tasks, task)
	s.persistTasks()
	return task, nil
}

func (s *Service) RenameTask(id, name string) (model.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Task{}, ErrInvalidTaskName
	}
	idx := s.indexOf(id)
	if idx == -1 {
		return model.Task{}, ErrTaskNotFound
	}
	s.tasks[idx].Name = name
	s.persistTasks()
	return copyTask(s.tasks[idx]), nil
}

// RemoveTask deletes a task. The selected task cannot be removed.
func (s *Service) RemoveTask(id string) error {
	idx := s.indexOf(id)
	if idx == -1 {
		return ErrTaskNotFound
	}
	if id == s.current {
		return ErrTaskSelected
	}
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	s.persistTasks()
	return nil
}

// SelectTask toggles the selection: selecting the current task deselects it.
// It reports whether id is selected afterwards. Timer-related preconditions
// are the Controller's business.
func (s *Service) SelectTask(id string) (bool, error) {
	idx := s.indexOf(id)
	if idx == -1 {
		return false, ErrTaskNotFound
	}
	if s.current == id {
		s.setCurrent("")
		return false, nil
	}
	if s.tasks[idx].Completed {
		return false, ErrTaskCompleted
	}
	s.setCurrent(id)
	return true, nil
}

// ToggleComplete flips the completed flag. Completing (or reopening) the
// selected task deselects it.
func (s *Service) ToggleComplete(id string) (model.Task, error) {
	idx := s.indexOf(id)
	if idx == -1 {
		return model.Task{}, ErrTaskNotFound
	}
	s.tasks[idx].Completed = !s.tasks[idx].Completed
	s.persistTasks()
	if s.current == id {
		s.setCurrent("")
	}
	return copyTask(s.tasks[idx]), nil
}

func (s *Service) UpdateEstimate(id string, n int) (model.Task, error) {
	if n < 0 {
		return model.Task{}, fmt.Errorf("%w: %d", ErrInvalidEstimate, n)
	}
	idx := s.indexOf(id)
	if idx == -1 {
		return model.Task{}, ErrTaskNotFound
	}
	s.tasks[idx].EstimatedPomos = model.IntPtr(n)
	s.persistTasks()
	return copyTask(s.tasks[idx]), nil
}

// IncrementPomodoros credits one completed work interval to a task.
func (s *Service) IncrementPomodoros(id string) (model.Task, error) {
	idx := s.indexOf(id)
	if idx == -1 {
		return model.Task{}, ErrTaskNotFound
	}
	s.tasks[idx].Pomodoros++
	s.persistTasks()
	return copyTask(s.tasks[idx]), nil
}

// UpdateRemainingSeconds records the time left on a task. The write reaches
// storage at most once per save interval; Flush forces it out.
func (s *Service) UpdateRemainingSeconds(id string, seconds int) error {
	idx := s.indexOf(id)
	if idx == -1 {
		return ErrTaskNotFound
	}
	if seconds < 0 {
		seconds = 0
	}
	if s.tasks[idx].RemainingSeconds == seconds {
		return nil
	}
	s.tasks[idx].RemainingSeconds = seconds
	if s.remaining.allow() {
		s.persistTasks()
		return nil
	}
	s.tasksDirty = true
	return nil
}

// Flush writes any throttled task changes.
func (s *Service) Flush() {
	if s.tasksDirty {
		s.persistTasks()
	}
}

// SaveSettings stores new settings. Tasks that have not completed a pomodoro
// yet are re-sized to the new work duration; started tasks keep their time.
func (s *Service) SaveSettings(settings model.Settings) error {
	if !settings.Validate() {
		return ErrInvalidSettings
	}
	s.settings = settings
	if err := s.storage.SaveSettings(settings); err != nil {
		s.logger.Warn("persist settings", "err", err)
	}

	work := settings.DurationFor(model.PhaseWork)
	changed := false
	for i := range s.tasks {
		if s.tasks[i].Pomodoros != 0 || s.tasks[i].RemainingSeconds == work {
			continue
		}
		s.tasks[i].RemainingSeconds = work
		changed = true
	}
	if changed {
		s.persistTasks()
	}
	return nil
}

func (s *Service) SetCompletedWorkSessions(n int) {
	if n < 0 {
		n = 0
	}
	s.sessions = n
	if err := s.storage.SaveCompletedWorkSessions(n); err != nil {
		s.logger.Warn("persist session counter", "err", err)
	}
}

func (s *Service) MoveTaskUp(id string) (model.Task, error) {
	return s.moveTask(id, -1)
}

func (s *Service) MoveTaskDown(id string) (model.Task, error) {
	return s.moveTask(id, 1)
}

func (s *Service) moveTask(id string, direction int) (model.Task, error) {
	idx := s.indexOf(id)
	if idx == -1 {
		return model.Task{}, ErrTaskNotFound
	}
	target := idx + direction
	if target < 0 {
		return model.Task{}, ErrTaskAlreadyAtTop
	}
	if target >= len(s.tasks) {
		return model.Task{}, ErrTaskAlreadyAtBottom
	}
	s.tasks[idx], s.tasks[target] = s.tasks[target], s.tasks[idx]
	s.persistTasks()
	return copyTask(s.tasks[target]), nil
}

func (s *Service) setCurrent(id string) {
	s.current = id
	if err := s.storage.SetCurrentTaskID(id); err != nil {
		s.logger.Warn("persist current task", "err", err)
	}
}

func (s *Service) persistTasks() {
	s.tasksDirty = false
	s.remaining.mark()
	if err := s.storage.SaveTasks(copyTasks(s.tasks)); err != nil {
		s.logger.Warn("persist tasks", "err", err)
	}
}

func (s *Service) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func normalizeState(state model.AppState) model.AppState {
	state.Tasks = copyTasks(state.Tasks)
	if !state.Settings.Validate() {
		state.Settings = model.DefaultSettings()
	}
	if state.CompletedWorkSessions < 0 {
		state.CompletedWorkSessions = 0
	}
	if state.CurrentTaskID != "" {
		ok := false
		for _, t := range state.Tasks {
			if t.ID == state.CurrentTaskID && !t.Completed {
				ok = true
				break
			}
		}
		if !ok {
			state.CurrentTaskID = ""
		}
	}
	return state
}

func matchesFilter(filter model.Filter, completed bool) bool {
	switch filter {
	case model.FilterCompleted:
		return completed
	case model.FilterActive:
		return !completed
	default:
		return true
	}
}

func copyTask(t model.Task) model.Task {
	if t.EstimatedPomos != nil {
		t.EstimatedPomos = model.IntPtr(*t.EstimatedPomos)
	}
	return t
}

func copyTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = copyTask(t)
	}
	return out
}
