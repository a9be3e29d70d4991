package app

import (
	"errors"
	"testing"
	"time"

	"pomo-cli/model"
)

type memStorage struct {
	tasks       []model.Task
	current     string
	settings    *model.Settings
	sessions    int
	taskWrites  int
	breakResume *model.BreakResume
	breakWrites int
}

func (m *memStorage) SaveTasks(tasks []model.Task) error {
	m.tasks = tasks
	m.taskWrites++
	return nil
}

func (m *memStorage) SetCurrentTaskID(id string) error {
	m.current = id
	return nil
}

func (m *memStorage) SaveSettings(settings model.Settings) error {
	m.settings = &settings
	return nil
}

func (m *memStorage) SaveCompletedWorkSessions(n int) error {
	m.sessions = n
	return nil
}

func (m *memStorage) SaveBreakResume(resume model.BreakResume) error {
	m.breakResume = &resume
	m.breakWrites++
	return nil
}

func (m *memStorage) ClearBreakResume() error {
	m.breakResume = nil
	return nil
}

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(storage *memStorage) *Service {
	return NewService(model.NewState(), storage, nil)
}

func mustAddTask(t *testing.T, svc *Service, name string) model.Task {
	t.Helper()
	tk, err := svc.AddTask(name)
	if err != nil {
		t.Fatalf("add task failed: %v", err)
	}
	return tk
}

func TestAddTaskUsesWorkDuration(t *testing.T) {
	storage := &memStorage{}
	svc := newTestService(storage)

	task := mustAddTask(t, svc, "  Write report  ")
	if task.Name != "Write report" {
		t.Fatalf("expected trimmed name, got %q", task.Name)
	}
	if task.ID == "" {
		t.Fatalf("expected generated id")
	}
	if task.RemainingSeconds != 1500 || task.Pomodoros != 0 || task.Completed {
		t.Fatalf("unexpected new task: %+v", task)
	}
	if task.EstimatedPomos != nil {
		t.Fatalf("expected no estimate, got %d", *task.EstimatedPomos)
	}
	if len(storage.tasks) != 1 {
		t.Fatalf("expected task to be persisted, got %+v", storage.tasks)
	}

	if _, err := svc.AddTask("   "); !errors.Is(err, ErrInvalidTaskName) {
		t.Fatalf("expected ErrInvalidTaskName, got %v", err)
	}
	if len(svc.Tasks()) != 1 {
		t.Fatalf("blank add must not change the list")
	}
}

func TestAddTaskAfterSettingsChange(t *testing.T) {
	svc := newTestService(&memStorage{})
	settings := model.DefaultSettings()
	settings.Work = 30
	if err := svc.SaveSettings(settings); err != nil {
		t.Fatalf("save settings failed: %v", err)
	}

	task := mustAddTask(t, svc, "Plan sprint")
	if task.RemainingSeconds != 1800 {
		t.Fatalf("expected 1800 seconds, got %d", task.RemainingSeconds)
	}
}

func TestSelectTaskTogglesAndPersists(t *testing.T) {
	storage := &memStorage{}
	svc := newTestService(storage)
	a := mustAddTask(t, svc, "A")
	b := mustAddTask(t, svc, "B")

	selected, err := svc.SelectTask(a.ID)
	if err != nil || !selected {
		t.Fatalf("expected a selected, got %v %v", selected, err)
	}
	if svc.CurrentTaskID() != a.ID || storage.current != a.ID {
		t.Fatalf("expected current %q, got %q (stored %q)", a.ID, svc.CurrentTaskID(), storage.current)
	}

	if _, err := svc.SelectTask(b.ID); err != nil {
		t.Fatalf("select b failed: %v", err)
	}
	if svc.CurrentTaskID() != b.ID {
		t.Fatalf("expected selection to move to b")
	}

	selected, err = svc.SelectTask(b.ID)
	if err != nil || selected {
		t.Fatalf("expected b deselected, got %v %v", selected, err)
	}
	if svc.CurrentTaskID() != "" || storage.current != "" {
		t.Fatalf("expected no current task")
	}

	if _, err := svc.SelectTask("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestSelectCompletedTaskRejected(t *testing.T) {
	svc := newTestService(&memStorage{})
	task := mustAddTask(t, svc, "Done already")
	if _, err := svc.ToggleComplete(task.ID); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if _, err := svc.SelectTask(task.ID); !errors.Is(err, ErrTaskCompleted) {
		t.Fatalf("expected ErrTaskCompleted, got %v", err)
	}
}

func TestRemoveTask(t *testing.T) {
	storage := &memStorage{}
	svc := newTestService(storage)
	a := mustAddTask(t, svc, "A")
	b := mustAddTask(t, svc, "B")
	if _, err := svc.SelectTask(a.ID); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	if err := svc.RemoveTask(a.ID); !errors.Is(err, ErrTaskSelected) {
		t.Fatalf("expected ErrTaskSelected, got %v", err)
	}
	if err := svc.RemoveTask(b.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(svc.Tasks()) != 1 || len(storage.tasks) != 1 {
		t.Fatalf("expected one task left, got %+v", svc.Tasks())
	}
	if err := svc.RemoveTask(b.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestToggleCompleteDeselectsCurrent(t *testing.T) {
	svc := newTestService(&memStorage{})
	task := mustAddTask(t, svc, "Ship it")
	if _, err := svc.SelectTask(task.ID); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	updated, err := svc.ToggleComplete(task.ID)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !updated.Completed {
		t.Fatalf("expected completed")
	}
	if svc.CurrentTaskID() != "" {
		t.Fatalf("completing the current task must clear the selection")
	}

	updated, err = svc.ToggleComplete(task.ID)
	if err != nil || updated.Completed {
		t.Fatalf("expected task reopened, got %+v %v", updated, err)
	}
}

func TestUpdateEstimate(t *testing.T) {
	svc := newTestService(&memStorage{})
	task := mustAddTask(t, svc, "Estimate me")

	updated, err := svc.UpdateEstimate(task.ID, 3)
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if updated.EstimatedPomos == nil || *updated.EstimatedPomos != 3 {
		t.Fatalf("expected estimate 3, got %+v", updated.EstimatedPomos)
	}
	if _, err := svc.UpdateEstimate(task.ID, 0); err != nil {
		t.Fatalf("zero estimate should be accepted: %v", err)
	}
	if _, err := svc.UpdateEstimate(task.ID, -1); !errors.Is(err, ErrInvalidEstimate) {
		t.Fatalf("expected ErrInvalidEstimate, got %v", err)
	}
	if _, err := svc.UpdateEstimate("missing", 2); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestSaveSettingsResizesUnstartedTasksOnly(t *testing.T) {
	svc := newTestService(&memStorage{})
	fresh := mustAddTask(t, svc, "Fresh")
	started := mustAddTask(t, svc, "Started")
	if _, err := svc.IncrementPomodoros(started.ID); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if err := svc.UpdateRemainingSeconds(started.ID, 700); err != nil {
		t.Fatalf("update remaining failed: %v", err)
	}

	settings := model.DefaultSettings()
	settings.Work = 30
	if err := svc.SaveSettings(settings); err != nil {
		t.Fatalf("save settings failed: %v", err)
	}

	got, _ := svc.GetTask(fresh.ID)
	if got.RemainingSeconds != 1800 {
		t.Fatalf("expected fresh task resized to 1800, got %d", got.RemainingSeconds)
	}
	got, _ = svc.GetTask(started.ID)
	if got.RemainingSeconds != 700 {
		t.Fatalf("expected started task untouched, got %d", got.RemainingSeconds)
	}
}

func TestSaveSettingsValidation(t *testing.T) {
	storage := &memStorage{}
	svc := newTestService(storage)

	bad := model.DefaultSettings()
	bad.Work = 0
	if err := svc.SaveSettings(bad); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	bad = model.DefaultSettings()
	bad.SoundVolume = 1.5
	if err := svc.SaveSettings(bad); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	if storage.settings != nil {
		t.Fatalf("invalid settings must not be persisted")
	}
	if svc.Settings() != model.DefaultSettings() {
		t.Fatalf("invalid settings must not be applied")
	}
}

func TestFilteredTasks(t *testing.T) {
	svc := newTestService(&memStorage{})
	a := mustAddTask(t, svc, "A")
	_ = mustAddTask(t, svc, "B")
	if _, err := svc.ToggleComplete(a.ID); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	cases := []struct {
		filter model.Filter
		want   []string
	}{
		{model.FilterAll, []string{"A", "B"}},
		{model.FilterActive, []string{"B"}},
		{model.FilterCompleted, []string{"A"}},
	}
	for _, tc := range cases {
		got, err := svc.FilteredTasks(tc.filter)
		if err != nil {
			t.Fatalf("filter %s failed: %v", tc.filter, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("filter %s: expected %v, got %+v", tc.filter, tc.want, got)
		}
		for i, name := range tc.want {
			if got[i].Name != name {
				t.Fatalf("filter %s: expected %v, got %+v", tc.filter, tc.want, got)
			}
		}
	}

	if _, err := svc.FilteredTasks("bogus"); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestManualOrderingMoveWithLimits(t *testing.T) {
	svc := newTestService(&memStorage{})
	a := mustAddTask(t, svc, "A")
	_ = mustAddTask(t, svc, "B")
	c := mustAddTask(t, svc, "C")

	if _, err := svc.MoveTaskUp(a.ID); !errors.Is(err, ErrTaskAlreadyAtTop) {
		t.Fatalf("expected ErrTaskAlreadyAtTop, got %v", err)
	}
	if _, err := svc.MoveTaskDown(c.ID); !errors.Is(err, ErrTaskAlreadyAtBottom) {
		t.Fatalf("expected ErrTaskAlreadyAtBottom, got %v", err)
	}

	if _, err := svc.MoveTaskDown(a.ID); err != nil {
		t.Fatalf("move down failed: %v", err)
	}
	tasks := svc.Tasks()
	if tasks[0].Name != "B" || tasks[1].Name != "A" || tasks[2].Name != "C" {
		t.Fatalf("unexpected order after first move: %+v", tasks)
	}

	if _, err := svc.MoveTaskUp(c.ID); err != nil {
		t.Fatalf("move up failed: %v", err)
	}
	tasks = svc.Tasks()
	if tasks[0].Name != "B" || tasks[1].Name != "C" || tasks[2].Name != "A" {
		t.Fatalf("unexpected order after second move: %+v", tasks)
	}
}

func TestRemainingSecondsThrottled(t *testing.T) {
	storage := &memStorage{}
	clock := newFakeClock()
	svc := NewService(model.NewState(), storage, nil, WithClock(clock.Now), WithSaveInterval(time.Second))
	task := mustAddTask(t, svc, "Focus")
	writes := storage.taskWrites

	clock.Advance(2 * time.Second)
	if err := svc.UpdateRemainingSeconds(task.ID, 1499); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if storage.taskWrites != writes+1 {
		t.Fatalf("expected first update to be written")
	}

	if err := svc.UpdateRemainingSeconds(task.ID, 1498); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if storage.taskWrites != writes+1 {
		t.Fatalf("expected second update within the interval to be held back")
	}
	if got, _ := svc.GetTask(task.ID); got.RemainingSeconds != 1498 {
		t.Fatalf("in-memory value must be current, got %d", got.RemainingSeconds)
	}

	svc.Flush()
	if storage.taskWrites != writes+2 || storage.tasks[0].RemainingSeconds != 1498 {
		t.Fatalf("expected flush to write 1498, got %+v", storage.tasks)
	}
	svc.Flush()
	if storage.taskWrites != writes+2 {
		t.Fatalf("flush without pending changes must not write")
	}

	clock.Advance(time.Second)
	if err := svc.UpdateRemainingSeconds(task.ID, 1497); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if storage.taskWrites != writes+3 {
		t.Fatalf("expected write after interval elapsed")
	}
}

func TestNewServiceDropsStaleSelection(t *testing.T) {
	state := model.NewState()
	state.Tasks = []model.Task{
		{ID: "t1", Name: "Done", Completed: true, RemainingSeconds: 1500},
	}
	state.CurrentTaskID = "t1"
	state.CompletedWorkSessions = -4
	svc := NewService(state, &memStorage{}, nil)
	if svc.CurrentTaskID() != "" {
		t.Fatalf("completed task must not stay selected")
	}
	if svc.CompletedWorkSessions() != 0 {
		t.Fatalf("expected session counter clamped to 0, got %d", svc.CompletedWorkSessions())
	}

	state.CurrentTaskID = "ghost"
	svc = NewService(state, &memStorage{}, nil)
	if svc.CurrentTaskID() != "" {
		t.Fatalf("missing task must not stay selected")
	}
}

func TestTasksReturnsCopies(t *testing.T) {
	svc := newTestService(&memStorage{})
	task := mustAddTask(t, svc, "Immutable")
	if _, err := svc.UpdateEstimate(task.ID, 2); err != nil {
		t.Fatalf("estimate failed: %v", err)
	}

	tasks := svc.Tasks()
	tasks[0].Name = "changed"
	*tasks[0].EstimatedPomos = 9

	got, _ := svc.GetTask(task.ID)
	if got.Name != "Immutable" || *got.EstimatedPomos != 2 {
		t.Fatalf("service state leaked through copy: %+v", got)
	}
}
