package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"pomo-cli/app"
	"pomo-cli/assistant"
	"pomo-cli/model"
	"pomo-cli/timer"
)

var statusTTL = 4 * time.Second

type uiMode int

const (
	modeNormal uiMode = iota
	modeAddTask
	modeRenameTask
	modeEstimate
	modeSettings
	modeConfirmDelete
	modeChat
)

type tickMsg struct {
	handle timer.Handle
}

type statusExpiredMsg struct {
	seq int
}

// TranscriptStore persists the assistant conversation.
type TranscriptStore interface {
	SaveChatTranscript(msgs []model.ChatMessage) error
}

// Option configures a Model.
type Option func(*Model)

// WithAssistant enables the chat pane. transcript is the persisted
// conversation to resume; store may be nil.
func WithAssistant(client *assistant.Client, transcript []model.ChatMessage, store TranscriptStore) Option {
	return func(m *Model) {
		m.client = client
		m.conv = assistant.NewConversation(transcript)
		m.transcript = store
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

type Model struct {
	ctrl   *app.Controller
	logger *slog.Logger

	mode   uiMode
	cursor int
	filter model.Filter
	input  textinput.Model
	editID string

	confirmID   string
	confirmName string

	settings settingsForm

	client     *assistant.Client
	conv       *assistant.Conversation
	transcript TranscriptStore
	chatInput  textinput.Model
	spinner    spinner.Model

	showHelp bool

	status    string
	statusErr bool
	statusSeq int

	width  int
	height int
}

func NewModel(ctrl *app.Controller, startupStatus string, opts ...Option) *Model {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Prompt = ""

	ci := textinput.New()
	ci.Placeholder = "Ask the assistant..."
	ci.CharLimit = 2000
	ci.Prompt = "> "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctrl:      ctrl,
		logger:    slog.New(slog.DiscardHandler),
		mode:      modeNormal,
		filter:    model.FilterAll,
		input:     ti,
		chatInput: ci,
		spinner:   sp,
		conv:      assistant.NewConversation(nil),
	}
	for _, opt := range opts {
		opt(m)
	}

	if status := strings.TrimSpace(startupStatus); status != "" {
		m.setStatus(status, false)
	} else if len(ctrl.Service().Tasks()) == 0 {
		m.setStatus("Welcome. Press 'a' to add your first task.", false)
	}
	m.ensureSelection()
	return m
}

func (m *Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.status != "" {
		cmds = append(cmds, expireStatus(m.statusSeq))
	}
	cmds = append(cmds, m.scheduleTick())
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	seq := m.statusSeq
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.handleTick(msg)
	case chatReplyMsg:
		m.applyChatReply(msg)
	case spinner.TickMsg:
		if m.conv.Pending() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	case statusExpiredMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeAddTask, modeRenameTask, modeEstimate:
			cmds = append(cmds, m.updateInputMode(msg))
		case modeSettings:
			cmds = append(cmds, m.updateSettingsMode(msg))
		case modeConfirmDelete:
			m.updateConfirmMode(msg)
		case modeChat:
			cmds = append(cmds, m.updateChatMode(msg))
		default:
			cmd, quit := m.updateNormalMode(msg)
			if quit {
				m.ctrl.Flush()
				return m, tea.Quit
			}
			cmds = append(cmds, cmd)
		}
	}

	cmds = append(cmds, m.scheduleTick())
	if m.statusSeq != seq && m.status != "" {
		cmds = append(cmds, expireStatus(m.statusSeq))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) updateNormalMode(msg tea.KeyMsg) (tea.Cmd, bool) {
	var cmd tea.Cmd
	switch msg.String() {
	case "ctrl+c", "q":
		return nil, true
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case " ":
		m.toggleTimer()
	case "r":
		m.ctrl.Reset()
		m.setStatus("Timer reset", false)
	case "s":
		if err := m.ctrl.SkipBreak(); err != nil {
			m.setError(err)
			break
		}
		m.setStatus("Break skipped", false)
	case "enter":
		m.selectTask()
	case "a":
		cmd = m.startInput(modeAddTask, "Task name", "")
	case "e":
		cmd = m.startRename()
	case "p":
		cmd = m.startEstimate()
	case "x":
		cmd = m.toggleComplete()
	case "d":
		m.startDeleteConfirm()
	case "J":
		m.moveSelectedTask(1)
	case "K":
		m.moveSelectedTask(-1)
	case "f":
		m.cycleFilter()
	case "S":
		cmd = m.openSettings()
	case "c":
		cmd = m.openChat(m.generalOpening())
	case "?":
		m.showHelp = !m.showHelp
	case "esc":
		m.showHelp = false
	}

	m.ensureSelection()
	return cmd, false
}

func (m *Model) updateInputMode(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.closeInput()
		m.setStatus("Cancelled", false)
		return nil
	case "enter":
		m.applyInput()
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) updateConfirmMode(msg tea.KeyMsg) {
	switch strings.ToLower(msg.String()) {
	case "y":
		m.confirmDelete()
	case "n", "esc", "enter":
		m.mode = modeNormal
		m.confirmID = ""
		m.confirmName = ""
		m.setStatus("Cancelled", false)
	}
}

func (m *Model) startInput(mode uiMode, placeholder, value string) tea.Cmd {
	m.mode = mode
	m.input.Reset()
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closeInput() {
	m.mode = modeNormal
	m.editID = ""
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) startRename() tea.Cmd {
	task, ok := m.selectedTask()
	if !ok {
		m.setStatus("No task selected", true)
		return nil
	}
	m.editID = task.ID
	return m.startInput(modeRenameTask, "Task name", task.Name)
}

func (m *Model) startEstimate() tea.Cmd {
	task, ok := m.selectedTask()
	if !ok {
		m.setStatus("No task selected", true)
		return nil
	}
	m.editID = task.ID
	value := ""
	if task.EstimatedPomos != nil {
		value = strconv.Itoa(*task.EstimatedPomos)
	}
	return m.startInput(modeEstimate, "Pomodoros", value)
}

func (m *Model) applyInput() {
	text := strings.TrimSpace(m.input.Value())
	switch m.mode {
	case modeAddTask:
		task, err := m.ctrl.AddTask(text)
		if err != nil {
			m.setError(err)
			return
		}
		m.closeInput()
		if m.filter == model.FilterCompleted {
			m.filter = model.FilterAll
		}
		m.cursor = m.indexOfTask(task.ID)
		m.setStatus(fmt.Sprintf("Added %q", task.Name), false)
	case modeRenameTask:
		task, err := m.ctrl.RenameTask(m.editID, text)
		if err != nil {
			m.setError(err)
			return
		}
		m.closeInput()
		m.setStatus(fmt.Sprintf("Renamed to %q", task.Name), false)
	case modeEstimate:
		n, err := strconv.Atoi(text)
		if err != nil {
			m.setStatus("Estimate must be a whole number", true)
			return
		}
		task, err := m.ctrl.UpdateEstimate(m.editID, n)
		if err != nil {
			m.setError(err)
			return
		}
		m.closeInput()
		m.setStatus(fmt.Sprintf("Estimate for %q set to %d", task.Name, n), false)
	}
	m.ensureSelection()
}

func (m *Model) toggleTimer() {
	if !m.ctrl.Toggle() {
		m.setStatus("Select a task first (Enter)", true)
		return
	}
	if m.ctrl.Snapshot().Running {
		m.setStatus("Running", false)
	} else {
		m.setStatus("Paused", false)
	}
}

func (m *Model) selectTask() {
	task, ok := m.selectedTask()
	if !ok {
		m.setStatus("No task selected", true)
		return
	}
	if err := m.ctrl.SelectTask(task.ID); err != nil {
		m.setError(err)
		return
	}
	if m.ctrl.Service().CurrentTaskID() == task.ID {
		m.setStatus(fmt.Sprintf("Working on %q", task.Name), false)
	} else {
		m.setStatus("No current task", false)
	}
}

func (m *Model) toggleComplete() tea.Cmd {
	task, ok := m.selectedTask()
	if !ok {
		m.setStatus("No task selected", true)
		return nil
	}
	updated, err := m.ctrl.ToggleComplete(task.ID)
	if err != nil {
		m.setError(err)
		return nil
	}
	m.cursor = m.indexOfTask(updated.ID)
	if !updated.Completed {
		m.setStatus(fmt.Sprintf("Reopened %q", updated.Name), false)
		return nil
	}
	m.setStatus(fmt.Sprintf("Completed %q", updated.Name), false)

	opening, ok := assistant.CompletionOpening(updated)
	if !ok || !m.client.Configured() || m.conv.Pending() {
		return nil
	}
	m.conv.Reset()
	return m.openChat(opening)
}

func (m *Model) startDeleteConfirm() {
	task, ok := m.selectedTask()
	if !ok {
		m.setStatus("No task selected", true)
		return
	}
	if task.ID == m.ctrl.Service().CurrentTaskID() {
		m.setError(app.ErrTaskSelected)
		return
	}
	m.mode = modeConfirmDelete
	m.confirmID = task.ID
	m.confirmName = task.Name
}

func (m *Model) confirmDelete() {
	if err := m.ctrl.RemoveTask(m.confirmID); err != nil {
		m.setError(err)
	} else {
		m.setStatus(fmt.Sprintf("Deleted %q", m.confirmName), false)
	}
	m.mode = modeNormal
	m.confirmID = ""
	m.confirmName = ""
	m.ensureSelection()
}

func (m *Model) moveSelectedTask(delta int) {
	if m.filter != model.FilterAll {
		m.setStatus("Reordering is only available with filter 'all'", true)
		return
	}
	task, ok := m.selectedTask()
	if !ok {
		m.setStatus("No task selected", true)
		return
	}
	var err error
	if delta < 0 {
		_, err = m.ctrl.MoveTaskUp(task.ID)
	} else {
		_, err = m.ctrl.MoveTaskDown(task.ID)
	}
	if err != nil {
		m.setError(err)
		return
	}
	m.cursor = m.indexOfTask(task.ID)
}

func (m *Model) cycleFilter() {
	switch m.filter {
	case model.FilterAll:
		m.filter = model.FilterActive
	case model.FilterActive:
		m.filter = model.FilterCompleted
	default:
		m.filter = model.FilterAll
	}
	m.cursor = 0
	m.setStatus("Filter: "+filterLabel(m.filter), false)
}

func (m *Model) handleTick(msg tickMsg) {
	tr, expired := m.ctrl.Tick(msg.handle)
	if !expired {
		return
	}
	switch tr.To {
	case model.PhaseShortBreak:
		m.setStatus("Pomodoro complete. Time for a short break.", false)
	case model.PhaseLongBreak:
		m.setStatus("Pomodoro complete. Time for a long break.", false)
	default:
		m.setStatus("Break over. Press space to start the next pomodoro.", false)
	}
}

func (m *Model) scheduleTick() tea.Cmd {
	h, ok := m.ctrl.Schedule()
	if !ok {
		return nil
	}
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{handle: h}
	})
}

func expireStatus(seq int) tea.Cmd {
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return statusExpiredMsg{seq: seq}
	})
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
	m.statusSeq++
}

func (m *Model) setError(err error) {
	m.setStatus(errorText(err), true)
}

func errorText(err error) string {
	switch {
	case errors.Is(err, timer.ErrNotOnBreak):
		return "Not on a break"
	case errors.Is(err, app.ErrInvalidSettings):
		return "Invalid settings: " + app.ErrInvalidSettings.Error()
	}
	msg := err.Error()
	if msg == "" {
		return "Error"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func (m *Model) ensureSelection() {
	tasks := m.visibleTasks()
	if len(tasks) == 0 {
		m.cursor = 0
		return
	}
	m.cursor = clamp(m.cursor, 0, len(tasks)-1)
}

func (m *Model) moveCursor(delta int) {
	tasks := m.visibleTasks()
	if len(tasks) == 0 {
		m.cursor = 0
		return
	}
	m.cursor = clamp(m.cursor+delta, 0, len(tasks)-1)
}

func (m *Model) visibleTasks() []model.Task {
	tasks, err := m.ctrl.Service().FilteredTasks(m.filter)
	if err != nil {
		return []model.Task{}
	}
	return tasks
}

func (m *Model) selectedTask() (model.Task, bool) {
	tasks := m.visibleTasks()
	if len(tasks) == 0 {
		return model.Task{}, false
	}
	if m.cursor < 0 || m.cursor >= len(tasks) {
		m.cursor = 0
	}
	return tasks[m.cursor], true
}

func (m *Model) indexOfTask(taskID string) int {
	tasks := m.visibleTasks()
	for i, t := range tasks {
		if t.ID == taskID {
			return i
		}
	}
	if len(tasks) == 0 {
		return 0
	}
	return len(tasks) - 1
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
