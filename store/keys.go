package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"pomo-cli/model"
)

// Storage keys. Values are JSON, except completedWorkSessions (decimal integer)
// and currentTaskId (plain string).
const (
	KeyTasks                 = "tasks"
	KeyCurrentTaskID         = "currentTaskId"
	KeySettings              = "settings"
	KeyCompletedWorkSessions = "completedWorkSessions"
	KeyBreakResume           = "pomodoroBreakState"
	KeyChatTranscript        = "chatTranscript"
)

// LoadState reads every key, falling back to defaults for absent or malformed values.
func (s *Store) LoadState() model.AppState {
	state := model.NewState()
	state.Tasks = s.Tasks()
	state.CurrentTaskID = s.CurrentTaskID()
	state.Settings = s.Settings()
	state.CompletedWorkSessions = s.CompletedWorkSessions()
	if resume, ok := s.BreakResume(); ok {
		state.BreakResume = &resume
	}
	state.Chat = s.ChatTranscript()
	return state
}

// Tasks decodes the task list, dropping records that fail the shape check.
func (s *Store) Tasks() []model.Task {
	raw, ok := s.Get(KeyTasks)
	if !ok {
		return []model.Task{}
	}
	var records []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.logger.Warn("discarding malformed tasks", "err", err)
		return []model.Task{}
	}

	tasks := make([]model.Task, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		var t model.Task
		if err := json.Unmarshal(rec, &t); err != nil || !t.Valid() || seen[t.ID] {
			s.logger.Warn("dropping invalid task record", "record", string(rec))
			continue
		}
		seen[t.ID] = true
		tasks = append(tasks, t)
	}
	return tasks
}

func (s *Store) SaveTasks(tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	return s.setJSON(KeyTasks, tasks)
}

func (s *Store) CurrentTaskID() string {
	id, _ := s.Get(KeyCurrentTaskID)
	return strings.TrimSpace(id)
}

func (s *Store) SetCurrentTaskID(id string) error {
	return s.Set(KeyCurrentTaskID, id)
}

// Settings decodes over the defaults so older documents missing newer fields
// keep working; anything out of range falls back to the defaults entirely.
func (s *Store) Settings() model.Settings {
	settings := model.DefaultSettings()
	raw, ok := s.Get(KeySettings)
	if !ok {
		return settings
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.logger.Warn("discarding malformed settings", "err", err)
		return model.DefaultSettings()
	}
	if !settings.Validate() {
		s.logger.Warn("discarding out of range settings", "settings", raw)
		return model.DefaultSettings()
	}
	return settings
}

func (s *Store) SaveSettings(settings model.Settings) error {
	return s.setJSON(KeySettings, settings)
}

func (s *Store) CompletedWorkSessions() int {
	raw, ok := s.Get(KeyCompletedWorkSessions)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		s.logger.Warn("discarding malformed session counter", "value", raw)
		return 0
	}
	return n
}

func (s *Store) SaveCompletedWorkSessions(n int) error {
	return s.Set(KeyCompletedWorkSessions, strconv.Itoa(n))
}

// BreakResume returns the persisted break, if one is present and well formed.
func (s *Store) BreakResume() (model.BreakResume, bool) {
	raw, ok := s.Get(KeyBreakResume)
	if !ok {
		return model.BreakResume{}, false
	}
	var resume model.BreakResume
	if err := json.Unmarshal([]byte(raw), &resume); err != nil {
		s.logger.Warn("discarding malformed break state", "err", err)
		return model.BreakResume{}, false
	}
	if !resume.Mode.IsBreak() || resume.SecondsLeft < 0 {
		s.logger.Warn("discarding invalid break state", "value", raw)
		return model.BreakResume{}, false
	}
	return resume, true
}

func (s *Store) SaveBreakResume(resume model.BreakResume) error {
	return s.setJSON(KeyBreakResume, resume)
}

func (s *Store) ClearBreakResume() error {
	return s.Delete(KeyBreakResume)
}

func (s *Store) ChatTranscript() []model.ChatMessage {
	raw, ok := s.Get(KeyChatTranscript)
	if !ok {
		return []model.ChatMessage{}
	}
	var msgs []model.ChatMessage
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		s.logger.Warn("discarding malformed chat transcript", "err", err)
		return []model.ChatMessage{}
	}
	out := make([]model.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (s *Store) SaveChatTranscript(msgs []model.ChatMessage) error {
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	return s.setJSON(KeyChatTranscript, msgs)
}

func (s *Store) setJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(key, string(raw))
}
