package model

// Phase is the timer's current mode.
type Phase string

const (
	PhaseWork       Phase = "work"
	PhaseShortBreak Phase = "shortBreak"
	PhaseLongBreak  Phase = "longBreak"
)

// IsBreak reports whether p is one of the break phases.
func (p Phase) IsBreak() bool {
	return p == PhaseShortBreak || p == PhaseLongBreak
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseWork, PhaseShortBreak, PhaseLongBreak:
		return true
	}
	return false
}

func (p Phase) Label() string {
	switch p {
	case PhaseShortBreak:
		return "Short Break"
	case PhaseLongBreak:
		return "Long Break"
	default:
		return "Work"
	}
}

// Filter represents how tasks should be shown.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// Task is one item of the list that the timer can count toward.
type Task struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Completed        bool   `json:"completed"`
	RemainingSeconds int    `json:"remainingSeconds"`
	Pomodoros        int    `json:"pomodoros"`
	EstimatedPomos   *int   `json:"estimatedPomos,omitempty"`
}

// Valid is the shape check applied to persisted records.
func (t Task) Valid() bool {
	if t.ID == "" || t.Name == "" {
		return false
	}
	if t.RemainingSeconds < 0 || t.Pomodoros < 0 {
		return false
	}
	return t.EstimatedPomos == nil || *t.EstimatedPomos >= 0
}

// Settings are the user-editable durations (minutes) and sound preferences.
type Settings struct {
	Work              int     `json:"work"`
	ShortBreak        int     `json:"shortBreak"`
	LongBreak         int     `json:"longBreak"`
	LongBreakInterval int     `json:"longBreakInterval"`
	SoundEnabled      bool    `json:"soundEnabled"`
	SoundVolume       float64 `json:"soundVolume"`
}

// DefaultSettings returns the settings used on first run.
func DefaultSettings() Settings {
	return Settings{
		Work:              25,
		ShortBreak:        5,
		LongBreak:         15,
		LongBreakInterval: 4,
		SoundEnabled:      true,
		SoundVolume:       0.5,
	}
}

// Validate reports whether every field is inside its allowed range.
func (s Settings) Validate() bool {
	if s.Work < 1 || s.ShortBreak < 1 || s.LongBreak < 1 || s.LongBreakInterval < 1 {
		return false
	}
	return s.SoundVolume >= 0 && s.SoundVolume <= 1
}

// DurationFor returns the configured length of phase in seconds.
func (s Settings) DurationFor(phase Phase) int {
	switch phase {
	case PhaseShortBreak:
		return s.ShortBreak * 60
	case PhaseLongBreak:
		return s.LongBreak * 60
	default:
		return s.Work * 60
	}
}

// BreakResume is written while a break is in progress so it survives restarts.
type BreakResume struct {
	Mode        Phase `json:"mode"`
	SecondsLeft int   `json:"secondsLeft"`
	Running     bool  `json:"running"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the reflection assistant transcript.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// AppState is everything restored from durable storage at startup.
type AppState struct {
	Tasks                 []Task
	CurrentTaskID         string
	Settings              Settings
	CompletedWorkSessions int
	BreakResume           *BreakResume
	Chat                  []ChatMessage
}

// NewState returns an initialized first-run state.
func NewState() AppState {
	return AppState{
		Tasks:    []Task{},
		Settings: DefaultSettings(),
		Chat:     []ChatMessage{},
	}
}

// IntPtr is a small helper for optional integer fields.
func IntPtr(v int) *int {
	return &v
}
