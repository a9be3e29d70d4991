package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"pomo-cli/app"
	"pomo-cli/model"
)

const (
	fieldWork = iota
	fieldShortBreak
	fieldLongBreak
	fieldInterval
	fieldSound
	fieldVolume
	fieldCount
)

var fieldLabels = [fieldCount]string{
	fieldWork:       "Work (min)",
	fieldShortBreak: "Short break (min)",
	fieldLongBreak:  "Long break (min)",
	fieldInterval:   "Long break every",
	fieldSound:      "Sound",
	fieldVolume:     "Volume (0-1)",
}

// settingsForm edits a copy of the settings. fieldSound has no text input;
// space toggles it.
type settingsForm struct {
	inputs [fieldCount]textinput.Model
	sound  bool
	focus  int
}

func newSettingsForm(s model.Settings) settingsForm {
	var f settingsForm
	values := [fieldCount]string{
		fieldWork:       strconv.Itoa(s.Work),
		fieldShortBreak: strconv.Itoa(s.ShortBreak),
		fieldLongBreak:  strconv.Itoa(s.LongBreak),
		fieldInterval:   strconv.Itoa(s.LongBreakInterval),
		fieldVolume:     strconv.FormatFloat(s.SoundVolume, 'f', -1, 64),
	}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 6
		ti.Width = 8
		ti.SetValue(values[i])
		f.inputs[i] = ti
	}
	f.sound = s.SoundEnabled
	return f
}

func (f *settingsForm) setFocus(i int) tea.Cmd {
	f.focus = (i + fieldCount) % fieldCount
	var cmd tea.Cmd
	for j := range f.inputs {
		if j == f.focus && j != fieldSound {
			cmd = f.inputs[j].Focus()
			continue
		}
		f.inputs[j].Blur()
	}
	return cmd
}

func (f *settingsForm) parse() (model.Settings, error) {
	var s model.Settings
	ints := []struct {
		field int
		dst   *int
	}{
		{fieldWork, &s.Work},
		{fieldShortBreak, &s.ShortBreak},
		{fieldLongBreak, &s.LongBreak},
		{fieldInterval, &s.LongBreakInterval},
	}
	for _, it := range ints {
		n, err := strconv.Atoi(strings.TrimSpace(f.inputs[it.field].Value()))
		if err != nil {
			return s, fmt.Errorf("%s must be a whole number", fieldLabels[it.field])
		}
		*it.dst = n
	}
	vol, err := strconv.ParseFloat(strings.TrimSpace(f.inputs[fieldVolume].Value()), 64)
	if err != nil {
		return s, fmt.Errorf("%s must be a number", fieldLabels[fieldVolume])
	}
	s.SoundVolume = vol
	s.SoundEnabled = f.sound
	return s, nil
}

func (m *Model) openSettings() tea.Cmd {
	if m.ctrl.Snapshot().Running {
		m.setError(app.ErrTimerRunning)
		return nil
	}
	m.settings = newSettingsForm(m.ctrl.Service().Settings())
	m.mode = modeSettings
	m.showHelp = false
	return m.settings.setFocus(fieldWork)
}

func (m *Model) updateSettingsMode(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.mode = modeNormal
		m.setStatus("Settings unchanged", false)
		return nil
	case "tab", "down":
		return m.settings.setFocus(m.settings.focus + 1)
	case "shift+tab", "up":
		return m.settings.setFocus(m.settings.focus - 1)
	case "enter":
		m.saveSettings()
		return nil
	}

	if m.settings.focus == fieldSound {
		if msg.String() == " " {
			m.settings.sound = !m.settings.sound
		}
		return nil
	}
	var cmd tea.Cmd
	m.settings.inputs[m.settings.focus], cmd = m.settings.inputs[m.settings.focus].Update(msg)
	return cmd
}

func (m *Model) saveSettings() {
	s, err := m.settings.parse()
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	if err := m.ctrl.SaveSettings(s); err != nil {
		m.setError(err)
		return
	}
	m.mode = modeNormal
	m.setStatus("Settings saved", false)
}
