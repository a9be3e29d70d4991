package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"pomo-cli/app"
	"pomo-cli/model"
)

const (
	colorWork       = lipgloss.Color("203")
	colorShortBreak = lipgloss.Color("39")
	colorLongBreak  = lipgloss.Color("135")
)

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}

	snap := m.ctrl.Snapshot()
	accent := phaseColor(snap.Phase)
	title := lipgloss.NewStyle().Bold(true).Foreground(accent).Render("pomo")
	summary := fmt.Sprintf("%s • sessions: %d/%d • filter: %s",
		snap.Phase.Label(), snap.Sessions, snap.Settings.LongBreakInterval, filterLabel(m.filter))
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		title,
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("  "+summary),
	)

	viewW := m.viewportWidth()
	const paneGap = 1
	outerPaneW := viewW
	innerPaneW := outerPaneW - 2
	if innerPaneW < 20 {
		innerPaneW = outerPaneW
	}

	panelH := m.height - 5
	if panelH < 8 {
		panelH = 8
	}
	innerPaneH := panelH - 2
	if innerPaneH < 6 {
		innerPaneH = 6
	}

	leftW, rightW := m.paneWidths(innerPaneW, paneGap)
	split := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderTimerPanel(snap, leftW, innerPaneH),
		lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("│"),
		m.renderTasksPanel(rightW, innerPaneH),
	)

	frameColor := lipgloss.Color("240")
	if m.mode == modeNormal {
		frameColor = accent
	}
	panes := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(frameColor).
		Width(outerPaneW - 2).
		Height(panelH).
		Render(split)

	popupW := viewW - 8
	if popupW > 96 {
		popupW = 96
	}
	if popupW < 40 {
		popupW = viewW - 2
	}
	switch {
	case m.showHelp:
		panes = lipgloss.Place(viewW, panelH, lipgloss.Center, lipgloss.Center, m.renderHelpOverlay(popupW))
	case m.mode == modeSettings:
		panes = lipgloss.Place(viewW, panelH, lipgloss.Center, lipgloss.Center, m.renderSettingsOverlay(popupW))
	case m.mode == modeChat:
		panes = lipgloss.Place(viewW, panelH, lipgloss.Center, lipgloss.Center, m.renderChatOverlay(popupW, panelH))
	}

	statusText := m.status
	if statusText == "" {
		statusText = m.contextualHelp()
	}
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	if m.status == "" {
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	}
	if m.statusErr {
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	}
	rightHint := "? shortcuts"
	if m.showHelp {
		rightHint = "Esc/? close"
	}
	footerLine := m.renderFooter(statusText, statusStyle, rightHint)

	promptLine := ""
	switch m.mode {
	case modeAddTask:
		promptLine = "New task: " + m.input.View()
	case modeRenameTask:
		promptLine = "Rename task: " + m.input.View()
	case modeEstimate:
		promptLine = "Estimated pomodoros: " + m.input.View()
	case modeConfirmDelete:
		promptLine = fmt.Sprintf("Delete task \"%s\"? [y/N]", m.confirmName)
	}
	if promptLine != "" {
		promptLine = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Width(viewW).Render(promptLine)
	}

	parts := []string{header, panes, footerLine}
	if promptLine != "" && !m.showHelp {
		parts = append(parts, promptLine)
	}
	return strings.Join(parts, "\n")
}

func (m *Model) viewportWidth() int {
	if m.width <= 0 {
		return 1
	}
	// Leave the last column free; some terminals wrap on it.
	if m.width > 1 {
		return m.width - 1
	}
	return m.width
}

func (m *Model) paneWidths(total, gap int) (int, int) {
	if total <= 0 {
		return 24, 30
	}
	if gap < 0 {
		gap = 0
	}

	minLeft := 24
	minRight := 30
	if total < minLeft+minRight+gap {
		left := total / 3
		if left < 12 {
			left = 12
		}
		right := total - left - gap
		if right < 12 {
			right = 12
			left = total - right - gap
			if left < 10 {
				left = 10
			}
		}
		return left, right
	}

	left := total / 3
	if left < minLeft {
		left = minLeft
	}
	if left > 40 {
		left = 40
	}

	right := total - left - gap
	if right < minRight {
		right = minRight
		left = total - right - gap
	}
	if left < minLeft {
		left = minLeft
		right = total - left - gap
	}

	return left, right
}

func (m *Model) renderFooter(statusText string, statusStyle lipgloss.Style, rightHint string) string {
	left := strings.TrimSpace(statusText)
	right := strings.TrimSpace(rightHint)
	if left == "" {
		left = "Ready"
	}
	if right == "" {
		right = "? shortcuts"
	}

	leftW := utf8.RuneCountInString(left)
	rightW := utf8.RuneCountInString(right)
	width := m.viewportWidth()
	if width <= 0 {
		width = leftW + rightW + 2
	}

	if leftW+rightW+1 > width {
		maxLeft := width - rightW - 1
		if maxLeft < 8 {
			maxLeft = 8
		}
		left = truncateRunes(left, maxLeft)
		leftW = utf8.RuneCountInString(left)
	}

	padding := width - leftW - rightW
	if padding < 1 {
		padding = 1
	}

	rightStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	line := statusStyle.Render(left) + strings.Repeat(" ", padding) + rightStyle.Render(right)
	return lipgloss.NewStyle().Width(width).Render(line)
}

func (m *Model) renderHelpOverlay(width int) string {
	title := lipgloss.NewStyle().Bold(true).Render("Shortcuts")
	section := lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	line := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	rows := []string{
		title,
		"",
		section.Render("Timer"),
		line.Render("  space start/pause • r reset • s skip break"),
		line.Render("  S settings • c assistant • q quit"),
		"",
		section.Render("Tasks"),
		line.Render("  j/k move • Enter select/deselect • a add • e rename"),
		line.Render("  p estimate • x complete/reopen • d delete"),
		line.Render("  J/K reorder • f filter"),
		"",
		section.Render("Assistant"),
		line.Render("  Enter send • ctrl+n new conversation • Esc close"),
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("244")).
		Padding(1, 2)

	return style.Width(width).Render(strings.Join(rows, "\n"))
}

func (m *Model) contextualHelp() string {
	switch m.mode {
	case modeAddTask, modeRenameTask, modeEstimate:
		return "Type • Enter confirm • Esc cancel"
	case modeConfirmDelete:
		return "Confirm • y yes • n/Esc no"
	case modeSettings:
		return "Settings • Tab next field • space toggles sound • Enter save • Esc cancel"
	case modeChat:
		return "Assistant • Enter send • ctrl+n new conversation • Esc close"
	}
	return "space start/pause • Enter select • a add • x done • S settings • c assistant"
}

func (m *Model) renderTimerPanel(snap app.Snapshot, width, height int) string {
	accent := phaseColor(snap.Phase)
	lines := make([]string, 0, 10)
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(accent).Render(snap.Phase.Label()))
	lines = append(lines, "")

	clock := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(formatClock(snap.SecondsLeft))
	state := "paused"
	if snap.Running {
		state = "running"
	}
	lines = append(lines, clock+"  "+lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(state))
	lines = append(lines, progressBar(snap.Duration-snap.SecondsLeft, snap.Duration, width-2, accent))
	lines = append(lines, "")

	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	if snap.HasTask && snap.Task.ID != "" {
		lines = append(lines, lipgloss.NewStyle().Bold(true).Render(truncateRunes(snap.Task.Name, width)))
		lines = append(lines, muted.Render(pomodoroLabel(snap.Task)))
	} else {
		lines = append(lines, muted.Render("No task selected."))
		lines = append(lines, muted.Render("Pick one with Enter."))
	}
	lines = append(lines, "")
	lines = append(lines, sessionDots(snap.Sessions, snap.Settings.LongBreakInterval, accent))

	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderTasksPanel(width, height int) string {
	tasks := m.visibleTasks()
	current := m.ctrl.Service().CurrentTaskID()

	lines := make([]string, 0, len(tasks)+2)
	lines = append(lines, panelTitleStyled("Tasks: "+filterLabel(m.filter), m.mode == modeNormal))

	if len(tasks) == 0 {
		msg := "No tasks yet. Press 'a' to add one."
		if len(m.ctrl.Service().Tasks()) > 0 {
			msg = "No tasks for the current filter (use 'f')."
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(msg))
	}
	for i, t := range tasks {
		cursor := " "
		if i == m.cursor {
			cursor = "▸"
		}
		check := "[ ]"
		if t.Completed {
			check = "[x]"
		}
		marker := " "
		if t.ID == current {
			marker = lipgloss.NewStyle().Foreground(colorWork).Render("●")
		}

		textStyle := lipgloss.NewStyle()
		if t.Completed {
			textStyle = textStyle.Faint(true)
		}
		if i == m.cursor {
			textStyle = textStyle.Bold(true).Foreground(lipgloss.Color("229"))
		}
		counter := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(" " + pomodoroCount(t))

		line := lipgloss.JoinHorizontal(lipgloss.Left,
			cursor+" ",
			check+" ",
			marker+" ",
			textStyle.Render(truncateRunes(t.Name, width-14)),
			counter,
		)
		lines = append(lines, line)
	}

	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderSettingsOverlay(width int) string {
	title := lipgloss.NewStyle().Bold(true).Render("Settings")
	label := lipgloss.NewStyle().Width(20)
	focused := lipgloss.NewStyle().Width(20).Bold(true).Foreground(lipgloss.Color("229"))

	rows := []string{title, ""}
	for i := 0; i < fieldCount; i++ {
		l := label
		if i == m.settings.focus {
			l = focused
		}
		value := ""
		if i == fieldSound {
			value = "[ ] off"
			if m.settings.sound {
				value = "[x] on"
			}
		} else {
			value = m.settings.inputs[i].View()
		}
		rows = append(rows, l.Render(fieldLabels[i])+value)
	}
	rows = append(rows, "", lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render("Enter save • Esc cancel"))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("244")).
		Padding(1, 2).
		Width(width).
		Render(strings.Join(rows, "\n"))
}

func (m *Model) renderChatOverlay(width, height int) string {
	title := lipgloss.NewStyle().Bold(true).Render("Assistant")
	if !m.client.Configured() {
		title += lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render("  (offline, no API key)")
	}
	you := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111"))
	ai := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114"))
	body := lipgloss.NewStyle().Width(width - 6)

	var entries []string
	for _, msg := range m.conv.Messages() {
		who := ai.Render("AI")
		if msg.Role == model.RoleUser {
			who = you.Render("You")
		}
		entries = append(entries, who+"\n"+body.Render(msg.Content))
	}
	if m.conv.Pending() {
		entries = append(entries, m.spinner.View()+" thinking...")
	}

	// Keep the newest entries that fit.
	budget := height - 8
	if budget < 3 {
		budget = 3
	}
	text := strings.Join(entries, "\n\n")
	if lines := strings.Split(text, "\n"); len(lines) > budget {
		text = strings.Join(lines[len(lines)-budget:], "\n")
	}

	rows := []string{title, "", text, "", m.chatInput.View()}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(0, 2).
		Width(width).
		Render(strings.Join(rows, "\n"))
}

func panelTitleStyled(title string, active bool) string {
	base := lipgloss.NewStyle().Bold(true)
	if !active {
		return base.Render(title)
	}
	text := base.Foreground(lipgloss.Color("229")).Render(title)
	marker := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")).Render("*")
	return lipgloss.JoinHorizontal(lipgloss.Left, text, " ", marker)
}

func phaseColor(p model.Phase) lipgloss.Color {
	switch p {
	case model.PhaseShortBreak:
		return colorShortBreak
	case model.PhaseLongBreak:
		return colorLongBreak
	default:
		return colorWork
	}
}

func filterLabel(f model.Filter) string {
	switch f {
	case model.FilterActive:
		return "active"
	case model.FilterCompleted:
		return "completed"
	default:
		return "all"
	}
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func progressBar(done, total, width int, color lipgloss.Color) string {
	if width < 4 {
		width = 4
	}
	filled := 0
	if total > 0 {
		filled = clamp(done*width/total, 0, width)
	}
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	return bar + lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Render(strings.Repeat("░", width-filled))
}

func pomodoroCount(t model.Task) string {
	if t.EstimatedPomos != nil {
		return fmt.Sprintf("%d/%d", t.Pomodoros, *t.EstimatedPomos)
	}
	return fmt.Sprintf("%d", t.Pomodoros)
}

func pomodoroLabel(t model.Task) string {
	if t.EstimatedPomos != nil {
		return fmt.Sprintf("%d of %d pomodoros", t.Pomodoros, *t.EstimatedPomos)
	}
	if t.Pomodoros == 1 {
		return "1 pomodoro"
	}
	return fmt.Sprintf("%d pomodoros", t.Pomodoros)
}

func sessionDots(sessions, interval int, color lipgloss.Color) string {
	if interval < 1 {
		interval = 1
	}
	done := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("●", clamp(sessions, 0, interval)))
	left := strings.Repeat("○", interval-clamp(sessions, 0, interval))
	return done + lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(left)
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
