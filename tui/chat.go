package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"pomo-cli/assistant"
)

type chatReplyMsg struct {
	req   assistant.Request
	reply string
	err   error
}

func (m *Model) generalOpening() assistant.Opening {
	task := m.ctrl.Snapshot().Task
	return assistant.Opening{CurrentTask: task.Name}
}

// openChat shows the chat pane and, when the conversation is empty, asks for
// an opening message.
func (m *Model) openChat(opening assistant.Opening) tea.Cmd {
	m.mode = modeChat
	m.showHelp = false
	cmds := []tea.Cmd{m.chatInput.Focus()}
	if m.conv.Empty() && !m.conv.Pending() {
		req, err := m.conv.Open(opening)
		if err == nil {
			cmds = append(cmds, m.sendChat(req), m.spinner.Tick)
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) updateChatMode(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.mode = modeNormal
		m.chatInput.Blur()
		return nil
	case "ctrl+n":
		if m.conv.Pending() {
			m.setError(assistant.ErrBusy)
			return nil
		}
		m.conv.Reset()
		m.saveTranscript()
		return m.openChat(m.generalOpening())
	case "enter":
		req, err := m.conv.Ask(m.chatInput.Value())
		if err != nil {
			if !errors.Is(err, assistant.ErrEmptyMessage) {
				m.setError(err)
			}
			return nil
		}
		m.chatInput.Reset()
		m.saveTranscript()
		return tea.Batch(m.sendChat(req), m.spinner.Tick)
	}
	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return cmd
}

// sendChat runs the request off the update loop. The command only reads its
// arguments; the reply is applied in Update.
func (m *Model) sendChat(req assistant.Request) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		reply, err := client.Send(context.Background(), req.Message, req.History)
		return chatReplyMsg{req: req, reply: reply, err: err}
	}
}

func (m *Model) applyChatReply(msg chatReplyMsg) {
	if msg.err != nil && !errors.Is(msg.err, assistant.ErrNotConfigured) {
		m.logger.Warn("assistant reply failed", "err", msg.err)
	}
	m.conv.Complete(msg.req, msg.reply, msg.err)
	m.saveTranscript()
}

func (m *Model) saveTranscript() {
	if m.transcript == nil {
		return
	}
	if err := m.transcript.SaveChatTranscript(m.conv.Messages()); err != nil {
		m.logger.Warn("persist chat transcript", "err", err)
	}
}
