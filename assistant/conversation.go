package assistant

import (
	"errors"
	"fmt"
	"strings"

	"pomo-cli/model"
)

const SendFailedReply = "Sorry, I encountered an error. Could you try asking again?"

var ErrBusy = errors.New("still waiting for a reply")

// Opening describes why a conversation is being started.
type Opening struct {
	// Completed task reflection. Set TaskName and both counts.
	Completion bool
	TaskName   string
	Estimated  int
	Actual     int

	// General help. CurrentTask may be empty.
	CurrentTask string
}

// CompletionOpening builds the reflection opening for a finished task. ok is
// false when the task has no estimate to compare against.
func CompletionOpening(task model.Task) (Opening, bool) {
	if task.EstimatedPomos == nil {
		return Opening{}, false
	}
	return Opening{
		Completion: true,
		TaskName:   task.Name,
		Estimated:  *task.EstimatedPomos,
		Actual:     task.Pomodoros,
	}, true
}

// Prompt is the instruction sent to the model to produce the first message.
func (o Opening) Prompt() string {
	if o.Completion {
		return fmt.Sprintf("You are a productivity coach helping someone reflect on their Pomodoro session. "+
			"Be honest, encouraging, and constructive. They completed a task called \"%s\". "+
			"They estimated it would take %d pomodoros but it actually took %d pomodoros.\n\n"+
			"Provide a brief, encouraging analysis of their performance. "+
			"If they finished in fewer pomodoros than estimated, congratulate them and ask what they did to stay focused. "+
			"If they took more, be supportive and ask what they think went wrong. "+
			"Be conversational and helpful. Keep it short - 3-4 sentences.",
			o.TaskName, o.Estimated, o.Actual)
	}
	taskInfo := ""
	if o.CurrentTask != "" {
		taskInfo = fmt.Sprintf(" They are currently working on a task called \"%s\".", o.CurrentTask)
	}
	return "You are a productivity coach. Someone came to you for help or just to talk." + taskInfo +
		" Be warm, supportive, and helpful. Ask how you can help them with their productivity or their current work." +
		" Keep it brief and conversational."
}

// Fallback is shown in place of the model's opening when the request fails.
func (o Opening) Fallback() string {
	if o.Completion {
		if o.Actual <= o.Estimated {
			return fmt.Sprintf("Excellent work! You completed \"%s\" in %d pomodoros, %d less than your estimate. "+
				"What do you think helped you stay focused?", o.TaskName, o.Actual, o.Estimated-o.Actual)
		}
		return fmt.Sprintf("You completed \"%s\" in %d pomodoros, which is %d more than your estimate. "+
			"That's okay! What do you think made it take longer than expected?", o.TaskName, o.Actual, o.Actual-o.Estimated)
	}
	if o.CurrentTask != "" {
		return fmt.Sprintf("Hi! I see you're working on \"%s\". How can I help you with your productivity today?", o.CurrentTask)
	}
	return "Hi! How can I help you with your productivity today?"
}

// Request is one outstanding call to Client.Send.
type Request struct {
	Message  string
	History  []model.ChatMessage
	fallback string
}

// Conversation is the transcript shown in the chat pane. At most one request
// is outstanding at a time.
type Conversation struct {
	messages []model.ChatMessage
	pending  bool
}

// NewConversation resumes a persisted transcript.
func NewConversation(transcript []model.ChatMessage) *Conversation {
	msgs := make([]model.ChatMessage, 0, len(transcript))
	for _, m := range transcript {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			continue
		}
		msgs = append(msgs, m)
	}
	return &Conversation{messages: msgs}
}

func (c *Conversation) Messages() []model.ChatMessage {
	out := make([]model.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Pending() bool {
	return c.pending
}

func (c *Conversation) Empty() bool {
	return len(c.messages) == 0
}

// Reset clears the transcript. An outstanding reply is still accepted.
func (c *Conversation) Reset() {
	c.messages = nil
}

// Open starts the conversation with a model-written greeting. The opening
// prompt itself is not part of the transcript.
func (c *Conversation) Open(o Opening) (Request, error) {
	if c.pending {
		return Request{}, ErrBusy
	}
	c.pending = true
	return Request{Message: o.Prompt(), fallback: o.Fallback()}, nil
}

// Ask appends the user's message and returns the request to send.
func (c *Conversation) Ask(text string) (Request, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Request{}, ErrEmptyMessage
	}
	if c.pending {
		return Request{}, ErrBusy
	}
	req := Request{Message: text, History: c.Messages(), fallback: SendFailedReply}
	c.messages = append(c.messages, model.ChatMessage{Role: model.RoleUser, Content: text})
	c.pending = true
	return req, nil
}

// Complete records the outcome of req. A failed or empty reply is replaced
// by the request's canned message. It returns the message appended.
func (c *Conversation) Complete(req Request, reply string, err error) model.ChatMessage {
	c.pending = false
	content := strings.TrimSpace(reply)
	if err != nil || content == "" {
		content = req.fallback
	}
	msg := model.ChatMessage{Role: model.RoleAssistant, Content: content}
	c.messages = append(c.messages, msg)
	return msg
}
