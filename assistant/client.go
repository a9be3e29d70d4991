// Package assistant talks to a hosted language model about the user's
// pomodoro sessions. It knows nothing about the timer; callers pass in the
// message and the transcript so far.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pomo-cli/model"
)

const (
	DefaultHistoryLimit = 10
	DefaultTimeout      = 30 * time.Second
)

var (
	ErrEmptyMessage  = errors.New("message is required")
	ErrNotConfigured = errors.New("assistant API key is not configured")
	ErrEmptyReply    = errors.New("assistant returned an empty reply")
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Option configures a Client.
type Option func(*Client)

// WithHistoryLimit caps how many transcript entries go into a prompt.
func WithHistoryLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client turns a message plus transcript into a prompt and asks the
// generator for a reply. A nil generator means no key was configured.
type Client struct {
	gen          Generator
	logger       *slog.Logger
	historyLimit int
	timeout      time.Duration
}

func NewClient(gen Generator, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Client{
		gen:          gen,
		logger:       logger,
		historyLimit: DefaultHistoryLimit,
		timeout:      DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether requests can reach a model at all.
func (c *Client) Configured() bool {
	return c != nil && c.gen != nil
}

// Send asks for a reply to message given the earlier history.
func (c *Client) Send(ctx context.Context, message string, history []model.ChatMessage) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := BuildPrompt(message, history, c.historyLimit)
	start := time.Now()
	reply, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		c.logger.Warn("assistant request failed", "err", err, "elapsed", time.Since(start))
		return "", fmt.Errorf("generate reply: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		c.logger.Warn("assistant returned empty reply")
		return "", ErrEmptyReply
	}
	c.logger.Debug("assistant replied", "history", len(history), "elapsed", time.Since(start))
	return reply, nil
}

// BuildPrompt renders the last limit history entries as a plain transcript
// followed by the new message.
func BuildPrompt(message string, history []model.ChatMessage, limit int) string {
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	var b strings.Builder
	for i, msg := range history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(speaker(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
	}
	if len(history) > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString("User: ")
	b.WriteString(message)
	b.WriteString("\nAI:")
	return b.String()
}

func speaker(role model.Role) string {
	if role == model.RoleUser {
		return "User"
	}
	return "AI"
}
