package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Chat texts
const (
	ChatNoResponse      = "No response received"
	ChatFallbackReply   = "Sorry, I encountered an error. Please try again."
	msgChatFailed       = "Failed to get response from AI. Please try again."
	EmptyChatTitle      = "Start a conversation"
	EmptyChatHint       = "Ask me anything about your emails, schedule tasks, or get help with productivity."
	ExportMarkdown      = "md"
	ExportJSONL         = "jsonl"
	chatTimestampLayout = "2006-01-02 15:04:05"
)

// ChatSession is an append-only transcript with at most one request in flight
type ChatSession struct {
	gw       ChatGateway
	notifier *Notifier
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	messages []api.ChatMessage
	busy     bool
	watchers []func([]api.ChatMessage, bool)
}

// NewChatSession starts an empty session
func NewChatSession(gw ChatGateway, notifier *Notifier, logger *zap.Logger) *ChatSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatSession{
		gw:       gw,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Messages returns a copy of the transcript
func (c *ChatSession) Messages() []api.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Busy reports whether a reply is pending
func (c *ChatSession) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Watch registers fn to receive the transcript and busy flag after every change
func (c *ChatSession) Watch(fn func(messages []api.ChatMessage, busy bool)) {
	c.mu.Lock()
	c.watchers = append(c.watchers, fn)
	c.mu.Unlock()
}

// Send appends the user turn, asks the assistant and appends its reply.
// Blank input and sends while busy are rejected without any request.
// A failed request still appends a fallback assistant turn.
func (c *ChatSession) Send(ctx context.Context, input string) (api.ChatMessage, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return api.ChatMessage{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return api.ChatMessage{}, ErrChatBusy
	}
	c.busy = true
	c.appendLocked(api.RoleUser, text)
	c.mu.Unlock()
	c.emit()

	reply, err := c.gw.Chat(ctx, text)

	var content string
	switch {
	case err != nil:
		content = ChatFallbackReply
	case reply == nil || reply.Response == nil:
		content = ChatNoResponse
	default:
		content = *reply.Response
	}

	c.mu.Lock()
	msg := c.appendLocked(api.RoleAssistant, content)
	c.busy = false
	c.mu.Unlock()
	c.emit()

	if err != nil {
		c.notifier.Publish(ErrorNotice(msgChatFailed, fmt.Errorf("chat: %w", err)))
		return msg, err
	}
	return msg, nil
}

func (c *ChatSession) appendLocked(role api.Role, content string) api.ChatMessage {
	msg := api.ChatMessage{
		ID:        newMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: c.now(),
	}
	c.messages = append(c.messages, msg)
	return msg
}

func (c *ChatSession) emit() {
	c.mu.Lock()
	fns := append([]func([]api.ChatMessage, bool){}, c.watchers...)
	msgs := make([]api.ChatMessage, len(c.messages))
	copy(msgs, c.messages)
	busy := c.busy
	c.mu.Unlock()
	for _, fn := range fns {
		fn(msgs, busy)
	}
}

// newMessageID returns a time-ordered id, falling back to a random one
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Export writes the transcript as Markdown ("md") or JSON lines ("jsonl")
func (c *ChatSession) Export(w io.Writer, format string) error {
	msgs := c.Messages()
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case ExportMarkdown, "markdown", "":
		for i, m := range msgs {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			who := "You"
			if m.Role == api.RoleAssistant {
				who = "Assistant"
			}
			if _, err := fmt.Fprintf(w, "**%s** (%s)\n\n%s\n", who, m.Timestamp.Format(chatTimestampLayout), m.Content); err != nil {
				return err
			}
		}
		return nil
	case ExportJSONL, "json":
		enc := json.NewEncoder(w)
		for _, m := range msgs {
			if err := enc.Encode(m); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unsupported export format %q", format)
}
