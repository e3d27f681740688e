package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID identifies a server-owned entity. The backend uses integer primary keys
// but some payloads carry them as strings, so both forms are accepted.
type ID int64

// UnmarshalJSON accepts numbers, numeric strings and null
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return id.parse(s)
	}
	return id.parse(string(data))
}

func (id *ID) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", s, err)
	}
	*id = ID(n)
	return nil
}

// String returns the decimal form used in request paths
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses a user supplied identifier
func ParseID(s string) (ID, error) {
	var id ID
	if err := id.parse(s); err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be positive", s)
	}
	return id, nil
}

// Timestamp decodes the naive ISO timestamps the backend emits as well as RFC 3339.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON parses any of the supported layouts; null leaves a zero time
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// MarshalJSON writes RFC 3339, or null for the zero time
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// Priority is the server-assigned urgency of an email
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists the priorities in display order
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Email is a message owned by the server. The client never mutates it.
type Email struct {
	ID        ID         `json:"id"`
	Sender    string     `json:"sender"`
	Recipient string     `json:"recipient,omitempty"`
	Subject   string     `json:"subject"`
	Body      string     `json:"body"`
	Priority  Priority   `json:"priority"`
	Category  string     `json:"category"`
	Timestamp *Timestamp `json:"timestamp,omitempty"`
	Processed bool       `json:"processed,omitempty"`
}

// ActionItem is a task extracted by the server from an email
type ActionItem struct {
	ID        ID     `json:"id"`
	Task      string `json:"task"`
	Deadline  string `json:"deadline,omitempty"`
	EmailID   *ID    `json:"email_id,omitempty"`
	Completed *bool  `json:"completed,omitempty"`
	Status    string `json:"status,omitempty"`
}

// Done reports whether the item is finished, from either the flag or the status column
func (a ActionItem) Done() bool {
	if a.Completed != nil {
		return *a.Completed
	}
	switch strings.ToLower(a.Status) {
	case "done", "completed", "complete":
		return true
	}
	return false
}

// PromptType classifies what a prompt is used for on the server
type PromptType string

const (
	PromptCategorization   PromptType = "categorization"
	PromptActionExtraction PromptType = "action_extraction"
	PromptAutoReply        PromptType = "auto_reply"
	PromptCustom           PromptType = "custom"
)

// PromptTypes lists every prompt type in display order
var PromptTypes = []PromptType{PromptCategorization, PromptActionExtraction, PromptAutoReply, PromptCustom}

// Valid reports whether t is one of the known prompt types
func (t PromptType) Valid() bool {
	for _, known := range PromptTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Label returns the human readable name of the type
func (t PromptType) Label() string {
	switch t {
	case PromptCategorization:
		return "Categorization"
	case PromptActionExtraction:
		return "Action Extraction"
	case PromptAutoReply:
		return "Auto Reply"
	case PromptCustom:
		return "Custom"
	}
	return strings.ReplaceAll(string(t), "_", " ")
}

// Prompt is a reusable instruction stored on the server
type Prompt struct {
	ID       ID         `json:"id"`
	Name     string     `json:"name"`
	Type     PromptType `json:"type"`
	Content  string     `json:"content"`
	IsActive *bool      `json:"is_active,omitempty"`
}

// Draft is an email reply being prepared, possibly generated by the server
type Draft struct {
	ID        ID             `json:"id"`
	EmailID   *ID            `json:"email_id,omitempty"`
	Recipient string         `json:"recipient"`
	Subject   string         `json:"subject"`
	Body      string         `json:"body"`
	Metadata  map[string]any `json:"meta_data,omitempty"`
	CreatedAt Timestamp      `json:"created_at"`
	UpdatedAt Timestamp      `json:"updated_at"`
}

// AIGenerated is derived from the metadata flag the generate endpoint sets
func (d Draft) AIGenerated() bool {
	if d.Metadata == nil {
		return false
	}
	generated, _ := d.Metadata["generated"].(bool)
	return generated
}

// Instruction returns the instruction the draft was generated with, if any
func (d Draft) Instruction() string {
	if d.Metadata == nil {
		return ""
	}
	s, _ := d.Metadata["instruction"].(string)
	return s
}

// SourceEmail reports the email the draft replies to
func (d Draft) SourceEmail() (ID, bool) {
	if d.EmailID == nil {
		return 0, false
	}
	return *d.EmailID, true
}

// Role is the author of a chat turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of the in-memory chat transcript. It never leaves the client.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest is the body of the chat endpoint
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatReply is the chat endpoint response. Response is nil when the field is absent.
type ChatReply struct {
	Response *string `json:"response"`
}

// ProcessResult is returned by the process-all endpoint
type ProcessResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// Message is the generic acknowledgement returned by delete endpoints
type Message struct {
	Message string `json:"message"`
}
