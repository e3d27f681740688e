package api

import (
	"fmt"
	"strings"
)

// DefaultInstruction is sent when a draft is generated without an explicit instruction
const DefaultInstruction = "Write a professional reply"

// CreatePromptRequest is the body of POST /api/prompts/
type CreatePromptRequest struct {
	Name     string     `json:"name"`
	Type     PromptType `json:"type"`
	Content  string     `json:"content"`
	IsActive *bool      `json:"is_active,omitempty"`
}

// Validate rejects blank names or content and unknown types
func (r CreatePromptRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: prompt name cannot be empty", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("%w: prompt content cannot be empty", ErrInvalidRequest)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown prompt type %q", ErrInvalidRequest, r.Type)
	}
	return nil
}

// UpdatePromptRequest carries the prompt fields to change. Nil fields are left untouched.
type UpdatePromptRequest struct {
	Name     *string     `json:"name,omitempty"`
	Type     *PromptType `json:"type,omitempty"`
	Content  *string     `json:"content,omitempty"`
	IsActive *bool       `json:"is_active,omitempty"`
}

// Validate rejects empty updates and unknown types
func (r UpdatePromptRequest) Validate() error {
	if r.Name == nil && r.Type == nil && r.Content == nil && r.IsActive == nil {
		return fmt.Errorf("%w: prompt update has no fields", ErrInvalidRequest)
	}
	if r.Type != nil && !r.Type.Valid() {
		return fmt.Errorf("%w: unknown prompt type %q", ErrInvalidRequest, *r.Type)
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("%w: prompt name cannot be empty", ErrInvalidRequest)
	}
	return nil
}

// CreateDraftRequest is the body of POST /api/drafts/
type CreateDraftRequest struct {
	EmailID   *ID            `json:"email_id,omitempty"`
	Recipient string         `json:"recipient"`
	Subject   string         `json:"subject"`
	Body      string         `json:"body"`
	Metadata  map[string]any `json:"meta_data,omitempty"`
}

// Validate requires a recipient and a subject
func (r CreateDraftRequest) Validate() error {
	if strings.TrimSpace(r.Recipient) == "" {
		return fmt.Errorf("%w: draft recipient cannot be empty", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Subject) == "" {
		return fmt.Errorf("%w: draft subject cannot be empty", ErrInvalidRequest)
	}
	if r.EmailID != nil && *r.EmailID <= 0 {
		return fmt.Errorf("%w: invalid email id %d", ErrInvalidRequest, *r.EmailID)
	}
	return nil
}

// UpdateDraftRequest carries the draft fields to change. Nil fields are left untouched.
type UpdateDraftRequest struct {
	Recipient *string        `json:"recipient,omitempty"`
	Subject   *string        `json:"subject,omitempty"`
	Body      *string        `json:"body,omitempty"`
	Metadata  map[string]any `json:"meta_data,omitempty"`
}

// Validate rejects empty updates
func (r UpdateDraftRequest) Validate() error {
	if r.Recipient == nil && r.Subject == nil && r.Body == nil && r.Metadata == nil {
		return fmt.Errorf("%w: draft update has no fields", ErrInvalidRequest)
	}
	return nil
}

// GenerateDraftRequest asks the server to write a reply to an email
type GenerateDraftRequest struct {
	EmailID     ID
	Instruction string
}

// Validate requires a positive email id
func (r GenerateDraftRequest) Validate() error {
	if r.EmailID <= 0 {
		return fmt.Errorf("%w: invalid email id %d", ErrInvalidRequest, r.EmailID)
	}
	return nil
}

// instruction returns the instruction to send, falling back to the default
func (r GenerateDraftRequest) instruction() string {
	if strings.TrimSpace(r.Instruction) == "" {
		return DefaultInstruction
	}
	return r.Instruction
}

// String returns a pointer to s, for building partial updates
func String(s string) *string { return &s }

// Bool returns a pointer to b
func Bool(b bool) *bool { return &b }
