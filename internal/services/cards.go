package services

import (
	"context"

	"github.com/ajramos/mailflow/internal/api"
)

// Draft button labels on an email card
const (
	LabelGenerateDraft = "Generate Draft"
	LabelGenerating    = "Generating..."
	LabelDraftCreated  = "Draft Created"
	BadgeAIGenerated   = "AI Generated"
)

// EmailCard is the read-only view of one email with its draft button
type EmailCard struct {
	Email api.Email
	inbox *InboxService
}

// NewEmailCard binds e to the inbox that owns its draft state
func NewEmailCard(inbox *InboxService, e api.Email) *EmailCard {
	return &EmailCard{Email: e, inbox: inbox}
}

// DraftButton returns the button label and whether it can be pressed
func (c *EmailCard) DraftButton() (label string, enabled bool) {
	switch c.inbox.DraftState(c.Email.ID) {
	case DraftGenerating:
		return LabelGenerating, false
	case DraftCreated:
		return LabelDraftCreated, false
	}
	return LabelGenerateDraft, true
}

// GenerateDraft requests a reply to the card's email
func (c *EmailCard) GenerateDraft(ctx context.Context) (Notice, error) {
	_, n, err := c.inbox.GenerateDraft(ctx, c.Email.ID)
	return n, err
}

// DraftFields is the editable part of a draft
type DraftFields struct {
	Recipient string
	Subject   string
	Body      string
}

func draftFields(d api.Draft) DraftFields {
	return DraftFields{Recipient: d.Recipient, Subject: d.Subject, Body: d.Body}
}

// DraftCard shows one draft and edits its recipient, subject and body
type DraftCard struct {
	Draft api.Draft
	svc   *DraftService
	buf   *EditBuffer[DraftFields]
}

// NewDraftCard creates a card for d
func NewDraftCard(svc *DraftService, d api.Draft) *DraftCard {
	return &DraftCard{Draft: d, svc: svc, buf: NewEditBuffer(draftFields(d))}
}

// Badge returns the AI badge text, or "" for hand-written drafts
func (c *DraftCard) Badge() string {
	if c.Draft.AIGenerated() {
		return BadgeAIGenerated
	}
	return ""
}

// Edit enters edit mode seeded from the server copy
func (c *DraftCard) Edit() error {
	return c.buf.Begin(draftFields(c.Draft))
}

// Set stages a local change
func (c *DraftCard) Set(fn func(*DraftFields)) error {
	return c.buf.Set(fn)
}

// Cancel discards local changes
func (c *DraftCard) Cancel() error {
	return c.buf.Cancel()
}

// Fields returns what the card displays
func (c *DraftCard) Fields() DraftFields {
	return c.buf.Value()
}

// Editing reports whether the card is in edit mode
func (c *DraftCard) Editing() bool {
	return c.buf.Editing()
}

// Save sends recipient, subject and body in one update
func (c *DraftCard) Save(ctx context.Context) (Notice, error) {
	var n Notice
	err := c.buf.Save(ctx, func(ctx context.Context, f DraftFields) error {
		var err error
		n, err = c.svc.Update(ctx, c.Draft.ID, api.UpdateDraftRequest{
			Recipient: api.String(f.Recipient),
			Subject:   api.String(f.Subject),
			Body:      api.String(f.Body),
		})
		return err
	})
	return n, err
}

// PromptCard shows one prompt and edits its content
type PromptCard struct {
	Prompt api.Prompt
	svc    *PromptService
	buf    *EditBuffer[string]
}

// NewPromptCard creates a card for p
func NewPromptCard(svc *PromptService, p api.Prompt) *PromptCard {
	return &PromptCard{Prompt: p, svc: svc, buf: NewEditBuffer(p.Content)}
}

// Edit enters edit mode seeded from the server copy
func (c *PromptCard) Edit() error {
	return c.buf.Begin(c.Prompt.Content)
}

// SetContent stages new content
func (c *PromptCard) SetContent(content string) error {
	return c.buf.Set(func(s *string) { *s = content })
}

// Cancel discards local changes
func (c *PromptCard) Cancel() error {
	return c.buf.Cancel()
}

// Content returns what the card displays
func (c *PromptCard) Content() string {
	return c.buf.Value()
}

// Editing reports whether the card is in edit mode
func (c *PromptCard) Editing() bool {
	return c.buf.Editing()
}

// Save sends the content only
func (c *PromptCard) Save(ctx context.Context) (Notice, error) {
	var n Notice
	err := c.buf.Save(ctx, func(ctx context.Context, content string) error {
		var err error
		n, err = c.svc.Update(ctx, c.Prompt.ID, content)
		return err
	})
	return n, err
}
