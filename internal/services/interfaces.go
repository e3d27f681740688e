package services

import (
	"context"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/ajramos/mailflow/internal/db"
)

// EmailGateway is the backend surface the inbox reads
type EmailGateway interface {
	ListEmails(ctx context.Context) ([]api.Email, error)
	ListActionItems(ctx context.Context) ([]api.ActionItem, error)
	ProcessAll(ctx context.Context) (*api.ProcessResult, error)
}

// DraftGateway handles draft operations
type DraftGateway interface {
	ListDrafts(ctx context.Context) ([]api.Draft, error)
	GetDraft(ctx context.Context, id api.ID) (*api.Draft, error)
	CreateDraft(ctx context.Context, req api.CreateDraftRequest) (*api.Draft, error)
	UpdateDraft(ctx context.Context, id api.ID, req api.UpdateDraftRequest) (*api.Draft, error)
	DeleteDraft(ctx context.Context, id api.ID) (*api.Message, error)
	GenerateDraft(ctx context.Context, req api.GenerateDraftRequest) (*api.Draft, error)
}

// PromptGateway handles prompt operations
type PromptGateway interface {
	ListPrompts(ctx context.Context) ([]api.Prompt, error)
	CreatePrompt(ctx context.Context, req api.CreatePromptRequest) (*api.Prompt, error)
	UpdatePrompt(ctx context.Context, id api.ID, req api.UpdatePromptRequest) (*api.Prompt, error)
	DeletePrompt(ctx context.Context, id api.ID) (*api.Message, error)
}

// ChatGateway sends one chat turn
type ChatGateway interface {
	Chat(ctx context.Context, query string) (*api.ChatReply, error)
}

// InboxGateway is everything the inbox view needs, including draft generation
type InboxGateway interface {
	EmailGateway
	ListDrafts(ctx context.Context) ([]api.Draft, error)
	GenerateDraft(ctx context.Context, req api.GenerateDraftRequest) (*api.Draft, error)
}

// Gateway is the complete backend client
type Gateway interface {
	EmailGateway
	DraftGateway
	PromptGateway
	ChatGateway
}

// FilterStore persists saved inbox filters
type FilterStore interface {
	SaveFilter(ctx context.Context, f *db.SavedFilter) error
	ListFilters(ctx context.Context) ([]*db.SavedFilter, error)
	GetFilter(ctx context.Context, name string) (*db.SavedFilter, error)
	DeleteFilter(ctx context.Context, name string) error
	TouchFilter(ctx context.Context, name string) error
}

var _ Gateway = (*api.Client)(nil)
