package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/ajramos/mailflow/internal/config"
	"github.com/derailed/tcell/v2"
)

// fakeGateway serves canned data and records every call
type fakeGateway struct {
	mu sync.Mutex

	emails  []api.Email
	actions []api.ActionItem
	drafts  []api.Draft
	prompts []api.Prompt
	reply   *api.ChatReply
	chatErr error

	calls     map[string]int
	generated []api.GenerateDraftRequest
	created   []api.CreateDraftRequest
	updated   map[api.ID]api.UpdateDraftRequest
	deleted   []api.ID
	newPrompt []api.CreatePromptRequest
	queries   []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		calls:   make(map[string]int),
		updated: make(map[api.ID]api.UpdateDraftRequest),
	}
}

func (g *fakeGateway) record(name string) {
	g.mu.Lock()
	g.calls[name]++
	g.mu.Unlock()
}

func (g *fakeGateway) count(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

func (g *fakeGateway) ListEmails(context.Context) ([]api.Email, error) {
	g.record("ListEmails")
	return g.emails, nil
}

func (g *fakeGateway) ListActionItems(context.Context) ([]api.ActionItem, error) {
	g.record("ListActionItems")
	return g.actions, nil
}

func (g *fakeGateway) ProcessAll(context.Context) (*api.ProcessResult, error) {
	g.record("ProcessAll")
	return &api.ProcessResult{Count: len(g.emails)}, nil
}

func (g *fakeGateway) ListDrafts(context.Context) ([]api.Draft, error) {
	g.record("ListDrafts")
	return g.drafts, nil
}

func (g *fakeGateway) GetDraft(_ context.Context, id api.ID) (*api.Draft, error) {
	g.record("GetDraft")
	for _, d := range g.drafts {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, api.ErrRequestFailed
}

func (g *fakeGateway) CreateDraft(_ context.Context, req api.CreateDraftRequest) (*api.Draft, error) {
	g.record("CreateDraft")
	g.mu.Lock()
	g.created = append(g.created, req)
	g.mu.Unlock()
	return &api.Draft{ID: 99, Recipient: req.Recipient, Subject: req.Subject, Body: req.Body}, nil
}

func (g *fakeGateway) UpdateDraft(_ context.Context, id api.ID, req api.UpdateDraftRequest) (*api.Draft, error) {
	g.record("UpdateDraft")
	g.mu.Lock()
	g.updated[id] = req
	g.mu.Unlock()
	return &api.Draft{ID: id}, nil
}

func (g *fakeGateway) DeleteDraft(_ context.Context, id api.ID) (*api.Message, error) {
	g.record("DeleteDraft")
	g.mu.Lock()
	g.deleted = append(g.deleted, id)
	g.mu.Unlock()
	return &api.Message{Message: "deleted"}, nil
}

func (g *fakeGateway) GenerateDraft(_ context.Context, req api.GenerateDraftRequest) (*api.Draft, error) {
	g.record("GenerateDraft")
	g.mu.Lock()
	g.generated = append(g.generated, req)
	g.mu.Unlock()
	id := req.EmailID
	return &api.Draft{ID: 7, EmailID: &id, Metadata: map[string]any{"generated": true}}, nil
}

func (g *fakeGateway) ListPrompts(context.Context) ([]api.Prompt, error) {
	g.record("ListPrompts")
	return g.prompts, nil
}

func (g *fakeGateway) CreatePrompt(_ context.Context, req api.CreatePromptRequest) (*api.Prompt, error) {
	g.record("CreatePrompt")
	g.mu.Lock()
	g.newPrompt = append(g.newPrompt, req)
	g.mu.Unlock()
	return &api.Prompt{ID: 50, Name: req.Name, Type: req.Type, Content: req.Content}, nil
}

func (g *fakeGateway) UpdatePrompt(context.Context, api.ID, api.UpdatePromptRequest) (*api.Prompt, error) {
	g.record("UpdatePrompt")
	return &api.Prompt{}, nil
}

func (g *fakeGateway) DeletePrompt(context.Context, api.ID) (*api.Message, error) {
	g.record("DeletePrompt")
	return &api.Message{}, nil
}

func (g *fakeGateway) Chat(_ context.Context, query string) (*api.ChatReply, error) {
	g.record("Chat")
	g.mu.Lock()
	g.queries = append(g.queries, query)
	g.mu.Unlock()
	return g.reply, g.chatErr
}

// memPrefs is an in-memory Preferences
type memPrefs struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemPrefs() *memPrefs {
	return &memPrefs{values: make(map[string]string)}
}

func (m *memPrefs) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memPrefs) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

// newTestApp builds an app whose UI updates and background work run inline
func newTestApp(t *testing.T, gw *fakeGateway, prefs Preferences) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Layout.CustomThemeDir = t.TempDir()
	cfg.Layout.MarkdownStyle = "notty"

	a := NewApp(cfg, Deps{Gateway: gw, Prefs: prefs})
	a.queue = func(f func()) { f() }
	a.async = func(f func()) { f() }
	a.now = func() time.Time { return testNow }
	t.Cleanup(a.Stop)
	return a
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func specialKey(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func sampleEmails() []api.Email {
	return []api.Email{
		{ID: 1, Sender: "Alice <alice@example.com>", Subject: "Quarterly invoice", Body: "Please pay", Priority: api.PriorityHigh, Category: "finance"},
		{ID: 2, Sender: "bob@example.com", Subject: "Lunch?", Body: "Tacos", Priority: api.PriorityLow, Category: "social"},
		{ID: 3, Sender: "carol@example.com", Subject: "Roadmap review", Body: "Agenda attached", Priority: api.PriorityMedium},
	}
}
