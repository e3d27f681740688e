package services

import (
	"context"
	"sync"
	"testing"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/ajramos/mailflow/internal/db"
	"github.com/stretchr/testify/mock"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// MockGateway implements Gateway for testing
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) ListEmails(ctx context.Context) ([]api.Email, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.Email), args.Error(1)
}

func (m *MockGateway) ListActionItems(ctx context.Context) ([]api.ActionItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.ActionItem), args.Error(1)
}

func (m *MockGateway) ProcessAll(ctx context.Context) (*api.ProcessResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ProcessResult), args.Error(1)
}

func (m *MockGateway) ListDrafts(ctx context.Context) ([]api.Draft, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.Draft), args.Error(1)
}

func (m *MockGateway) GetDraft(ctx context.Context, id api.ID) (*api.Draft, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Draft), args.Error(1)
}

func (m *MockGateway) CreateDraft(ctx context.Context, req api.CreateDraftRequest) (*api.Draft, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Draft), args.Error(1)
}

func (m *MockGateway) UpdateDraft(ctx context.Context, id api.ID, req api.UpdateDraftRequest) (*api.Draft, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Draft), args.Error(1)
}

func (m *MockGateway) DeleteDraft(ctx context.Context, id api.ID) (*api.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Message), args.Error(1)
}

func (m *MockGateway) GenerateDraft(ctx context.Context, req api.GenerateDraftRequest) (*api.Draft, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Draft), args.Error(1)
}

func (m *MockGateway) ListPrompts(ctx context.Context) ([]api.Prompt, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.Prompt), args.Error(1)
}

func (m *MockGateway) CreatePrompt(ctx context.Context, req api.CreatePromptRequest) (*api.Prompt, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Prompt), args.Error(1)
}

func (m *MockGateway) UpdatePrompt(ctx context.Context, id api.ID, req api.UpdatePromptRequest) (*api.Prompt, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Prompt), args.Error(1)
}

func (m *MockGateway) DeletePrompt(ctx context.Context, id api.ID) (*api.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Message), args.Error(1)
}

func (m *MockGateway) Chat(ctx context.Context, query string) (*api.ChatReply, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ChatReply), args.Error(1)
}

var _ Gateway = (*MockGateway)(nil)

// MockFilterStore implements FilterStore for testing
type MockFilterStore struct {
	mock.Mock
}

func (m *MockFilterStore) SaveFilter(ctx context.Context, f *db.SavedFilter) error {
	return m.Called(ctx, f).Error(0)
}

func (m *MockFilterStore) ListFilters(ctx context.Context) ([]*db.SavedFilter, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*db.SavedFilter), args.Error(1)
}

func (m *MockFilterStore) GetFilter(ctx context.Context, name string) (*db.SavedFilter, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.SavedFilter), args.Error(1)
}

func (m *MockFilterStore) DeleteFilter(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockFilterStore) TouchFilter(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

// noticeRecorder collects published notices
type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func recordNotices(n *Notifier) *noticeRecorder {
	r := &noticeRecorder{}
	n.Subscribe(func(notice Notice) {
		r.mu.Lock()
		r.notices = append(r.notices, notice)
		r.mu.Unlock()
	})
	return r
}

func (r *noticeRecorder) all() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

func (r *noticeRecorder) messages() []string {
	var out []string
	for _, n := range r.all() {
		out = append(out, n.Message)
	}
	return out
}

func (r *noticeRecorder) count(level Level) int {
	c := 0
	for _, n := range r.all() {
		if n.Level == level {
			c++
		}
	}
	return c
}
