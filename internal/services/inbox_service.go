package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/ajramos/mailflow/internal/db"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Inbox notice texts
const (
	msgInboxFetchFailed   = "Failed to fetch emails. Please try again."
	msgProcessSucceeded   = "All emails have been processed successfully."
	msgProcessFailed      = "Failed to process emails. Please try again."
	msgGenerateSucceeded  = "Draft generated successfully! Check the Drafts section."
	msgGenerateFailed     = "Failed to generate draft. Please try again."
	PriorityAll           = "all"
	EmptyInboxTitle       = "No emails found"
	EmptyInboxHint        = "Your inbox is empty"
	EmptyInboxFilterHint  = "Try adjusting your filters"
	EmptyActionItemsTitle = "No action items found"
	EmptyActionItemsHint  = "Process emails to extract action items"
)

// DraftIndex records which emails already have a draft. It is built from one
// drafts fetch per inbox load and updated locally when a draft is generated.
type DraftIndex struct {
	mu  sync.RWMutex
	ids map[api.ID]struct{}
}

// NewDraftIndex indexes drafts by source email
func NewDraftIndex(drafts []api.Draft) *DraftIndex {
	idx := &DraftIndex{ids: make(map[api.ID]struct{}, len(drafts))}
	for _, d := range drafts {
		if id, ok := d.SourceEmail(); ok {
			idx.ids[id] = struct{}{}
		}
	}
	return idx
}

// HasDraft reports whether a draft replying to emailID exists
func (i *DraftIndex) HasDraft(emailID api.ID) bool {
	if i == nil {
		return false
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.ids[emailID]
	return ok
}

// Mark records that emailID now has a draft
func (i *DraftIndex) Mark(emailID api.ID) {
	if i == nil {
		return
	}
	i.mu.Lock()
	i.ids[emailID] = struct{}{}
	i.mu.Unlock()
}

// Len returns the number of emails with drafts
func (i *DraftIndex) Len() int {
	if i == nil {
		return 0
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.ids)
}

// InboxData is loaded together with the email list
type InboxData struct {
	Actions []api.ActionItem
	Drafts  *DraftIndex
}

// Filter is a client-side predicate over loaded emails
type Filter struct {
	Search   string
	Priority string
}

// Active reports whether the filter narrows the list at all
func (f Filter) Active() bool {
	return f.Search != "" || !f.allPriorities()
}

func (f Filter) allPriorities() bool {
	return f.Priority == "" || strings.EqualFold(f.Priority, PriorityAll)
}

// Match reports whether e passes the filter. Search is a case-insensitive
// substring test over subject, sender and body.
func (f Filter) Match(e api.Email) bool {
	if !f.allPriorities() && !strings.EqualFold(string(e.Priority), f.Priority) {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(e.Subject), q) ||
		strings.Contains(strings.ToLower(e.Sender), q) ||
		strings.Contains(strings.ToLower(e.Body), q)
}

// Apply returns the emails matching the filter, in order
func (f Filter) Apply(emails []api.Email) []api.Email {
	out := make([]api.Email, 0, len(emails))
	for _, e := range emails {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// EmptyHint explains an empty result
func (f Filter) EmptyHint() string {
	if f.Active() {
		return EmptyInboxFilterHint
	}
	return EmptyInboxHint
}

// InboxService owns the email list, the action items and the draft index
type InboxService struct {
	gw       InboxGateway
	emails   *Collection[api.Email, InboxData]
	notifier *Notifier
	logger   *zap.Logger
	filters  FilterStore

	mu         sync.Mutex
	filter     Filter
	generating map[api.ID]struct{}
	// generated holds emails whose draft no drafts fetch has confirmed yet
	generated map[api.ID]struct{}
}

// NewInboxService creates the inbox. filters may be nil when the preference store is disabled.
func NewInboxService(gw InboxGateway, notifier *Notifier, logger *zap.Logger, filters FilterStore) *InboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &InboxService{
		gw:         gw,
		notifier:   notifier,
		logger:     logger,
		filters:    filters,
		generating: make(map[api.ID]struct{}),
		generated:  make(map[api.ID]struct{}),
	}
	s.emails = NewCollection(CollectionConfig[api.Email, InboxData]{
		Noun:           "emails",
		FailureMessage: msgInboxFetchFailed,
		Fetch:          s.fetch,
		ID:             func(e api.Email) api.ID { return e.ID },
		Notifier:       notifier,
		Logger:         logger,
	})
	return s
}

// fetch loads emails and action items concurrently; both succeed or the load fails.
// The drafts list only feeds the draft index, so its failure is tolerated.
func (s *InboxService) fetch(ctx context.Context) ([]api.Email, InboxData, error) {
	var (
		emails    []api.Email
		actions   []api.ActionItem
		drafts    []api.Draft
		draftsErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		emails, err = s.gw.ListEmails(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		actions, err = s.gw.ListActionItems(gctx)
		return err
	})
	g.Go(func() error {
		drafts, draftsErr = s.gw.ListDrafts(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, InboxData{}, err
	}
	if draftsErr != nil {
		s.logger.Warn("draft index unavailable", zap.Error(draftsErr))
	}
	if actions == nil {
		actions = []api.ActionItem{}
	}
	return emails, InboxData{Actions: actions, Drafts: s.mergeGenerated(NewDraftIndex(drafts), draftsErr == nil)}, nil
}

// mergeGenerated marks locally generated drafts in idx. Ids a successful drafts
// fetch already lists are confirmed and forgotten.
func (s *InboxService) mergeGenerated(idx *DraftIndex, fetched bool) *DraftIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.generated {
		if fetched && idx.HasDraft(id) {
			delete(s.generated, id)
			continue
		}
		idx.Mark(id)
	}
	return idx
}

// Emails exposes the underlying collection
func (s *InboxService) Emails() *Collection[api.Email, InboxData] {
	return s.emails
}

// Load fetches emails, action items and the draft index
func (s *InboxService) Load(ctx context.Context) error {
	return s.emails.Load(ctx)
}

// Actions returns the action items of the last successful load
func (s *InboxService) Actions() []api.ActionItem {
	actions := s.emails.Extra().Actions
	out := make([]api.ActionItem, len(actions))
	copy(out, actions)
	return out
}

// SetFilter replaces the active filter. It never triggers a fetch.
func (s *InboxService) SetFilter(f Filter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

// Filter returns the active filter
func (s *InboxService) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Visible returns the loaded emails that pass the active filter
func (s *InboxService) Visible() []api.Email {
	return s.Filter().Apply(s.emails.Items())
}

// ProcessAll asks the server to process every email, then re-fetches
func (s *InboxService) ProcessAll(ctx context.Context) (Notice, error) {
	var count int
	n, err := s.emails.Mutate(ctx, func(ctx context.Context) error {
		res, err := s.gw.ProcessAll(ctx)
		if err != nil {
			return err
		}
		if res != nil {
			count = res.Count
		}
		return nil
	}, msgProcessSucceeded, msgProcessFailed)
	if err == nil {
		s.logger.Info("processed emails", zap.Int("count", count))
	}
	return n, err
}

// DraftState is what an email card shows on its draft button
type DraftState int

const (
	DraftNone DraftState = iota
	DraftGenerating
	DraftCreated
)

// DraftState reports the draft status of emailID
func (s *InboxService) DraftState(emailID api.ID) DraftState {
	s.mu.Lock()
	_, busy := s.generating[emailID]
	_, generated := s.generated[emailID]
	s.mu.Unlock()
	if busy {
		return DraftGenerating
	}
	if generated || s.emails.Extra().Drafts.HasDraft(emailID) {
		return DraftCreated
	}
	return DraftNone
}

// GenerateDraft asks the server for a reply to emailID with the default instruction.
// The inbox list is not re-fetched; only the draft index is updated.
func (s *InboxService) GenerateDraft(ctx context.Context, emailID api.ID) (*api.Draft, Notice, error) {
	return s.GenerateDraftWith(ctx, emailID, api.DefaultInstruction)
}

// GenerateDraftWith is GenerateDraft with a custom instruction
func (s *InboxService) GenerateDraftWith(ctx context.Context, emailID api.ID, instruction string) (*api.Draft, Notice, error) {
	s.mu.Lock()
	if _, busy := s.generating[emailID]; busy {
		s.mu.Unlock()
		return nil, Notice{}, ErrDraftInFlight
	}
	s.generating[emailID] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.generating, emailID)
		s.mu.Unlock()
	}()

	draft, err := s.gw.GenerateDraft(ctx, api.GenerateDraftRequest{EmailID: emailID, Instruction: instruction})
	if err != nil {
		n := ErrorNotice(msgGenerateFailed, fmt.Errorf("generate draft for email %d: %w", emailID, err))
		s.notifier.Publish(n)
		return nil, n, err
	}
	s.mu.Lock()
	s.generated[emailID] = struct{}{}
	s.mu.Unlock()
	s.emails.Extra().Drafts.Mark(emailID)
	n := SuccessNotice(msgGenerateSucceeded)
	s.notifier.Publish(n)
	return draft, n, nil
}

// SaveFilter stores the active filter under name
func (s *InboxService) SaveFilter(ctx context.Context, name string) error {
	if s.filters == nil {
		return ErrStoreUnavailable
	}
	f := s.Filter()
	priority := f.Priority
	if priority == "" {
		priority = PriorityAll
	}
	return s.filters.SaveFilter(ctx, &db.SavedFilter{Name: name, Search: f.Search, Priority: priority})
}

// ApplySavedFilter makes the named filter active and records its use
func (s *InboxService) ApplySavedFilter(ctx context.Context, name string) (Filter, error) {
	if s.filters == nil {
		return Filter{}, ErrStoreUnavailable
	}
	saved, err := s.filters.GetFilter(ctx, name)
	if err != nil {
		return Filter{}, err
	}
	if err := s.filters.TouchFilter(ctx, saved.Name); err != nil {
		s.logger.Debug("touch saved filter", zap.String("name", saved.Name), zap.Error(err))
	}
	f := Filter{Search: saved.Search, Priority: saved.Priority}
	s.SetFilter(f)
	return f, nil
}

// SavedFilters lists the stored filters, most recently used first
func (s *InboxService) SavedFilters(ctx context.Context) ([]*db.SavedFilter, error) {
	if s.filters == nil {
		return nil, ErrStoreUnavailable
	}
	return s.filters.ListFilters(ctx)
}

// DeleteSavedFilter removes a stored filter
func (s *InboxService) DeleteSavedFilter(ctx context.Context, name string) error {
	if s.filters == nil {
		return ErrStoreUnavailable
	}
	return s.filters.DeleteFilter(ctx, name)
}
