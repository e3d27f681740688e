package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/ajramos/mailflow/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleEmails() []api.Email {
	return []api.Email{
		{ID: 1, Sender: "boss@corp.com", Subject: "Quarterly report", Body: "Please send the numbers", Priority: api.PriorityHigh},
		{ID: 2, Sender: "team@corp.com", Subject: "Lunch", Body: "Pizza on Friday", Priority: api.PriorityMedium},
		{ID: 3, Sender: "news@letter.io", Subject: "Weekly digest", Body: "Top stories", Priority: api.PriorityLow},
	}
}

func idPtr(id api.ID) *api.ID { return &id }

func newInbox(t *testing.T, gw *MockGateway, filters FilterStore) (*InboxService, *noticeRecorder) {
	t.Helper()
	n := NewNotifier(nil)
	rec := recordNotices(n)
	return NewInboxService(gw, n, nil, filters), rec
}

func TestInboxService_LoadJoinsEmailsActionsAndDrafts(t *testing.T) {
	gw := new(MockGateway)
	actions := []api.ActionItem{{ID: 10, Task: "Send numbers", EmailID: idPtr(1)}}
	gw.On("ListEmails", mock.Anything).Return(sampleEmails(), nil)
	gw.On("ListActionItems", mock.Anything).Return(actions, nil)
	gw.On("ListDrafts", mock.Anything).Return([]api.Draft{{ID: 5, EmailID: idPtr(2)}}, nil)

	inbox, rec := newInbox(t, gw, nil)
	require.NoError(t, inbox.Load(context.Background()))

	assert.Equal(t, StateLoaded, inbox.Emails().State())
	assert.Len(t, inbox.Emails().Items(), 3)
	assert.Equal(t, actions, inbox.Actions())
	assert.Equal(t, DraftCreated, inbox.DraftState(2))
	assert.Equal(t, DraftNone, inbox.DraftState(1))
	assert.Empty(t, rec.all())
	gw.AssertExpectations(t)
}

func TestInboxService_LoadFailsWhenEitherFetchFails(t *testing.T) {
	tests := []struct {
		name      string
		emailsErr error
		actionErr error
	}{
		{"emails_fail", errors.New("emails down"), nil},
		{"actions_fail", nil, errors.New("actions down")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(MockGateway)
			if tt.emailsErr != nil {
				gw.On("ListEmails", mock.Anything).Return(nil, tt.emailsErr)
			} else {
				gw.On("ListEmails", mock.Anything).Return(sampleEmails(), nil)
			}
			if tt.actionErr != nil {
				gw.On("ListActionItems", mock.Anything).Return(nil, tt.actionErr)
			} else {
				gw.On("ListActionItems", mock.Anything).Return([]api.ActionItem{{ID: 1}}, nil)
			}
			gw.On("ListDrafts", mock.Anything).Return([]api.Draft{}, nil)

			inbox, rec := newInbox(t, gw, nil)
			err := inbox.Load(context.Background())

			assert.Error(t, err)
			assert.Equal(t, StateErrored, inbox.Emails().State())
			assert.Empty(t, inbox.Emails().Items())
			assert.Empty(t, inbox.Actions())
			assert.Equal(t, []string{"Failed to fetch emails. Please try again."}, rec.messages())
		})
	}
}

func TestInboxService_DraftsFailureOnlyEmptiesIndex(t *testing.T) {
	gw := new(MockGateway)
	gw.On("ListEmails", mock.Anything).Return(sampleEmails(), nil)
	gw.On("ListActionItems", mock.Anything).Return([]api.ActionItem{}, nil)
	gw.On("ListDrafts", mock.Anything).Return(nil, errors.New("drafts down"))

	inbox, rec := newInbox(t, gw, nil)
	require.NoError(t, inbox.Load(context.Background()))

	assert.Len(t, inbox.Emails().Items(), 3)
	assert.Equal(t, 0, inbox.Emails().Extra().Drafts.Len())
	assert.Empty(t, rec.all())
}

func TestFilter_Match(t *testing.T) {
	emails := sampleEmails()

	tests := []struct {
		name   string
		filter Filter
		want   []api.ID
	}{
		{"zero_matches_all", Filter{}, []api.ID{1, 2, 3}},
		{"all_priority", Filter{Priority: "all"}, []api.ID{1, 2, 3}},
		{"high_only", Filter{Priority: "high"}, []api.ID{1}},
		{"search_subject_case_insensitive", Filter{Search: "QUARTERLY"}, []api.ID{1}},
		{"search_sender", Filter{Search: "letter.io"}, []api.ID{3}},
		{"search_body", Filter{Search: "pizza"}, []api.ID{2}},
		{"search_and_priority", Filter{Search: "corp", Priority: "medium"}, []api.ID{2}},
		{"no_match", Filter{Search: "zzz"}, []api.ID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []api.ID{}
			for _, e := range tt.filter.Apply(emails) {
				got = append(got, e.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter_EmptyHint(t *testing.T) {
	assert.Equal(t, "Your inbox is empty", Filter{}.EmptyHint())
	assert.Equal(t, "Your inbox is empty", Filter{Priority: "all"}.EmptyHint())
	assert.Equal(t, "Try adjusting your filters", Filter{Search: "x"}.EmptyHint())
	assert.Equal(t, "Try adjusting your filters", Filter{Priority: "low"}.EmptyHint())
}

func TestInboxService_FilteringNeverFetches(t *testing.T) {
	gw := new(MockGateway)
	gw.On("ListEmails", mock.Anything).Return(sampleEmails(), nil).Once()
	gw.On("ListActionItems", mock.Anything).Return([]api.ActionItem{}, nil).Once()
	gw.On("ListDrafts", mock.Anything).Return([]api.Draft{}, nil).Once()

	inbox, _ := newInbox(t, gw, nil)
	require.NoError(t, inbox.Load(context.Background()))

	inbox.SetFilter(Filter{Priority: "high"})
	assert.Len(t, inbox.Visible(), 1)
	inbox.SetFilter(Filter{Search: "corp"})
	assert.Len(t, inbox.Visible(), 2)

	gw.AssertNumberOfCalls(t, "ListEmails", 1)
}

func TestInboxService_ProcessAll(t *testing.T) {
	t.Run("success refetches", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("ProcessAll", mock.Anything).Return(&api.ProcessResult{Message: "ok", Count: 3}, nil)
		gw.On("ListEmails", mock.Anything).Return(sampleEmails(), nil)
		gw.On("ListActionItems", mock.Anything).Return([]api.ActionItem{}, nil)
		gw.On("ListDrafts", mock.Anything).Return([]api.Draft{}, nil)

		inbox, rec := newInbox(t, gw, nil)
		n, err := inbox.ProcessAll(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "All emails have been processed successfully.", n.Message)
		assert.Equal(t, []string{"All emails have been processed successfully."}, rec.messages())
		gw.AssertNumberOfCalls(t, "ListEmails", 1)
	})

	t.Run("failure does not refetch", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("ProcessAll", mock.Anything).Return(nil, errors.New("500"))

		inbox, rec := newInbox(t, gw, nil)
		_, err := inbox.ProcessAll(context.Background())

		assert.Error(t, err)
		assert.Equal(t, []string{"Failed to process emails. Please try again."}, rec.messages())
		gw.AssertNotCalled(t, "ListEmails", mock.Anything)
	})
}

func TestInboxService_GenerateDraft(t *testing.T) {
	gw := new(MockGateway)
	gw.On("ListEmails", mock.Anything).Return(sampleEmails(), nil)
	gw.On("ListActionItems", mock.Anything).Return([]api.ActionItem{}, nil)
	gw.On("ListDrafts", mock.Anything).Return([]api.Draft{}, nil)
	gw.On("GenerateDraft", mock.Anything, api.GenerateDraftRequest{EmailID: 42, Instruction: "Write a professional reply"}).
		Return(&api.Draft{ID: 9, EmailID: idPtr(42)}, nil)

	inbox, rec := newInbox(t, gw, nil)
	require.NoError(t, inbox.Load(context.Background()))

	card := NewEmailCard(inbox, api.Email{ID: 42})
	label, enabled := card.DraftButton()
	assert.Equal(t, "Generate Draft", label)
	assert.True(t, enabled)

	_, err := card.GenerateDraft(context.Background())
	require.NoError(t, err)

	label, enabled = card.DraftButton()
	assert.Equal(t, "Draft Created", label)
	assert.False(t, enabled)
	assert.Equal(t, []string{"Draft generated successfully! Check the Drafts section."}, rec.messages())
	gw.AssertNumberOfCalls(t, "ListEmails", 1)
}

func TestInboxService_GeneratedDraftSurvivesStaleReload(t *testing.T) {
	gw := new(MockGateway)
	gw.On("ListEmails", mock.Anything).Return(sampleEmails(), nil)
	gw.On("ListActionItems", mock.Anything).Return([]api.ActionItem{}, nil)
	gw.On("GenerateDraft", mock.Anything, mock.Anything).Return(&api.Draft{ID: 9, EmailID: idPtr(2)}, nil)

	inbox, _ := newInbox(t, gw, nil)

	// The drafts list of this load is read before the draft exists; the
	// generation finishes before the load installs its index.
	gw.On("ListDrafts", mock.Anything).Return([]api.Draft{}, nil).Once().Run(func(mock.Arguments) {
		_, _, err := inbox.GenerateDraft(context.Background(), 2)
		assert.NoError(t, err)
	})
	require.NoError(t, inbox.Load(context.Background()))
	assert.Equal(t, DraftCreated, inbox.DraftState(2))

	// a later load that still misses the draft keeps the flag
	gw.On("ListDrafts", mock.Anything).Return([]api.Draft{}, nil).Once()
	require.NoError(t, inbox.Load(context.Background()))
	assert.Equal(t, DraftCreated, inbox.DraftState(2))
	assert.True(t, inbox.Emails().Extra().Drafts.HasDraft(2))

	// once the server lists it, the index alone carries it
	gw.On("ListDrafts", mock.Anything).Return([]api.Draft{{ID: 9, EmailID: idPtr(2)}}, nil).Once()
	require.NoError(t, inbox.Load(context.Background()))
	assert.Equal(t, DraftCreated, inbox.DraftState(2))
	assert.Empty(t, inbox.generated)

	// and a draft deleted on the server is no longer reported
	gw.On("ListDrafts", mock.Anything).Return([]api.Draft{}, nil).Once()
	require.NoError(t, inbox.Load(context.Background()))
	assert.Equal(t, DraftNone, inbox.DraftState(2))
	gw.AssertNumberOfCalls(t, "GenerateDraft", 1)
}

func TestInboxService_GenerateDraftFailure(t *testing.T) {
	gw := new(MockGateway)
	gw.On("GenerateDraft", mock.Anything, mock.Anything).Return(nil, errors.New("llm down"))

	inbox, rec := newInbox(t, gw, nil)
	_, n, err := inbox.GenerateDraft(context.Background(), 7)

	assert.Error(t, err)
	assert.Equal(t, LevelError, n.Level)
	assert.Equal(t, []string{"Failed to generate draft. Please try again."}, rec.messages())
	assert.Equal(t, DraftNone, inbox.DraftState(7))
}

func TestInboxService_GenerateDraftShowsGenerating(t *testing.T) {
	gw := new(MockGateway)
	release := make(chan struct{})
	started := make(chan struct{})
	gw.On("GenerateDraft", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&api.Draft{ID: 1}, nil)

	inbox, _ := newInbox(t, gw, nil)
	done := make(chan error, 1)
	go func() {
		_, _, err := inbox.GenerateDraft(context.Background(), 3)
		done <- err
	}()
	<-started

	assert.Equal(t, DraftGenerating, inbox.DraftState(3))
	_, _, err := inbox.GenerateDraft(context.Background(), 3)
	assert.ErrorIs(t, err, ErrDraftInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.NotEqual(t, DraftGenerating, inbox.DraftState(3))
}

func TestInboxService_SavedFilters(t *testing.T) {
	ctx := context.Background()

	t.Run("no store", func(t *testing.T) {
		inbox, _ := newInbox(t, new(MockGateway), nil)
		assert.ErrorIs(t, inbox.SaveFilter(ctx, "x"), ErrStoreUnavailable)
		_, err := inbox.ApplySavedFilter(ctx, "x")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		_, err = inbox.SavedFilters(ctx)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.ErrorIs(t, inbox.DeleteSavedFilter(ctx, "x"), ErrStoreUnavailable)
	})

	t.Run("save and apply", func(t *testing.T) {
		store := new(MockFilterStore)
		store.On("SaveFilter", ctx, &db.SavedFilter{Name: "urgent", Search: "report", Priority: "high"}).Return(nil)
		store.On("GetFilter", ctx, "digest").Return(&db.SavedFilter{Name: "digest", Search: "weekly", Priority: "all"}, nil)
		store.On("TouchFilter", ctx, "digest").Return(nil)

		inbox, _ := newInbox(t, new(MockGateway), store)
		inbox.SetFilter(Filter{Search: "report", Priority: "high"})
		require.NoError(t, inbox.SaveFilter(ctx, "urgent"))

		f, err := inbox.ApplySavedFilter(ctx, "digest")
		require.NoError(t, err)
		assert.Equal(t, Filter{Search: "weekly", Priority: "all"}, f)
		assert.Equal(t, f, inbox.Filter())
		store.AssertExpectations(t)
	})
}
