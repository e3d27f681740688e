package tui

import (
	"errors"
	"testing"
	"time"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/ajramos/mailflow/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxPage_LoadAndPriorityFilter(t *testing.T) {
	gw := newFakeGateway()
	gw.emails = sampleEmails()
	gw.actions = []api.ActionItem{{ID: 1, Task: "Pay invoice", Deadline: "Friday"}}
	a := newTestApp(t, gw, nil)
	a.switchPage(PageInbox)
	p := a.pageByName(PageInbox).(*inboxPage)

	require.Equal(t, 4, p.table.GetRowCount())
	assert.Equal(t, "Quarterly invoice", p.table.GetCell(1, 2).Text)
	assert.Equal(t, "High Priority", p.table.GetCell(1, 0).Text)
	assert.Equal(t, "Uncategorized", p.table.GetCell(3, 3).Text)
	assert.Contains(t, p.actions.GetText(true), "[ ] Pay invoice (due Friday)")
	assert.Contains(t, p.card.GetText(true), services.LabelGenerateDraft)

	a.handleKey(runeKey('p'))
	assert.Equal(t, "high", a.inbox.Filter().Priority)
	require.Equal(t, 2, p.table.GetRowCount())
	assert.Equal(t, "Quarterly invoice", p.table.GetCell(1, 2).Text)

	a.handleKey(runeKey('p'))
	a.handleKey(runeKey('p'))
	assert.Equal(t, "low", a.inbox.Filter().Priority)
	assert.Equal(t, "Lunch?", p.table.GetCell(1, 2).Text)

	a.handleKey(runeKey('p'))
	assert.Equal(t, services.PriorityAll, a.inbox.Filter().Priority)
	assert.Equal(t, 4, p.table.GetRowCount())

	assert.Equal(t, 1, gw.count("ListEmails"), "filtering never fetches")
}

func TestInboxPage_SearchTyping(t *testing.T) {
	gw := newFakeGateway()
	gw.emails = sampleEmails()
	a := newTestApp(t, gw, nil)
	a.switchPage(PageInbox)
	p := a.pageByName(PageInbox).(*inboxPage)

	a.handleKey(runeKey('/'))
	require.True(t, p.typing())

	p.search.SetText("ROADMAP")
	require.Equal(t, 2, p.table.GetRowCount())
	assert.Equal(t, "Roadmap review", p.table.GetCell(1, 2).Text)

	// page shortcuts are text while the search field has focus
	a.handleKey(runeKey('2'))
	assert.Equal(t, PageInbox, a.currentPageView().name())

	a.handleKey(specialKey(tcell.KeyEscape))
	assert.False(t, p.typing())

	p.search.SetText("nothing matches")
	assert.Contains(t, p.card.GetText(true), services.EmptyInboxTitle)
	assert.Contains(t, p.card.GetText(true), services.EmptyInboxFilterHint)
	assert.Equal(t, 1, gw.count("ListEmails"))
}

func TestInboxPage_EmptyInbox(t *testing.T) {
	a := newTestApp(t, newFakeGateway(), nil)
	a.switchPage(PageInbox)
	p := a.pageByName(PageInbox).(*inboxPage)

	assert.Contains(t, p.card.GetText(true), services.EmptyInboxTitle)
	assert.Contains(t, p.card.GetText(true), services.EmptyInboxHint)
	assert.Contains(t, p.actions.GetText(true), services.EmptyActionItemsTitle)
}

func TestInboxPage_GenerateDraft(t *testing.T) {
	gw := newFakeGateway()
	gw.emails = sampleEmails()
	a := newTestApp(t, gw, nil)
	a.switchPage(PageInbox)
	p := a.pageByName(PageInbox).(*inboxPage)

	a.handleKey(runeKey('g'))

	require.Len(t, gw.generated, 1)
	assert.Equal(t, api.ID(1), gw.generated[0].EmailID)
	assert.Equal(t, api.DefaultInstruction, gw.generated[0].Instruction)
	assert.Contains(t, p.card.GetText(true), services.LabelDraftCreated)
	assert.Equal(t, 1, gw.count("ListEmails"), "generating a draft does not reload the inbox")

	// the button is disabled once a draft exists
	a.handleKey(runeKey('g'))
	assert.Len(t, gw.generated, 1)
}

func TestInboxPage_ProcessAll(t *testing.T) {
	gw := newFakeGateway()
	gw.emails = sampleEmails()
	a := newTestApp(t, gw, nil)
	a.switchPage(PageInbox)

	a.handleKey(runeKey('P'))

	assert.Equal(t, 1, gw.count("ProcessAll"))
	assert.Equal(t, 2, gw.count("ListEmails"))
}

func TestDraftsPage_TwoStepDelete(t *testing.T) {
	gw := newFakeGateway()
	gw.drafts = []api.Draft{{ID: 10, Recipient: "bob@example.com", Subject: "Re: Lunch?", Body: "Sure"}}
	a := newTestApp(t, gw, nil)
	a.switchPage(PageDrafts)
	p := a.pageByName(PageDrafts).(*draftsPage)
	require.Equal(t, 2, p.table.GetRowCount())

	a.handleKey(runeKey('d'))
	id, pending := a.drafts.Drafts().PendingDelete()
	require.True(t, pending)
	assert.Equal(t, api.ID(10), id)
	assert.Contains(t, a.errorHandler.Status(), "Delete draft")
	assert.Equal(t, 0, gw.count("DeleteDraft"))

	a.handleKey(runeKey('n'))
	_, pending = a.drafts.Drafts().PendingDelete()
	assert.False(t, pending)
	assert.Equal(t, 0, gw.count("DeleteDraft"))

	a.handleKey(runeKey('d'))
	a.handleKey(runeKey('y'))
	assert.Equal(t, []api.ID{10}, gw.deleted)
	assert.Equal(t, 2, gw.count("ListDrafts"))
}

func TestDraftsPage_EditAndSave(t *testing.T) {
	gw := newFakeGateway()
	gw.drafts = []api.Draft{{ID: 10, Recipient: "bob@example.com", Subject: "Re: Lunch?", Body: "Sure", Metadata: map[string]any{"generated": true}}}
	a := newTestApp(t, gw, nil)
	a.switchPage(PageDrafts)
	p := a.pageByName(PageDrafts).(*draftsPage)
	assert.Contains(t, p.view.GetText(true), services.BadgeAIGenerated)

	a.handleKey(runeKey('e'))
	require.True(t, p.typing())
	assert.Equal(t, "bob@example.com", p.recipient.GetText())

	// page shortcuts are ignored while editing
	a.handleKey(runeKey('3'))
	assert.Equal(t, PageDrafts, a.currentPageView().name())

	p.subject.SetText("Re: Lunch on Friday")
	a.handleKey(specialKey(tcell.KeyCtrlS))

	require.Contains(t, gw.updated, api.ID(10))
	req := gw.updated[10]
	require.NotNil(t, req.Subject)
	require.NotNil(t, req.Recipient)
	require.NotNil(t, req.Body)
	assert.Equal(t, "Re: Lunch on Friday", *req.Subject)
	assert.Equal(t, "bob@example.com", *req.Recipient)
	assert.Equal(t, "Sure", *req.Body)
	assert.False(t, p.typing())
}

func TestDraftsPage_CancelEdit(t *testing.T) {
	gw := newFakeGateway()
	gw.drafts = []api.Draft{{ID: 10, Recipient: "bob@example.com", Subject: "Re: Lunch?"}}
	a := newTestApp(t, gw, nil)
	a.switchPage(PageDrafts)
	p := a.pageByName(PageDrafts).(*draftsPage)

	a.handleKey(runeKey('e'))
	p.subject.SetText("changed")
	a.handleKey(specialKey(tcell.KeyEscape))

	assert.False(t, p.typing())
	assert.Equal(t, 0, gw.count("UpdateDraft"))
	assert.Contains(t, p.view.GetText(true), "Re: Lunch?")
}

func TestDraftsPage_Create(t *testing.T) {
	gw := newFakeGateway()
	a := newTestApp(t, gw, nil)
	a.switchPage(PageDrafts)
	p := a.pageByName(PageDrafts).(*draftsPage)
	assert.Contains(t, p.view.GetText(true), services.EmptyDraftsTitle)

	a.handleKey(runeKey('c'))
	require.True(t, p.typing())

	p.recipient.SetText("dana@example.com")
	a.handleKey(specialKey(tcell.KeyCtrlS))
	assert.Equal(t, 0, gw.count("CreateDraft"), "subject is required")
	assert.True(t, p.typing())

	p.subject.SetText("Hello")
	p.body.SetText("Hi Dana")
	a.handleKey(specialKey(tcell.KeyCtrlS))

	require.Len(t, gw.created, 1)
	assert.Equal(t, api.CreateDraftRequest{Recipient: "dana@example.com", Subject: "Hello", Body: "Hi Dana"}, gw.created[0])
	assert.False(t, p.typing())
}

func TestPromptsPage_CreateAndDelete(t *testing.T) {
	gw := newFakeGateway()
	gw.prompts = []api.Prompt{{ID: 4, Name: "Triage", Type: api.PromptCategorization, Content: "Sort it"}}
	a := newTestApp(t, gw, nil)
	a.switchPage(PagePrompts)
	p := a.pageByName(PagePrompts).(*promptsPage)

	require.Equal(t, 2, p.table.GetRowCount())
	assert.Equal(t, "Categorization", p.table.GetCell(1, 1).Text)
	assert.Contains(t, p.view.GetText(true), "Sort it")

	a.handleKey(runeKey('c'))
	require.True(t, p.typing())
	p.nameField.SetText("Summaries")
	p.content.SetText("Summarize each email")
	a.handleKey(specialKey(tcell.KeyCtrlS))

	require.Len(t, gw.newPrompt, 1)
	assert.Equal(t, "Summaries", gw.newPrompt[0].Name)
	assert.Equal(t, api.PromptCustom, gw.newPrompt[0].Type)
	assert.False(t, p.typing())

	a.handleKey(runeKey('d'))
	assert.Equal(t, 0, gw.count("DeletePrompt"))
	a.handleKey(specialKey(tcell.KeyEscape))
	assert.Equal(t, 0, gw.count("DeletePrompt"))
	a.handleKey(runeKey('d'))
	a.handleKey(runeKey('y'))
	assert.Equal(t, 1, gw.count("DeletePrompt"))
}

func TestPromptsPage_BlankCreateIsRejected(t *testing.T) {
	gw := newFakeGateway()
	a := newTestApp(t, gw, nil)
	a.switchPage(PagePrompts)
	p := a.pageByName(PagePrompts).(*promptsPage)

	a.handleKey(runeKey('c'))
	p.nameField.SetText("  ")
	a.handleKey(specialKey(tcell.KeyCtrlS))

	assert.Equal(t, 0, gw.count("CreatePrompt"))
	assert.True(t, p.typing(), "the form stays open")
	assert.Contains(t, a.errorHandler.Status(), "Please fill in all fields.")
}

func TestChatPage_SendAndFallback(t *testing.T) {
	gw := newFakeGateway()
	reply := "You have **two** meetings."
	gw.reply = &api.ChatReply{Response: &reply}
	a := newTestApp(t, gw, nil)
	a.switchPage(PageChat)
	p := a.pageByName(PageChat).(*chatPage)

	assert.Contains(t, p.transcript.GetText(true), services.EmptyChatTitle)
	require.True(t, p.typing())

	p.input.SetText("What is on today?")
	p.send()

	assert.Equal(t, []string{"What is on today?"}, gw.queries)
	assert.Empty(t, p.input.GetText())
	text := p.transcript.GetText(true)
	assert.Contains(t, text, "What is on today?")
	assert.Contains(t, text, "meetings")
	assert.False(t, p.busy)

	gw.reply = nil
	gw.chatErr = errors.New("connection refused")
	p.input.SetText("again")
	p.send()
	assert.Contains(t, p.transcript.GetText(true), "Sorry, I encountered an error")

	gw.chatErr = nil
	p.input.SetText("and now?")
	p.send()
	assert.Contains(t, p.transcript.GetText(true), services.ChatNoResponse)

	p.input.SetText("   ")
	p.send()
	assert.Equal(t, 3, gw.count("Chat"))
}

func TestChatPage_TabLeavesInput(t *testing.T) {
	a := newTestApp(t, newFakeGateway(), nil)
	a.switchPage(PageChat)

	a.handleKey(specialKey(tcell.KeyTab))
	assert.Equal(t, PageStats, a.currentPageView().name())
}

func TestStatsPage(t *testing.T) {
	a := newTestApp(t, newFakeGateway(), nil)
	a.switchPage(PageStats)
	p := a.pageByName(PageStats).(*statsPage)
	assert.Equal(t, msgMetricsDisabled, p.table.GetCell(1, 0).Text)

	m := api.NewMetrics()
	m.ObserveRequest("GET", "/api/emails/", 200, 20*time.Millisecond)
	m.ObserveRequest("GET", "/api/emails/", 500, 40*time.Millisecond)
	a.metrics = m
	a.handleKey(runeKey('R'))

	assert.Equal(t, "GET", p.table.GetCell(1, 0).Text)
	assert.Equal(t, "/api/emails/", p.table.GetCell(1, 1).Text)
	assert.Equal(t, "2", p.table.GetCell(1, 2).Text)
	assert.Equal(t, "1", p.table.GetCell(1, 3).Text)
	assert.Equal(t, "30ms", p.table.GetCell(1, 4).Text)
}

func TestFormatLatency(t *testing.T) {
	assert.Equal(t, "-", formatLatency(0))
	assert.Equal(t, "250µs", formatLatency(250*time.Microsecond))
	assert.Equal(t, "1.5s", formatLatency(1500*time.Millisecond))
}
