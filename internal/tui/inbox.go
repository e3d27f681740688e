package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/ajramos/mailflow/internal/render"
	"github.com/ajramos/mailflow/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"go.uber.org/zap"
)

// priorityCycle is the order the priority key steps through
var priorityCycle = []string{services.PriorityAll, string(api.PriorityHigh), string(api.PriorityMedium), string(api.PriorityLow)}

// inboxPage lists emails with a detail card and the action items pane
type inboxPage struct {
	app *App

	layout  *tview.Flex
	search  *tview.InputField
	filters *tview.TextView
	table   *tview.Table
	card    *tview.TextView
	actions *tview.TextView

	// visible is what the table shows, in row order
	visible []api.Email
	// requested marks emails whose draft request was sent from this page
	requested map[api.ID]bool
}

func newInboxPage(a *App) *inboxPage {
	p := &inboxPage{
		app:       a,
		search:    tview.NewInputField().SetLabel("Search: ").SetFieldWidth(0),
		filters:   tview.NewTextView().SetDynamicColors(true),
		table:     newListTable("Emails"),
		card:      tview.NewTextView().SetDynamicColors(true).SetWrap(true).SetScrollable(true),
		actions:   tview.NewTextView().SetDynamicColors(true).SetWrap(true).SetScrollable(true),
		requested: make(map[api.ID]bool),
	}
	p.card.SetBorder(true).SetTitle(" Email ")
	p.actions.SetBorder(true).SetTitle(" Action Items ")

	p.search.SetChangedFunc(func(text string) {
		f := a.inbox.Filter()
		f.Search = text
		a.inbox.SetFilter(f)
		p.render(a.inbox.Emails().Snapshot())
	})
	p.search.SetDoneFunc(func(tcell.Key) {
		a.SetFocus(p.table)
	})
	p.table.SetSelectionChangedFunc(func(row, _ int) {
		p.renderCard()
	})

	bar := tview.NewFlex().
		AddItem(p.search, 0, 2, false).
		AddItem(p.filters, 0, 1, false)
	side := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(p.card, 0, 2, false).
		AddItem(p.actions, 0, 1, false)
	body := tview.NewFlex().
		AddItem(p.table, 0, 3, true).
		AddItem(side, 0, 2, false)
	p.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(bar, 1, 0, false).
		AddItem(body, 0, 1, true)

	a.inbox.Emails().Watch(func(s services.Snapshot[api.Email, services.InboxData]) {
		a.queue(func() { p.render(s) })
	})
	p.render(a.inbox.Emails().Snapshot())
	return p
}

func (p *inboxPage) name() string          { return PageInbox }
func (p *inboxPage) title() string         { return "Inbox" }
func (p *inboxPage) root() tview.Primitive { return p.layout }
func (p *inboxPage) typing() bool          { return p.search.HasFocus() }

func (p *inboxPage) show() {
	p.app.SetFocus(p.table)
	p.refresh()
}

func (p *inboxPage) refresh() {
	p.app.background(func(ctx context.Context) {
		if err := p.app.inbox.Load(ctx); err != nil && !errors.Is(err, services.ErrSuperseded) {
			p.app.logger.Debug("inbox load failed", zap.Error(err))
		}
	})
}

func (p *inboxPage) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	a := p.app
	if p.typing() {
		if ev.Key() == tcell.KeyEscape {
			a.SetFocus(p.table)
			return nil
		}
		return ev
	}

	switch {
	case keyMatches(ev, a.Keys.Refresh):
		p.refresh()
	case keyMatches(ev, a.Keys.Search):
		a.SetFocus(p.search)
	case keyMatches(ev, a.Keys.Priority):
		p.cyclePriority()
	case keyMatches(ev, a.Keys.ProcessAll):
		p.processAll()
	case keyMatches(ev, a.Keys.GenerateDraft):
		p.generateDraft()
	case keyMatches(ev, a.Keys.SaveFilter):
		p.saveFilter()
	case keyMatches(ev, a.Keys.SavedFilters):
		p.openSavedFilters()
	default:
		return ev
	}
	return nil
}

// cyclePriority steps the priority filter; it never fetches
func (p *inboxPage) cyclePriority() {
	f := p.app.inbox.Filter()
	cur := f.Priority
	if cur == "" {
		cur = services.PriorityAll
	}
	next := priorityCycle[0]
	for i, pr := range priorityCycle {
		if pr == cur {
			next = priorityCycle[(i+1)%len(priorityCycle)]
			break
		}
	}
	f.Priority = next
	p.app.inbox.SetFilter(f)
	p.render(p.app.inbox.Emails().Snapshot())
}

func (p *inboxPage) processAll() {
	a := p.app
	a.errorHandler.ShowInfo("Processing emails...")
	a.background(func(ctx context.Context) {
		_, _ = a.inbox.ProcessAll(ctx)
	})
}

func (p *inboxPage) selected() (api.Email, bool) {
	idx := selectedRow(p.table, len(p.visible))
	if idx < 0 {
		return api.Email{}, false
	}
	return p.visible[idx], true
}

func (p *inboxPage) generateDraft() {
	a := p.app
	e, ok := p.selected()
	if !ok {
		return
	}
	card := services.NewEmailCard(a.inbox, e)
	if _, enabled := card.DraftButton(); !enabled || p.requested[e.ID] {
		return
	}
	p.requested[e.ID] = true
	p.renderCard()

	a.background(func(ctx context.Context) {
		_, err := card.GenerateDraft(ctx)
		if err != nil && !errors.Is(err, services.ErrDraftInFlight) {
			a.logger.Debug("draft generation failed", zap.Stringer("email_id", e.ID), zap.Error(err))
		}
		a.queue(func() {
			delete(p.requested, e.ID)
			p.renderCard()
		})
	})
}

func (p *inboxPage) saveFilter() {
	a := p.app
	a.promptInput("Save Filter", "Name: ", "", func(name string) {
		a.background(func(ctx context.Context) {
			if err := a.inbox.SaveFilter(ctx, name); err != nil {
				a.errorHandler.ShowError(fmt.Sprintf("Failed to save filter: %v", err))
				return
			}
			a.errorHandler.ShowSuccess(fmt.Sprintf("Filter %q saved", name))
		})
	})
}

func (p *inboxPage) openSavedFilters() {
	a := p.app
	a.background(func(ctx context.Context) {
		saved, err := a.inbox.SavedFilters(ctx)
		if err != nil {
			a.errorHandler.ShowError(fmt.Sprintf("Failed to load saved filters: %v", err))
			return
		}
		if len(saved) == 0 {
			a.errorHandler.ShowInfo("No saved filters")
			return
		}
		opts := make([]pickOption, len(saved))
		for i, f := range saved {
			secondary := "priority " + f.Priority
			if f.Search != "" {
				secondary = fmt.Sprintf("%q, %s", f.Search, secondary)
			}
			opts[i] = pickOption{Main: f.Name, Secondary: secondary}
		}
		a.queue(func() {
			a.pickFrom("Saved Filters", opts, func(i int) {
				p.applySavedFilter(saved[i].Name)
			}, func(i int) {
				p.deleteSavedFilter(saved[i].Name)
			})
		})
	})
}

func (p *inboxPage) applySavedFilter(name string) {
	a := p.app
	a.background(func(ctx context.Context) {
		f, err := a.inbox.ApplySavedFilter(ctx, name)
		if err != nil {
			a.errorHandler.ShowError(fmt.Sprintf("Failed to apply filter: %v", err))
			return
		}
		a.queue(func() {
			// SetText fires the changed func, which re-applies the search part
			p.search.SetText(f.Search)
			p.render(a.inbox.Emails().Snapshot())
		})
	})
}

func (p *inboxPage) deleteSavedFilter(name string) {
	a := p.app
	a.background(func(ctx context.Context) {
		if err := a.inbox.DeleteSavedFilter(ctx, name); err != nil {
			a.errorHandler.ShowError(fmt.Sprintf("Failed to delete filter: %v", err))
			return
		}
		a.errorHandler.ShowSuccess(fmt.Sprintf("Filter %q deleted", name))
	})
}

// render redraws the table, filter bar and action items from s
func (p *inboxPage) render(s services.Snapshot[api.Email, services.InboxData]) {
	a := p.app
	f := a.inbox.Filter()

	p.filters.SetText(p.filterText(f))

	prevID := api.ID(0)
	if e, ok := p.selected(); ok {
		prevID = e.ID
	}

	p.table.Clear()
	for col, h := range []string{"Priority", "From", "Subject", "Category", "When"} {
		p.table.SetCell(0, col, headerCell(h))
	}

	if s.State != services.StateLoaded && s.State != services.StateErrored && len(s.Items) == 0 {
		p.visible = nil
		placeholderRow(p.table, "Loading emails...")
		p.card.SetText("")
		p.renderActions(s)
		return
	}

	p.visible = f.Apply(s.Items)
	p.table.SetTitle(fmt.Sprintf(" Emails (%d/%d) ", len(p.visible), len(s.Items)))
	if len(p.visible) == 0 {
		p.card.SetText(emptyState(services.EmptyInboxTitle, f.EmptyHint()))
		p.renderActions(s)
		return
	}

	now := a.now()
	selectRow := 1
	for i, e := range p.visible {
		row := i + 1
		p.table.SetCell(row, 0, tview.NewTableCell(render.PriorityLabel(e.Priority)).
			SetTextColor(a.palette.PriorityColor(e.Priority)))
		p.table.SetCell(row, 1, tview.NewTableCell(render.Truncate(render.SenderName(e.Sender), 24)))
		p.table.SetCell(row, 2, tview.NewTableCell(e.Subject).SetExpansion(1).SetMaxWidth(60))
		p.table.SetCell(row, 3, tview.NewTableCell(render.Category(e.Category)))
		p.table.SetCell(row, 4, tview.NewTableCell(render.Timestamp(e.Timestamp, now)).SetAlign(tview.AlignRight))
		if e.ID == prevID {
			selectRow = row
		}
	}
	p.table.Select(selectRow, 0)
	p.renderCard()
	p.renderActions(s)
}

func (p *inboxPage) filterText(f services.Filter) string {
	pr := f.Priority
	if pr == "" {
		pr = services.PriorityAll
	}
	label := "All"
	if pr != services.PriorityAll {
		label = render.PriorityLabel(api.Priority(pr))
	}
	return fmt.Sprintf(" Priority: [::b]%s[::-] (%s)", tview.Escape(label), tview.Escape(p.app.Keys.Priority))
}

// renderCard shows the selected email with its draft button
func (p *inboxPage) renderCard() {
	a := p.app
	e, ok := p.selected()
	if !ok {
		if len(p.visible) == 0 {
			return
		}
		p.card.SetText("")
		return
	}
	label, enabled := services.NewEmailCard(a.inbox, e).DraftButton()
	if enabled && p.requested[e.ID] {
		label, enabled = services.LabelGenerating, false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[::b]%s[::-]\n", tview.Escape(e.Subject))
	fmt.Fprintf(&b, "From: %s\n", tview.Escape(e.Sender))
	if e.Recipient != "" {
		fmt.Fprintf(&b, "To: %s\n", tview.Escape(e.Recipient))
	}
	fmt.Fprintf(&b, "[%s]%s[-] • %s • %s\n\n",
		tcellHex(a.palette.PriorityColor(e.Priority)),
		render.PriorityLabel(e.Priority),
		tview.Escape(render.Category(e.Category)),
		render.Timestamp(e.Timestamp, a.now()))

	_, _, width, _ := p.card.GetInnerRect()
	if width <= 0 {
		width = 60
	}
	b.WriteString(tview.Escape(render.Wrap(render.PlainText(e.Body), width)))
	b.WriteString("\n\n")

	button := fmt.Sprintf("[ %s ]", label)
	if enabled {
		fmt.Fprintf(&b, "%s%s%s (%s)", colorTag(a.theme.Frame.TabColor), tview.Escape(button), endTag, tview.Escape(a.Keys.GenerateDraft))
	} else {
		fmt.Fprintf(&b, "%s%s%s", colorTag(a.theme.Badge.DraftReady), tview.Escape(button), endTag)
	}

	p.card.SetText(b.String())
	p.card.ScrollToBeginning()
}

// renderActions fills the action items pane
func (p *inboxPage) renderActions(s services.Snapshot[api.Email, services.InboxData]) {
	actions := s.Extra.Actions
	if s.State != services.StateLoaded || len(actions) == 0 {
		if s.State == services.StateLoading && len(s.Items) == 0 {
			p.actions.SetText("Loading...")
			return
		}
		p.actions.SetText(emptyState(services.EmptyActionItemsTitle, services.EmptyActionItemsHint))
		return
	}
	var b strings.Builder
	for _, item := range actions {
		line := tview.Escape(render.ActionItemLine(item))
		if item.Done() {
			line = colorTag(p.app.theme.Badge.Completed) + line + endTag
		}
		b.WriteString(line + "\n")
	}
	p.actions.SetText(b.String())
}

func tcellHex(c tcell.Color) string {
	if c == tcell.ColorDefault {
		return "-"
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
