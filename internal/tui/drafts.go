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

const (
	draftView = "view"
	draftEdit = "edit"
)

// draftsPage lists drafts and edits one at a time
type draftsPage struct {
	app *App

	layout *tview.Flex
	table  *tview.Table
	detail *tview.Pages
	view   *tview.TextView

	form      *tview.Flex
	recipient *tview.InputField
	subject   *tview.InputField
	body      *TextEditor
	focusIdx  int

	drafts []api.Draft

	// card is set while an existing draft is in edit mode
	card     *services.DraftCard
	creating bool
	saving   bool
	confirm  deleteConfirm
}

func newDraftsPage(a *App) *draftsPage {
	p := &draftsPage{
		app:       a,
		table:     newListTable("Drafts"),
		detail:    tview.NewPages(),
		view:      tview.NewTextView().SetDynamicColors(true).SetWrap(true).SetScrollable(true),
		recipient: tview.NewInputField().SetLabel("To:      ").SetFieldWidth(0),
		subject:   tview.NewInputField().SetLabel("Subject: ").SetFieldWidth(0),
		body:      NewTextEditor(),
		confirm:   deleteConfirm{app: a},
	}
	p.view.SetBorder(true).SetTitle(" Draft ")
	p.body.SetBorder(true).SetTitle(" Body ")

	p.form = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(p.recipient, 1, 0, true).
		AddItem(p.subject, 1, 0, false).
		AddItem(p.body, 0, 1, false)
	p.form.SetBorder(true).SetTitle(" Edit Draft (Ctrl+S save, Esc cancel, Tab next field) ")

	p.detail.AddPage(draftView, p.view, true, true)
	p.detail.AddPage(draftEdit, p.form, true, false)

	p.table.SetSelectionChangedFunc(func(int, int) {
		if !p.typing() {
			p.renderDetail()
		}
	})

	p.layout = tview.NewFlex().
		AddItem(p.table, 0, 2, true).
		AddItem(p.detail, 0, 3, false)

	a.drafts.Drafts().Watch(func(s services.Snapshot[api.Draft, struct{}]) {
		a.queue(func() { p.render(s) })
	})
	p.render(a.drafts.Drafts().Snapshot())
	return p
}

func (p *draftsPage) name() string          { return PageDrafts }
func (p *draftsPage) title() string         { return "Drafts" }
func (p *draftsPage) root() tview.Primitive { return p.layout }

func (p *draftsPage) typing() bool {
	return p.creating || (p.card != nil && p.card.Editing())
}

func (p *draftsPage) show() {
	if !p.typing() {
		p.app.SetFocus(p.table)
	}
	p.refresh()
}

func (p *draftsPage) refresh() {
	p.app.background(func(ctx context.Context) {
		if err := p.app.drafts.Load(ctx); err != nil && !errors.Is(err, services.ErrSuperseded) {
			p.app.logger.Debug("drafts load failed", zap.Error(err))
		}
	})
}

func (p *draftsPage) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	if p.typing() {
		return p.handleFormKey(ev)
	}
	if p.confirm.handleKey(ev) {
		return nil
	}

	a := p.app
	switch {
	case keyMatches(ev, a.Keys.Refresh):
		p.refresh()
	case keyMatches(ev, a.Keys.Create):
		p.startCreate()
	case keyMatches(ev, a.Keys.Edit):
		p.startEdit()
	case keyMatches(ev, a.Keys.Delete):
		p.requestDelete()
	default:
		return ev
	}
	return nil
}

func (p *draftsPage) handleFormKey(ev *tcell.EventKey) *tcell.EventKey {
	if p.saving {
		return nil
	}
	switch ev.Key() {
	case tcell.KeyCtrlS:
		p.save()
		return nil
	case tcell.KeyEscape:
		p.cancelEdit()
		return nil
	case tcell.KeyTab:
		p.focusField(p.focusIdx + 1)
		return nil
	case tcell.KeyBacktab:
		p.focusField(p.focusIdx - 1)
		return nil
	}
	return ev
}

func (p *draftsPage) fields() []tview.Primitive {
	return []tview.Primitive{p.recipient, p.subject, p.body}
}

func (p *draftsPage) focusField(i int) {
	fields := p.fields()
	p.focusIdx = (i + len(fields)) % len(fields)
	p.app.SetFocus(fields[p.focusIdx])
}

func (p *draftsPage) selected() (api.Draft, bool) {
	idx := selectedRow(p.table, len(p.drafts))
	if idx < 0 {
		return api.Draft{}, false
	}
	return p.drafts[idx], true
}

func (p *draftsPage) startCreate() {
	p.creating = true
	p.card = nil
	p.openForm("New Draft", services.DraftFields{})
}

func (p *draftsPage) startEdit() {
	d, ok := p.selected()
	if !ok {
		return
	}
	card := services.NewDraftCard(p.app.drafts, d)
	if err := card.Edit(); err != nil {
		p.app.errorHandler.ShowWarning(err.Error())
		return
	}
	p.card = card
	p.openForm("Edit Draft", card.Fields())
}

func (p *draftsPage) openForm(title string, f services.DraftFields) {
	p.recipient.SetText(f.Recipient)
	p.subject.SetText(f.Subject)
	p.body.SetText(f.Body)
	p.form.SetTitle(fmt.Sprintf(" %s (Ctrl+S save, Esc cancel, Tab next field) ", title))
	p.detail.SwitchToPage(draftEdit)
	p.focusField(0)
}

func (p *draftsPage) closeForm() {
	p.creating = false
	p.card = nil
	p.saving = false
	p.detail.SwitchToPage(draftView)
	p.app.SetFocus(p.table)
	p.renderDetail()
}

func (p *draftsPage) cancelEdit() {
	if p.card != nil {
		if err := p.card.Cancel(); err != nil {
			p.app.errorHandler.ShowWarning(err.Error())
			return
		}
	}
	p.closeForm()
}

func (p *draftsPage) formFields() services.DraftFields {
	return services.DraftFields{
		Recipient: strings.TrimSpace(p.recipient.GetText()),
		Subject:   p.subject.GetText(),
		Body:      p.body.GetText(),
	}
}

func (p *draftsPage) save() {
	a := p.app
	f := p.formFields()

	if p.creating {
		req := api.CreateDraftRequest{Recipient: f.Recipient, Subject: f.Subject, Body: f.Body}
		if err := req.Validate(); err != nil {
			a.errorHandler.ShowWarning("Recipient and subject are required.")
			return
		}
		p.saving = true
		a.background(func(ctx context.Context) {
			_, err := a.drafts.Create(ctx, req)
			a.queue(func() {
				p.saving = false
				if err == nil {
					p.closeForm()
				}
			})
		})
		return
	}

	card := p.card
	if err := card.Set(func(df *services.DraftFields) { *df = f }); err != nil {
		a.errorHandler.ShowWarning(err.Error())
		return
	}
	p.saving = true
	a.background(func(ctx context.Context) {
		if _, err := card.Save(ctx); err != nil {
			a.logger.Debug("draft save failed", zap.Stringer("draft_id", card.Draft.ID), zap.Error(err))
		}
		a.queue(p.closeForm)
	})
}

func (p *draftsPage) requestDelete() {
	d, ok := p.selected()
	if !ok {
		return
	}
	a := p.app
	a.drafts.RequestDelete(d.ID)
	label := fmt.Sprintf("draft %q", strings.TrimSpace(d.Subject))
	if strings.TrimSpace(d.Subject) == "" {
		label = "this draft"
	}
	p.confirm.ask(label, a.drafts.CancelDelete, func(ctx context.Context) {
		_, _ = a.drafts.ConfirmDelete(ctx)
	})
}

// render redraws the list; an open form is left untouched
func (p *draftsPage) render(s services.Snapshot[api.Draft, struct{}]) {
	prevID := api.ID(0)
	if d, ok := p.selected(); ok {
		prevID = d.ID
	}

	p.table.Clear()
	p.table.SetCell(0, 0, headerCell(""))
	p.table.SetCell(0, 1, headerCell("Subject"))
	p.table.SetCell(0, 2, headerCell("To"))
	p.table.SetCell(0, 3, headerCell("Updated"))

	if s.State == services.StateLoading && len(s.Items) == 0 {
		p.drafts = nil
		placeholderRow(p.table, "Loading drafts...")
		p.renderDetail()
		return
	}

	p.drafts = s.Items
	p.table.SetTitle(fmt.Sprintf(" Drafts (%d) ", len(s.Items)))
	selectRow := 1
	for i, d := range s.Items {
		row := i + 1
		marker := " "
		if d.AIGenerated() {
			marker = "✦"
		}
		if s.Pending != nil && *s.Pending == d.ID {
			marker = "✗"
		}
		subject := d.Subject
		if strings.TrimSpace(subject) == "" {
			subject = "(no subject)"
		}
		p.table.SetCell(row, 0, tview.NewTableCell(marker).SetTextColor(p.app.theme.Badge.AIGenerated.Color()))
		p.table.SetCell(row, 1, tview.NewTableCell(subject).SetExpansion(1).SetMaxWidth(50))
		p.table.SetCell(row, 2, tview.NewTableCell(render.Truncate(d.Recipient, 28)))
		p.table.SetCell(row, 3, tview.NewTableCell(render.Timestamp(&d.UpdatedAt, p.app.now())).SetAlign(tview.AlignRight))
		if d.ID == prevID {
			selectRow = row
		}
	}
	if len(s.Items) > 0 {
		p.table.Select(selectRow, 0)
	}
	if !p.typing() {
		p.renderDetail()
	}
}

// renderDetail shows the selected draft read-only
func (p *draftsPage) renderDetail() {
	a := p.app
	if len(p.drafts) == 0 {
		if a.drafts.Drafts().State() == services.StateLoading {
			p.view.SetText("")
			return
		}
		p.view.SetText(emptyState(services.EmptyDraftsTitle, services.EmptyDraftsHint))
		return
	}
	d, ok := p.selected()
	if !ok {
		p.view.SetText("")
		return
	}
	card := services.NewDraftCard(a.drafts, d)
	f := card.Fields()

	var b strings.Builder
	fmt.Fprintf(&b, "[::b]%s[::-]", tview.Escape(f.Subject))
	if badge := card.Badge(); badge != "" {
		fmt.Fprintf(&b, "  %s%s%s", colorTag(a.theme.Badge.AIGenerated), tview.Escape("["+badge+"]"), endTag)
	}
	fmt.Fprintf(&b, "\nTo: %s\n", tview.Escape(f.Recipient))
	if instr := d.Instruction(); instr != "" {
		fmt.Fprintf(&b, "Instruction: %s\n", tview.Escape(instr))
	}
	b.WriteString("\n")
	_, _, width, _ := p.view.GetInnerRect()
	if width <= 0 {
		width = 60
	}
	b.WriteString(tview.Escape(render.Wrap(f.Body, width)))
	fmt.Fprintf(&b, "\n\n%s%s edit • %s delete • %s create%s",
		colorTag(a.theme.Frame.TitleColor), a.Keys.Edit, a.Keys.Delete, a.Keys.Create, endTag)

	p.view.SetText(b.String())
	p.view.ScrollToBeginning()
}
