package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/ajramos/mailflow/internal/render"
	"github.com/ajramos/mailflow/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"go.uber.org/zap"
)

const (
	promptView   = "view"
	promptEdit   = "edit"
	promptCreate = "create"
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// promptsPage lists prompts, edits their content and creates new ones
type promptsPage struct {
	app *App

	layout *tview.Flex
	table  *tview.Table
	detail *tview.Pages
	view   *tview.TextView

	// edit mode for an existing prompt
	editor *TextEditor
	card   *services.PromptCard

	// create form
	form      *tview.Flex
	nameField *tview.InputField
	typeField *tview.DropDown
	content   *TextEditor
	creating  bool
	focusIdx  int

	prompts []api.Prompt
	saving  bool
	confirm deleteConfirm
}

func newPromptsPage(a *App) *promptsPage {
	p := &promptsPage{
		app:       a,
		table:     newListTable("Prompts"),
		detail:    tview.NewPages(),
		view:      tview.NewTextView().SetDynamicColors(true).SetWrap(true).SetScrollable(true),
		editor:    NewTextEditor(),
		nameField: tview.NewInputField().SetLabel("Name: ").SetFieldWidth(0),
		typeField: tview.NewDropDown().SetLabel("Type: "),
		content:   NewTextEditor(),
		confirm:   deleteConfirm{app: a},
	}
	p.view.SetBorder(true).SetTitle(" Prompt ")
	p.editor.SetBorder(true)
	p.content.SetBorder(true).SetTitle(" Content ")

	labels := make([]string, len(api.PromptTypes))
	for i, t := range api.PromptTypes {
		labels[i] = t.Label()
	}
	p.typeField.SetOptions(labels, nil)

	p.form = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(p.nameField, 1, 0, true).
		AddItem(p.typeField, 1, 0, false).
		AddItem(p.content, 0, 1, false)
	p.form.SetBorder(true).SetTitle(" New Prompt (Ctrl+S save, Esc cancel, Tab next field) ")

	p.detail.AddPage(promptView, p.view, true, true)
	p.detail.AddPage(promptEdit, p.editor, true, false)
	p.detail.AddPage(promptCreate, p.form, true, false)

	p.table.SetSelectionChangedFunc(func(int, int) {
		if !p.typing() {
			p.renderDetail()
		}
	})

	p.layout = tview.NewFlex().
		AddItem(p.table, 0, 2, true).
		AddItem(p.detail, 0, 3, false)

	a.prompts.Prompts().Watch(func(s services.Snapshot[api.Prompt, struct{}]) {
		a.queue(func() { p.render(s) })
	})
	p.render(a.prompts.Prompts().Snapshot())
	return p
}

func (p *promptsPage) name() string          { return PagePrompts }
func (p *promptsPage) title() string         { return "Prompts" }
func (p *promptsPage) root() tview.Primitive { return p.layout }

func (p *promptsPage) typing() bool {
	return p.creating || (p.card != nil && p.card.Editing())
}

func (p *promptsPage) show() {
	if !p.typing() {
		p.app.SetFocus(p.table)
	}
	p.refresh()
}

func (p *promptsPage) refresh() {
	p.app.background(func(ctx context.Context) {
		if err := p.app.prompts.Load(ctx); err != nil && !errors.Is(err, services.ErrSuperseded) {
			p.app.logger.Debug("prompts load failed", zap.Error(err))
		}
	})
}

func (p *promptsPage) handleKey(ev *tcell.EventKey) *tcell.EventKey {
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
	case keyMatches(ev, a.Keys.ImportPrompt):
		p.importFile()
	case keyMatches(ev, a.Keys.ExportPrompt):
		p.exportFile()
	default:
		return ev
	}
	return nil
}

func (p *promptsPage) handleFormKey(ev *tcell.EventKey) *tcell.EventKey {
	if p.saving {
		return nil
	}
	switch ev.Key() {
	case tcell.KeyCtrlS:
		p.save()
		return nil
	case tcell.KeyEscape:
		p.cancel()
		return nil
	case tcell.KeyTab, tcell.KeyBacktab:
		if p.creating {
			delta := 1
			if ev.Key() == tcell.KeyBacktab {
				delta = -1
			}
			p.focusField(p.focusIdx + delta)
		}
		return nil
	}
	return ev
}

func (p *promptsPage) focusField(i int) {
	fields := []tview.Primitive{p.nameField, p.typeField, p.content}
	p.focusIdx = (i + len(fields)) % len(fields)
	p.app.SetFocus(fields[p.focusIdx])
}

func (p *promptsPage) selected() (api.Prompt, bool) {
	idx := selectedRow(p.table, len(p.prompts))
	if idx < 0 {
		return api.Prompt{}, false
	}
	return p.prompts[idx], true
}

func (p *promptsPage) startCreate() {
	p.creating = true
	p.nameField.SetText("")
	p.typeField.SetCurrentOption(len(api.PromptTypes) - 1)
	p.content.SetText("")
	p.detail.SwitchToPage(promptCreate)
	p.focusField(0)
}

func (p *promptsPage) startEdit() {
	pr, ok := p.selected()
	if !ok {
		return
	}
	card := services.NewPromptCard(p.app.prompts, pr)
	if err := card.Edit(); err != nil {
		p.app.errorHandler.ShowWarning(err.Error())
		return
	}
	p.card = card
	p.editor.SetText(card.Content())
	p.editor.SetTitle(fmt.Sprintf(" Edit %s (Ctrl+S save, Esc cancel) ", pr.Name))
	p.detail.SwitchToPage(promptEdit)
	p.app.SetFocus(p.editor)
}

func (p *promptsPage) closeForm() {
	p.creating = false
	p.card = nil
	p.saving = false
	p.detail.SwitchToPage(promptView)
	p.app.SetFocus(p.table)
	p.renderDetail()
}

func (p *promptsPage) cancel() {
	if p.card != nil {
		if err := p.card.Cancel(); err != nil {
			p.app.errorHandler.ShowWarning(err.Error())
			return
		}
	}
	p.closeForm()
}

func (p *promptsPage) save() {
	a := p.app
	if p.creating {
		idx, _ := p.typeField.GetCurrentOption()
		typ := api.PromptCustom
		if idx >= 0 && idx < len(api.PromptTypes) {
			typ = api.PromptTypes[idx]
		}
		req := api.CreatePromptRequest{
			Name:    strings.TrimSpace(p.nameField.GetText()),
			Type:    typ,
			Content: p.content.GetText(),
		}
		p.saving = true
		a.background(func(ctx context.Context) {
			_, err := a.prompts.Create(ctx, req)
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
	if err := card.SetContent(p.editor.GetText()); err != nil {
		a.errorHandler.ShowWarning(err.Error())
		return
	}
	p.saving = true
	a.background(func(ctx context.Context) {
		if _, err := card.Save(ctx); err != nil {
			a.logger.Debug("prompt save failed", zap.Stringer("prompt_id", card.Prompt.ID), zap.Error(err))
		}
		a.queue(p.closeForm)
	})
}

func (p *promptsPage) requestDelete() {
	pr, ok := p.selected()
	if !ok {
		return
	}
	a := p.app
	a.prompts.RequestDelete(pr.ID)
	p.confirm.ask(fmt.Sprintf("prompt %q", pr.Name), a.prompts.CancelDelete, func(ctx context.Context) {
		_, _ = a.prompts.ConfirmDelete(ctx)
	})
}

func (p *promptsPage) importFile() {
	a := p.app
	a.promptInput("Import Prompt", "File: ", "", func(path string) {
		a.background(func(ctx context.Context) {
			// a failed create has already published its notice
			if n, err := a.prompts.ImportFile(ctx, expandPath(path)); err != nil && n.IsZero() {
				a.errorHandler.ShowError(fmt.Sprintf("Import failed: %v", err))
			}
		})
	})
}

func (p *promptsPage) exportFile() {
	pr, ok := p.selected()
	if !ok {
		return
	}
	a := p.app
	a.promptInput("Export Prompt", "File: ", promptFileName(pr.Name), func(path string) {
		path = expandPath(path)
		a.background(func(ctx context.Context) {
			if err := a.prompts.ExportFile(ctx, pr.ID, path); err != nil {
				a.errorHandler.ShowError(fmt.Sprintf("Export failed: %v", err))
				return
			}
			a.errorHandler.ShowSuccess(fmt.Sprintf("Prompt exported to %s", path))
		})
	})
}

// promptFileName suggests a file name for an exported prompt
func promptFileName(name string) string {
	base := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if base == "" {
		base = "prompt"
	}
	return base + ".md"
}

// render redraws the list; an open form is left untouched
func (p *promptsPage) render(s services.Snapshot[api.Prompt, struct{}]) {
	prevID := api.ID(0)
	if pr, ok := p.selected(); ok {
		prevID = pr.ID
	}

	p.table.Clear()
	p.table.SetCell(0, 0, headerCell("Name"))
	p.table.SetCell(0, 1, headerCell("Type"))
	p.table.SetCell(0, 2, headerCell("Active"))

	if s.State == services.StateLoading && len(s.Items) == 0 {
		p.prompts = nil
		placeholderRow(p.table, "Loading prompts...")
		p.renderDetail()
		return
	}

	p.prompts = s.Items
	p.table.SetTitle(fmt.Sprintf(" Prompts (%d) ", len(s.Items)))
	selectRow := 1
	for i, pr := range s.Items {
		row := i + 1
		name := pr.Name
		if s.Pending != nil && *s.Pending == pr.ID {
			name = "✗ " + name
		}
		active := "yes"
		if pr.IsActive != nil && !*pr.IsActive {
			active = "no"
		}
		p.table.SetCell(row, 0, tview.NewTableCell(name).SetExpansion(1).SetMaxWidth(40))
		p.table.SetCell(row, 1, tview.NewTableCell(pr.Type.Label()))
		p.table.SetCell(row, 2, tview.NewTableCell(active))
		if pr.ID == prevID {
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

// renderDetail shows the selected prompt read-only
func (p *promptsPage) renderDetail() {
	a := p.app
	if len(p.prompts) == 0 {
		if a.prompts.Prompts().State() == services.StateLoading {
			p.view.SetText("")
			return
		}
		p.view.SetText(emptyState(services.EmptyPromptsTitle, services.EmptyPromptsHint))
		return
	}
	pr, ok := p.selected()
	if !ok {
		p.view.SetText("")
		return
	}
	content := services.NewPromptCard(a.prompts, pr).Content()

	_, _, width, _ := p.view.GetInnerRect()
	if width <= 0 {
		width = 60
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[::b]%s[::-]\n", tview.Escape(pr.Name))
	fmt.Fprintf(&b, "%s%s%s\n\n", colorTag(a.theme.Frame.TitleColor), pr.Type.Label(), endTag)
	b.WriteString(tview.Escape(render.Wrap(content, width)))
	fmt.Fprintf(&b, "\n\n%s%s edit • %s delete • %s create • %s import • %s export%s",
		colorTag(a.theme.Frame.TitleColor), a.Keys.Edit, a.Keys.Delete, a.Keys.Create,
		a.Keys.ImportPrompt, a.Keys.ExportPrompt, endTag)

	p.view.SetText(b.String())
	p.view.ScrollToBeginning()
}

// expandPath resolves a leading ~ against the home directory
func expandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
