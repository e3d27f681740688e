package tui

import (
	"fmt"
	"strings"

	"github.com/ajramos/mailflow/internal/config"
	"github.com/ajramos/mailflow/internal/render"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"go.uber.org/zap"
)

// applyTheme loads the configured theme, falling back to the built-in one
func (a *App) applyTheme() {
	loader := config.NewThemeLoader(a.Config.ThemeDir())
	theme, err := loader.Load(a.Config.Layout.CurrentTheme)
	if err != nil {
		a.logger.Warn("theme not loaded, using default", zap.String("theme", a.Config.Layout.CurrentTheme), zap.Error(err))
		theme = config.DefaultColors()
	}
	a.theme = theme
	a.palette = paletteFromTheme(theme)

	tview.Styles.PrimitiveBackgroundColor = theme.Body.BgColor.Color()
	tview.Styles.PrimaryTextColor = theme.Body.FgColor.Color()
	tview.Styles.BorderColor = theme.Frame.BorderColor.Color()
	tview.Styles.TitleColor = theme.Frame.TitleColor.Color()
}

func paletteFromTheme(t *config.ColorsConfig) render.Palette {
	p := render.DefaultPalette()
	if t == nil {
		return p
	}
	p.High = t.Priority.High.Color()
	p.Medium = t.Priority.Medium.Color()
	p.Low = t.Priority.Low.Color()
	p.Accent = t.Frame.TabColor.Color()
	p.Done = t.Badge.Completed.Color()
	return p
}

// colorTag returns a tview color tag for c
func colorTag(c config.Color) string {
	return "[" + c.String() + "]"
}

const endTag = "[-]"

// initViews builds the tab bar, the pages and the status bar
func (a *App) initViews() {
	a.pages = []page{
		newInboxPage(a),
		newDraftsPage(a),
		newPromptsPage(a),
		newChatPage(a),
		newStatsPage(a),
	}
	for i, p := range a.pages {
		a.Pages.AddPage(p.name(), p.root(), true, i == 0)
	}

	tabs := tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetWrap(false)
	a.views["tabs"] = tabs

	status := tview.NewTextView().SetDynamicColors(true)
	status.SetText(a.statusBaseline())
	a.views["status"] = status

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tabs, 1, 0, false).
		AddItem(a.Pages, 0, 1, true).
		AddItem(status, 1, 0, false)
	a.views["root"] = root
}

// updateTabs highlights the current page in the tab bar
func (a *App) updateTabs() {
	tabs, ok := a.views["tabs"].(*tview.TextView)
	if !ok {
		return
	}
	tabs.SetText(a.tabsText())
}

func (a *App) tabsText() string {
	keys := []string{a.Keys.Inbox, a.Keys.Drafts, a.Keys.Prompts, a.Keys.Chat, a.Keys.Stats}
	cur := a.currentPageView()

	var b strings.Builder
	for i, p := range a.pages {
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		label := fmt.Sprintf(" %s %s ", key, p.title())
		if p == cur {
			fmt.Fprintf(&b, "[%s:%s:b]%s[-:-:-]", a.theme.Body.BgColor.String(), a.theme.Frame.TabColor.String(), label)
		} else {
			b.WriteString(colorTag(a.theme.Frame.TitleColor) + label + endTag)
		}
		b.WriteString(" ")
	}
	return b.String()
}

// statusBaseline is shown when no notice is active
func (a *App) statusBaseline() string {
	return fmt.Sprintf("MailFlow • %s help • %s quit • Tab next page", a.Keys.Help, a.Keys.Quit)
}

// emptyState renders a two-line centered placeholder
func emptyState(title, hint string) string {
	return fmt.Sprintf("\n\n[::b]%s[::-]\n\n%s", tview.Escape(title), tview.Escape(hint))
}

// newListTable returns a selectable table styled like the rest of the shell
func newListTable(title string) *tview.Table {
	t := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	t.SetBorder(true).SetTitle(" " + title + " ")
	t.SetSelectedStyle(tcell.StyleDefault.Reverse(true))
	return t
}

// headerCell is a bold non-selectable table header
func headerCell(text string) *tview.TableCell {
	return tview.NewTableCell(text).
		SetSelectable(false).
		SetAttributes(tcell.AttrBold)
}

// placeholderRow fills the table with a single message below the header
func placeholderRow(t *tview.Table, text string) {
	t.SetCell(1, 0, tview.NewTableCell(text).SetSelectable(false).SetExpansion(1))
}

// selectedRow returns the zero-based data row, or -1 when nothing valid is selected
func selectedRow(t *tview.Table, count int) int {
	row, _ := t.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= count {
		return -1
	}
	return idx
}
