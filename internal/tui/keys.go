package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"go.uber.org/zap"
)

// keyMatches reports whether ev is the configured binding. Bindings are a
// single character, "space", "enter", "esc" or "ctrl+<letter>".
func keyMatches(ev *tcell.EventKey, binding string) bool {
	if ev == nil || binding == "" {
		return false
	}
	b := strings.ToLower(binding)
	switch {
	case b == "space":
		return ev.Key() == tcell.KeyRune && ev.Rune() == ' '
	case b == "enter":
		return ev.Key() == tcell.KeyEnter
	case b == "esc":
		return ev.Key() == tcell.KeyEscape
	case strings.HasPrefix(b, "ctrl+") && len(b) == len("ctrl+")+1:
		letter := b[len(b)-1]
		if letter < 'a' || letter > 'z' {
			return false
		}
		return ev.Key() == tcell.KeyCtrlA+tcell.Key(letter-'a')
	}
	if utf8.RuneCountInString(binding) != 1 || ev.Key() != tcell.KeyRune {
		return false
	}
	r, _ := utf8.DecodeRuneInString(binding)
	return ev.Rune() == r
}

// bindKeys installs the global key handler
func (a *App) bindKeys() {
	a.SetInputCapture(a.handleKey)
}

// handleKey routes a key: help overlay, then text inputs, then global
// shortcuts, then the visible page
func (a *App) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	if a.showHelp {
		if ev.Key() == tcell.KeyEscape || keyMatches(ev, a.Keys.Help) || keyMatches(ev, a.Keys.Quit) {
			a.toggleHelp()
			return nil
		}
		return ev
	}

	if a.overlayOpen() {
		return ev
	}

	p := a.currentPageView()
	if p != nil && p.typing() {
		// a single-line input passes Tab back so pages can still be cycled
		if ev = p.handleKey(ev); ev == nil {
			return nil
		}
		switch ev.Key() {
		case tcell.KeyTab:
			a.cyclePage(1)
			return nil
		case tcell.KeyBacktab:
			a.cyclePage(-1)
			return nil
		}
		return ev
	}

	switch ev.Key() {
	case tcell.KeyTab:
		a.cyclePage(1)
		return nil
	case tcell.KeyBacktab:
		a.cyclePage(-1)
		return nil
	}

	if target, ok := a.pageForKey(ev); ok {
		a.logger.Debug("shortcut", zap.String("page", target))
		a.switchPage(target)
		return nil
	}

	switch {
	case keyMatches(ev, a.Keys.Quit):
		a.Stop()
		return nil
	case keyMatches(ev, a.Keys.Help):
		a.toggleHelp()
		return nil
	}

	if p != nil {
		return p.handleKey(ev)
	}
	return ev
}

func (a *App) pageForKey(ev *tcell.EventKey) (string, bool) {
	bindings := []struct {
		key  string
		page string
	}{
		{a.Keys.Inbox, PageInbox},
		{a.Keys.Drafts, PageDrafts},
		{a.Keys.Prompts, PagePrompts},
		{a.Keys.Chat, PageChat},
		{a.Keys.Stats, PageStats},
	}
	for _, b := range bindings {
		if keyMatches(ev, b.key) {
			return b.page, true
		}
	}
	return "", false
}

// toggleHelp shows or hides the shortcut overlay
func (a *App) toggleHelp() {
	if a.showHelp {
		a.showHelp = false
		a.Pages.RemovePage(pageHelp)
		if p := a.currentPageView(); p != nil {
			a.SetFocus(p.root())
		}
		return
	}

	help := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	help.SetBorder(true).SetTitle(" Help & Shortcuts ")
	help.SetText(a.generateHelpText())

	a.showHelp = true
	a.Pages.AddPage(pageHelp, centered(help, 64, 30), true, true)
	a.SetFocus(help)
}

// generateHelpText lists every configured shortcut
func (a *App) generateHelpText() string {
	k := a.Keys
	sections := []struct {
		title string
		rows  [][2]string
	}{
		{"Navigation", [][2]string{
			{k.Inbox, "Inbox"},
			{k.Drafts, "Drafts"},
			{k.Prompts, "Prompts"},
			{k.Chat, "Chat"},
			{k.Stats, "Stats"},
			{"Tab", "Next page"},
			{k.Help, "Toggle help"},
			{k.Quit, "Quit"},
		}},
		{"Inbox", [][2]string{
			{k.Refresh, "Refresh"},
			{k.Search, "Search emails"},
			{k.Priority, "Cycle priority filter"},
			{k.ProcessAll, "Process all emails"},
			{k.GenerateDraft, "Generate draft reply"},
			{k.SaveFilter, "Save current filter"},
			{k.SavedFilters, "Saved filters"},
		}},
		{"Drafts & Prompts", [][2]string{
			{k.Create, "Create"},
			{k.Edit, "Edit"},
			{"Ctrl+S", "Save edit"},
			{"Esc", "Cancel edit"},
			{k.Delete, "Delete (y confirms, n cancels)"},
			{k.ImportPrompt, "Import prompt file"},
			{k.ExportPrompt, "Export prompt file"},
		}},
		{"Chat", [][2]string{
			{"Enter", "Send message"},
			{"Esc", "Leave the input"},
			{k.ExportChat, "Export transcript"},
		}},
	}

	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(colorTag(a.theme.Frame.TabColor) + "[::b]" + s.title + "[::-]" + endTag + "\n")
		for _, r := range s.rows {
			b.WriteString("  " + colorTag(a.theme.Status.Info) + padRight(tview.Escape(r[0]), 8) + endTag + r[1] + "\n")
		}
	}
	return b.String()
}

func padRight(s string, n int) string {
	if w := utf8.RuneCountInString(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s + " "
}

// centered wraps p in a fixed-size box in the middle of the screen
func centered(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}
