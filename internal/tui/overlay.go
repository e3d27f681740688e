package tui

import (
	"strings"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

const pageOverlay = "overlay"

// overlayOpen reports whether a modal input or picker owns the keyboard
func (a *App) overlayOpen() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.overlay
}

func (a *App) setOverlay(p tview.Primitive, focus tview.Primitive, width, height int) {
	a.mu.Lock()
	a.overlay = true
	a.mu.Unlock()
	a.Pages.AddPage(pageOverlay, centered(p, width, height), true, true)
	a.SetFocus(focus)
}

// closeOverlay removes any modal and gives focus back to the page
func (a *App) closeOverlay() {
	a.mu.Lock()
	a.overlay = false
	a.mu.Unlock()
	a.Pages.RemovePage(pageOverlay)
	if p := a.currentPageView(); p != nil {
		a.SetFocus(p.root())
	}
}

// promptInput asks for one line of text. done runs on the UI goroutine with
// the trimmed value; Esc closes without calling it.
func (a *App) promptInput(title, label, initial string, done func(value string)) {
	input := tview.NewInputField().
		SetLabel(label).
		SetText(initial).
		SetFieldWidth(0)
	input.SetBorder(true).SetTitle(" " + title + " ")
	input.SetDoneFunc(func(key tcell.Key) {
		value := strings.TrimSpace(input.GetText())
		a.closeOverlay()
		if key == tcell.KeyEnter && value != "" {
			done(value)
		}
	})
	a.setOverlay(input, input, 70, 3)
}

// pickOption is one row of a picker
type pickOption struct {
	Main      string
	Secondary string
}

// pickFrom lets the user choose one option. onDelete, when set, is bound to
// the delete key and receives the highlighted index.
func (a *App) pickFrom(title string, options []pickOption, onSelect func(i int), onDelete func(i int)) {
	list := tview.NewList().ShowSecondaryText(true)
	list.SetBorder(true).SetTitle(" " + title + " ")
	for _, o := range options {
		list.AddItem(tview.Escape(o.Main), tview.Escape(o.Secondary), 0, nil)
	}
	list.SetSelectedFunc(func(i int, _ string, _ string, _ rune) {
		a.closeOverlay()
		onSelect(i)
	})
	list.SetDoneFunc(a.closeOverlay)
	list.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if onDelete != nil && keyMatches(ev, a.Keys.Delete) && list.GetItemCount() > 0 {
			i := list.GetCurrentItem()
			a.closeOverlay()
			onDelete(i)
			return nil
		}
		return ev
	})
	height := len(options)*2 + 2
	if height > 20 {
		height = 20
	}
	a.setOverlay(list, list, 60, height)
}
