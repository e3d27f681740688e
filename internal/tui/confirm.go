package tui

import (
	"context"
	"fmt"

	"github.com/ajramos/mailflow/internal/services"
	"github.com/derailed/tcell/v2"
)

// deleteConfirm is the second step of a two-step delete. While open it owns
// the keyboard of its page: y confirms, n or Esc cancels.
type deleteConfirm struct {
	app     *App
	open    bool
	cancel  func()
	confirm func(ctx context.Context)
}

// ask shows the question in the status bar
func (d *deleteConfirm) ask(label string, cancel func(), confirm func(ctx context.Context)) {
	d.open = true
	d.cancel = cancel
	d.confirm = confirm
	d.app.errorHandler.ShowPersistentMessage(fmt.Sprintf("Delete %s? y confirm / n cancel", label), services.LevelWarning)
}

// handleKey reports whether the key was consumed by the confirmation
func (d *deleteConfirm) handleKey(ev *tcell.EventKey) bool {
	if !d.open {
		return false
	}
	switch {
	case ev.Key() == tcell.KeyRune && (ev.Rune() == 'y' || ev.Rune() == 'Y'):
		d.close()
		confirm := d.confirm
		d.app.background(confirm)
	case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyRune && (ev.Rune() == 'n' || ev.Rune() == 'N'):
		d.close()
		d.cancel()
	}
	return true
}

func (d *deleteConfirm) close() {
	d.open = false
	d.app.errorHandler.ClearPersistentMessage()
}
