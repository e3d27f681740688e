package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ajramos/mailflow/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"go.uber.org/zap"
)

const statusClearAfter = 5 * time.Second

// ErrorHandler shows notices in the status bar
type ErrorHandler struct {
	mu         sync.RWMutex
	appRef     *App
	statusView *tview.TextView
	logger     *zap.Logger

	// Status message state
	currentStatus    string
	currentLevel     services.Level
	persistentStatus string
	persistentLevel  services.Level
	statusTimer      *time.Timer
}

// NewErrorHandler creates a new error handler. appRef and statusView may be nil.
func NewErrorHandler(appRef *App, statusView *tview.TextView, logger *zap.Logger) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{
		appRef:     appRef,
		statusView: statusView,
		logger:     logger,
	}
}

// ShowNotice displays a service notice. It is safe to call from any goroutine.
func (eh *ErrorHandler) ShowNotice(n services.Notice) {
	if n.IsZero() {
		return
	}
	msg := n.Message
	if msg == "" {
		msg = n.Title
	}
	eh.ShowMessage(msg, n.Level)
}

// ShowMessage displays a transient message
func (eh *ErrorHandler) ShowMessage(msg string, level services.Level) {
	if strings.TrimSpace(msg) == "" {
		return
	}
	formatted := eh.formatMessage(msg, level)
	eh.logger.Debug("status", zap.String("level", level.String()), zap.String("message", msg))

	eh.onUI(func() {
		eh.updateStatusMessage(formatted, level)
	})
}

// ShowPersistentMessage shows a message that stays until cleared
func (eh *ErrorHandler) ShowPersistentMessage(msg string, level services.Level) {
	formatted := eh.formatMessage(msg, level)
	eh.onUI(func() {
		eh.mu.Lock()
		eh.persistentStatus = formatted
		eh.persistentLevel = level
		eh.refreshStatusDisplay()
		eh.mu.Unlock()
	})
}

// ClearPersistentMessage clears the persistent status message
func (eh *ErrorHandler) ClearPersistentMessage() {
	eh.onUI(func() {
		eh.mu.Lock()
		eh.persistentStatus = ""
		eh.refreshStatusDisplay()
		eh.mu.Unlock()
	})
}

// ShowInfo shows an info message
func (eh *ErrorHandler) ShowInfo(msg string) {
	eh.ShowMessage(msg, services.LevelInfo)
}

// ShowWarning shows a warning message
func (eh *ErrorHandler) ShowWarning(msg string) {
	eh.ShowMessage(msg, services.LevelWarning)
}

// ShowError shows an error message
func (eh *ErrorHandler) ShowError(msg string) {
	eh.ShowMessage(msg, services.LevelError)
}

// ShowSuccess shows a success message
func (eh *ErrorHandler) ShowSuccess(msg string) {
	eh.ShowMessage(msg, services.LevelSuccess)
}

// Status returns the text the status bar currently shows
func (eh *ErrorHandler) Status() string {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	return eh.displayText()
}

// onUI runs f on the UI goroutine when attached to an app, inline otherwise
func (eh *ErrorHandler) onUI(f func()) {
	if eh.appRef != nil && eh.appRef.queue != nil {
		eh.appRef.queue(f)
		return
	}
	f()
}

// formatMessage prefixes the message with a level icon
func (eh *ErrorHandler) formatMessage(msg string, level services.Level) string {
	var icon string
	switch level {
	case services.LevelInfo:
		icon = "ℹ️"
	case services.LevelWarning:
		icon = "⚠️"
	case services.LevelError:
		icon = "❌"
	case services.LevelSuccess:
		icon = "✅"
	default:
		icon = "•"
	}
	return fmt.Sprintf("%s %s", icon, tview.Escape(msg))
}

// levelToColor converts a notice level to the theme's status color
func (eh *ErrorHandler) levelToColor(level services.Level) tcell.Color {
	if eh.appRef == nil || eh.appRef.theme == nil {
		return tcell.ColorDefault
	}
	s := eh.appRef.theme.Status
	switch level {
	case services.LevelWarning:
		return s.Warning.Color()
	case services.LevelError:
		return s.Error.Color()
	case services.LevelSuccess:
		return s.Success.Color()
	}
	return s.Info.Color()
}

// updateStatusMessage shows msg and schedules its removal
func (eh *ErrorHandler) updateStatusMessage(msg string, level services.Level) {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	if eh.statusTimer != nil {
		eh.statusTimer.Stop()
	}
	eh.currentStatus = msg
	eh.currentLevel = level
	eh.refreshStatusDisplay()

	eh.statusTimer = time.AfterFunc(statusClearAfter, func() {
		eh.clearCurrentStatusSafely(msg)
	})
}

// clearCurrentStatusSafely clears msg unless a newer message replaced it
func (eh *ErrorHandler) clearCurrentStatusSafely(expected string) {
	eh.onUI(func() {
		eh.mu.Lock()
		defer eh.mu.Unlock()
		if eh.currentStatus == expected {
			eh.currentStatus = ""
			eh.refreshStatusDisplay()
		}
	})
}

// refreshStatusDisplay writes the effective status. Caller holds mu.
func (eh *ErrorHandler) refreshStatusDisplay() {
	if eh.statusView == nil {
		return
	}
	color := tview.Styles.PrimaryTextColor
	switch {
	case eh.currentStatus != "":
		color = eh.levelToColor(eh.currentLevel)
	case eh.persistentStatus != "":
		color = eh.levelToColor(eh.persistentLevel)
	}
	if color != tcell.ColorDefault {
		eh.statusView.SetTextColor(color)
	}
	eh.statusView.SetText(eh.displayText())
}

func (eh *ErrorHandler) displayText() string {
	switch {
	case eh.currentStatus != "":
		return eh.currentStatus
	case eh.persistentStatus != "":
		return eh.persistentStatus
	}
	return eh.getBaselineStatus()
}

func (eh *ErrorHandler) getBaselineStatus() string {
	if eh.appRef != nil {
		return eh.appRef.statusBaseline()
	}
	return "MailFlow • ? help • q quit"
}
