package tui

import (
	"context"
	"sync"
	"time"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/ajramos/mailflow/internal/config"
	"github.com/ajramos/mailflow/internal/render"
	"github.com/ajramos/mailflow/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"go.uber.org/zap"
)

// Page names
const (
	PageInbox   = "inbox"
	PageDrafts  = "drafts"
	PagePrompts = "prompts"
	PageChat    = "chat"
	PageStats   = "stats"

	pageHelp = "help"

	prefLastPage = "tui.last_page"
)

// Preferences persists small UI settings between runs
type Preferences interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// page is one tab of the shell
type page interface {
	name() string
	title() string
	root() tview.Primitive
	// show is called on the UI goroutine whenever the page becomes visible
	show()
	// handleKey sees every key while the page is visible; nil consumes it
	handleKey(ev *tcell.EventKey) *tcell.EventKey
	// typing reports whether a text input owns the keyboard
	typing() bool
}

// Deps are the collaborators the shell is built on
type Deps struct {
	Gateway services.Gateway
	Filters services.FilterStore // nil when the preference store is disabled
	Prefs   Preferences          // nil when the preference store is disabled
	Metrics *api.Metrics         // nil disables the Stats page contents
	Logger  *zap.Logger
}

// App encapsulates the terminal UI and the MailFlow services
type App struct {
	*tview.Application
	Pages  *tview.Pages
	Config *config.Config
	Keys   config.KeyBindings

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	mu     sync.RWMutex
	views  map[string]tview.Primitive

	// Services
	notifier *services.Notifier
	inbox    *services.InboxService
	drafts   *services.DraftService
	prompts  *services.PromptService
	chat     *services.ChatSession
	metrics  *api.Metrics
	prefs    Preferences

	// Rendering
	theme    *config.ColorsConfig
	palette  render.Palette
	markdown *render.MarkdownRenderer

	errorHandler *ErrorHandler
	unsubscribe  func()

	pages       []page
	currentPage string
	showHelp    bool
	overlay     bool
	running     bool

	// queue runs f on the UI goroutine and redraws
	queue func(f func())
	// async runs f off the UI goroutine
	async func(f func())
	// now is swapped in tests
	now func() time.Time
}

// NewApp creates the shell and its services. Nothing is fetched until Run.
func NewApp(cfg *config.Config, deps Deps) *App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		Application: tview.NewApplication(),
		Pages:       tview.NewPages(),
		Config:      cfg,
		Keys:        cfg.Keys,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.Named("tui"),
		views:       make(map[string]tview.Primitive),
		metrics:     deps.Metrics,
		prefs:       deps.Prefs,
		markdown:    render.NewMarkdownRenderer(cfg.Layout.MarkdownStyle),
		now:         time.Now,
	}
	a.queue = func(f func()) { a.QueueUpdateDraw(f) }
	a.async = func(f func()) { go f() }

	a.notifier = services.NewNotifier(logger)
	a.inbox = services.NewInboxService(deps.Gateway, a.notifier, logger, deps.Filters)
	a.drafts = services.NewDraftService(deps.Gateway, a.notifier, logger)
	a.prompts = services.NewPromptService(deps.Gateway, a.notifier, logger)
	a.chat = services.NewChatSession(deps.Gateway, a.notifier, logger)

	a.applyTheme()
	a.initViews()
	a.initErrorHandler()
	a.bindKeys()

	return a
}

// initErrorHandler routes every service notice to the status bar
func (a *App) initErrorHandler() {
	status, _ := a.views["status"].(*tview.TextView)
	a.errorHandler = NewErrorHandler(a, status, a.logger)
	a.unsubscribe = a.notifier.Subscribe(a.errorHandler.ShowNotice)
}

// GetErrorHandler returns the status bar handler
func (a *App) GetErrorHandler() *ErrorHandler {
	return a.errorHandler
}

// Notifier exposes the notice fan-out shared by all services
func (a *App) Notifier() *services.Notifier {
	return a.notifier
}

// Run restores the last visited page and starts the event loop
func (a *App) Run() error {
	a.SetRoot(a.views["root"], true)
	a.switchPage(a.initialPage())

	a.mu.Lock()
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	return a.Application.Run()
}

// IsRunning reports whether the event loop is active
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// Stop cancels in-flight requests and leaves the event loop
func (a *App) Stop() {
	a.cancel()
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.Application.Stop()
}

func (a *App) initialPage() string {
	if a.prefs == nil {
		return PageInbox
	}
	ctx, cancel := context.WithTimeout(a.ctx, time.Second)
	defer cancel()
	name, ok, err := a.prefs.Get(ctx, prefLastPage)
	if err != nil {
		a.logger.Warn("failed to read last page", zap.Error(err))
		return PageInbox
	}
	if !ok || a.pageByName(name) == nil || name == PageStats {
		return PageInbox
	}
	return name
}

func (a *App) pageByName(name string) page {
	for _, p := range a.pages {
		if p.name() == name {
			return p
		}
	}
	return nil
}

func (a *App) currentPageView() page {
	a.mu.RLock()
	name := a.currentPage
	a.mu.RUnlock()
	return a.pageByName(name)
}

// switchPage shows the named page and lets it refresh. Must run on the UI goroutine.
func (a *App) switchPage(name string) {
	p := a.pageByName(name)
	if p == nil {
		return
	}
	if a.showHelp {
		a.toggleHelp()
	}

	a.mu.Lock()
	changed := a.currentPage != name
	a.currentPage = name
	a.mu.Unlock()

	a.Pages.SwitchToPage(name)
	a.SetFocus(p.root())
	a.updateTabs()
	p.show()

	if changed {
		a.rememberPage(name)
	}
}

// cyclePage moves to the next (delta=1) or previous (delta=-1) tab
func (a *App) cyclePage(delta int) {
	if len(a.pages) == 0 {
		return
	}
	idx := 0
	cur := a.currentPageView()
	for i, p := range a.pages {
		if p == cur {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(a.pages)) % len(a.pages)
	a.switchPage(a.pages[idx].name())
}

func (a *App) rememberPage(name string) {
	if a.prefs == nil {
		return
	}
	a.async(func() {
		ctx, cancel := context.WithTimeout(a.ctx, time.Second)
		defer cancel()
		if err := a.prefs.Set(ctx, prefLastPage, name); err != nil {
			a.logger.Debug("failed to store last page", zap.Error(err))
		}
	})
}

// background runs fn off the UI goroutine with the app context
func (a *App) background(fn func(ctx context.Context)) {
	a.async(func() { fn(a.ctx) })
}
