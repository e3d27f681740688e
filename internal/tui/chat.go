package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/ajramos/mailflow/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

const chatTimeLayout = "15:04"

// chatPage is the assistant conversation
type chatPage struct {
	app *App

	layout     *tview.Flex
	transcript *tview.TextView
	input      *tview.InputField

	messages []api.ChatMessage
	busy     bool
}

func newChatPage(a *App) *chatPage {
	p := &chatPage{
		app: a,
		transcript: tview.NewTextView().
			SetDynamicColors(true).
			SetWrap(true).
			SetScrollable(true),
		input: tview.NewInputField().
			SetLabel("> ").
			SetFieldWidth(0).
			SetPlaceholder("Ask about your emails..."),
	}
	p.transcript.SetBorder(true).SetTitle(" AI Assistant ")
	p.input.SetBorder(true)
	p.input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			p.send()
		}
	})

	p.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(p.transcript, 0, 1, false).
		AddItem(p.input, 3, 0, true)

	a.chat.Watch(func(msgs []api.ChatMessage, busy bool) {
		a.queue(func() {
			p.messages = msgs
			p.busy = busy
			p.render()
		})
	})
	p.messages = a.chat.Messages()
	p.render()
	return p
}

func (p *chatPage) name() string          { return PageChat }
func (p *chatPage) title() string         { return "Chat" }
func (p *chatPage) root() tview.Primitive { return p.layout }
func (p *chatPage) typing() bool          { return p.input.HasFocus() }

func (p *chatPage) show() {
	p.app.SetFocus(p.input)
}

func (p *chatPage) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	a := p.app
	if p.typing() {
		if ev.Key() == tcell.KeyEscape {
			a.SetFocus(p.transcript)
			return nil
		}
		return ev
	}
	switch {
	case ev.Key() == tcell.KeyEnter, keyMatches(ev, a.Keys.Search):
		a.SetFocus(p.input)
	case keyMatches(ev, a.Keys.ExportChat):
		p.export()
	default:
		return ev
	}
	return nil
}

func (p *chatPage) send() {
	a := p.app
	text := p.input.GetText()
	if strings.TrimSpace(text) == "" || p.busy {
		return
	}
	p.input.SetText("")
	a.background(func(ctx context.Context) {
		if _, err := a.chat.Send(ctx, text); errors.Is(err, services.ErrChatBusy) {
			a.errorHandler.ShowInfo("Still waiting for the previous reply")
		}
	})
}

func (p *chatPage) export() {
	a := p.app
	if len(p.messages) == 0 {
		a.errorHandler.ShowInfo("Nothing to export yet")
		return
	}
	name := fmt.Sprintf("mailflow-chat-%s.md", a.now().Format("20060102-150405"))
	a.promptInput("Export Chat", "File: ", name, func(path string) {
		path = expandPath(path)
		format := strings.TrimPrefix(filepath.Ext(path), ".")
		a.background(func(context.Context) {
			if err := exportTranscript(a.chat, path, format); err != nil {
				a.errorHandler.ShowError(fmt.Sprintf("Export failed: %v", err))
				return
			}
			a.errorHandler.ShowSuccess(fmt.Sprintf("Chat exported to %s", path))
		})
	})
}

func exportTranscript(chat *services.ChatSession, path, format string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return chat.Export(f, format)
}

// render redraws the whole transcript. Assistant turns are Markdown.
func (p *chatPage) render() {
	a := p.app
	if len(p.messages) == 0 && !p.busy {
		p.transcript.SetText(emptyState(services.EmptyChatTitle, services.EmptyChatHint))
		return
	}

	_, _, width, _ := p.transcript.GetInnerRect()
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	for _, m := range p.messages {
		ts := m.Timestamp.Format(chatTimeLayout)
		if m.Role == api.RoleUser {
			fmt.Fprintf(&b, "%s[::b]You[::-]%s %s\n", colorTag(a.theme.Frame.TabColor), endTag, ts)
			b.WriteString(tview.Escape(m.Content))
			b.WriteString("\n\n")
			continue
		}
		fmt.Fprintf(&b, "%s[::b]Assistant[::-]%s %s\n", colorTag(a.theme.Badge.AIGenerated), endTag, ts)
		// glamour emits ANSI escapes; tview needs its own color tags
		_, _ = io.WriteString(tview.ANSIWriter(&b, "-", "-"), a.markdown.Render(m.Content, width))
		b.WriteString("\n\n")
	}
	if p.busy {
		fmt.Fprintf(&b, "%sThinking...%s\n", colorTag(a.theme.Status.Info), endTag)
	}

	p.transcript.SetText(b.String())
	p.transcript.ScrollToEnd()
}
