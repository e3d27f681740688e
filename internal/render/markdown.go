package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders assistant replies to ANSI text. Term renderers are
// cached per wrap width since building one parses the whole style sheet.
type MarkdownRenderer struct {
	style string

	mu        sync.Mutex
	renderers map[int]*glamour.TermRenderer
}

// NewMarkdownRenderer uses a glamour standard style ("dark", "light", "notty")
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	if style == "" {
		style = "dark"
	}
	return &MarkdownRenderer{style: style, renderers: make(map[int]*glamour.TermRenderer)}
}

// Render returns content as ANSI text wrapped at width. On any failure the
// raw content is returned.
func (m *MarkdownRenderer) Render(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	r, err := m.renderer(width)
	if err != nil {
		return content
	}
	m.mu.Lock()
	out, err := r.Render(content)
	m.mu.Unlock()
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

func (m *MarkdownRenderer) renderer(width int) (*glamour.TermRenderer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.renderers[width]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	m.renderers[width] = r
	return r, nil
}
