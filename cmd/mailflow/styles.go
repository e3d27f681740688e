package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/ajramos/mailflow/internal/render"
	"github.com/ajramos/mailflow/internal/services"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	priorityStyles = map[api.Priority]lipgloss.Style{
		api.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		api.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		api.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}

	levelStyles = map[services.Level]lipgloss.Style{
		services.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		services.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		services.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		services.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
)

var levelIcons = map[services.Level]string{
	services.LevelInfo:    "ℹ",
	services.LevelSuccess: "✓",
	services.LevelWarning: "⚠",
	services.LevelError:   "✗",
}

// table writes aligned, styled columns
type table struct {
	w *tabwriter.Writer
}

func newTable(out io.Writer, headers ...string) *table {
	t := &table{w: tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)}
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = titleStyle.Render(h)
	}
	t.row(cells...)
	return t
}

func (t *table) row(cells ...string) {
	_, _ = fmt.Fprintln(t.w, strings.Join(cells, "\t")+"\t")
}

func (t *table) flush() error {
	return t.w.Flush()
}

// printHeader prints a title line followed by a blank line
func printHeader(out io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf(format, args...)))
	_, _ = fmt.Fprintln(out)
}

// printEmpty prints an empty-state title and hint
func printEmpty(out io.Writer, title, hint string) {
	_, _ = fmt.Fprintln(out, headerStyle.Render(title))
	_, _ = fmt.Fprintln(out, hintStyle.Render(hint))
}

// printNotice prints a service notice with its level icon
func printNotice(out io.Writer, n services.Notice) {
	if n.IsZero() {
		return
	}
	msg := n.Message
	if msg == "" {
		msg = n.Title
	}
	style := levelStyles[n.Level]
	_, _ = fmt.Fprintln(out, style.Render(levelIcons[n.Level]+" "+msg))
}

func renderPriority(p api.Priority) string {
	label := render.PriorityLabel(p)
	if label == "" {
		label = "-"
	}
	if style, ok := priorityStyles[p]; ok {
		return style.Render(label)
	}
	return label
}

func renderID(id api.ID) string {
	return idStyle.Render(id.String())
}
