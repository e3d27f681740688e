package tui

import (
	"fmt"
	"time"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"go.uber.org/zap"
)

const msgMetricsDisabled = "Metrics are disabled"

// statsPage shows per-route request counters for this session
type statsPage struct {
	app    *App
	layout *tview.Flex
	table  *tview.Table
	footer *tview.TextView
}

func newStatsPage(a *App) *statsPage {
	p := &statsPage{
		app:    a,
		table:  newListTable("Backend Requests"),
		footer: tview.NewTextView().SetDynamicColors(true),
	}
	p.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(p.table, 0, 1, true).
		AddItem(p.footer, 1, 0, false)
	return p
}

func (p *statsPage) name() string          { return PageStats }
func (p *statsPage) title() string         { return "Stats" }
func (p *statsPage) root() tview.Primitive { return p.layout }
func (p *statsPage) typing() bool          { return false }

func (p *statsPage) show() {
	p.app.SetFocus(p.table)
	p.render()
}

func (p *statsPage) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	if keyMatches(ev, p.app.Keys.Refresh) {
		p.render()
		return nil
	}
	return ev
}

func (p *statsPage) render() {
	p.table.Clear()
	for col, h := range []string{"Method", "Route", "Calls", "Failures", "Mean"} {
		p.table.SetCell(0, col, headerCell(h))
	}

	if p.app.metrics == nil {
		placeholderRow(p.table, msgMetricsDisabled)
		p.footer.SetText("")
		return
	}
	stats, err := p.app.metrics.Snapshot()
	if err != nil {
		p.app.logger.Warn("metrics snapshot failed", zap.Error(err))
		placeholderRow(p.table, "Metrics unavailable")
		return
	}
	if len(stats) == 0 {
		placeholderRow(p.table, "No requests yet")
	}

	var calls, failures uint64
	for i, s := range stats {
		row := i + 1
		p.table.SetCell(row, 0, tview.NewTableCell(s.Method))
		p.table.SetCell(row, 1, tview.NewTableCell(s.Route).SetExpansion(1))
		p.table.SetCell(row, 2, tview.NewTableCell(fmt.Sprint(s.Calls)).SetAlign(tview.AlignRight))
		fail := tview.NewTableCell(fmt.Sprint(s.Failures)).SetAlign(tview.AlignRight)
		if s.Failures > 0 {
			fail.SetTextColor(p.app.theme.Status.Error.Color())
		}
		p.table.SetCell(row, 3, fail)
		p.table.SetCell(row, 4, tview.NewTableCell(formatLatency(s.Mean)).SetAlign(tview.AlignRight))
		calls += s.Calls
		failures += s.Failures
	}
	p.footer.SetText(fmt.Sprintf(" %d requests, %d failed • %s refresh", calls, failures, p.app.Keys.Refresh))
}

// formatLatency rounds to a readable unit
func formatLatency(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}
