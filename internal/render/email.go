package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/derailed/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// Palette holds the colors used for priorities and badges
type Palette struct {
	High   tcell.Color
	Medium tcell.Color
	Low    tcell.Color
	Accent tcell.Color
	Done   tcell.Color
}

// DefaultPalette is used when no theme overrides it
func DefaultPalette() Palette {
	return Palette{
		High:   tcell.ColorRed,
		Medium: tcell.ColorYellow,
		Low:    tcell.ColorGray,
		Accent: tcell.ColorDodgerBlue,
		Done:   tcell.ColorGreen,
	}
}

// PriorityColor returns the color for p
func (p Palette) PriorityColor(pr api.Priority) tcell.Color {
	switch pr {
	case api.PriorityHigh:
		return p.High
	case api.PriorityMedium:
		return p.Medium
	}
	return p.Low
}

// PriorityLabel is the badge text for a priority
func PriorityLabel(p api.Priority) string {
	switch p {
	case api.PriorityHigh:
		return "High Priority"
	case api.PriorityMedium:
		return "Medium"
	case api.PriorityLow:
		return "Low"
	}
	return string(p)
}

// Category returns the category, or "Uncategorized"
func Category(c string) string {
	if strings.TrimSpace(c) == "" {
		return "Uncategorized"
	}
	return c
}

// Timestamp renders a relative time, or "Just now" when the server sent none
func Timestamp(ts *api.Timestamp, now time.Time) string {
	if ts == nil || ts.IsZero() {
		return "Just now"
	}
	return RelativeTime(ts.Time, now)
}

// RelativeTime renders date compactly relative to now
func RelativeTime(date, now time.Time) string {
	diff := now.Sub(date)
	switch {
	case diff < time.Minute:
		return "now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(diff.Hours()/24))
	}
	return date.Format("Jan 2")
}

// SenderName extracts the display name from "Name <addr>"
func SenderName(from string) string {
	if i := strings.Index(from, "<"); i > 0 && strings.Contains(from[i:], ">") {
		if name := strings.Trim(strings.TrimSpace(from[:i]), `"`); name != "" {
			return name
		}
	}
	return strings.TrimSpace(from)
}

// Truncate cuts s to width display cells with an ellipsis
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// Fit truncates and pads on the right to exactly width cells
func Fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = Truncate(s, width)
	if pad := width - runewidth.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// RightFit truncates from the left and right-aligns to width cells
func RightFit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = runewidth.TruncateLeft(s, width, "")
	if pad := width - runewidth.StringWidth(s); pad > 0 {
		s = strings.Repeat(" ", pad) + s
	}
	return s
}

const (
	senderWidth = 20
	timeWidth   = 6
)

// EmailLine is the single-line list entry for e
func EmailLine(e api.Email, width int, now time.Time) string {
	subjectWidth := width - senderWidth - timeWidth - 2
	if subjectWidth < 10 {
		subjectWidth = 10
	}
	return Fit(SenderName(e.Sender), senderWidth) + " " +
		Fit(e.Subject, subjectWidth) + " " +
		RightFit(Timestamp(e.Timestamp, now), timeWidth)
}

// ActionItemLine renders a checklist entry
func ActionItemLine(a api.ActionItem) string {
	box := "[ ]"
	if a.Done() {
		box = "[x]"
	}
	line := box + " " + a.Task
	if d := strings.TrimSpace(a.Deadline); d != "" {
		line += " (due " + d + ")"
	}
	return line
}

// DraftLine is the single-line list entry for d
func DraftLine(d api.Draft, width int) string {
	subject := d.Subject
	if strings.TrimSpace(subject) == "" {
		subject = "(no subject)"
	}
	to := d.Recipient
	if to == "" {
		to = "(no recipient)"
	}
	return Fit(subject, width/2) + " " + Truncate("to "+to, width-width/2-1)
}
