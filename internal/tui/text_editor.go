package tui

import (
	"strings"
	"unicode"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

const cursorGlyph = "█"

// TextEditor is a multi-line editor built on a TextView. Esc, Tab and control
// keys other than the editing ones bubble up so the page can save or cancel.
type TextEditor struct {
	*tview.TextView

	lines   [][]rune
	row     int
	col     int
	changed func(string)
}

// NewTextEditor creates an empty editor
func NewTextEditor() *TextEditor {
	e := &TextEditor{
		TextView: tview.NewTextView().
			SetDynamicColors(false).
			SetRegions(false).
			SetWrap(true).
			SetScrollable(true),
		lines: [][]rune{{}},
	}
	e.SetInputCapture(e.handleKey)
	e.redraw()
	return e
}

// SetText replaces the content and moves the cursor to the start
func (e *TextEditor) SetText(text string) {
	parts := strings.Split(text, "\n")
	e.lines = make([][]rune, len(parts))
	for i, p := range parts {
		e.lines[i] = []rune(p)
	}
	e.row, e.col = 0, 0
	e.redraw()
}

// GetText returns the content
func (e *TextEditor) GetText() string {
	parts := make([]string, len(e.lines))
	for i, l := range e.lines {
		parts[i] = string(l)
	}
	return strings.Join(parts, "\n")
}

// SetChangedFunc sets the callback for text changes
func (e *TextEditor) SetChangedFunc(fn func(string)) *TextEditor {
	e.changed = fn
	return e
}

// Cursor returns the cursor line and column
func (e *TextEditor) Cursor() (int, int) {
	return e.row, e.col
}

func (e *TextEditor) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyEnter:
		e.insertNewline()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		e.backspace()
	case tcell.KeyDelete:
		e.deleteForward()
	case tcell.KeyUp:
		e.moveVertical(-1)
	case tcell.KeyDown:
		e.moveVertical(1)
	case tcell.KeyLeft:
		e.moveLeft()
	case tcell.KeyRight:
		e.moveRight()
	case tcell.KeyHome, tcell.KeyCtrlA:
		e.col = 0
		e.redraw()
	case tcell.KeyEnd, tcell.KeyCtrlE:
		e.col = len(e.lines[e.row])
		e.redraw()
	case tcell.KeyRune:
		if !unicode.IsPrint(ev.Rune()) {
			return ev
		}
		e.insert(ev.Rune())
	default:
		return ev
	}
	return nil
}

func (e *TextEditor) insert(r rune) {
	line := e.lines[e.row]
	next := make([]rune, 0, len(line)+1)
	next = append(next, line[:e.col]...)
	next = append(next, r)
	next = append(next, line[e.col:]...)
	e.lines[e.row] = next
	e.col++
	e.textChanged()
}

func (e *TextEditor) insertNewline() {
	line := e.lines[e.row]
	left := append([]rune{}, line[:e.col]...)
	right := append([]rune{}, line[e.col:]...)

	lines := make([][]rune, 0, len(e.lines)+1)
	lines = append(lines, e.lines[:e.row]...)
	lines = append(lines, left, right)
	lines = append(lines, e.lines[e.row+1:]...)
	e.lines = lines
	e.row++
	e.col = 0
	e.textChanged()
}

func (e *TextEditor) backspace() {
	switch {
	case e.col > 0:
		line := e.lines[e.row]
		e.lines[e.row] = append(line[:e.col-1:e.col-1], line[e.col:]...)
		e.col--
	case e.row > 0:
		prev := e.lines[e.row-1]
		e.col = len(prev)
		e.lines[e.row-1] = append(append([]rune{}, prev...), e.lines[e.row]...)
		e.lines = append(e.lines[:e.row], e.lines[e.row+1:]...)
		e.row--
	default:
		return
	}
	e.textChanged()
}

func (e *TextEditor) deleteForward() {
	line := e.lines[e.row]
	switch {
	case e.col < len(line):
		e.lines[e.row] = append(line[:e.col:e.col], line[e.col+1:]...)
	case e.row < len(e.lines)-1:
		e.lines[e.row] = append(append([]rune{}, line...), e.lines[e.row+1]...)
		e.lines = append(e.lines[:e.row+1], e.lines[e.row+2:]...)
	default:
		return
	}
	e.textChanged()
}

func (e *TextEditor) moveVertical(delta int) {
	row := e.row + delta
	if row < 0 || row >= len(e.lines) {
		return
	}
	e.row = row
	if e.col > len(e.lines[row]) {
		e.col = len(e.lines[row])
	}
	e.redraw()
}

func (e *TextEditor) moveLeft() {
	switch {
	case e.col > 0:
		e.col--
	case e.row > 0:
		e.row--
		e.col = len(e.lines[e.row])
	}
	e.redraw()
}

func (e *TextEditor) moveRight() {
	switch {
	case e.col < len(e.lines[e.row]):
		e.col++
	case e.row < len(e.lines)-1:
		e.row++
		e.col = 0
	}
	e.redraw()
}

func (e *TextEditor) textChanged() {
	e.redraw()
	if e.changed != nil {
		e.changed(e.GetText())
	}
}

// redraw renders the content with a block cursor at the insertion point
func (e *TextEditor) redraw() {
	var b strings.Builder
	for i, l := range e.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if i != e.row {
			b.WriteString(string(l))
			continue
		}
		b.WriteString(string(l[:e.col]))
		b.WriteString(cursorGlyph)
		b.WriteString(string(l[e.col:]))
	}
	e.TextView.SetText(b.String())
}
