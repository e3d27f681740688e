package config

import (
	"fmt"

	"github.com/derailed/tcell/v2"
)

// Color represents a color in the application
type Color string

const (
	// DefaultColor represents a default color
	DefaultColor Color = "default"

	// TransparentColor represents the terminal bg color
	TransparentColor Color = "-"
)

// NewColor returns a new color
func NewColor(c string) Color {
	return Color(c)
}

// String returns color as a tview tag value
func (c Color) String() string {
	if c.isHex() {
		return string(c)
	}
	if c == DefaultColor || c == TransparentColor || c == "" {
		return "-"
	}
	col := c.Color().TrueColor().Hex()
	if col < 0 {
		return "-"
	}
	return fmt.Sprintf("#%06x", col)
}

func (c Color) isHex() bool {
	return len(c) == 7 && c[0] == '#'
}

// Color returns a view color
func (c Color) Color() tcell.Color {
	if c == DefaultColor || c == TransparentColor || c == "" {
		return tcell.ColorDefault
	}
	return tcell.GetColor(string(c)).TrueColor()
}

// BodyColors defines colors for page backgrounds and text
type BodyColors struct {
	FgColor Color `yaml:"fgColor"`
	BgColor Color `yaml:"bgColor"`
}

// FrameColors defines colors for borders and titles
type FrameColors struct {
	BorderColor Color `yaml:"borderColor"`
	FocusColor  Color `yaml:"focusColor"`
	TitleColor  Color `yaml:"titleColor"`
	TabColor    Color `yaml:"tabColor"`
}

// PriorityColors colors the email priority badges
type PriorityColors struct {
	High   Color `yaml:"high"`
	Medium Color `yaml:"medium"`
	Low    Color `yaml:"low"`
}

// StatusColors colors notices in the status bar, one per level
type StatusColors struct {
	Info    Color `yaml:"info"`
	Success Color `yaml:"success"`
	Warning Color `yaml:"warning"`
	Error   Color `yaml:"error"`
}

// BadgeColors colors card badges
type BadgeColors struct {
	AIGenerated Color `yaml:"aiGenerated"`
	DraftReady  Color `yaml:"draftReady"`
	Completed   Color `yaml:"completed"`
}

// ColorsConfig defines the complete color configuration
type ColorsConfig struct {
	Body     BodyColors     `yaml:"body"`
	Frame    FrameColors    `yaml:"frame"`
	Priority PriorityColors `yaml:"priority"`
	Status   StatusColors   `yaml:"status"`
	Badge    BadgeColors    `yaml:"badge"`
}

// DefaultColors returns the built-in mailflow-dark theme
func DefaultColors() *ColorsConfig {
	return &ColorsConfig{
		Body: BodyColors{
			FgColor: NewColor("#f8f8f2"),
			BgColor: NewColor("#282a36"),
		},
		Frame: FrameColors{
			BorderColor: NewColor("#44475a"),
			FocusColor:  NewColor("#6272a4"),
			TitleColor:  NewColor("#f8f8f2"),
			TabColor:    NewColor("#bd93f9"),
		},
		Priority: PriorityColors{
			High:   NewColor("#ff5555"),
			Medium: NewColor("#f1fa8c"),
			Low:    NewColor("#6272a4"),
		},
		Status: StatusColors{
			Info:    NewColor("#8be9fd"),
			Success: NewColor("#50fa7b"),
			Warning: NewColor("#ffb86c"),
			Error:   NewColor("#ff5555"),
		},
		Badge: BadgeColors{
			AIGenerated: NewColor("#bd93f9"),
			DraftReady:  NewColor("#50fa7b"),
			Completed:   NewColor("#50fa7b"),
		},
	}
}
