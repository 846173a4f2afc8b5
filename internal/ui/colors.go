package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#47D0D0", "#04B575", "#FF5F5F", "#FFA500", "#626262")

// interface Painter defines coloring text with [lipgloss] styles
type Painter interface {
	On(string, lipgloss.Color) string // Sets background color
	As(string, lipgloss.Color) string // Sets foreground color
}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title    lipgloss.Style
	heading  lipgloss.Style
	ok       lipgloss.Style
	err      lipgloss.Style
	warn     lipgloss.Style
	help     lipgloss.Style
	dim      lipgloss.Style
	accent   lipgloss.Style
	selected lipgloss.Style
	active   lipgloss.Style
	panel    lipgloss.Style
	bar      lipgloss.Style
}

var _ Painter = (*Palette)(nil)

func NewPalette(accent, s, e, w, h string) *Palette {
	return &Palette{
		title:    NewBold(accent).MarginBottom(1),
		heading:  NewEm(accent).Bold(true),
		ok:       NewBold(s),
		err:      NewBold(e),
		warn:     NewStyle(w),
		help:     NewEm(h),
		dim:      NewStyle(h),
		accent:   NewStyle(accent),
		selected: NewBold(accent).Reverse(true),
		active:   NewBold(accent),
		panel:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(h)).Padding(0, 1),
		bar:      lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true, false, false, false).BorderForeground(lipgloss.Color(accent)),
	}
}

// On renders s with a background color.
func (p *Palette) On(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Background(c).Render(s)
}

// As renders s with a foreground color.
func (p *Palette) As(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// strengthColors maps a password strength score to its meter color.
var strengthColors = []lipgloss.Color{"#626262", "#FF5F5F", "#FFA500", "#04B575"}
