package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is the stylesheet shared by every renderer in this package.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

// NewPalette builds a [Palette] from hex colors for titles, successes, errors, warnings and hints.
func NewPalette(title, ok, failed, warn, hint string) *Palette {
	return &Palette{
		title: NewBold(title),
		ok:    NewBold(ok),
		err:   NewBold(failed),
		warn:  NewStyle(warn),
		help:  NewEm(hint),
	}
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
