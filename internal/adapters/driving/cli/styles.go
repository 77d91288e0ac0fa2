package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Palette for terminal output.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourWarning = lipgloss.Color("#F9E2AF")
)

// outputStyles holds the styles for one writer. Colour is dropped
// automatically when the writer is not a terminal.
type outputStyles struct {
	Title   lipgloss.Style
	Score   lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
}

func newOutputStyles(w io.Writer) outputStyles {
	r := lipgloss.NewRenderer(w)
	return outputStyles{
		Title:   r.NewStyle().Bold(true).Foreground(colourPrimary),
		Score:   r.NewStyle().Foreground(colourSuccess),
		Muted:   r.NewStyle().Foreground(colourMuted),
		Warning: r.NewStyle().Foreground(colourWarning),
	}
}
