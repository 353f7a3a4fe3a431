package cli

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Colour palette for terminal output.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourError   = lipgloss.Color("#F38BA8")
	colourWarning = lipgloss.Color("#F9E2AF")
)

// outputStyles renders table cells. Every style is a no-op when plain.
type outputStyles struct {
	Header  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
}

// isTerminal is replaced in tests.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// stylesFor returns coloured styles when w is a terminal, plain ones otherwise.
func stylesFor(w io.Writer) outputStyles {
	if !isTerminal(w) {
		plain := lipgloss.NewStyle()
		return outputStyles{Header: plain, Muted: plain, Success: plain, Error: plain, Warning: plain}
	}
	return outputStyles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(colourPrimary),
		Muted:   lipgloss.NewStyle().Foreground(colourMuted),
		Success: lipgloss.NewStyle().Foreground(colourSuccess),
		Error:   lipgloss.NewStyle().Foreground(colourError),
		Warning: lipgloss.NewStyle().Foreground(colourWarning),
	}
}

// padRight pads s with spaces to width display cells.
func padRight(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
