package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Color palette
var (
	ColorPrimary = lipgloss.Color("#D97706") // Amber (pancakes, naturally)
	ColorSuccess = lipgloss.Color("#10B981") // Green
	ColorWarning = lipgloss.Color("#F59E0B") // Amber
	ColorError   = lipgloss.Color("#EF4444") // Red
	ColorInfo    = lipgloss.Color("#3B82F6") // Blue

	// PR state colors
	ColorOpen   = lipgloss.Color("#10B981")
	ColorDraft  = lipgloss.Color("#F59E0B")
	ColorMerged = lipgloss.Color("#8B5CF6")
	ColorClosed = lipgloss.Color("#6B7280")
	ColorLocal  = lipgloss.Color("#9CA3AF")

	ColorTextMuted = lipgloss.Color("#9CA3AF")
	ColorBorder    = lipgloss.Color("#374151")
)

var (
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorError)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	InfoStyle    = lipgloss.NewStyle().Foreground(ColorInfo)

	BoldStyle      = lipgloss.NewStyle().Bold(true)
	DimStyle       = lipgloss.NewStyle().Faint(true)
	MutedStyle     = lipgloss.NewStyle().Foreground(ColorTextMuted)
	HighlightStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).Padding(0, 1)

	TreeRootStyle       = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	TreeCurrentStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorSuccess)
	TreeEnumeratorStyle = lipgloss.NewStyle().Foreground(ColorBorder)
)

func init() {
	if os.Getenv("PANCAKE_NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// StateStyle returns the style for a PR state string.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "open":
		return lipgloss.NewStyle().Foreground(ColorOpen)
	case "draft":
		return lipgloss.NewStyle().Foreground(ColorDraft)
	case "merged":
		return lipgloss.NewStyle().Foreground(ColorMerged)
	case "closed":
		return lipgloss.NewStyle().Foreground(ColorClosed)
	default:
		return lipgloss.NewStyle().Foreground(ColorLocal)
	}
}
