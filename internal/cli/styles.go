// Package cli renders studyflow output for the terminal using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/studyflow/internal/classification"
)

// Palette.
var (
	accent  = lipgloss.Color("#5FAFFF")
	good    = lipgloss.Color("#4ECDC4")
	caution = lipgloss.Color("#FFE66D")
	bad     = lipgloss.Color("#FF6B6B")
	calm    = lipgloss.Color("#95E1D3")
	muted   = lipgloss.Color("#666666")
)

var (
	// SuccessStyle marks open shifts and confirmations.
	SuccessStyle = lipgloss.NewStyle().Foreground(good)

	// WarningStyle marks Unknown categories and warnings.
	WarningStyle = lipgloss.NewStyle().Foreground(caution)

	// InfoStyle is for neutral status lines.
	InfoStyle = lipgloss.NewStyle().Foreground(calm)

	// SubtleStyle is for placeholders.
	SubtleStyle = lipgloss.NewStyle().Foreground(muted)

	// BoldStyle highlights totals.
	BoldStyle = lipgloss.NewStyle().Bold(true)

	// TableHeaderStyle is used for column headers.
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

	errorStyle = lipgloss.NewStyle().Foreground(bad)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#333")).Padding(1, 2)
)

// ChartIcon prefixes summary titles.
const ChartIcon = "📊"

// TierStyle returns the style for a classification tier. Configured matches are plain,
// built-in fallbacks are muted and Unknown is a warning.
func TierStyle(tier classification.Tier) lipgloss.Style {
	switch tier {
	case classification.TierDirect, classification.TierRule, classification.TierExact:
		return lipgloss.NewStyle()
	case classification.TierFallback:
		return WarningStyle
	default:
		return SubtleStyle
	}
}

// FormatSuccess prefixes message with a check mark.
func FormatSuccess(message string) string {
	return SuccessStyle.Render("✓ " + message)
}

// FormatError prefixes message with a cross.
func FormatError(message string) string {
	return errorStyle.Render("✗ " + message)
}

// FormatWarning prefixes message with a warning sign.
func FormatWarning(message string) string {
	return WarningStyle.Render("⚠️ " + message)
}

// FormatInfo prefixes message with an info sign.
func FormatInfo(message string) string {
	return InfoStyle.Render("ℹ️ " + message)
}

// RenderBox renders content under a bold title inside a rounded border.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), content))
}
