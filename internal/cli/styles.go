// Package cli renders intake results in the terminal using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	accent   = lipgloss.Color("#5DADE2")
	teal     = lipgloss.Color("#4ECDC4")
	yellow   = lipgloss.Color("#FFE66D")
	red      = lipgloss.Color("#FF6B6B")
	mint     = lipgloss.Color("#95E1D3")
	gray     = lipgloss.Color("#666666")
	border   = lipgloss.Color("#333")
	moneyIn  = lipgloss.Color("#82E0AA")
	moneyOut = lipgloss.Color("#F1948A")
)

var (
	// TitleStyle is used for section and box titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)

	// SuccessStyle, WarningStyle, ErrorStyle and InfoStyle color status lines.
	SuccessStyle = lipgloss.NewStyle().Foreground(teal)
	WarningStyle = lipgloss.NewStyle().Foreground(yellow)
	ErrorStyle   = lipgloss.NewStyle().Foreground(red)
	InfoStyle    = lipgloss.NewStyle().Foreground(mint)

	// SubtleStyle formats secondary details.
	SubtleStyle = lipgloss.NewStyle().Foreground(gray)

	// BoxStyle frames one review bucket.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1)

	// TableHeaderStyle and TableCellStyle lay out bucket tables.
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).PaddingRight(2)
	TableCellStyle   = lipgloss.NewStyle().PaddingRight(2)

	// IncomeStyle and ExpenseStyle color amounts by sign.
	IncomeStyle  = TableCellStyle.Foreground(moneyIn)
	ExpenseStyle = TableCellStyle.Foreground(moneyOut)
)

// Icons.
const (
	SuccessIcon   = "✓"
	ErrorIcon     = "✗"
	WarningIcon   = "⚠️"
	InfoIcon      = "ℹ️"
	StatementIcon = "🧾"
	ChartIcon     = "📊"
)

func withIcon(style lipgloss.Style, icon, message string) string {
	return style.Render(icon + " " + message)
}

// FormatSuccess formats a success line.
func FormatSuccess(message string) string { return withIcon(SuccessStyle, SuccessIcon, message) }

// FormatError formats an error line.
func FormatError(message string) string { return withIcon(ErrorStyle, ErrorIcon, message) }

// FormatWarning formats a warning line.
func FormatWarning(message string) string { return withIcon(WarningStyle, WarningIcon, message) }

// FormatInfo formats an informational line.
func FormatInfo(message string) string { return withIcon(InfoStyle, InfoIcon, message) }

// FormatTitle formats a section title followed by a blank line.
func FormatTitle(title string) string {
	return withIcon(TitleStyle.MarginBottom(1), StatementIcon, title)
}

// RenderBox renders content under a title in a rounded box.
func RenderBox(title, content string) string {
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, TitleStyle.Render(title), content))
}
