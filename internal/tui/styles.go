package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/existflow/stockdash/internal/model"
)

// Color palette
var (
	// Trend colors
	Up      = lipgloss.Color("#95E1A3") // Green
	Down    = lipgloss.Color("#FF6B6B") // Red
	Neutral = lipgloss.Color("#FFE66D") // Yellow

	// UI colors
	Primary   = lipgloss.Color("#4ECDC4")
	Secondary = lipgloss.Color("#6C757D")
	Surface   = lipgloss.Color("#16213e")
	Text      = lipgloss.Color("#FFFFFF")
	TextMuted = lipgloss.Color("#888888")
	Border    = lipgloss.Color("#333333")
	Danger    = lipgloss.Color("#FF6B6B")
)

// Styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Padding(0, 1)

	// Stock table
	TableStyle = lipgloss.NewStyle().
			Padding(1, 2)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(TextMuted)

	RowStyle = lipgloss.NewStyle().
			Padding(0, 1)

	RowSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(Surface).
				Bold(true)

	// News panel
	NewsStyle = lipgloss.NewStyle().
			Width(40).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(Border).
			Padding(1, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Border)

	// Login box and modals
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	ErrorStyle = lipgloss.NewStyle().Foreground(Danger)

	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)
)

// TrendStyle returns the color for a trend
func TrendStyle(t model.Trend) lipgloss.Style {
	switch t {
	case model.TrendUp:
		return lipgloss.NewStyle().Foreground(Up)
	case model.TrendDown:
		return lipgloss.NewStyle().Foreground(Down)
	default:
		return lipgloss.NewStyle().Foreground(Neutral)
	}
}

// TrendArrow returns a glyph for a trend
func TrendArrow(t model.Trend) string {
	switch t {
	case model.TrendUp:
		return "▲"
	case model.TrendDown:
		return "▼"
	default:
		return "■"
	}
}
