package tui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the page.
var (
	ColorRed   = lipgloss.Color("#FF0000")
	ColorGreen = lipgloss.Color("#22C55E")
	ColorGray  = lipgloss.Color("#666666")
	ColorText  = lipgloss.Color("#9CA3AF")
	ColorCyan  = lipgloss.Color("#00FFFF")
	ColorAmber = lipgloss.Color("#FFBF00")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorRed).
			MarginBottom(1)

	TextStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	SelectedTextStyle = lipgloss.NewStyle().
				Foreground(ColorCyan).
				Bold(true)

	TimeStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	CompetencyLabelStyle = lipgloss.NewStyle().
				Bold(true)

	PlaceholderStyle = lipgloss.NewStyle().
				Italic(true).
				Foreground(ColorGray)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorAmber)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	EditKeyStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	DeleteKeyStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorAmber).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)
)
