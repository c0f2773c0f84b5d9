package console

import "github.com/charmbracelet/lipgloss"

var (
	ColorAccent  = lipgloss.Color("#7D56F4")
	ColorError   = lipgloss.Color("#FF5F87")
	ColorSuccess = lipgloss.Color("#04B575")
	ColorMuted   = lipgloss.Color("#767676")

	ProgressStyle = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	MessageStyle  = lipgloss.NewStyle().Foreground(ColorSuccess)
	ErrorTitle    = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	ErrorBody     = lipgloss.NewStyle().Foreground(ColorError)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
)
