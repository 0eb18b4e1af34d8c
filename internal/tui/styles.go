package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	// Primary colors
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	OKColor        = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF0000") // Red

	// Neutral colors
	TextColor   = lipgloss.Color("#FFFFFF") // White
	SubtleColor = lipgloss.Color("#626262") // Gray
)

// Common styles
var (
	// Title style - bold, branded
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			Padding(0, 1)

	// Status line styles
	StatusOKStyle = lipgloss.NewStyle().
			Foreground(OKColor).
			Bold(true)

	StatusAlarmStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Bold(true)

	StatusUnknownStyle = lipgloss.NewStyle().
				Foreground(SubtleColor)

	// Zone table styles
	ZoneHeaderStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	ZoneOpenStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	ZoneClosedStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// Help text style
	HelpStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// Error style
	ErrStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)
)

// alarmStyle picks a style for the alarm summary line. The portal
// phrases disarmed states as "Disarmed" and armed states as
// "Armed Stay"/"Armed Away"; anything mentioning an alarm is rendered
// in the alarm style.
func alarmStyle(status string) lipgloss.Style {
	lower := strings.ToLower(status)
	switch {
	case status == "":
		return StatusUnknownStyle
	case strings.Contains(lower, "alarm"):
		return StatusAlarmStyle
	case strings.Contains(lower, "armed") && !strings.Contains(lower, "disarmed"):
		return StatusOKStyle
	default:
		return StatusUnknownStyle
	}
}
