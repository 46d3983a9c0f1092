package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/vinayprograms/warden/internal/policy"
)

// Color scheme for terminal output.
var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray - timestamps, metadata

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")) // White bold - headers

	safeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")) // Green

	dangerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("11")) // Yellow

	blockedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9")) // Red

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")) // Green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")) // Red

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14")) // Cyan
)

// renderTier colors a tier name by severity.
func renderTier(tier policy.RiskTier) string {
	switch tier {
	case policy.TierSafe:
		return safeStyle.Render(string(tier))
	case policy.TierDangerous:
		return dangerStyle.Render(string(tier))
	default:
		return blockedStyle.Render(string(tier))
	}
}
