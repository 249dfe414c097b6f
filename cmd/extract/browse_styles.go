package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle = lipgloss.NewStyle().Bold(true)

	HelpStyle = lipgloss.NewStyle().Faint(true)

	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// FormatCloseWithTrend formats a close price with an arrow against the previous bar's close.
func FormatCloseWithTrend(current, previous float64) string {
	price := fmt.Sprintf("%.4f", current)

	if previous == 0 {
		return price
	}

	if current > previous {
		return price + " ▲"
	} else if current < previous {
		return price + " ▼"
	}

	return price
}
