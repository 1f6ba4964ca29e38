// Package ui renders CLI output: status tables and progress spinners.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorBlue   = lipgloss.Color("#1E90FF")
	colorSky    = lipgloss.Color("#87CEFA")
	colorRoyal  = lipgloss.Color("#4169E1")
	colorYellow = lipgloss.Color("#eab308")
	colorDim    = lipgloss.Color("#6b7280")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	cellStyle = lipgloss.NewStyle().
			Foreground(colorSky).
			Padding(0, 1)

	accentCellStyle = lipgloss.NewStyle().
			Foreground(colorRoyal).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	emptyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorYellow)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorBlue)
)
