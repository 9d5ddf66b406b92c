// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskview

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hawkw/consolation/lib/tasks"
)

// Theme is the console's color palette. All colors are ANSI 256-color
// codes; with the color profile forced to ASCII they degrade to plain
// text with bold, faint and reverse attributes intact.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	HeaderForeground         lipgloss.Color
	SelectedHeaderForeground lipgloss.Color

	SelectedForeground lipgloss.Color
	SelectedBackground lipgloss.Color

	StateRunning   lipgloss.Color
	StateIdle      lipgloss.Color
	StateCompleted lipgloss.Color

	// Status line.
	Connected    lipgloss.Color
	Disconnected lipgloss.Color
	Warning      lipgloss.Color
	HelpText     lipgloss.Color
}

// StateColor returns the badge color for a task state.
func (theme Theme) StateColor(state tasks.TaskState) lipgloss.Color {
	switch state {
	case tasks.Running:
		return theme.StateRunning
	case tasks.Idle:
		return theme.StateIdle
	default:
		return theme.StateCompleted
	}
}

// DefaultTheme is the built-in scheme for dark terminals.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("243"),

	HeaderForeground:         lipgloss.Color("250"),
	SelectedHeaderForeground: lipgloss.Color("255"),

	SelectedForeground: lipgloss.Color("255"),
	SelectedBackground: lipgloss.Color("236"),

	StateRunning:   lipgloss.Color("114"), // green
	StateIdle:      lipgloss.Color("220"), // amber
	StateCompleted: lipgloss.Color("245"), // gray

	Connected:    lipgloss.Color("114"),
	Disconnected: lipgloss.Color("196"),
	Warning:      lipgloss.Color("208"),
	HelpText:     lipgloss.Color("241"),
}

// styles are the lipgloss styles the table is drawn with.
type styles struct {
	header         lipgloss.Style
	selectedHeader lipgloss.Style
	row            lipgloss.Style
	selectedRow    lipgloss.Style
	completedRow   lipgloss.Style
	theme          Theme
}

func newStyles(theme Theme) styles {
	return styles{
		// The header is drawn reversed; the selected column stands out
		// by dropping the reversal.
		header: lipgloss.NewStyle().Foreground(theme.HeaderForeground).Reverse(true),
		selectedHeader: lipgloss.NewStyle().
			Foreground(theme.SelectedHeaderForeground).
			Bold(true).
			Underline(true),
		row: lipgloss.NewStyle().Foreground(theme.NormalText),
		selectedRow: lipgloss.NewStyle().
			Foreground(theme.SelectedForeground).
			Background(theme.SelectedBackground).
			Bold(true),
		completedRow: lipgloss.NewStyle().Foreground(theme.FaintText).Faint(true),
		theme:        theme,
	}
}
