// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskview

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap holds the bindings the task table reacts to.
type KeyMap struct {
	PreviousColumn key.Binding
	NextColumn     key.Binding
	Up             key.Binding
	Down           key.Binding
	Invert         key.Binding
}

// DefaultKeyMap uses arrow keys with vim-style alternatives.
var DefaultKeyMap = KeyMap{
	PreviousColumn: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "sort column"),
	),
	NextColumn: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "sort column"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Invert: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "invert sort"),
	),
}

// Bindings lists the bindings for help rendering.
func (k KeyMap) Bindings() []key.Binding {
	return []key.Binding{k.PreviousColumn, k.NextColumn, k.Up, k.Down, k.Invert}
}

// HandleKey applies a key press to the list. It reports whether the
// key was one of the table's bindings; other keys are left to the
// caller.
func (l *List) HandleKey(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, l.keys.PreviousColumn):
		l.SelectColumn(-1)
	case key.Matches(msg, l.keys.NextColumn):
		l.SelectColumn(1)
	case key.Matches(msg, l.keys.Up):
		l.Scroll(-1)
	case key.Matches(msg, l.keys.Down):
		l.Scroll(1)
	case key.Matches(msg, l.keys.Invert):
		l.ToggleDirection()
	default:
		return false
	}
	return true
}
