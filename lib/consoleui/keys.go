// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package consoleui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/hawkw/consolation/lib/taskview"
)

// KeyMap defines the console's key bindings. Table navigation is
// delegated to the task list's own bindings.
type KeyMap struct {
	Table taskview.KeyMap

	Details key.Binding
	Back    key.Binding
	Pause   key.Binding
	Quit    key.Binding
}

// DefaultKeyMap is the built-in binding set.
var DefaultKeyMap = KeyMap{
	Table: taskview.DefaultKeyMap,
	Details: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "details"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
	Pause: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "pause/resume"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// tableHelp lists the bindings shown under the task table.
func (k KeyMap) tableHelp() []key.Binding {
	return append(k.Table.Bindings(), k.Details, k.Pause, k.Quit)
}

// detailsHelp lists the bindings shown in the detail view.
func (k KeyMap) detailsHelp() []key.Binding {
	return []key.Binding{k.Back, k.Pause, k.Quit}
}
