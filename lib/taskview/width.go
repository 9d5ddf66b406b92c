// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskview

import "github.com/charmbracelet/x/ansi"

// Width tracks the display width of a variable-length column: the
// widest value ever seen in it, and never less than its header.
type Width struct {
	chars int
}

// NewWidth returns a tracker seeded with the header label.
func NewWidth(header string) Width {
	return Width{chars: ansi.StringWidth(header)}
}

// Update widens the tracker to fit value and returns the new width.
func (w *Width) Update(value string) int {
	w.chars = max(w.chars, ansi.StringWidth(value))
	return w.chars
}

// Chars is the current width in terminal cells.
func (w Width) Chars() int { return w.chars }
