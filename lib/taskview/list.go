// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskview

import (
	"slices"
	"time"

	"github.com/hawkw/consolation/lib/tasks"
)

// noSelection is the selection index when no row is selected.
const noSelection = -1

// Options configures a List.
type Options struct {
	Theme  Theme
	Keys   KeyMap
	SortBy tasks.SortBy
	// ASCII replaces the state badge glyphs with words.
	ASCII bool
}

// DefaultOptions sorts by total time with the default theme and keys.
func DefaultOptions() Options {
	return Options{Theme: DefaultTheme, Keys: DefaultKeyMap, SortBy: tasks.DefaultSortBy}
}

// List is the task table view model. It is owned by the console's
// event loop and is not safe for concurrent use.
type List struct {
	// refs is the working set in ascending order of sortBy.
	refs []tasks.TaskRef

	sortBy         tasks.SortBy
	selectedColumn int
	descending     bool

	// selected indexes refs (ascending order), or is noSelection.
	selected int
	// offset is the first displayed row drawn, for vertical scrolling.
	offset int

	idWidth     Width
	nameWidth   Width
	targetWidth Width

	keys   KeyMap
	styles styles
	ascii  bool
}

// NewList returns an empty list.
func NewList(options Options) *List {
	return &List{
		sortBy:         options.SortBy,
		selectedColumn: options.SortBy.Column(),
		selected:       noSelection,
		idWidth:        NewWidth(Headers[ColumnTID]),
		nameWidth:      NewWidth(Headers[ColumnName]),
		targetWidth:    NewWidth(Headers[ColumnTarget]),
		keys:           options.Keys,
		styles:         newStyles(options.Theme),
		ascii:          options.ASCII,
	}
}

// Len is the size of the working set, stale refs included.
func (l *List) Len() int { return len(l.refs) }

// SortBy is the active sort key.
func (l *List) SortBy() tasks.SortBy { return l.sortBy }

// SelectedColumn is the highlighted header column.
func (l *List) SelectedColumn() int { return l.selectedColumn }

// Descending reports whether rows are displayed in descending order.
func (l *List) Descending() bool { return l.descending }

// Ingest adds refs to the working set. Order does not matter; the next
// Reorder sorts them in.
func (l *List) Ingest(refs []tasks.TaskRef) {
	l.refs = append(l.refs, refs...)
}

// Reorder sorts the working set ascending by the active key with
// elapsed times measured at now. The sort is stable, so reordering an
// unchanged set at the same now is a no-op. The selection stays on the
// same task.
func (l *List) Reorder(now time.Time) {
	l.preserveSelection(func() {
		l.sortBy.Sort(now, l.refs)
	})
}

// SelectColumn moves the highlighted column by delta, wrapping around
// the header. When the new column has a sort key it becomes the active
// key; otherwise the key is unchanged.
func (l *List) SelectColumn(delta int) {
	count := len(Headers)
	l.selectedColumn = ((l.selectedColumn+delta)%count + count) % count
	if sortBy, ok := tasks.SortByFromColumn(l.selectedColumn); ok {
		l.sortBy = sortBy
	}
}

// ToggleDirection flips between ascending and descending display. The
// selected task does not change.
func (l *List) ToggleDirection() {
	l.descending = !l.descending
}

// Scroll moves the selection by delta rows in display order, wrapping
// at both ends. With no selection it selects the first displayed row.
// Does nothing when the list is empty.
func (l *List) Scroll(delta int) {
	count := len(l.refs)
	if count == 0 {
		l.selected = noSelection
		return
	}
	position := 0
	if l.selected != noSelection {
		position = ((l.displayPosition(l.selected)+delta)%count + count) % count
	}
	l.selected = l.displayPosition(position)
}

// displayPosition converts between ascending indices and display
// positions. It is its own inverse.
func (l *List) displayPosition(index int) int {
	if l.descending {
		return len(l.refs) - 1 - index
	}
	return index
}

// Selected returns the ref of the selected row.
func (l *List) Selected() (tasks.TaskRef, bool) {
	if l.selected == noSelection || l.selected >= len(l.refs) {
		return tasks.TaskRef{}, false
	}
	return l.refs[l.selected], true
}

// SelectedTask resolves the selected row.
func (l *List) SelectedTask() (*tasks.Task, bool) {
	ref, ok := l.Selected()
	if !ok {
		return nil, false
	}
	return ref.Upgrade()
}

// Displayed returns the working set in display order.
func (l *List) Displayed() []tasks.TaskRef {
	displayed := slices.Clone(l.refs)
	if l.descending {
		slices.Reverse(displayed)
	}
	return displayed
}

// Prune drops refs whose task no longer exists. If the selected task
// was dropped, the selection stays at the same index (clamped), which
// selects a neighbor.
func (l *List) Prune() {
	l.preserveSelection(func() {
		l.refs = slices.DeleteFunc(l.refs, func(ref tasks.TaskRef) bool {
			_, ok := ref.Upgrade()
			return !ok
		})
	})
}

// preserveSelection runs mutate and then moves the selection index to
// wherever the selected ref ended up.
func (l *List) preserveSelection(mutate func()) {
	previous, hadSelection := l.Selected()
	mutate()
	if !hadSelection {
		return
	}
	if index := slices.Index(l.refs, previous); index >= 0 {
		l.selected = index
		return
	}
	if len(l.refs) == 0 {
		l.selected = noSelection
		return
	}
	l.selected = min(l.selected, len(l.refs)-1)
}
