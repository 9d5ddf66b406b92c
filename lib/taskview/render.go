// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskview

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/hawkw/consolation/lib/tasks"
)

// row is one task's cells, formatted but not yet fitted to widths.
type row struct {
	cells     [len(Headers)]string
	state     tasks.TaskState
	completed bool
	selected  bool
}

// Render performs one render pass over state and returns the table,
// header first, at most height lines of at most width cells. Refs whose
// task was evicted are pruned before drawing, so every drawn line is a
// live task.
func (l *List) Render(state *tasks.State, width, height int) string {
	l.Ingest(state.TakeNewTasks())
	l.Prune()
	now := state.LastUpdatedAt()
	l.Reorder(now)

	rows := l.buildRows(now)
	layout := computeLayout(width, l.idWidth.Chars(), l.nameWidth.Chars(), l.targetWidth.Chars())

	visible := max(height-1, 0)
	l.scrollIntoView(visible)

	var builder strings.Builder
	if height > 0 {
		builder.WriteString(ansi.Truncate(l.renderHeader(layout), width, ""))
	}
	end := min(l.offset+visible, len(rows))
	for _, current := range rows[min(l.offset, end):end] {
		builder.WriteByte('\n')
		builder.WriteString(ansi.Truncate(l.renderRow(current, layout), width, ""))
	}

	l.Prune()
	return builder.String()
}

// buildRows formats every row in display order and widens the column
// trackers to fit them. The working set must already be pruned.
func (l *List) buildRows(now time.Time) []row {
	displayed := l.Displayed()
	selectedPosition := noSelection
	if l.selected != noSelection {
		selectedPosition = l.displayPosition(l.selected)
	}

	rows := make([]row, 0, len(displayed))
	for position, ref := range displayed {
		task, ok := ref.Upgrade()
		if !ok {
			continue
		}
		rows = append(rows, row{selected: position == selectedPosition})
		current := &rows[len(rows)-1]
		current.state = task.State()
		current.completed = task.IsCompleted()
		current.cells = [len(Headers)]string{
			ColumnTID:    strconv.FormatUint(task.ID, 10),
			ColumnState:  stateBadge(current.state, l.ascii),
			ColumnName:   task.Name,
			ColumnTotal:  FormatDuration(task.Total(now)),
			ColumnBusy:   FormatDuration(task.Busy(now)),
			ColumnIdle:   FormatDuration(task.Idle(now)),
			ColumnPolls:  strconv.FormatUint(task.Polls(), 10),
			ColumnTarget: task.Target,
			ColumnFields: task.FormattedFields(),
		}
		l.idWidth.Update(current.cells[ColumnTID])
		l.nameWidth.Update(current.cells[ColumnName])
		l.targetWidth.Update(current.cells[ColumnTarget])
	}
	return rows
}

// scrollIntoView moves the scroll offset so the selected row is one of
// the visible rows.
func (l *List) scrollIntoView(visible int) {
	if l.selected == noSelection || visible == 0 {
		l.offset = min(l.offset, max(len(l.refs)-visible, 0))
		return
	}
	position := l.displayPosition(l.selected)
	switch {
	case position < l.offset:
		l.offset = position
	case position >= l.offset+visible:
		l.offset = position - visible + 1
	}
}

func (l *List) renderHeader(layout Layout) string {
	var builder strings.Builder
	builder.WriteString(l.styles.header.Render(strings.Repeat(" ", gutterWidth)))
	for column, label := range Headers {
		cell := padRight(label, layout[column])
		if column != ColumnFields {
			cell += " "
		}
		style := l.styles.header
		if column == l.selectedColumn {
			style = l.styles.selectedHeader
		}
		builder.WriteString(style.Render(cell))
	}
	return builder.String()
}

func (l *List) renderRow(current row, layout Layout) string {
	style := l.styles.row
	switch {
	case current.selected:
		style = l.styles.selectedRow
	case current.completed:
		style = l.styles.completedRow
	}

	gutter := strings.Repeat(" ", gutterWidth)
	if current.selected {
		gutter = highlightSymbol
	}

	var builder strings.Builder
	builder.WriteString(style.Render(gutter))
	for column, value := range current.cells {
		var cell string
		switch column {
		case ColumnTID, ColumnTotal, ColumnBusy, ColumnIdle, ColumnPolls:
			cell = padLeft(value, layout[column])
		default:
			cell = padRight(value, layout[column])
		}
		if column != ColumnFields {
			cell += " "
		}
		cellStyle := style
		if column == ColumnState && !current.completed {
			cellStyle = style.Foreground(l.styles.theme.StateColor(current.state))
		}
		builder.WriteString(cellStyle.Render(cell))
	}
	return builder.String()
}
