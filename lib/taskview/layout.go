// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskview

// Column indices, in display order.
const (
	ColumnTID = iota
	ColumnState
	ColumnName
	ColumnTotal
	ColumnBusy
	ColumnIdle
	ColumnPolls
	ColumnTarget
	ColumnFields
)

// Headers are the table column labels, indexed by column.
var Headers = [...]string{"TID", "STATE", "NAME", "TOTAL", "BUSY", "IDLE", "POLLS", "TARGET", "FIELDS"}

// Widths of the columns whose content has a fixed size.
const (
	stateWidth    = 5
	durationWidth = 10
	pollsWidth    = 5
)

// gutterWidth is the room reserved left of every row for the
// selection marker.
const gutterWidth = 3

const highlightSymbol = ">> "

// Layout is the width of every column for one frame, not counting the
// one-cell gap after each column.
type Layout [len(Headers)]int

// computeLayout sizes the columns for a frame of frameWidth cells. The
// FIELDS column gets the remainder, clamped at zero.
func computeLayout(frameWidth, idWidth, nameWidth, targetWidth int) Layout {
	layout := Layout{
		ColumnTID:    idWidth,
		ColumnState:  stateWidth,
		ColumnName:   nameWidth,
		ColumnTotal:  durationWidth,
		ColumnBusy:   durationWidth,
		ColumnIdle:   durationWidth,
		ColumnPolls:  pollsWidth,
		ColumnTarget: targetWidth,
	}
	layout[ColumnFields] = max(frameWidth-layout.FixedWidth(), 0)
	return layout
}

// FixedWidth is the total width taken by the gutter and every column
// except FIELDS, gaps included.
func (l Layout) FixedWidth() int {
	total := gutterWidth
	for column := range ColumnFields {
		total += l[column] + 1
	}
	return total
}

// Fields is the width left for the FIELDS column.
func (l Layout) Fields() int { return l[ColumnFields] }
