// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskview is the view model of the console's task table.
//
// A [List] holds refs to tasks in the registry (never the tasks
// themselves), keeps them sorted by the selected column, tracks the
// selected row, and lays the table out to fill the terminal width.
//
// The working set is always stored in ascending order of the sort key.
// Descending display is a reversal applied when rows are drawn and
// when the selection is mapped to a screen position, so flipping the
// direction never moves the selection to a different task.
//
// Columns whose content varies in length (TID, NAME, TARGET) are sized
// by a [Width] tracker that only ever grows, so the table does not
// jitter as rows come and go. The FIELDS column takes whatever width
// is left over, or none when the other columns already fill the frame.
//
// One render pass ([List.Render]) ingests the refs the registry
// created since the last pass, re-sorts, lays out, draws, and only then
// prunes refs whose task has been evicted.
package taskview
