// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// SortBy selects the comparator for the task table. Its values are the
// indices of the table columns they sort.
type SortBy int

const (
	SortByTID SortBy = iota
	SortByState
	SortByName
	SortByTotal
	SortByBusy
	SortByIdle
	SortByPolls
	SortByTarget
)

// DefaultSortBy is the initial sort key of the task table.
const DefaultSortBy = SortByTotal

// SortByFromColumn maps a column index to its sort key. Columns past
// the last sortable one have no key.
func SortByFromColumn(column int) (SortBy, bool) {
	if column < int(SortByTID) || column > int(SortByTarget) {
		return 0, false
	}
	return SortBy(column), true
}

// Column is the table column index this key sorts.
func (s SortBy) Column() int { return int(s) }

func (s SortBy) String() string {
	switch s {
	case SortByTID:
		return "tid"
	case SortByState:
		return "state"
	case SortByName:
		return "name"
	case SortByTotal:
		return "total"
	case SortByBusy:
		return "busy"
	case SortByIdle:
		return "idle"
	case SortByPolls:
		return "polls"
	case SortByTarget:
		return "target"
	}
	return fmt.Sprintf("SortBy(%d)", int(s))
}

// Sort orders refs ascending by s, with elapsed times measured at now.
// Equal elements keep their relative order. Stale refs sort after all
// live ones; that placement only keeps the sort total and is not a
// display order, since a descending view would show them first.
// Callers that draw rows prune stale refs before drawing.
func (s SortBy) Sort(now time.Time, refs []TaskRef) {
	type entry struct {
		ref  TaskRef
		task *Task
	}
	entries := make([]entry, len(refs))
	for i, ref := range refs {
		task, _ := ref.Upgrade()
		entries[i] = entry{ref: ref, task: task}
	}

	compare := s.comparator(now)
	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.task == nil && b.task == nil:
			return 0
		case a.task == nil:
			return 1
		case b.task == nil:
			return -1
		}
		return compare(a.task, b.task)
	})

	for i := range entries {
		refs[i] = entries[i].ref
	}
}

func (s SortBy) comparator(now time.Time) func(a, b *Task) int {
	switch s {
	case SortByState:
		return func(a, b *Task) int { return cmp.Compare(a.State(), b.State()) }
	case SortByName:
		return func(a, b *Task) int { return strings.Compare(a.Name, b.Name) }
	case SortByTotal:
		return func(a, b *Task) int { return cmp.Compare(a.Total(now), b.Total(now)) }
	case SortByBusy:
		return func(a, b *Task) int { return cmp.Compare(a.Busy(now), b.Busy(now)) }
	case SortByIdle:
		return func(a, b *Task) int { return cmp.Compare(a.Idle(now), b.Idle(now)) }
	case SortByPolls:
		return func(a, b *Task) int { return cmp.Compare(a.Polls(), b.Polls()) }
	case SortByTarget:
		return func(a, b *Task) int { return strings.Compare(a.Target, b.Target) }
	default:
		return func(a, b *Task) int { return cmp.Compare(a.ID, b.ID) }
	}
}
