// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"slices"
	"testing"
	"time"

	"github.com/hawkw/consolation/lib/instrument"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(offset time.Duration) *time.Time {
	moment := epoch.Add(offset)
	return &moment
}

func spawn(ids ...uint64) instrument.Update {
	update := instrument.Update{Now: epoch, Tasks: instrument.TaskUpdate{StatsUpdate: map[uint64]instrument.Stats{}}}
	for _, id := range ids {
		update.Tasks.NewTasks = append(update.Tasks.NewTasks, instrument.Task{ID: id, Target: "app::worker"})
		update.Tasks.StatsUpdate[id] = instrument.Stats{CreatedAt: epoch}
	}
	return update
}

func refIDs(refs []TaskRef) []uint64 {
	ids := make([]uint64, len(refs))
	for i, ref := range refs {
		ids[i] = ref.ID()
	}
	return ids
}

func TestApplyRegistersTasks(t *testing.T) {
	state := NewState(DefaultRetain)
	update := spawn(1, 2)
	update.Tasks.NewTasks[0].Name = "accept"
	update.Tasks.NewTasks[0].Fields = []instrument.Field{{Name: "peer", Value: "10.0.0.1"}, {Name: "port", Value: "80"}}
	update.Tasks.DroppedEvents = 3
	state.Apply(update)

	if state.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", state.Len())
	}
	if !state.LastUpdatedAt().Equal(epoch) {
		t.Errorf("LastUpdatedAt() = %v, want %v", state.LastUpdatedAt(), epoch)
	}
	if state.DroppedEvents() != 3 {
		t.Errorf("DroppedEvents() = %d, want 3", state.DroppedEvents())
	}

	refs := state.TakeNewTasks()
	if got := refIDs(refs); !slices.Equal(got, []uint64{1, 2}) {
		t.Errorf("TakeNewTasks() ids = %v, want [1 2]", got)
	}
	if again := state.TakeNewTasks(); len(again) != 0 {
		t.Errorf("second TakeNewTasks() = %v, want empty", refIDs(again))
	}

	task, ok := refs[0].Upgrade()
	if !ok {
		t.Fatal("fresh ref did not resolve")
	}
	if task.Name != "accept" || task.FormattedFields() != "peer=10.0.0.1 port=80" {
		t.Errorf("task = %q fields %q", task.Name, task.FormattedFields())
	}
}

func TestStatsForUnknownTaskIgnored(t *testing.T) {
	state := NewState(DefaultRetain)
	state.Apply(instrument.Update{Now: epoch, Tasks: instrument.TaskUpdate{
		StatsUpdate: map[uint64]instrument.Stats{9: {CreatedAt: epoch, Polls: 4}},
	}})
	if state.Len() != 0 {
		t.Errorf("Len() = %d, want 0", state.Len())
	}
}

func TestTaskTimings(t *testing.T) {
	tests := []struct {
		name      string
		stats     instrument.Stats
		now       time.Duration
		state     TaskState
		total     time.Duration
		busy      time.Duration
		idle      time.Duration
		completed time.Duration
	}{
		{
			name:  "never polled",
			stats: instrument.Stats{CreatedAt: epoch},
			now:   10 * time.Second,
			state: Idle, total: 10 * time.Second, idle: 10 * time.Second,
		},
		{
			name: "inside a poll",
			stats: instrument.Stats{
				CreatedAt: epoch, Busy: 2 * time.Second,
				LastPollStarted: at(8 * time.Second), LastPollEnded: at(5 * time.Second),
			},
			now:   10 * time.Second,
			state: Running, total: 10 * time.Second, busy: 4 * time.Second, idle: 6 * time.Second,
		},
		{
			name: "between polls",
			stats: instrument.Stats{
				CreatedAt: epoch, Busy: 3 * time.Second,
				LastPollStarted: at(4 * time.Second), LastPollEnded: at(5 * time.Second),
			},
			now:   10 * time.Second,
			state: Idle, total: 10 * time.Second, busy: 3 * time.Second, idle: 7 * time.Second,
		},
		{
			name: "completed",
			stats: instrument.Stats{
				CreatedAt: epoch, Busy: time.Second, DroppedAt: at(4 * time.Second),
				LastPollStarted: at(3 * time.Second), LastPollEnded: at(4 * time.Second),
			},
			now:   10 * time.Second,
			state: Completed, total: 4 * time.Second, busy: time.Second, idle: 3 * time.Second,
			completed: 6 * time.Second,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			task := &Task{stats: test.stats}
			now := epoch.Add(test.now)
			if got := task.State(); got != test.state {
				t.Errorf("State() = %v, want %v", got, test.state)
			}
			if got := task.Total(now); got != test.total {
				t.Errorf("Total() = %v, want %v", got, test.total)
			}
			if got := task.Busy(now); got != test.busy {
				t.Errorf("Busy() = %v, want %v", got, test.busy)
			}
			if got := task.Idle(now); got != test.idle {
				t.Errorf("Idle() = %v, want %v", got, test.idle)
			}
			if got := task.CompletedFor(now); got != test.completed {
				t.Errorf("CompletedFor() = %v, want %v", got, test.completed)
			}
		})
	}
}

func TestCompletedTasksEvictedAfterRetain(t *testing.T) {
	state := NewState(5 * time.Second)
	state.Apply(spawn(1, 2))
	refs := state.TakeNewTasks()

	state.Apply(instrument.Update{Now: epoch.Add(2 * time.Second), Tasks: instrument.TaskUpdate{
		StatsUpdate: map[uint64]instrument.Stats{1: {CreatedAt: epoch, DroppedAt: at(time.Second)}},
	}})
	if _, ok := refs[0].Upgrade(); !ok {
		t.Fatal("task evicted before the retention window elapsed")
	}
	if _, _, completed := state.Counts(); completed != 1 {
		t.Errorf("completed count = %d, want 1", completed)
	}

	state.Apply(instrument.Update{Now: epoch.Add(6 * time.Second)})
	if _, ok := refs[0].Upgrade(); ok {
		t.Error("completed task still resolves after the retention window")
	}
	if _, ok := refs[1].Upgrade(); !ok {
		t.Error("live task was evicted")
	}
}

func TestReusedIDDoesNotResolveOldRef(t *testing.T) {
	state := NewState(0)
	state.Apply(spawn(7))
	old := state.TakeNewTasks()[0]

	state.Apply(instrument.Update{Now: epoch, Tasks: instrument.TaskUpdate{
		StatsUpdate: map[uint64]instrument.Stats{7: {CreatedAt: epoch, DroppedAt: at(0)}},
	}})
	state.Apply(spawn(7))
	fresh := state.TakeNewTasks()[0]

	if _, ok := old.Upgrade(); ok {
		t.Error("ref to the evicted task resolved to its successor")
	}
	if _, ok := fresh.Upgrade(); !ok {
		t.Error("ref to the new task did not resolve")
	}
	if _, ok := (TaskRef{}).Upgrade(); ok {
		t.Error("zero TaskRef resolved")
	}
}

func TestTemporality(t *testing.T) {
	state := NewState(DefaultRetain)
	if state.Paused() {
		t.Error("new state reports paused")
	}
	state.SetTemporality(instrument.Paused)
	if !state.Paused() || state.Temporality() != instrument.Paused {
		t.Error("SetTemporality(Paused) not reflected")
	}
}

func TestSortByFromColumn(t *testing.T) {
	for column := range 8 {
		sortBy, ok := SortByFromColumn(column)
		if !ok {
			t.Errorf("SortByFromColumn(%d) failed", column)
			continue
		}
		if sortBy.Column() != column {
			t.Errorf("SortByFromColumn(%d).Column() = %d", column, sortBy.Column())
		}
	}
	for _, column := range []int{-1, 8, 9, 100} {
		if _, ok := SortByFromColumn(column); ok {
			t.Errorf("SortByFromColumn(%d) succeeded, want failure", column)
		}
	}
}

func TestSortByTotalIsStable(t *testing.T) {
	state := NewState(DefaultRetain)
	update := instrument.Update{Now: epoch, Tasks: instrument.TaskUpdate{StatsUpdate: map[uint64]instrument.Stats{}}}
	// Tasks 1..5 have totals 1s,5s,3s,2s,4s; task 6 ties with task 3.
	for id, total := range map[uint64]time.Duration{1: 1, 2: 5, 3: 3, 4: 2, 5: 4, 6: 3} {
		update.Tasks.NewTasks = append(update.Tasks.NewTasks, instrument.Task{ID: id})
		update.Tasks.StatsUpdate[id] = instrument.Stats{CreatedAt: epoch.Add(-total * time.Second)}
	}
	slices.SortFunc(update.Tasks.NewTasks, func(a, b instrument.Task) int { return int(a.ID) - int(b.ID) })
	state.Apply(update)
	refs := state.TakeNewTasks()

	SortByTotal.Sort(epoch, refs)
	if got := refIDs(refs); !slices.Equal(got, []uint64{1, 4, 3, 6, 5, 2}) {
		t.Errorf("sorted by total = %v, want [1 4 3 6 5 2]", got)
	}
	SortByTotal.Sort(epoch, refs)
	if got := refIDs(refs); !slices.Equal(got, []uint64{1, 4, 3, 6, 5, 2}) {
		t.Errorf("second sort = %v, want the same order", got)
	}
	SortByTID.Sort(epoch, refs)
	if got := refIDs(refs); !slices.Equal(got, []uint64{1, 2, 3, 4, 5, 6}) {
		t.Errorf("sorted by tid = %v", got)
	}
}

func TestSortPutsStaleRefsLast(t *testing.T) {
	state := NewState(0)
	state.Apply(spawn(1, 2, 3))
	refs := state.TakeNewTasks()
	state.Apply(instrument.Update{Now: epoch, Tasks: instrument.TaskUpdate{
		StatsUpdate: map[uint64]instrument.Stats{1: {CreatedAt: epoch, DroppedAt: at(0)}},
	}})

	SortByTID.Sort(epoch, refs)
	if got := refIDs(refs); !slices.Equal(got, []uint64{2, 3, 1}) {
		t.Errorf("order = %v, want [2 3 1]", got)
	}
}

func TestSortByStateAndStrings(t *testing.T) {
	state := NewState(DefaultRetain)
	state.Apply(instrument.Update{Now: epoch.Add(10 * time.Second), Tasks: instrument.TaskUpdate{
		NewTasks: []instrument.Task{
			{ID: 1, Name: "b", Target: "z"},
			{ID: 2, Name: "c", Target: "x"},
			{ID: 3, Name: "a", Target: "y"},
		},
		StatsUpdate: map[uint64]instrument.Stats{
			1: {CreatedAt: epoch, DroppedAt: at(9 * time.Second)},
			2: {CreatedAt: epoch},
			3: {CreatedAt: epoch, LastPollStarted: at(9 * time.Second)},
		},
	}})
	refs := state.TakeNewTasks()
	now := state.LastUpdatedAt()

	tests := []struct {
		sortBy SortBy
		want   []uint64
	}{
		{SortByState, []uint64{3, 2, 1}},
		{SortByName, []uint64{3, 1, 2}},
		{SortByTarget, []uint64{2, 3, 1}},
	}
	for _, test := range tests {
		test.sortBy.Sort(now, refs)
		if got := refIDs(refs); !slices.Equal(got, test.want) {
			t.Errorf("sort by %v = %v, want %v", test.sortBy, got, test.want)
		}
	}
}
