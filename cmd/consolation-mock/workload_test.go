// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"reflect"
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestWorkloadIsDeterministic(t *testing.T) {
	run := func() []uint64 {
		w := newWorkload(42, 100)
		var polls []uint64
		now := epoch
		for range 20 {
			now = now.Add(time.Second)
			w.step(now, time.Second, 3)
		}
		update := w.takeUpdate(now)
		for id := uint64(1); id <= uint64(len(update.Tasks.NewTasks)); id++ {
			polls = append(polls, update.Tasks.StatsUpdate[id].Polls)
		}
		return polls
	}

	first, second := run(), run()
	if len(first) != 60 {
		t.Fatalf("spawned %d tasks in 20s at 3/s, want 60", len(first))
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same seed produced different workloads:\n%v\n%v", first, second)
	}
}

func TestWorkloadSpawnRate(t *testing.T) {
	w := newWorkload(1, 100)
	w.step(epoch.Add(250*time.Millisecond), 250*time.Millisecond, 2)
	if len(w.tasks) != 0 {
		t.Errorf("spawned %d tasks after half a spawn interval", len(w.tasks))
	}
	w.step(epoch.Add(500*time.Millisecond), 250*time.Millisecond, 2)
	if len(w.tasks) != 1 {
		t.Errorf("spawned %d tasks after one spawn interval, want 1", len(w.tasks))
	}

	capped := newWorkload(1, 5)
	capped.step(epoch.Add(10*time.Second), 10*time.Second, 10)
	if len(capped.tasks) != 5 {
		t.Errorf("%d tasks alive with a cap of 5", len(capped.tasks))
	}
}

func TestWorkloadTaskLifecycle(t *testing.T) {
	w := newWorkload(7, 10)
	task := w.spawn(epoch)
	task.kind = &taskKind{name: "oneshot", lifetime: 1, activity: 1, pollTime: time.Millisecond}
	w.takeUpdate(epoch)

	w.step(epoch.Add(time.Second), time.Second, 0)
	if !task.running() {
		t.Fatal("fully active task was not polled")
	}
	if task.stats.Wakes != 1 {
		t.Errorf("wakes = %d after one wake", task.stats.Wakes)
	}

	w.step(epoch.Add(2*time.Second), time.Second, 0)
	if task.running() || task.stats.Polls != 1 {
		t.Fatalf("poll not finished: running=%v polls=%d", task.running(), task.stats.Polls)
	}
	if task.stats.DroppedAt == nil {
		t.Fatal("task with a one-poll lifetime did not complete")
	}
	if task.stats.Busy <= 0 || task.stats.Busy > 2*time.Millisecond {
		t.Errorf("busy = %s for one poll of about 1ms", task.stats.Busy)
	}

	update := w.takeUpdate(epoch.Add(2 * time.Second))
	if len(update.Tasks.NewTasks) != 0 {
		t.Errorf("task announced twice: %+v", update.Tasks.NewTasks)
	}
	if stats, ok := update.Tasks.StatsUpdate[task.meta.ID]; !ok || stats.DroppedAt == nil {
		t.Error("completion not published")
	}

	details, ok := w.details(task.meta.ID, epoch.Add(2*time.Second))
	if !ok || details.PollTimes.Count() != 1 {
		t.Errorf("details = %+v, %v; want one recorded poll", details, ok)
	}

	w.step(epoch.Add(2*time.Second+completedLinger), completedLinger, 0)
	if _, ok := w.details(task.meta.ID, epoch); ok {
		t.Error("completed task still known after it lingered")
	}
}

func TestSnapshotDescribesEveryTask(t *testing.T) {
	w := newWorkload(3, 10)
	for range 4 {
		w.spawn(epoch)
	}
	w.takeUpdate(epoch)

	snapshot := w.snapshot(epoch)
	if len(snapshot.Tasks.NewTasks) != 4 || len(snapshot.Tasks.StatsUpdate) != 4 {
		t.Errorf("snapshot has %d tasks and %d stats, want 4 and 4",
			len(snapshot.Tasks.NewTasks), len(snapshot.Tasks.StatsUpdate))
	}

	drained := w.takeUpdate(epoch)
	if len(drained.Tasks.NewTasks) != 0 || len(drained.Tasks.StatsUpdate) != 0 {
		t.Error("snapshot consumed or produced pending changes")
	}
}
