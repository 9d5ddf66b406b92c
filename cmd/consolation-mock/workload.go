// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"maps"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"github.com/hawkw/consolation/lib/instrument"
)

// completedLinger is how long the workload keeps a completed task so
// detail streams and late subscribers still see it.
const completedLinger = 30 * time.Second

// taskKind is a template for spawned tasks.
type taskKind struct {
	name     string
	target   string
	location string
	// lifetime is the number of polls before the task completes; zero
	// for tasks that run until the process exits.
	lifetime int
	// pollTime is the typical duration of one poll.
	pollTime time.Duration
	// activity is the chance per step that an idle task is woken.
	activity float64
}

var taskKinds = []taskKind{
	{name: "accept-loop", target: "server::listener", location: "src/server.rs:41:9", activity: 0.3, pollTime: 40 * time.Microsecond},
	{name: "conn-handler", target: "server::conn", location: "src/conn.rs:112:13", lifetime: 40, activity: 0.7, pollTime: 250 * time.Microsecond},
	{name: "", target: "hyper::proto::h1", location: "hyper/src/proto/h1/dispatch.rs:88:5", lifetime: 25, activity: 0.8, pollTime: 120 * time.Microsecond},
	{name: "flush", target: "store::wal", location: "src/wal.rs:88:5", lifetime: 8, activity: 0.4, pollTime: 3 * time.Millisecond},
	{name: "compaction", target: "store::lsm", location: "src/lsm/compact.rs:207:17", lifetime: 120, activity: 0.9, pollTime: 12 * time.Millisecond},
	{name: "heartbeat", target: "cluster::gossip", location: "src/gossip.rs:64:5", activity: 0.1, pollTime: 15 * time.Microsecond},
	{name: "metrics-exporter", target: "telemetry", location: "src/telemetry.rs:30:9", activity: 0.05, pollTime: 800 * time.Microsecond},
}

type mockTask struct {
	kind      *taskKind
	meta      instrument.Task
	stats     instrument.Stats
	pollTimes instrument.PollHistogram
}

func (t *mockTask) running() bool {
	return t.stats.LastPollStarted != nil &&
		(t.stats.LastPollEnded == nil || t.stats.LastPollStarted.After(*t.stats.LastPollEnded))
}

// workload simulates the tasks of an instrumented process. It is not
// safe for concurrent use; mockService serializes access.
type workload struct {
	random *rand.Rand
	nextID uint64
	tasks  map[uint64]*mockTask

	// newTasks and dirty accumulate changes since the last takeUpdate.
	newTasks []instrument.Task
	dirty    map[uint64]struct{}

	// spawnDebt carries fractional spawns between steps.
	spawnDebt float64
	maxTasks  int
}

func newWorkload(seed uint64, maxTasks int) *workload {
	return &workload{
		random:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		tasks:    make(map[uint64]*mockTask),
		dirty:    make(map[uint64]struct{}),
		maxTasks: maxTasks,
	}
}

// spawn creates one task of a randomly chosen kind.
func (w *workload) spawn(now time.Time) *mockTask {
	kind := &taskKinds[w.random.IntN(len(taskKinds))]
	w.nextID++
	task := &mockTask{
		kind: kind,
		meta: instrument.Task{
			ID:       w.nextID,
			Name:     kind.name,
			Target:   kind.target,
			Kind:     "task",
			Location: kind.location,
			Fields: []instrument.Field{
				{Name: "worker", Value: strconv.Itoa(w.random.IntN(8))},
			},
		},
		stats:     instrument.Stats{CreatedAt: now},
		pollTimes: instrument.NewPollHistogram(instrument.DefaultPollBounds()),
	}
	if kind.lifetime > 0 {
		task.meta.Fields = append(task.meta.Fields, instrument.Field{
			Name:  "request",
			Value: strconv.FormatUint(w.random.Uint64N(1<<20), 16),
		})
	}
	w.tasks[task.meta.ID] = task
	w.newTasks = append(w.newTasks, task.meta)
	w.dirty[task.meta.ID] = struct{}{}
	return task
}

// step advances the simulation to now: spawns spawnRate*elapsed new
// tasks, finishes polls in progress, wakes idle tasks, completes tasks
// that reached their lifetime, and forgets tasks completed long ago.
func (w *workload) step(now time.Time, elapsed time.Duration, spawnRate float64) {
	w.spawnDebt += spawnRate * elapsed.Seconds()
	for w.spawnDebt >= 1 {
		w.spawnDebt--
		if len(w.tasks) < w.maxTasks {
			w.spawn(now)
		}
	}

	// Visit tasks in id order so a seed reproduces the same workload.
	for _, id := range slices.Sorted(maps.Keys(w.tasks)) {
		task := w.tasks[id]
		if task.stats.DroppedAt != nil {
			if now.Sub(*task.stats.DroppedAt) >= completedLinger {
				delete(w.tasks, id)
			}
			continue
		}

		switch {
		case task.running():
			w.endPoll(task, now)
		case w.random.Float64() < task.kind.activity:
			w.startPoll(task, now)
		default:
			continue
		}
		w.dirty[id] = struct{}{}
	}
}

func (w *workload) startPoll(task *mockTask, now time.Time) {
	task.stats.Wakes++
	if w.random.IntN(5) == 0 {
		task.stats.SelfWakes++
	}
	// Back-date the start so the poll has a plausible duration by the
	// time the next step ends it.
	jitter := time.Duration(w.random.Int64N(int64(task.kind.pollTime)*2) + 1)
	started := now.Add(-jitter)
	if task.stats.LastPollEnded != nil && !started.After(*task.stats.LastPollEnded) {
		started = now
	}
	task.stats.LastPollStarted = &started
}

func (w *workload) endPoll(task *mockTask, now time.Time) {
	started := *task.stats.LastPollStarted
	ended := started.Add(time.Duration(w.random.Int64N(int64(task.kind.pollTime)*2) + 1))
	if ended.After(now) {
		ended = now
	}
	duration := ended.Sub(started)
	task.stats.LastPollEnded = &ended
	task.stats.Busy += duration
	task.stats.Polls++
	task.pollTimes.Record(duration)

	if task.kind.lifetime > 0 && task.stats.Polls >= uint64(task.kind.lifetime) {
		task.stats.DroppedAt = &ended
	}
}

// takeUpdate returns the changes since the previous call.
func (w *workload) takeUpdate(now time.Time) instrument.Update {
	update := instrument.Update{
		Now: now,
		Tasks: instrument.TaskUpdate{
			NewTasks:    w.newTasks,
			StatsUpdate: make(map[uint64]instrument.Stats, len(w.dirty)),
		},
	}
	for id := range w.dirty {
		if task, ok := w.tasks[id]; ok {
			update.Tasks.StatsUpdate[id] = task.stats
		}
	}
	w.newTasks = nil
	clear(w.dirty)
	return update
}

// snapshot describes every known task, for new subscribers.
func (w *workload) snapshot(now time.Time) instrument.Update {
	update := instrument.Update{
		Now: now,
		Tasks: instrument.TaskUpdate{
			StatsUpdate: make(map[uint64]instrument.Stats, len(w.tasks)),
		},
	}
	for id, task := range w.tasks {
		update.Tasks.NewTasks = append(update.Tasks.NewTasks, task.meta)
		update.Tasks.StatsUpdate[id] = task.stats
	}
	return update
}

// details returns the poll-time histogram of a task.
func (w *workload) details(id uint64, now time.Time) (instrument.TaskDetails, bool) {
	task, ok := w.tasks[id]
	if !ok {
		return instrument.TaskDetails{}, false
	}
	return instrument.TaskDetails{
		TaskID:    id,
		Now:       now,
		PollTimes: clonePollHistogram(task.pollTimes),
	}, true
}

func clonePollHistogram(histogram instrument.PollHistogram) instrument.PollHistogram {
	histogram.Buckets = append([]instrument.HistogramBucket(nil), histogram.Buckets...)
	return histogram
}
