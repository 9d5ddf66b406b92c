// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"time"

	"github.com/hawkw/consolation/lib/instrument"
)

// DefaultRetain is how long completed tasks stay in the registry.
const DefaultRetain = 6 * time.Second

// State is the registry of known tasks plus the service-wide state
// carried by the two streams. It is not safe for concurrent use; the
// console mutates and reads it from its event loop only.
type State struct {
	tasks          map[uint64]*Task
	newTasks       []TaskRef
	nextGeneration uint64

	retain        time.Duration
	lastUpdatedAt time.Time
	droppedEvents uint64
	temporality   instrument.Temporality
}

// NewState returns an empty registry that keeps completed tasks for
// retain. A non-positive retain evicts completed tasks on the update
// that reports their completion.
func NewState(retain time.Duration) *State {
	return &State{
		tasks:       make(map[uint64]*Task),
		retain:      retain,
		temporality: instrument.Live,
	}
}

// Apply merges one update-stream frame: new tasks are registered,
// stats replace the previous stats of their task, and completed tasks
// past the retention window are evicted.
func (s *State) Apply(update instrument.Update) {
	if !update.Now.IsZero() {
		s.lastUpdatedAt = update.Now
	}

	for _, announced := range update.Tasks.NewTasks {
		if existing, ok := s.tasks[announced.ID]; ok {
			existing.setMetadata(announced)
			continue
		}
		s.nextGeneration++
		task := newTask(announced, s.nextGeneration)
		s.tasks[announced.ID] = task
		s.newTasks = append(s.newTasks, TaskRef{registry: s, id: task.ID, generation: task.generation})
	}

	for id, stats := range update.Tasks.StatsUpdate {
		if task, ok := s.tasks[id]; ok {
			task.stats = stats
		}
	}

	s.droppedEvents += update.Tasks.DroppedEvents
	s.evictCompleted(s.lastUpdatedAt)
}

func (s *State) evictCompleted(now time.Time) {
	for id, task := range s.tasks {
		if task.IsCompleted() && task.CompletedFor(now) >= s.retain {
			delete(s.tasks, id)
		}
	}
}

// TakeNewTasks returns refs to the tasks registered since the previous
// call, and forgets them.
func (s *State) TakeNewTasks() []TaskRef {
	taken := s.newTasks
	s.newTasks = nil
	return taken
}

// Get returns the live task with id.
func (s *State) Get(id uint64) (*Task, bool) {
	task, ok := s.tasks[id]
	return task, ok
}

// Ref returns a ref to the live task with id.
func (s *State) Ref(id uint64) (TaskRef, bool) {
	task, ok := s.tasks[id]
	if !ok {
		return TaskRef{}, false
	}
	return TaskRef{registry: s, id: id, generation: task.generation}, true
}

// Len is the number of registered tasks, completed ones included.
func (s *State) Len() int { return len(s.tasks) }

// Counts returns how many registered tasks are in each state.
func (s *State) Counts() (running, idle, completed int) {
	for _, task := range s.tasks {
		switch task.State() {
		case Running:
			running++
		case Idle:
			idle++
		case Completed:
			completed++
		}
	}
	return running, idle, completed
}

// LastUpdatedAt is the service clock reading of the latest update, or
// the zero time before the first one. The console measures all
// elapsed times against it.
func (s *State) LastUpdatedAt() time.Time { return s.lastUpdatedAt }

// DroppedEvents is the total number of events the service reported
// discarding.
func (s *State) DroppedEvents() uint64 { return s.droppedEvents }

// SetTemporality records a state-stream frame.
func (s *State) SetTemporality(temporality instrument.Temporality) {
	s.temporality = temporality
}

// Temporality is the last reported publishing mode.
func (s *State) Temporality() instrument.Temporality { return s.temporality }

// Paused reports whether the service said it stopped publishing.
func (s *State) Paused() bool { return s.temporality == instrument.Paused }

// TaskRef is a non-owning handle to a task in a State.
type TaskRef struct {
	registry   *State
	id         uint64
	generation uint64
}

// ID is the id of the referenced task, whether or not it still exists.
func (r TaskRef) ID() uint64 { return r.id }

// Upgrade resolves the ref. It fails once the task has been evicted,
// including when its id has since been reused by another task.
func (r TaskRef) Upgrade() (*Task, bool) {
	if r.registry == nil {
		return nil, false
	}
	task, ok := r.registry.tasks[r.id]
	if !ok || task.generation != r.generation {
		return nil, false
	}
	return task, true
}
