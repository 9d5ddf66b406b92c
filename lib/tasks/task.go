// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"strings"
	"time"

	"github.com/hawkw/consolation/lib/instrument"
)

// TaskState is the lifecycle state of a task, in sort order.
type TaskState int

const (
	Running TaskState = iota
	Idle
	Completed
)

func (s TaskState) String() string {
	switch s {
	case Running:
		return "running"
	case Idle:
		return "idle"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// Task is the registry's record of one task: the metadata announced at
// spawn plus the most recent stats.
type Task struct {
	ID       uint64
	Name     string
	Target   string
	Kind     string
	Location string
	Fields   []instrument.Field

	generation      uint64
	stats           instrument.Stats
	formattedFields string
}

func newTask(announced instrument.Task, generation uint64) *Task {
	task := &Task{generation: generation}
	task.setMetadata(announced)
	return task
}

func (t *Task) setMetadata(announced instrument.Task) {
	t.ID = announced.ID
	t.Name = announced.Name
	t.Target = announced.Target
	t.Kind = announced.Kind
	t.Location = announced.Location
	t.Fields = announced.Fields

	parts := make([]string, len(announced.Fields))
	for i, field := range announced.Fields {
		parts[i] = field.Name + "=" + field.Value
	}
	t.formattedFields = strings.Join(parts, " ")
}

// Stats returns the most recent stats received for the task.
func (t *Task) Stats() instrument.Stats { return t.stats }

// State reports whether the task is inside a poll, waiting, or done.
func (t *Task) State() TaskState {
	switch {
	case t.stats.DroppedAt != nil:
		return Completed
	case t.stats.LastPollStarted != nil &&
		(t.stats.LastPollEnded == nil || t.stats.LastPollStarted.After(*t.stats.LastPollEnded)):
		return Running
	default:
		return Idle
	}
}

// IsCompleted reports whether the task has finished.
func (t *Task) IsCompleted() bool { return t.stats.DroppedAt != nil }

// Total is the task's lifetime: from creation until completion, or
// until now for a live task.
func (t *Task) Total(now time.Time) time.Duration {
	if t.stats.CreatedAt.IsZero() {
		return 0
	}
	end := now
	if t.stats.DroppedAt != nil {
		end = *t.stats.DroppedAt
	}
	return max(end.Sub(t.stats.CreatedAt), 0)
}

// Busy is the time spent inside polls, including the poll in progress.
func (t *Task) Busy(now time.Time) time.Duration {
	busy := t.stats.Busy
	if t.State() == Running {
		busy += max(now.Sub(*t.stats.LastPollStarted), 0)
	}
	return busy
}

// Idle is the part of Total not spent inside polls.
func (t *Task) Idle(now time.Time) time.Duration {
	return max(t.Total(now)-t.Busy(now), 0)
}

// CompletedFor is how long ago the task finished; zero for live tasks.
func (t *Task) CompletedFor(now time.Time) time.Duration {
	if t.stats.DroppedAt == nil {
		return 0
	}
	return max(now.Sub(*t.stats.DroppedAt), 0)
}

// Polls is the number of completed polls.
func (t *Task) Polls() uint64 { return t.stats.Polls }

// Wakes is the number of times the task was woken.
func (t *Task) Wakes() uint64 { return t.stats.Wakes }

// SelfWakes is the number of times the task woke itself.
func (t *Task) SelfWakes() uint64 { return t.stats.SelfWakes }

// FormattedFields renders the spawn fields as "name=value" pairs
// separated by spaces.
func (t *Task) FormattedFields() string { return t.formattedFields }
