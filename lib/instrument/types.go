// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instrument

import (
	"time"

	"github.com/hawkw/consolation/lib/codec"
)

// ProtocolVersion is exchanged in the handshake. Peers with different
// versions refuse each other.
const ProtocolVersion = 1

// Action names understood by the instrumentation service.
const (
	ActionHandshake        = "handshake"
	ActionWatchUpdates     = "watch-updates"
	ActionWatchState       = "watch-state"
	ActionWatchTaskDetails = "watch-task-details"
	ActionPause            = "pause"
	ActionResume           = "resume"
)

// Response is the envelope of every unary reply and the header of every
// stream.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// Hello is the handshake reply.
type Hello struct {
	Protocol int    `cbor:"protocol"`
	Server   string `cbor:"server"`
}

// Update is one frame of the update stream: everything that changed
// since the previous frame.
type Update struct {
	// Now is the server's clock when the update was assembled. All
	// elapsed-time figures in the console are computed against the
	// Now of the most recent update, not the local clock.
	Now   time.Time  `cbor:"now"`
	Tasks TaskUpdate `cbor:"tasks"`
}

// TaskUpdate carries task creations and stat changes.
type TaskUpdate struct {
	NewTasks    []Task           `cbor:"new_tasks,omitempty"`
	StatsUpdate map[uint64]Stats `cbor:"stats_update,omitempty"`
	// DroppedEvents counts instrumentation events the server discarded
	// because its buffers were full. Non-zero means the view is lossy.
	DroppedEvents uint64 `cbor:"dropped_events,omitempty"`
}

// Task is the static description of a task, sent once when it is
// first seen.
type Task struct {
	ID       uint64  `cbor:"id"`
	Name     string  `cbor:"name,omitempty"`
	Target   string  `cbor:"target"`
	Kind     string  `cbor:"kind,omitempty"`
	Location string  `cbor:"location,omitempty"`
	Fields   []Field `cbor:"fields,omitempty"`
}

// Field is a key/value annotation attached to a task at spawn.
type Field struct {
	Name  string `cbor:"name"`
	Value string `cbor:"value"`
}

// Stats is the latest set of counters for one task. Each update
// replaces the previous Stats for that task wholesale.
type Stats struct {
	CreatedAt time.Time  `cbor:"created_at"`
	DroppedAt *time.Time `cbor:"dropped_at,omitempty"`

	// Busy is the total time spent in completed polls.
	Busy            time.Duration `cbor:"busy"`
	LastPollStarted *time.Time    `cbor:"last_poll_started,omitempty"`
	LastPollEnded   *time.Time    `cbor:"last_poll_ended,omitempty"`

	Polls     uint64 `cbor:"polls"`
	Wakes     uint64 `cbor:"wakes"`
	SelfWakes uint64 `cbor:"self_wakes"`
}

// Temporality reports whether the service is publishing live data.
type Temporality string

const (
	Live   Temporality = "live"
	Paused Temporality = "paused"
)

// State is one frame of the state stream.
type State struct {
	Temporality Temporality `cbor:"temporality"`
}

// TaskDetails is one frame of a task-details stream.
type TaskDetails struct {
	TaskID    uint64        `cbor:"task_id"`
	Now       time.Time     `cbor:"now"`
	PollTimes PollHistogram `cbor:"poll_times"`
}

// TaskDetailsRequest is the field set of watch-task-details.
type TaskDetailsRequest struct {
	ID uint64 `cbor:"id"`
}
