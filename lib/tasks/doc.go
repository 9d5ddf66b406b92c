// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tasks is the console's registry of tasks reported by the
// instrumented process.
//
// [State] owns every [Task] and is updated by applying update-stream
// frames. Views never hold a *Task across frames: they hold a
// [TaskRef], a registry/id/generation triple that resolves to the task
// only while it is still registered. Completed tasks are evicted once
// they have been completed for longer than the retention window, which
// turns their refs stale; a task id reused after eviction gets a new
// generation, so an old ref never resolves to the new task.
//
// [SortBy] enumerates the sortable columns of the task table and maps
// one-to-one onto the first eight column indices.
package tasks
