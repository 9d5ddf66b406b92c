// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package consoleui is the bubbletea program of the console.
//
// [Model] drives a connection manager from tea.Cmds: one command at a
// time waits in NextMessage and hands the frame back to Update, which
// applies it to the task registry and issues the next wait. Rendering
// is delegated to the task table view model ([taskview.List]) and, for
// a single task, to the detail view, which reads its own details stream
// through the same command pattern.
//
// Screen layout, top to bottom: the connection status line, the key
// help line, the task table or task details, and a line showing the
// most recent warning or error logged by background work.
//
// Log records from the connection manager reach the status bar through
// [TUILogHandler], since writing to stderr would corrupt the alternate
// screen.
package consoleui
