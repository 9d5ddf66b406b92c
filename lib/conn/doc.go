// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package conn maintains the console's connection to an instrumented
// process.
//
// A [Connection] is always in one of two states. Disconnected carries
// the backoff to wait before the next attempt (zero before the first
// attempt). Connected owns the client plus the open update and state
// streams. Every transport failure, on either stream or on a command,
// drops the whole connection back to Disconnected with the base
// backoff; consecutive failed attempts grow the backoff by one base
// step at a time up to the ceiling.
//
// [Connection.NextMessage] waits on both streams with no preference,
// connecting first if needed. Commands ([Connection.Pause],
// [Connection.Resume], [Connection.WatchDetails]) run through one
// retry wrapper: connection-level failures reconnect and retry, any
// other failure is reported to the caller.
//
// Configuration errors in the target ([instrument.ConfigError]) are
// returned from the first attempt and never retried.
package conn
