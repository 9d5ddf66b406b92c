// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by the console's tests.
//
// [SocketPath] returns a short Unix socket path. Socket paths are
// limited to 108 bytes (sun_path), which nested t.TempDir() paths can
// exceed, so sockets live in a fresh directory directly under /tmp.
//
// [RequireReceive] and [RequireClosed] wrap the "select with a timeout"
// pattern so tests never hang on a channel that is never fed. They are
// the only place tests wait on the wall clock.
//
// Helpers call t.Fatalf on failure.
package testutil
