// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the console and mock
// service binaries. It holds the raw I/O that happens outside any
// structured logger: reporting an error from run() after the terminal
// has been restored, and exiting with the right status.
package process
