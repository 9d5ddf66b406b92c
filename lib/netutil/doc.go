// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies errors produced by socket I/O so callers
// can tell a broken connection apart from everything else.
package netutil
