// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the single CBOR configuration used on the wire
// between the console and an instrumented process.
//
// Every request, response envelope, and stream frame exchanged by
// [github.com/hawkw/consolation/lib/instrument] goes through this
// package so that both ends agree on encoding details: deterministic
// map ordering, RFC 3339 timestamps with nanosecond precision (tagged),
// and map[string]any as the decoding target for untyped maps.
//
// Consumers import only this package, never fxamacker/cbor directly.
package codec
