// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for everything in the console that
// waits: reconnect backoff, redraw ticks, and the mock service's
// publish loop.
//
// Production code receives [Real]. Tests receive a [FakeClock] whose
// time moves only when the test calls Advance, which makes backoff
// sequences observable step by step:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	connection := conn.New(target, conn.Options{Clock: fake})
//	go connection.NextMessage(ctx)
//	fake.WaitForTimers(1)            // the manager is sleeping on its backoff
//	fake.Advance(500 * time.Millisecond)
package clock
