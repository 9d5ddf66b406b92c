// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package instrument is the remote service contract between the console
// and an instrumented process: where the service lives ([Target]), how
// the console reaches it ([Connect], [Client]), what travels over the
// wire ([Update], [State], [TaskDetails]), and a [Server] that speaks
// the same protocol for mocks and tests.
//
// # Protocol
//
// Every call opens its own stream connection (TCP or Unix domain
// socket) to the target and writes one CBOR map holding an "action"
// plus action-specific fields. The server answers with a [Response]
// envelope. For unary actions the envelope carries the result and the
// connection closes. For streaming actions the envelope is a header:
// ok=false rejects the stream, ok=true is followed by CBOR frames until
// either side closes the connection.
//
//	handshake            unary   -> Hello
//	watch-updates        stream  -> Update...
//	watch-state          stream  -> State...
//	watch-task-details   stream  -> TaskDetails...   (field "id")
//	pause, resume        unary   -> (empty)
//
// # Errors
//
// Calls fail with one of three kinds of error:
//
//   - [*ConfigError]: the target itself is unusable. Retrying cannot help.
//   - [*TransportError]: the connection could not be made or broke
//     mid-call. [IsConnectionError] reports this class.
//   - [*ServiceError]: the server understood the request and refused it.
package instrument
