// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instrument

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/hawkw/consolation/lib/codec"
)

// Stream is the receiving end of a server-streamed call. Recv must be
// called from one goroutine at a time; Close may be called from any
// goroutine and unblocks a pending Recv.
type Stream[T any] struct {
	action    string
	conn      net.Conn
	decoder   *codec.Decoder
	closeOnce sync.Once
}

// OpenStream starts a streaming action. ctx bounds only the opening:
// dialing, sending the request, and reading the stream header. Once
// OpenStream returns, the stream lives until Close or until the server
// ends it.
func OpenStream[T any](ctx context.Context, client *Client, action string, fields map[string]any) (*Stream[T], error) {
	conn, err := client.dial(ctx)
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	opened, err := func() (*Stream[T], error) {
		if err := codec.NewEncoder(conn).Encode(buildRequest(action, fields)); err != nil {
			return nil, transportOrProtocol(fmt.Sprintf("writing %s request", action), err)
		}
		// The header and the frames after it share one decoder: the
		// decoder may read ahead past the header.
		decoder := codec.NewDecoder(conn)
		var header Response
		if err := decoder.Decode(&header); err != nil {
			return nil, transportOrProtocol(fmt.Sprintf("reading %s header", action), err)
		}
		if !header.OK {
			return nil, &ServiceError{Action: action, Message: header.Error}
		}
		return &Stream[T]{action: action, conn: conn, decoder: decoder}, nil
	}()

	if !stop() {
		// ctx fired while opening and the connection is gone.
		conn.Close()
		if err == nil {
			err = &TransportError{Op: "opening " + action, Err: context.Cause(ctx)}
		}
		return nil, err
	}
	if err != nil {
		conn.Close()
		return nil, err
	}
	return opened, nil
}

// Recv blocks for the next frame. It returns io.EOF when the server
// ends the stream cleanly and a [*TransportError] when the connection
// breaks or Close is called.
func (s *Stream[T]) Recv() (T, error) {
	var frame T
	if err := s.decoder.Decode(&frame); err != nil {
		var zero T
		if errors.Is(err, io.EOF) {
			return zero, io.EOF
		}
		return zero, transportOrProtocol(fmt.Sprintf("reading %s frame", s.action), err)
	}
	return frame, nil
}

// Close ends the stream and releases its connection. Safe to call more
// than once.
func (s *Stream[T]) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}
