// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package conn

import (
	"fmt"
	"sync"
	"time"

	"github.com/hawkw/consolation/lib/instrument"
)

// state is either *connected or disconnected.
type state interface {
	isState()
}

// disconnected waits backoff before the next attempt. Zero means no
// attempt has been made yet.
type disconnected struct {
	backoff time.Duration
}

// connected owns the client and both streams. Each stream is drained
// by its own goroutine into its own channel so NextMessage can select
// over both.
type connected struct {
	client  *instrument.Client
	updates chan received[instrument.Update]
	states  chan received[instrument.State]

	// done is closed by release; it stops the pumps and wakes
	// NextMessage.
	done         chan struct{}
	releaseOnce  sync.Once
	closeStreams func()
}

func (disconnected) isState() {}
func (*connected) isState()   {}

type received[T any] struct {
	value T
	err   error
}

func newConnected(client *instrument.Client, updates *instrument.Stream[instrument.Update], states *instrument.Stream[instrument.State]) *connected {
	current := &connected{
		client:  client,
		updates: make(chan received[instrument.Update]),
		states:  make(chan received[instrument.State]),
		done:    make(chan struct{}),
		closeStreams: func() {
			updates.Close()
			states.Close()
		},
	}
	go pump(updates, current.updates, current.done)
	go pump(states, current.states, current.done)
	return current
}

// pump forwards frames until the stream fails or the connection is
// released. The terminal error is forwarded too.
func pump[T any](stream *instrument.Stream[T], out chan<- received[T], done <-chan struct{}) {
	for {
		value, err := stream.Recv()
		select {
		case out <- received[T]{value: value, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// release closes both streams, which unblocks the pumps.
func (c *connected) release() {
	c.releaseOnce.Do(func() {
		close(c.done)
		c.closeStreams()
	})
}

// Status is a snapshot of the connection state for display.
type Status struct {
	Connected bool
	// Backoff is the wait before the next attempt while disconnected.
	// Zero while disconnected means the first attempt is in progress.
	Backoff time.Duration
}

// String renders the one-line status: "connected", "connecting", or
// "reconnecting in <backoff>".
func (s Status) String() string {
	switch {
	case s.Connected:
		return "connected"
	case s.Backoff == 0:
		return "connecting"
	default:
		return fmt.Sprintf("reconnecting in %v", s.Backoff)
	}
}

// Status projects the current state. It has no side effects.
func (c *Connection) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch current := c.state.(type) {
	case *connected:
		return Status{Connected: true}
	case disconnected:
		return Status{Backoff: current.backoff}
	}
	return Status{}
}
