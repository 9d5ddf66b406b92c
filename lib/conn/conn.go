// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hawkw/consolation/lib/clock"
	"github.com/hawkw/consolation/lib/instrument"
)

// Backoff defaults.
const (
	DefaultBaseBackoff = 500 * time.Millisecond
	DefaultMaxBackoff  = 5 * time.Second
)

// ErrClosed is returned by operations on a closed Connection.
var ErrClosed = errors.New("connection closed")

// Options configures a Connection. Zero values select defaults.
type Options struct {
	Clock       clock.Clock
	Logger      *slog.Logger
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Message is a value received from one of the two streams: either an
// [UpdateMessage] or a [StateMessage].
type Message interface {
	isMessage()
}

// UpdateMessage carries one frame of the update stream.
type UpdateMessage struct {
	Update instrument.Update
}

// StateMessage carries one frame of the state stream.
type StateMessage struct {
	State instrument.State
}

func (UpdateMessage) isMessage() {}
func (StateMessage) isMessage()  {}

// Connection is the connection manager for one target. Safe for
// concurrent use, though NextMessage is meant to have a single caller.
type Connection struct {
	target      instrument.Target
	clock       clock.Clock
	logger      *slog.Logger
	baseBackoff time.Duration
	maxBackoff  time.Duration

	// connectSlot serializes connection attempts so a command and
	// NextMessage never dial in parallel.
	connectSlot chan struct{}
	closing     chan struct{}

	mu     sync.Mutex
	state  state
	closed bool
}

// New returns a Connection in the never-connected state. Nothing is
// dialed until the first NextMessage or command.
func New(target instrument.Target, options Options) *Connection {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	if options.BaseBackoff <= 0 {
		options.BaseBackoff = DefaultBaseBackoff
	}
	if options.MaxBackoff < options.BaseBackoff {
		options.MaxBackoff = max(DefaultMaxBackoff, options.BaseBackoff)
	}
	return &Connection{
		target:      target,
		clock:       options.Clock,
		logger:      options.Logger.With("target", target.String()),
		baseBackoff: options.BaseBackoff,
		maxBackoff:  options.MaxBackoff,
		connectSlot: make(chan struct{}, 1),
		closing:     make(chan struct{}),
		state:       disconnected{},
	}
}

// Target returns the address this connection dials.
func (c *Connection) Target() instrument.Target { return c.target }

// NextMessage returns the next frame from either stream, connecting or
// reconnecting as needed. Transport failures are absorbed as state
// transitions; the only errors returned are ctx's, a configuration
// error in the target, and ErrClosed.
func (c *Connection) NextMessage(ctx context.Context) (Message, error) {
	for {
		current, err := c.connect(ctx)
		if err != nil {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case received := <-current.updates:
			if received.err != nil {
				c.streamFailed(current, "update", received.err)
				continue
			}
			return UpdateMessage{Update: received.value}, nil
		case received := <-current.states:
			if received.err != nil {
				c.streamFailed(current, "state", received.err)
				continue
			}
			return StateMessage{State: received.value}, nil
		case <-current.done:
			// A command failure or Close tore the connection down.
		}
	}
}

func (c *Connection) streamFailed(current *connected, stream string, err error) {
	if errors.Is(err, io.EOF) {
		c.logger.Error(stream + " stream closed by server")
	} else {
		c.logger.Warn("error from "+stream+" stream", "error", err)
	}
	c.disconnect(current, c.baseBackoff)
}

// Pause asks the service to stop publishing. Failures are logged, not
// returned: pause is a best-effort control.
func (c *Connection) Pause(ctx context.Context) {
	c.sendControl(ctx, instrument.ActionPause)
}

// Resume asks a paused service to publish again. Failures are logged.
func (c *Connection) Resume(ctx context.Context) {
	c.sendControl(ctx, instrument.ActionResume)
}

func (c *Connection) sendControl(ctx context.Context, action string) {
	_, err := withClient(ctx, c, action, func(ctx context.Context, client *instrument.Client) (struct{}, error) {
		return struct{}{}, client.Call(ctx, action, nil, nil)
	})
	if err != nil {
		c.logger.Error("rpc error sending "+action+" command", "error", err)
	}
}

// WatchDetails opens the details stream for one task. A rejection by
// the service (for example an unknown id) is returned as
// [*instrument.ServiceError]. The caller owns the stream and must
// close it.
func (c *Connection) WatchDetails(ctx context.Context, id uint64) (*instrument.Stream[instrument.TaskDetails], error) {
	return withClient(ctx, c, instrument.ActionWatchTaskDetails, func(ctx context.Context, client *instrument.Client) (*instrument.Stream[instrument.TaskDetails], error) {
		return instrument.OpenStream[instrument.TaskDetails](ctx, client, instrument.ActionWatchTaskDetails, map[string]any{"id": id})
	})
}

// withClient runs call against the current client, connecting first
// if needed. A connection-level failure drops the connection and the
// call is retried once a new connection is up; any other outcome is
// returned as is.
func withClient[T any](ctx context.Context, c *Connection, action string, call func(context.Context, *instrument.Client) (T, error)) (T, error) {
	var zero T
	for {
		current, err := c.connect(ctx)
		if err != nil {
			return zero, err
		}
		result, err := call(ctx, current.client)
		if err == nil {
			return result, nil
		}
		if !instrument.IsConnectionError(err) || ctx.Err() != nil {
			return zero, err
		}
		c.logger.Warn("connection error sending command", "action", action, "error", err)
		c.disconnect(current, c.baseBackoff)
	}
}

// connect returns the live connection, establishing one if the manager
// is disconnected. Each failed attempt waits out the current backoff
// before the next.
func (c *Connection) connect(ctx context.Context) (*connected, error) {
	select {
	case c.connectSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closing:
		return nil, ErrClosed
	}
	defer func() { <-c.connectSlot }()

	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		var backoff time.Duration
		switch current := c.state.(type) {
		case *connected:
			c.mu.Unlock()
			return current, nil
		case disconnected:
			backoff = current.backoff
		}
		c.mu.Unlock()

		if backoff == 0 {
			c.logger.Debug("connecting")
		} else {
			c.logger.Debug("reconnecting", "reconnect_in", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-c.closing:
				return nil, ErrClosed
			case <-c.clock.After(backoff):
			}
		}

		established, err := c.establish(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var configErr *instrument.ConfigError
			if errors.As(err, &configErr) {
				return nil, err
			}
			c.logger.Warn("error connecting", "error", err)
			c.setState(disconnected{backoff: min(backoff+c.baseBackoff, c.maxBackoff)})
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			established.release()
			return nil, ErrClosed
		}
		c.state = established
		c.mu.Unlock()
		c.logger.Debug("connected successfully", "server", established.client.Server().Server)
		return established, nil
	}
}

// establish performs the handshake and opens both streams. Either
// stream failing to open fails the whole attempt.
func (c *Connection) establish(ctx context.Context) (*connected, error) {
	client, err := instrument.Connect(ctx, c.target)
	if err != nil {
		return nil, err
	}
	updates, err := instrument.OpenStream[instrument.Update](ctx, client, instrument.ActionWatchUpdates, nil)
	if err != nil {
		return nil, fmt.Errorf("opening update stream: %w", err)
	}
	states, err := instrument.OpenStream[instrument.State](ctx, client, instrument.ActionWatchState, nil)
	if err != nil {
		updates.Close()
		return nil, fmt.Errorf("opening state stream: %w", err)
	}
	return newConnected(client, updates, states), nil
}

func (c *Connection) setState(next state) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = next
}

// disconnect moves from the given connection to Disconnected(backoff)
// and releases it. A connection that was already replaced is left
// alone, so two failures reported for one connection cause a single
// transition.
func (c *Connection) disconnect(current *connected, backoff time.Duration) {
	c.mu.Lock()
	if c.state != state(current) {
		c.mu.Unlock()
		return
	}
	c.state = disconnected{backoff: backoff}
	c.mu.Unlock()
	current.release()
}

// Close releases the streams and the client. Pending and future calls
// return ErrClosed. Safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closing)
	previous := c.state
	c.state = disconnected{}
	c.mu.Unlock()

	if current, ok := previous.(*connected); ok {
		current.release()
	}
	return nil
}
