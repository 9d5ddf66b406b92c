// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instrument

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/hawkw/consolation/lib/codec"
)

// ActionFunc handles a unary action. raw is the full CBOR request,
// including the "action" field. A nil result produces {ok: true}.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// StreamFunc handles a streaming action. It sends frames through
// stream until it returns. ctx is cancelled when the client closes its
// end of the connection or the server shuts down. An error returned
// before the stream is opened becomes an ok=false header; after that
// the connection is simply closed. The stream opens on the first Send,
// or explicitly through [ServerStream.Open] for handlers that validate
// the request and then wait before their first frame.
type StreamFunc func(ctx context.Context, raw []byte, stream *ServerStream) error

// Server serves the instrumentation protocol on a TCP or Unix socket.
// Each connection carries one request: a unary action gets one
// response, a streaming action gets a header followed by frames until
// either side closes.
type Server struct {
	name     string
	handlers map[string]ActionFunc
	streams  map[string]StreamFunc
	logger   *slog.Logger

	activeConnections sync.WaitGroup
}

// NewServer creates a server that identifies itself as name in the
// handshake. Register actions before calling Serve.
func NewServer(name string, logger *slog.Logger) *Server {
	s := &Server{
		name:     name,
		handlers: make(map[string]ActionFunc),
		streams:  make(map[string]StreamFunc),
		logger:   logger,
	}
	s.Handle(ActionHandshake, func(context.Context, []byte) (any, error) {
		return Hello{Protocol: ProtocolVersion, Server: s.name}, nil
	})
	return s
}

// Handle registers a unary action. Panics on duplicate registration.
func (s *Server) Handle(action string, handler ActionFunc) {
	s.checkUnregistered(action)
	s.handlers[action] = handler
}

// HandleStream registers a streaming action. Panics on duplicate
// registration.
func (s *Server) HandleStream(action string, handler StreamFunc) {
	s.checkUnregistered(action)
	s.streams[action] = handler
}

func (s *Server) checkUnregistered(action string) {
	_, unary := s.handlers[action]
	_, streaming := s.streams[action]
	if unary || streaming {
		panic(fmt.Sprintf("instrument.Server: duplicate handler for action %q", action))
	}
}

// Listen opens a listener for target. A stale socket file at a Unix
// target's path is removed first.
func Listen(target Target) (net.Listener, error) {
	network, address, err := target.resolve()
	if err != nil {
		return nil, err
	}
	if network == "unix" {
		if err := os.Remove(address); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing stale socket %s: %w", address, err)
		}
	}
	listener, err := net.Listen(network, address)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", target, err)
	}
	return listener, nil
}

// Serve accepts connections on listener until ctx is cancelled, then
// closes the listener and waits for in-flight handlers. Stream
// handlers see their context cancelled at shutdown.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("instrument server listening", "address", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	if unixListener, ok := listener.(*net.UnixListener); ok {
		// net removes the socket file on Close only for listeners it
		// created itself; make sure nothing stale is left behind.
		os.Remove(unixListener.Addr().String())
	}
	return nil
}

// readTimeout is how long we wait for the client to send its request.
const readTimeout = 30 * time.Second

// writeTimeout bounds each response or frame write. A stream consumer
// that stops reading for this long is disconnected.
const writeTimeout = 10 * time.Second

// maxRequestSize is the maximum size of a single CBOR request.
const maxRequestSize = 64 * 1024

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if header.Action == "" {
		s.writeError(conn, "missing required field: action")
		return
	}

	if handler, ok := s.streams[header.Action]; ok {
		s.serveStream(ctx, conn, header.Action, []byte(raw), handler)
		return
	}

	handler, ok := s.handlers[header.Action]
	if !ok {
		s.writeError(conn, fmt.Sprintf("unknown action %q", header.Action))
		return
	}

	result, err := handler(ctx, []byte(raw))
	if err != nil {
		s.logger.Debug("action failed", "action", header.Action, "error", err)
		s.writeError(conn, err.Error())
		return
	}
	s.writeSuccess(conn, result)
}

func (s *Server) serveStream(ctx context.Context, conn net.Conn, action string, raw []byte, handler StreamFunc) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The client sends nothing after its request, so any read
	// completing (EOF included) means it went away.
	conn.SetReadDeadline(time.Time{})
	go func() {
		var buffer [1]byte
		conn.Read(buffer[:])
		cancel()
	}()

	stream := &ServerStream{conn: conn, encoder: codec.NewEncoder(conn)}
	err := handler(ctx, raw, stream)
	switch {
	case err == nil:
		// An empty stream still needs its header.
		stream.Open()
	case !stream.started:
		s.logger.Debug("stream rejected", "action", action, "error", err)
		s.writeError(conn, err.Error())
	case ctx.Err() == nil:
		s.logger.Debug("stream ended with error", "action", action, "error", err)
	}
}

func (s *Server) writeError(conn net.Conn, message string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(Response{OK: false, Error: message}); err != nil {
		s.logger.Debug("failed to write error response", "error", err)
	}
}

func (s *Server) writeSuccess(conn net.Conn, result any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeError(conn, fmt.Sprintf("internal: marshaling response: %v", err))
			return
		}
		response.Data = data
	}

	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write success response", "error", err)
	}
}

// ServerStream is the sending end of a streaming action. It is owned
// by the handler goroutine and is not safe for concurrent use.
type ServerStream struct {
	conn    net.Conn
	encoder *codec.Encoder
	started bool
}

// Send writes one frame, opening the stream first if needed.
func (s *ServerStream) Send(frame any) error {
	if err := s.Open(); err != nil {
		return err
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.encoder.Encode(frame); err != nil {
		return fmt.Errorf("writing stream frame: %w", err)
	}
	return nil
}

// Open writes the ok header, committing the stream. The client's
// OpenStream returns once the header arrives. Calls after the first
// are no-ops.
func (s *ServerStream) Open() error {
	if s.started {
		return nil
	}
	s.started = true
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.encoder.Encode(Response{OK: true}); err != nil {
		return fmt.Errorf("writing stream header: %w", err)
	}
	return nil
}
