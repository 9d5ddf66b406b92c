// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instrument

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/hawkw/consolation/lib/codec"
	"github.com/hawkw/consolation/lib/netutil"
)

// dialTimeout bounds the connect phase of every call.
const dialTimeout = 5 * time.Second

// responseReadTimeout bounds how long a unary call waits for its reply
// when the caller's context has no deadline. Streams have no read
// timeout: a silent stream is indistinguishable from an idle process.
const responseReadTimeout = 30 * time.Second

// maxResponseSize caps a single unary reply or stream header.
const maxResponseSize = 1024 * 1024

// Client issues calls to one instrumentation service. Each call opens
// its own connection, so a Client is safe for concurrent use and a
// broken call never corrupts another call in flight.
type Client struct {
	target  Target
	network string
	address string
	hello   Hello
}

// Connect resolves target and performs the handshake. Configuration
// problems are reported as [*ConfigError] before anything is dialed.
func Connect(ctx context.Context, target Target) (*Client, error) {
	network, address, err := target.resolve()
	if err != nil {
		return nil, err
	}
	client := &Client{target: target, network: network, address: address}

	var hello Hello
	if err := client.Call(ctx, ActionHandshake, nil, &hello); err != nil {
		return nil, err
	}
	if hello.Protocol != ProtocolVersion {
		return nil, fmt.Errorf("server %q speaks protocol %d, console speaks %d", hello.Server, hello.Protocol, ProtocolVersion)
	}
	client.hello = hello
	return client, nil
}

// Target returns the address this client dials.
func (c *Client) Target() Target { return c.target }

// Server returns the handshake reply received by Connect.
func (c *Client) Server() Hello { return c.hello }

// Call performs a unary action. fields may be nil. On ok=true the
// response data, if any, is decoded into result (which may be nil).
// On ok=false a [*ServiceError] is returned; connection failures are
// [*TransportError].
func (c *Client) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := codec.NewEncoder(conn).Encode(buildRequest(action, fields)); err != nil {
		return transportOrProtocol(fmt.Sprintf("writing %s request", action), err)
	}
	// CBOR is self-delimiting, so the half-close is only a courtesy
	// that lets the server see EOF on its read side.
	if closer, ok := conn.(interface{ CloseWrite() error }); ok {
		closer.CloseWrite()
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(responseReadTimeout)
	}
	conn.SetReadDeadline(deadline)

	response, err := readResponse(conn, action)
	if err != nil {
		return err
	}
	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding %s response: %w", action, err)
		}
	}
	return nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, c.network, c.address)
	if err != nil {
		return nil, &TransportError{Op: "connecting to " + c.target.String(), Err: err}
	}
	return conn, nil
}

func buildRequest(action string, fields map[string]any) map[string]any {
	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action
	return request
}

// readResponse decodes the reply envelope (or stream header) and turns
// ok=false into a ServiceError.
func readResponse(conn net.Conn, action string) (*Response, error) {
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, transportOrProtocol(fmt.Sprintf("reading %s response", action), err)
	}
	if !response.OK {
		return nil, &ServiceError{Action: action, Message: response.Error}
	}
	return &response, nil
}

// transportOrProtocol classifies an I/O error: a broken connection
// becomes a TransportError, anything else (a malformed frame over a
// working connection) stays a plain error.
func transportOrProtocol(op string, err error) error {
	if errors.Is(err, io.EOF) || netutil.IsConnectionFault(err) {
		return &TransportError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
