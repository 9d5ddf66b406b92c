// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"io"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// IsExpectedCloseError reports whether err is an orderly or abrupt end
// of a connection by the peer: EOF, use of a closed connection, broken
// pipe, or connection reset. A server that stops streaming produces
// one of these on the reading side.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return errors.Is(err, unix.EPIPE) || errors.Is(err, unix.ECONNRESET)
}

// IsConnectionFault reports whether err means the transport itself
// failed: the peer could not be reached, went away, or stopped
// responding at the socket level. Errors that arrive intact over a
// healthy connection (protocol rejections, decode failures of a
// complete frame) are not connection faults, and neither is a
// *net.OpError that wraps none of the socket errors above, such as a
// malformed address.
func IsConnectionFault(err error) bool {
	if err == nil {
		return false
	}
	if IsExpectedCloseError(err) {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	for _, errno := range []unix.Errno{
		unix.ECONNREFUSED,
		unix.ECONNABORTED,
		unix.EHOSTUNREACH,
		unix.ENETUNREACH,
		unix.ETIMEDOUT,
		unix.ENETDOWN,
		// Dialing a Unix socket path that does not exist (yet).
		unix.ENOENT,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	var netError net.Error
	if errors.As(err, &netError) && netError.Timeout() {
		return true
	}
	var dnsError *net.DNSError
	return errors.As(err, &dnsError)
}
