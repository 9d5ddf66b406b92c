// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func TestIsExpectedCloseError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"wrapped eof", fmt.Errorf("reading frame: %w", io.EOF), true},
		{"closed", net.ErrClosed, true},
		{"reset", unix.ECONNRESET, true},
		{"pipe", fmt.Errorf("write: %w", unix.EPIPE), true},
		{"refused", unix.ECONNREFUSED, false},
		{"other", errors.New("bad frame"), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsExpectedCloseError(test.err); got != test.want {
				t.Errorf("IsExpectedCloseError(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}

func TestIsConnectionFault(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"refused", fmt.Errorf("dial: %w", unix.ECONNREFUSED), true},
		{"unreachable", unix.EHOSTUNREACH, true},
		{"application", errors.New("no such task"), false},
		{"read reset", &net.OpError{Op: "read", Net: "tcp", Err: unix.ECONNRESET}, true},
		{"read timeout", &net.OpError{Op: "read", Net: "tcp", Err: os.ErrDeadlineExceeded}, true},
		{"dns", &net.OpError{Op: "dial", Net: "tcp", Err: &net.DNSError{Err: "no such host", Name: "console.invalid", IsNotFound: true}}, true},
		{"bad address", &net.OpError{Op: "dial", Net: "tcp", Err: &net.AddrError{Err: "missing port in address", Addr: "localhost"}}, false},
		{"unknown network", &net.OpError{Op: "dial", Net: "udp9", Err: net.UnknownNetworkError("udp9")}, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsConnectionFault(test.err); got != test.want {
				t.Errorf("IsConnectionFault(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}

func TestDialMissingSocketIsConnectionFault(t *testing.T) {
	_, err := net.Dial("unix", filepath.Join(t.TempDir(), "absent.sock"))
	if err == nil {
		t.Fatal("dialing a missing socket succeeded")
	}
	if !IsConnectionFault(err) {
		t.Errorf("IsConnectionFault(%v) = false, want true", err)
	}
}
