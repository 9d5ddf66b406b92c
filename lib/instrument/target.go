// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instrument

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// DefaultTarget is where instrumented processes listen unless
// configured otherwise.
const DefaultTarget = "http://127.0.0.1:6669"

// DefaultPort is used for network targets that omit a port.
const DefaultPort = "6669"

// Target identifies the instrumentation service. Network targets carry
// host:port in Host; local socket targets carry the socket path in Path
// and an empty or "localhost" Host.
type Target struct {
	Scheme string
	Host   string
	Path   string
}

// ConfigError reports a target that can never be connected to. It is
// not retried.
type ConfigError struct {
	Target string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid target %q: %s", e.Target, e.Reason)
}

// ParseTarget parses a target address. Accepted forms:
//
//	http://host[:port]   tcp://host[:port]   host:port
//	file:///path/to.sock file://localhost/path/to.sock   unix:///path/to.sock
//
// Network targets without a port get [DefaultPort].
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, &ConfigError{Target: raw, Reason: "empty target"}
	}

	var target Target
	if !strings.Contains(raw, "://") {
		if strings.Contains(raw, ":/") {
			return Target{}, &ConfigError{Target: raw, Reason: `missing "//" after scheme; write local sockets as unix:///path`}
		}
		target = Target{Scheme: "http", Host: raw}
	} else {
		parsed, err := url.Parse(raw)
		if err != nil {
			return Target{}, &ConfigError{Target: raw, Reason: err.Error()}
		}
		target = Target{Scheme: strings.ToLower(parsed.Scheme), Host: parsed.Host, Path: parsed.Path}
	}

	if target.isNetwork() {
		if target.Path != "" && target.Path != "/" {
			return Target{}, &ConfigError{Target: raw, Reason: "network targets cannot have a path"}
		}
		target.Path = ""
		if target.Host != "" {
			host, reason := hostPort(target.Host)
			if reason != "" {
				return Target{}, &ConfigError{Target: raw, Reason: reason}
			}
			target.Host = host
		}
	}

	if _, _, err := target.resolve(); err != nil {
		return Target{}, err
	}
	return target, nil
}

// hostPort normalizes a network address to host:port, filling in
// [DefaultPort]. The second result is the reason the address is
// malformed, or empty.
func hostPort(address string) (string, string) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		host, port = strings.Trim(address, "[]"), ""
		if strings.Contains(host, ":") && net.ParseIP(host) == nil {
			return "", fmt.Sprintf("malformed address %q", address)
		}
	}
	if port == "" {
		port = DefaultPort
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", fmt.Sprintf("invalid port %q", port)
	}
	if strings.ContainsAny(host, "/[]") {
		return "", fmt.Sprintf("malformed host %q", host)
	}
	return net.JoinHostPort(host, port), ""
}

// MustParseTarget is ParseTarget for constants and tests. Panics on error.
func MustParseTarget(raw string) Target {
	target, err := ParseTarget(raw)
	if err != nil {
		panic(err)
	}
	return target
}

// UnixTarget returns the local socket target for path.
func UnixTarget(path string) Target {
	return Target{Scheme: "file", Path: path}
}

// String renders the target as a URI.
func (t Target) String() string {
	if t.isLocal() {
		return t.Scheme + "://" + t.Host + t.Path
	}
	return t.Scheme + "://" + t.Host
}

// Network returns the net.Dial network for the target: "unix" for
// local socket schemes, "tcp" otherwise.
func (t Target) Network() string {
	if t.isLocal() {
		return "unix"
	}
	return "tcp"
}

// IsLocal reports whether the target is a Unix domain socket.
func (t Target) IsLocal() bool { return t.isLocal() }

func (t Target) isLocal() bool {
	return t.Scheme == "file" || t.Scheme == "unix"
}

func (t Target) isNetwork() bool {
	return t.Scheme == "http" || t.Scheme == "tcp"
}

// resolve maps the target to a net.Dial network and address, or
// explains why it cannot be dialed.
func (t Target) resolve() (network, address string, err error) {
	switch {
	case t.isLocal():
		if t.Host != "" && t.Host != "localhost" {
			return "", "", &ConfigError{Target: t.String(), Reason: "cannot connect to non-localhost unix domain socket"}
		}
		if t.Path == "" {
			return "", "", &ConfigError{Target: t.String(), Reason: "unix domain socket target needs a path"}
		}
		return "unix", t.Path, nil
	case t.isNetwork():
		if t.Host == "" {
			return "", "", &ConfigError{Target: t.String(), Reason: "network target needs a host"}
		}
		return "tcp", t.Host, nil
	case t.Scheme == "https":
		return "", "", &ConfigError{Target: t.String(), Reason: "TLS is not supported; use http:// or a local socket"}
	default:
		return "", "", &ConfigError{Target: t.String(), Reason: fmt.Sprintf("unsupported scheme %q", t.Scheme)}
	}
}
