// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instrument

import (
	"errors"
	"fmt"
)

// ServiceError is returned when the server answers ok=false.
type ServiceError struct {
	Action  string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error on %q: %s", e.Action, e.Message)
}

// TransportError wraps a failure of the connection carrying a call:
// dialing, writing the request, or reading a response or frame.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err is a transport failure, as
// opposed to a rejection by the server or a configuration problem.
func IsConnectionError(err error) bool {
	var transportError *TransportError
	return errors.As(err, &transportError)
}
