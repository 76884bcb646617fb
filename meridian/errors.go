/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"errors"
	"fmt"
)

// Sentinel errors for the kinds enumerated in spec.md §7. Use errors.Is to
// test for them; wrapping helpers below attach context while preserving
// the sentinel for unwrapping.
var (
	// ErrTransport indicates the underlying duplex or unary stream broke.
	// There is no automatic reconnection attempt.
	ErrTransport = errors.New("meridian: transport failure")

	// ErrTimeout indicates a per-request deadline elapsed before an ack
	// or response arrived.
	ErrTimeout = errors.New("meridian: request timeout")

	// ErrCancelled is returned for outstanding operations after Close.
	ErrCancelled = errors.New("meridian: cancelled")

	// ErrProtocol indicates a malformed or unexpected message from the
	// server, e.g. an unknown response variant or a page whose first
	// message unexpectedly carries an entry.
	ErrProtocol = errors.New("meridian: protocol error")

	// ErrUnsupported indicates an operation this client deliberately does
	// not support. It is returned by ValueSet.Delete and by Clear on a
	// filtered ValueSet.
	ErrUnsupported = errors.New("meridian: unsupported operation")

	// ErrPrecondition indicates a precondition wasn't met: TLS requested
	// without certificate paths, or an operation on a closed session/map.
	ErrPrecondition = errors.New("meridian: precondition failed")

	// ErrDone indicates a remote set iterator has no more entries.
	ErrDone = errors.New("meridian: iterator done")
)

func wrapTransport(err error) error {
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

func wrapProtocol(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}

func wrapPrecondition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}
