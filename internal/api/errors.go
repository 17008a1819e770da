package api

import "fmt"

// The client reports exactly three failure kinds. Callers classify on the
// concrete type, never on message text.

// TransportError means the request never completed: no connectivity, DNS
// failure, timeout. Retryable by the user re-submitting.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError means the server answered with a non-2xx status. Detail is
// the server-provided human-readable message, if any.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("status %d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("status %d", e.Code)
}

// DecodeError means a success response carried a body the client could
// not decode: a client/server contract mismatch, not retried.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }
