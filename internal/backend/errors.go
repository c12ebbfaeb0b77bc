package backend

import (
	"errors"
	"fmt"
)

// TransportError wraps a failure to reach the server or read its reply.
type TransportError struct {
	Action string
	Err    error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Action, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a reply with a non-2xx status.
type StatusError struct {
	Action string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Action, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Action, e.Code, e.Body)
}

// DecodeError reports a 2xx reply whose body is not a result object.
type DecodeError struct {
	Action string
	Body   string
	Err    error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("%s: decode response: %v", e.Action, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a communication failure rather than an
// answer from the server. A result with success=false is never an error.
func IsTransport(err error) bool {
	var te *TransportError
	var se *StatusError
	var de *DecodeError
	return errors.As(err, &te) || errors.As(err, &se) || errors.As(err, &de)
}
