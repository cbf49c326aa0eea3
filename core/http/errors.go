package http

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRequest is the class of every request that cannot be parsed
	ErrMalformedRequest = errors.New("malformed HTTP request")

	// ErrPeerDisconnected means the stream ended before a request line arrived
	ErrPeerDisconnected = errors.New("peer disconnected")
)

// ParseError describes why a request was rejected by the parser.
// It matches ErrMalformedRequest with errors.Is.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed HTTP request: %s: %v", e.Reason, e.Err)
	}
	return "malformed HTTP request: " + e.Reason
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedRequest, e.Err}
	}
	return []error{ErrMalformedRequest}
}

func malformed(reason string, err error) error {
	return &ParseError{Reason: reason, Err: err}
}
