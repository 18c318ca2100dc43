package analyzer

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport indicates the request never produced an HTTP response.
	ErrTransport = errors.New("analyzer transport failure")
	// ErrUpstreamStatus indicates the service answered with a non-2xx status.
	ErrUpstreamStatus = errors.New("analyzer returned an error status")
	// ErrMalformedResponse indicates the body could not be decoded or failed schema validation.
	ErrMalformedResponse = errors.New("analyzer returned a malformed response")
)

// StatusError carries the HTTP status and detail of a rejected request.
type StatusError struct {
	Operation  string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Operation, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: status %d", e.Operation, e.StatusCode)
}

// Unwrap lets callers match the sentinel with errors.Is.
func (e *StatusError) Unwrap() error {
	return ErrUpstreamStatus
}

// failureKind labels an error for the failure counter.
func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrUpstreamStatus):
		return "status"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "transport"
	}
}
