package explorer

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport wraps connection, TLS and timeout failures. Only these are retried.
	ErrTransport = errors.New("transport failure")

	ErrNoEndpoint    = errors.New("explorer endpoint not configured")
	ErrProxyRequired = errors.New("always_use_proxy is set but no proxy is usable")
)

// StatusError is returned when the explorer answers with anything but 200.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d (%s)", e.Method, e.URL, e.Code, e.Body)
}

// ParseError reports a missing or malformed field in an explorer response.
type ParseError struct {
	Field   string
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	msg := "json error"
	if e.Field != "" {
		msg = "had no " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s (%s)", msg, e.Snippet)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(field string, body []byte, err error) *ParseError {
	return &ParseError{Field: field, Snippet: Snippet(body), Err: err}
}
