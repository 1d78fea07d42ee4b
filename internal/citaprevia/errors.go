package citaprevia

import (
	"errors"
	"fmt"
)

var (
	// ErrStructure means the response did not have the shape it was expected to have, usually the upstream
	// changed its pages or returned an error page.
	ErrStructure = errors.New("unexpected response structure")
	// ErrInvalidDate means the upstream returned a day that does not exist on the calendar.
	ErrInvalidDate = errors.New("invalid calendar date")
	// ErrSessionInit means the landing page or the anonymous authentication failed.
	ErrSessionInit = errors.New("session init failed")
)

// ParseError is returned when a response body could not be turned into a result.
type ParseError struct {
	Operation string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("citaprevia: %s: parse response: %v", e.Operation, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StatusError is returned when the upstream answers with a non 2xx status.
type StatusError struct {
	Method     string
	Url        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %s", e.Method, e.Url, e.Status)
}

func structureError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStructure, fmt.Sprintf(format, args...))
}
