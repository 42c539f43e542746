package content

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the API rejects the bearer token.
	ErrUnauthorized = errors.New("content api: unauthorized")
	// ErrNotFound is returned for unknown post ids.
	ErrNotFound = errors.New("content api: not found")
)

// StatusError carries an unexpected HTTP status from the API.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("content api %s %s returned status %d: %s", e.Method, e.Path, e.Code, e.Body)
}
