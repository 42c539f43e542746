package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrGenerationFailed means the language model produced no text. Nothing
	// is persisted for the run.
	ErrGenerationFailed = errors.New("text generation failed")
	// ErrForbidden means the caller lacks the create capability.
	ErrForbidden = errors.New("not allowed to create posts")
)

// ValidationError rejects a request before any external call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// PanicError wraps a panic recovered during a run.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("pipeline panicked: %v", e.Value)
}
