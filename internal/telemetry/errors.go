package telemetry

import "fmt"

// Kind identifies one of the error categories from spec.md §7.
type Kind string

const (
	KindConfig     Kind = "config"
	KindTransport  Kind = "transport"
	KindRateLimit  Kind = "rate-limit"
	KindNotFound   Kind = "not-found"
	KindIntegrity  Kind = "invalid-dependency"
	KindCorruption Kind = "corrupt-queue"
	KindIO         Kind = "io-error"
)

// Error is the engine's typed error. Kind drives retry/propagation policy
// (§7): Transport and RateLimit are retriable, NotFound and Integrity are
// surfaced to the caller but non-fatal to the engine, Config and
// Corruption are fatal at the point they're encountered.
type Error struct {
	Kind      Kind
	Operation string
	TaskID    int64
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.TaskID != 0 {
		return fmt.Sprintf("%s: %s (task %d): %s", e.Kind, e.Operation, e.TaskID, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Operation, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retriable reports whether the error kind is eligible for the offline
// queue's retry budget (transport and rate-limit failures only).
func (e *Error) Retriable() bool {
	return e.Kind == KindTransport || e.Kind == KindRateLimit
}

// New builds an *Error of the given kind.
func New(kind Kind, operation, message string) *Error {
	return &Error{Kind: kind, Operation: operation, Message: message}
}

// Wrap builds an *Error of the given kind around an underlying error.
func Wrap(kind Kind, operation string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Operation: operation, Message: err.Error(), Err: err}
}

// WithTaskID attaches the affected task id for context.
func (e *Error) WithTaskID(id int64) *Error {
	e.TaskID = id
	return e
}

// ErrorWithSuggestion wraps an error with an actionable suggestion for a
// human operator; used by the cmd/tasksyncd CLI layer, not the engine
// itself. Grounded on internal/utils/errors.go.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

func (e *ErrorWithSuggestion) Unwrap() error { return e.Err }

// WrapWithSuggestion attaches an actionable suggestion to an existing error.
func WrapWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{Err: err, Suggestion: suggestion}
}
