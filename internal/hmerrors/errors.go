// Package hmerrors defines HiveMind's error taxonomy (spec §7). Service
// layers return *Error so the MCP tool surface and the reviewer/SSE surfaces
// can map taxonomy to wire shape at the edge without inspecting driver-level
// errors.
package hmerrors

import "fmt"

// Kind is one of the closed set of error categories the core recognises.
type Kind string

const (
	KindInvalidInput       Kind = "invalid-input"
	KindAuth               Kind = "auth"
	KindRedactionRejected  Kind = "redaction-rejected"
	KindNotFound           Kind = "not-found"
	KindDuplicate          Kind = "duplicate"
	KindGone               Kind = "gone"
	KindBusy               Kind = "busy"
	KindInternal           Kind = "internal"
)

// Error is the taxonomy-tagged error every service-layer function returns.
type Error struct {
	Kind    Kind
	Message string
	// CorrelationID is set for KindInternal errors so an operator can find
	// the underlying log line without leaking internals to the caller.
	CorrelationID string
	Err           error
}

func (e *Error) Error() string {
	if e.CorrelationID != "" {
		return fmt.Sprintf("%s: %s (correlation_id=%s)", e.Kind, e.Message, e.CorrelationID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func InvalidInput(format string, args ...any) *Error {
	return New(KindInvalidInput, fmt.Sprintf(format, args...))
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func Auth(message string) *Error {
	return New(KindAuth, message)
}

func Busy(message string) *Error {
	return New(KindBusy, message)
}

func Gone(message string) *Error {
	return New(KindGone, message)
}

func Duplicate(message string) *Error {
	return New(KindDuplicate, message)
}

// RedactionRejected carries the observed ratio in the message, per spec §4.4 step 3.
func RedactionRejected(ratio float64) *Error {
	return New(KindRedactionRejected, fmt.Sprintf("content redaction ratio %.4f exceeds the maximum allowed", ratio))
}

// Internal wraps an unexpected error with a correlation ID for operator
// follow-up; the message returned to callers never includes err's text.
func Internal(correlationID string, err error) *Error {
	return &Error{
		Kind:          KindInternal,
		Message:       "an internal error occurred",
		CorrelationID: correlationID,
		Err:           err,
	}
}

// As extracts a *Error from err, if present.
func As(err error) (*Error, bool) {
	he, ok := err.(*Error)
	return he, ok
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, else KindInternal.
func KindOf(err error) Kind {
	if he, ok := As(err); ok {
		return he.Kind
	}
	return KindInternal
}
