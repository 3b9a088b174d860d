package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by how the user can recover from it.
type Kind string

const (
	// KindValidation covers local precondition failures that never reach the network.
	KindValidation Kind = "validation"
	// KindRemote covers non-success HTTP responses.
	KindRemote Kind = "remote"
	// KindTransport covers connection failures and unparseable bodies.
	KindTransport Kind = "transport"
	KindConfig    Kind = "config"
	KindStorage   Kind = "storage"
	KindUnknown   Kind = "unknown"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Status  int
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap attaches kind and operation to err. Errors that already carry a kind
// are returned unchanged so the innermost classification wins.
func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// Remote builds a rejection for a non-success HTTP status. An empty message is
// replaced by fallback.
func Remote(op string, status int, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{
		Kind:    KindRemote,
		Op:      op,
		Message: message,
		Status:  status,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind == kind
	}
	return false
}

// KindOf reports the kind of the first classified error in the chain.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}

// StatusCode returns the HTTP status carried by a remote rejection, or 0.
func StatusCode(err error) int {
	var target *Error
	if errors.As(err, &target) {
		return target.Status
	}
	return 0
}

// UserMessage renders err for the notice line, without the kind/op prefix.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var target *Error
	if !errors.As(err, &target) {
		return err.Error()
	}
	switch target.Kind {
	case KindRemote:
		return fmt.Sprintf("%s (HTTP %d)", target.Message, target.Status)
	case KindTransport:
		if target.Cause != nil {
			return fmt.Sprintf("Network error: %v", target.Cause)
		}
		return "Network error: " + target.Message
	default:
		if target.Cause != nil {
			return fmt.Sprintf("%s: %v", target.Message, target.Cause)
		}
		return target.Message
	}
}
