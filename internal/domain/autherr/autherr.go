// Package autherr defines the error taxonomy shared by all gateway
// components. Services return a tagged *Error; the transport layer maps the
// Kind to a response centrally and never surfaces wrapped causes to callers.
package autherr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Validation: malformed input, no store access attempted.
	Validation Kind = iota + 1
	// Authentication: bad credentials or an invalid/expired/mismatched
	// token. Deliberately coarse so callers cannot tell which factor failed.
	Authentication
	// Authorization: authenticated but forbidden.
	Authorization
	// NotFound: referenced user or subject absent.
	NotFound
	// Conflict: duplicate email at registration.
	Conflict
	// Upstream: store or mail transport failure; cause is kept for logs only.
	Upstream
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Authentication:
		return "authentication"
	case Authorization:
		return "authorization"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Upstream:
		return "upstream"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Message string
	// Field carries field-level detail for validation failures, empty otherwise.
	Field string

	cause error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NewField(kind Kind, field, message string) *Error {
	return &Error{Kind: kind, Message: message, Field: field}
}

// Wrap attaches a cause that stays internal; Message is what callers see.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the kind from an error chain; zero when untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
