// Package apperr defines the closed set of authentication failure kinds
// and their mapping onto HTTP status codes and client-facing messages.
// Every error crossing the service or middleware boundary carries exactly
// one Kind; Status is the one table handlers and middleware translate it
// with.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an authentication failure.
type Kind int

const (
	// Internal covers store connectivity, constraint violations and any
	// other unexpected failure. It is the zero value so unclassified errors
	// never leak as an auth decision.
	Internal Kind = iota
	InvalidCredentials
	AccountBlocked
	InvalidToken
	Unauthenticated
	Forbidden
	UserNotFound
	// InvalidInput and EmailTaken serve registration and admin updates.
	InvalidInput
	EmailTaken
)

func (k Kind) String() string {
	switch k {
	case Internal:
		return "internal"
	case InvalidCredentials:
		return "invalid_credentials"
	case AccountBlocked:
		return "account_blocked"
	case InvalidToken:
		return "invalid_token"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case UserNotFound:
		return "user_not_found"
	case InvalidInput:
		return "invalid_input"
	case EmailTaken:
		return "email_taken"
	}
	return "unknown"
}

// Error is an error tagged with a Kind. Err holds the underlying cause, if
// any, and is never shown to clients.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.New(k))
// works as a kind test.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New returns a bare error of the given kind.
func New(k Kind) error { return &Error{Kind: k} }

// Wrap tags err with k. A nil err yields a bare error of kind k.
func Wrap(k Kind, err error) error { return &Error{Kind: k, Err: err} }

// KindOf extracts the kind carried by err. Errors without a kind are
// Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Status returns the HTTP status a kind is surfaced with on authentication
// paths.
func Status(k Kind) int {
	switch k {
	case InvalidCredentials, InvalidToken, Unauthenticated, UserNotFound:
		return http.StatusUnauthorized
	case AccountBlocked, Forbidden:
		return http.StatusForbidden
	case InvalidInput:
		return http.StatusBadRequest
	case EmailTaken:
		return http.StatusConflict
	case Internal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for a kind. InvalidToken and
// Unauthenticated share one message so clients cannot tell a malformed
// token from an expired or revoked one.
func Message(k Kind) string {
	switch k {
	case InvalidCredentials:
		return "invalid email or password"
	case AccountBlocked:
		return "account is blocked"
	case InvalidToken, Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case UserNotFound:
		return "user not found"
	case InvalidInput:
		return "invalid input"
	case EmailTaken:
		return "email already exists"
	case Internal:
		return "internal error"
	}
	return "internal error"
}

// Invalid reports a validation failure whose message is safe to show.
func Invalid(msg string) error { return &Error{Kind: InvalidInput, Err: errors.New(msg)} }

// Detail returns the client-facing message for err. Validation failures
// expose their own message; every other kind uses Message.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind == InvalidInput && e.Err != nil {
		return e.Err.Error()
	}
	return Message(KindOf(err))
}
