// Package errs defines the proxy's error taxonomy and its HTTP mapping.
// Handlers at the outermost boundary (internal/proxy) are the only place
// these get translated into a status code and JSON body; everything inside
// the cache engine and fetcher returns a *Error and lets the caller decide.
package errs

import "net/http"

// Kind is one of the fixed error kinds from the error surface (spec §7).
type Kind string

const (
	BadRequest              Kind = "BadRequest"
	UpstreamUnreachable     Kind = "UpstreamUnreachable"
	UpstreamTimeout         Kind = "UpstreamTimeout"
	UpstreamPayloadTooLarge Kind = "UpstreamPayloadTooLarge"
	Internal                Kind = "Internal"
)

// Error is the sum-type error used across component boundaries: {Ok,
// BadRequest, Upstream(reason), Internal(reason)} collapsed into one
// concrete type carrying a Kind and a human message.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// HTTPStatus maps an error Kind to its HTTP status code (spec §7).
func (k Kind) HTTPStatus() int {
	switch k {
	case BadRequest:
		return http.StatusBadRequest
	case UpstreamUnreachable, UpstreamPayloadTooLarge:
		return http.StatusBadGateway
	case UpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// StatusFor returns the HTTP status for any error: a *Error maps via its
// Kind, anything else maps to Internal.
func StatusFor(err error) int {
	if e, ok := err.(*Error); ok {
		return e.Kind.HTTPStatus()
	}
	return Internal.HTTPStatus()
}

// KindFor returns the Kind for any error, defaulting to Internal.
func KindFor(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return Internal
}
