// Package apperr holds the tagged errors that handlers map to user-facing
// messages and HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// FailurePrefix marks every user-visible failure message.
const FailurePrefix = "Error: "

// AuthError is returned when the OAuth handshake with the provider fails.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth: " + e.Op
	}
	return fmt.Sprintf("auth: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ProviderError wraps a failed call to the meeting provider's REST API.
// Status is the HTTP status returned by the provider, or 0 when the request
// never got a response.
type ProviderError struct {
	Op     string
	Status int
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NotFoundError means a lookup by id (and owner) matched nothing.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ValidationError reports a malformed form field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func Auth(op string, err error) error { return &AuthError{Op: op, Err: err} }

func Provider(op string, status int, err error) error {
	return &ProviderError{Op: op, Status: status, Err: err}
}

func NotFound(resource, id string) error { return &NotFoundError{Resource: resource, ID: id} }

func Validation(field string, err error) error { return &ValidationError{Field: field, Err: err} }

// HTTPStatus maps err to the status code a handler should answer with.
func HTTPStatus(err error) int {
	var (
		nf *NotFoundError
		ve *ValidationError
		ae *AuthError
		pe *ProviderError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ae):
		return http.StatusUnauthorized
	case errors.As(err, &pe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message renders err as a short flash message for the browser. action is
// the thing the user tried to do, e.g. "creating the meeting".
func Message(action string, err error) string {
	var (
		nf *NotFoundError
		ve *ValidationError
		ae *AuthError
		pe *ProviderError
	)
	switch {
	case errors.As(err, &nf):
		return FailurePrefix + nf.Resource + " not found"
	case errors.As(err, &ve):
		return fmt.Sprintf("%s%s: invalid %s", FailurePrefix, action, ve.Field)
	case errors.As(err, &ae):
		return fmt.Sprintf("%s%s: authorization with Zoom failed", FailurePrefix, action)
	case errors.As(err, &pe):
		if pe.Status != 0 {
			return fmt.Sprintf("%s%s: Zoom request failed (%d %s)", FailurePrefix, action,
				pe.Status, http.StatusText(pe.Status))
		}
		return fmt.Sprintf("%s%s: Zoom is unreachable", FailurePrefix, action)
	default:
		return fmt.Sprintf("%s%s failed", FailurePrefix, action)
	}
}
