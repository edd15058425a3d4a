package api

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthError reports bad credentials or a session the server no longer accepts.
// Err, when set, is the underlying failure (for example a NetworkError during login).
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return "auth: " + e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError reports a missing or malformed field, caught before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// NetworkError reports a call that never reached the server or timed out.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network: %s: %v", e.Op, e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

// NotFoundError reports an id the server does not know.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ServerError reports a failure the server described, by status or by success:false.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server: HTTP %d: %s", e.StatusCode, e.Message)
}

// Missing builds the ValidationError for a required field.
func Missing(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "is required"}
}

// statusError maps a non-2xx response to the taxonomy.
func statusError(status int, message, resource, id string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		if message == "" {
			message = http.StatusText(status)
		}
		return &AuthError{Message: message}
	case http.StatusNotFound:
		return &NotFoundError{Resource: resource, ID: id}
	default:
		if message == "" {
			message = http.StatusText(status)
		}
		return &ServerError{StatusCode: status, Message: message}
	}
}

// Message returns the user-facing text carried by err, or fallback when err carries none.
func Message(err error, fallback string) string {
	var authErr *AuthError
	var valErr *ValidationError
	var srvErr *ServerError
	var nfErr *NotFoundError
	var netErr *NetworkError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &valErr):
		if valErr.Field == "" {
			return valErr.Message
		}
		return fmt.Sprintf("%s %s", valErr.Field, valErr.Message)
	case errors.As(err, &authErr) && authErr.Message != "":
		return authErr.Message
	case errors.As(err, &srvErr) && srvErr.Message != "":
		return srvErr.Message
	case errors.As(err, &nfErr):
		return nfErr.Error()
	case errors.As(err, &netErr):
		return "Network error: server unreachable"
	default:
		return fallback
	}
}

// IsNotFound returns true if err (or any wrapped error) is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAuth returns true if err (or any wrapped error) is an AuthError
func IsAuth(err error) bool {
	var a *AuthError
	return errors.As(err, &a)
}

// IsValidation returns true if err (or any wrapped error) is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNetwork returns true if err (or any wrapped error) is a NetworkError
func IsNetwork(err error) bool {
	var n *NetworkError
	return errors.As(err, &n)
}
