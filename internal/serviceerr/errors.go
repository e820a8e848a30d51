// Package serviceerr holds the errors shared between the identity layer, the
// view and the HTTP servers. Sentinels are compared with errors.Is, the typed
// errors with errors.As.
package serviceerr

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")
var ErrNoAccount = errors.New("no signed in account with a given name")
var ErrInvalidAuthority = errors.New("authority host is not a known authority")
var ErrInvalidToken = errors.New("invalid token")
var ErrUnknownKey = errors.New("public key not found for this token")
var ErrCSRFMismatch = errors.New("csrf token mismatch")

// AuthenticationError is returned when the interactive login failed or the
// user cancelled it.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// TokenAcquisitionError is returned when no access token could be obtained.
// Err is nil when the identity provider answered without a token.
type TokenAcquisitionError struct {
	Scopes []string
	Err    error
}

func (e *TokenAcquisitionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("no access token returned for scopes %v", e.Scopes)
	}
	return fmt.Sprintf("acquiring access token for scopes %v: %v", e.Scopes, e.Err)
}

func (e *TokenAcquisitionError) Unwrap() error { return e.Err }

// BackendHTTPError is a non-2xx answer of the backend. Body holds the decoded
// JSON error document, or nil if the body was not JSON.
type BackendHTTPError struct {
	StatusCode int
	Status     string
	Body       any
}

func (e *BackendHTTPError) Error() string {
	return fmt.Sprintf("backend responded with %s", e.Status)
}

// NetworkError wraps a transport failure while calling the backend.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("calling backend: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
