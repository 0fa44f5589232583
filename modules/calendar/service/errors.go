package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected means no credential has ever been stored, or it was
	// cleared by disconnect or a failed refresh.
	ErrNotConnected = errors.New("calendar: not connected")
	// ErrOwnerMismatch means a credential exists but belongs to a different
	// signed-in account. The credential is left in place.
	ErrOwnerMismatch = errors.New("calendar: credential owned by another account")
	// ErrInvalidState means the consent-flow state value was unknown,
	// expired, or already used.
	ErrInvalidState = errors.New("calendar: invalid oauth state")
)

// ExchangeError is a provider rejection of the authorization-code grant.
// Terminal for that attempt; the user must restart the consent flow.
type ExchangeError struct {
	StatusCode int
	Body       string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: status %d: %s", e.StatusCode, e.Body)
}

// RefreshError is a provider rejection of the refresh-token grant. Terminal;
// the session clears the credential and disconnects.
type RefreshError struct {
	StatusCode int
	Body       string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: status %d: %s", e.StatusCode, e.Body)
}

// TransportError is a calendar API failure: either a network-level error
// (StatusCode 0) or a non-2xx provider response carried verbatim.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("calendar request failed: %v", e.Err)
	}
	return fmt.Sprintf("calendar request failed: status %d: %s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError is a local precondition failure. It never reaches the
// network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
