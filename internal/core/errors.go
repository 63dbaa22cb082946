package core

import "fmt"

// Error codes for client-side failures.
const (
	ErrCodeValidation     = "validation"
	ErrCodeAuth           = "auth"
	ErrCodeSessionExpired = "session_expired"
	ErrCodeNetwork        = "network"
	ErrCodeRejected       = "rejected"
)

// Sentinels for errors.Is checks. Matching is by code, so any *Error with the
// same code matches regardless of message.
var (
	ErrValidation     = &Error{Code: ErrCodeValidation, Message: "invalid input"}
	ErrAuth           = &Error{Code: ErrCodeAuth, Message: "authentication failed"}
	ErrSessionExpired = &Error{Code: ErrCodeSessionExpired, Message: "session expired"}
	ErrNetwork        = &Error{Code: ErrCodeNetwork, Message: "network error"}
	ErrRejected       = &Error{Code: ErrCodeRejected, Message: "request rejected"}
)

// Error wraps a code and a human-readable message.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// ValidationError is a local, pre-network failure.
func ValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// AuthError is a backend rejection of credentials or registration.
func AuthError(msg string) *Error {
	return &Error{Code: ErrCodeAuth, Message: msg}
}

// SessionExpiredError is an unauthorized answer to an authenticated call.
func SessionExpiredError(msg string) *Error {
	if msg == "" {
		msg = "Your session is invalid. Please log in again."
	}
	return &Error{Code: ErrCodeSessionExpired, Message: msg}
}

// NetworkError wraps a transport failure or an undecodable response.
func NetworkError(op string, err error) *Error {
	return &Error{Code: ErrCodeNetwork, Message: fmt.Sprintf("%s: %v", op, err), Err: err}
}

// RejectedError is a non-auth request the backend declined.
func RejectedError(msg string) *Error {
	return &Error{Code: ErrCodeRejected, Message: msg}
}
