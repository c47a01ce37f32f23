package auth

import "errors"

// The three externally visible failure kinds. Every authentication
// failure collapses to ErrInvalidToken no matter which check tripped, so
// a caller cannot distinguish a revoked token from a garbage one. The
// same uniformity applies to ErrLoginFailed for unknown-username vs
// wrong-password.
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrLoginFailed      = errors.New("login failed")
	ErrPermissionDenied = errors.New("permission denied")
)

// Error pairs a public kind with an internal reason. The reason exists
// for logs only; handlers match on Kind via errors.Is and must never echo
// Reason to the client.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string { return e.Kind.Error() + ": " + e.Reason }

func (e *Error) Unwrap() error { return e.Kind }

func invalidToken(reason string) error {
	return &Error{Kind: ErrInvalidToken, Reason: reason}
}

func loginFailed(reason string) error {
	return &Error{Kind: ErrLoginFailed, Reason: reason}
}

func denied(reason string) error {
	return &Error{Kind: ErrPermissionDenied, Reason: reason}
}
