package secrets

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Error codes for authentication failures
const (
	ErrCodeUsernameTaken    = "username_taken"
	ErrCodeInvalidCreds     = "invalid_credentials"
	ErrCodeStoreUnavailable = "store_unavailable"
	ErrCodeMissingField     = "missing_field"
	ErrCodeInvalidUsername  = "invalid_username"
)

// Sentinel errors returned by UserStore implementations
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already taken")
)

// AuthError carries a machine-readable code alongside the message so error
// handlers can decide where to redirect.
type AuthError struct {
	Code    string
	Message string
	Field   string
}

func (e *AuthError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

// AuthErrorHandler handles an auth failure. Returns true if it wrote a
// response, false to fall back to the default handling.
type AuthErrorHandler func(err *AuthError, w http.ResponseWriter, r *http.Request) bool

// RedirectOnError returns an AuthErrorHandler that sends the browser back to
// target with the error code attached as a query parameter. Every failure
// path answers the request - nothing is left hanging.
func RedirectOnError(target string) AuthErrorHandler {
	return func(err *AuthError, w http.ResponseWriter, r *http.Request) bool {
		u, parseErr := url.Parse(target)
		if parseErr != nil {
			return false
		}
		q := u.Query()
		q.Set("error", err.Code)
		u.RawQuery = q.Encode()
		http.Redirect(w, r, u.String(), http.StatusFound)
		return true
	}
}
