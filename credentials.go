package secrets

import "regexp"

// Credentials represents a username/password pair for signup or login
type Credentials struct {
	Username string
	Password string
}

// SignupValidator validates credentials during signup
type SignupValidator func(creds *Credentials) *AuthError

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_@.+-]{1,64}$`)

// DefaultSignupValidator checks that both fields are present and the
// username is something we are willing to store. Any non-empty password is
// accepted; length policy belongs to callers via ValidateSignup.
var DefaultSignupValidator SignupValidator = func(creds *Credentials) *AuthError {
	if creds.Username == "" {
		return NewAuthError(ErrCodeMissingField, "Username is required", "username")
	}
	if creds.Password == "" {
		return NewAuthError(ErrCodeMissingField, "Password is required", "password")
	}
	if !usernameRegex.MatchString(creds.Username) {
		return NewAuthError(ErrCodeInvalidUsername, "Username may only contain letters, numbers and _@.+-", "username")
	}
	return nil
}
