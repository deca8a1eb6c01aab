package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// HandleUserFunc is called after a user has been authenticated (or freshly
// created). It owns establishing the session and sending the response.
type HandleUserFunc func(provider string, user *User, w http.ResponseWriter, r *http.Request)

// LocalAuth provides username/password based authentication backed by a
// UserStore. HandleSignup and HandleLogin are plain http.HandlerFuncs so the
// route table selects them explicitly.
type LocalAuth struct {
	// Store holds the user records. Required.
	Store UserStore

	// Validates credentials during signup. Defaults to DefaultSignupValidator.
	ValidateSignup SignupValidator

	// Handler called after successful authentication. Required.
	HandleUser HandleUserFunc

	// OnSignupError is called when signup fails. If nil, responds 400.
	OnSignupError AuthErrorHandler

	// OnLoginError is called when login fails. If nil, responds 401.
	OnLoginError AuthErrorHandler

	// Form field names
	UsernameField string
	PasswordField string
}

// HandleSignup processes user registration
func (a *LocalAuth) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil || a.HandleUser == nil {
		http.Error(w, "Signup not configured", http.StatusInternalServerError)
		return
	}

	creds, err := a.parseForm(r)
	if err != nil {
		a.handleSignupError(NewAuthError(ErrCodeMissingField, err.Error(), "username"), w, r)
		return
	}

	validator := a.ValidateSignup
	if validator == nil {
		validator = DefaultSignupValidator
	}
	if authErr := validator(creds); authErr != nil {
		a.handleSignupError(authErr, w, r)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		a.handleSignupError(NewAuthError(ErrCodeStoreUnavailable, "Failed to hash password", "password"), w, r)
		return
	}

	user, err := a.Store.CreateLocalUser(r.Context(), creds.Username, string(hash))
	if err != nil {
		log.Warn().Err(err).Str("username", creds.Username).Msg("signup failed")
		if errors.Is(err, ErrDuplicateUsername) {
			a.handleSignupError(NewAuthError(ErrCodeUsernameTaken, "Username is already taken", "username"), w, r)
		} else {
			a.handleSignupError(NewAuthError(ErrCodeStoreUnavailable, fmt.Sprintf("Failed to create user: %s", err), ""), w, r)
		}
		return
	}

	a.HandleUser(ProviderLocal, user, w, r)
}

// HandleLogin verifies a username/password pair and hands the user off to
// HandleUser. Unknown usernames and bad passwords are indistinguishable to
// the caller.
func (a *LocalAuth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil || a.HandleUser == nil {
		http.Error(w, "Login not configured", http.StatusInternalServerError)
		return
	}

	creds, err := a.parseForm(r)
	if err != nil {
		a.handleLoginError(NewAuthError(ErrCodeMissingField, err.Error(), "username"), w, r)
		return
	}

	user, err := a.Store.GetUserByUsername(r.Context(), creds.Username)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Error().Err(err).Msg("error looking up user")
		}
		a.handleLoginError(NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", "password"), w, r)
		return
	}

	if user.PasswordHash == "" {
		// OAuth-only account; there is no password to check against.
		a.handleLoginError(NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", "password"), w, r)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		a.handleLoginError(NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", "password"), w, r)
		return
	}

	a.HandleUser(ProviderLocal, user, w, r)
}

func (a *LocalAuth) parseForm(r *http.Request) (*Credentials, error) {
	contentType := r.Header.Get("Content-Type")
	usernameField := a.getUsernameField()
	passwordField := a.getPasswordField()

	var username, password string
	if strings.HasPrefix(contentType, "application/json") {
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return nil, fmt.Errorf("invalid post body")
		}
		if u, ok := data[usernameField].(string); ok {
			username = u
		}
		if p, ok := data[passwordField].(string); ok {
			password = p
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("error parsing form")
		}
		username = r.FormValue(usernameField)
		password = r.FormValue(passwordField)
	}

	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password required")
	}

	return &Credentials{Username: username, Password: password}, nil
}

func (a *LocalAuth) getUsernameField() string {
	if a.UsernameField != "" {
		return a.UsernameField
	}
	return "username"
}

func (a *LocalAuth) getPasswordField() string {
	if a.PasswordField != "" {
		return a.PasswordField
	}
	return "password"
}

func (a *LocalAuth) handleSignupError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if a.OnSignupError != nil && a.OnSignupError(err, w, r) {
		return
	}
	http.Error(w, err.Message, http.StatusBadRequest)
}

func (a *LocalAuth) handleLoginError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if a.OnLoginError != nil && a.OnLoginError(err, w, r) {
		return
	}
	statusCode := http.StatusUnauthorized
	if err.Code == ErrCodeMissingField {
		statusCode = http.StatusBadRequest
	}
	http.Error(w, err.Message, statusCode)
}
