package secrets

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

type sessionContextKey struct{}

// CurrentSession returns the Session attached by ExtractUser, or an
// Anonymous session when the middleware did not run.
func CurrentSession(r *http.Request) *Session {
	if s, ok := r.Context().Value(sessionContextKey{}).(*Session); ok {
		return s
	}
	return &Session{}
}

// ExtractUser restores the authenticated user for a request: the user id
// comes from the scs session, falling back to the signed auth token cookie,
// and is then resolved to a full user record through the store. An id that
// no longer resolves leaves the request Anonymous.
func (m *SessionManager) ExtractUser(next http.Handler) http.Handler {
	m.EnsureDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := &Session{}

		userID := m.Session.GetString(r.Context(), loggedInUserIDKey)
		if userID == "" {
			for _, cookie := range r.Cookies() {
				if cookie.Name != m.AuthTokenCookieName || cookie.Value == "" {
					continue
				}
				id, err := m.VerifyAuthToken(cookie.Value)
				if err != nil {
					log.Warn().Err(err).Msg("error verifying auth token")
					continue
				}
				userID = id
				break
			}
		}

		if userID != "" {
			user, err := m.Store.GetUserByID(r.Context(), userID)
			switch {
			case err == nil:
				sess.UserID = userID
				sess.User = user
			case errors.Is(err, ErrUserNotFound):
				// stale cookie for a deleted record, treat as anonymous
			default:
				log.Error().Err(err).Str("user_id", userID).Msg("error resolving session user")
			}
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// EnsureUser enforces that a user is logged in, redirecting to loginURL
// otherwise. Wrap handlers with it inside an ExtractUser chain.
func (m *SessionManager) EnsureUser(loginURL string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CurrentSession(r).Authenticated() {
			http.Redirect(w, r, loginURL, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
