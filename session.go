package secrets

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const loggedInUserIDKey = "loggedInUserId"

// Session is the explicit per-request authentication state: either Anonymous
// (zero value, User nil) or Authenticated with a resolved user record.
type Session struct {
	UserID string
	User   *User
}

// Authenticated reports whether a user record was resolved for this request.
func (s *Session) Authenticated() bool { return s != nil && s.User != nil }

// SessionManager owns the two-state session lifecycle. A login puts the user
// id into the scs-managed session and also sets a signed JWT cookie, so a
// browser can come back after the server-side session is gone and still be
// recognised. Logout clears both.
type SessionManager struct {
	Session *scs.SessionManager
	Store   UserStore

	// Name of the cookie carrying the signed auth token
	AuthTokenCookieName string

	JwtIssuer    string
	JWTSecretKey string

	// How long a login is valid for. Defaults to 1 day.
	SessionTimeoutInSeconds int
}

func NewSessionManager(session *scs.SessionManager, store UserStore, secretKey string) *SessionManager {
	out := &SessionManager{Session: session, Store: store, JWTSecretKey: secretKey}
	return out.EnsureDefaults()
}

func (m *SessionManager) EnsureDefaults() *SessionManager {
	if m.SessionTimeoutInSeconds <= 0 {
		m.SessionTimeoutInSeconds = 86400
	}
	if m.JwtIssuer == "" {
		m.JwtIssuer = "Secrets-Issuer"
	}
	if m.AuthTokenCookieName == "" {
		m.AuthTokenCookieName = "SecretsAuthToken"
	}
	if m.JWTSecretKey == "" {
		m.JWTSecretKey = strings.TrimSpace(os.Getenv("SECRET"))
	}
	return m
}

// Login transitions the request's session from Anonymous to
// Authenticated(user.ID).
func (m *SessionManager) Login(user *User, w http.ResponseWriter, r *http.Request) {
	m.EnsureDefaults()
	m.Session.Put(r.Context(), loggedInUserIDKey, user.ID)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"iss": m.JwtIssuer,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Second * time.Duration(m.SessionTimeoutInSeconds)).Unix(),
	})
	tokenString, err := token.SignedString([]byte(m.JWTSecretKey))
	if err != nil {
		log.Warn().Err(err).Msg("error signing auth token")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.AuthTokenCookieName,
		Value:    tokenString,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(time.Second * time.Duration(m.SessionTimeoutInSeconds)),
		MaxAge:   m.SessionTimeoutInSeconds,
	})
}

// Logout transitions back to Anonymous: the session is cleared and the auth
// token cookie expired.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) {
	m.EnsureDefaults()
	if err := m.Session.Destroy(r.Context()); err != nil {
		log.Warn().Err(err).Msg("error destroying session")
	}
	http.SetCookie(w, &http.Cookie{
		Name:    m.AuthTokenCookieName,
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Now(),
	})
}

// VerifyAuthToken checks a signed auth token and returns the user id it was
// issued for.
func (m *SessionManager) VerifyAuthToken(tokenString string) (string, error) {
	m.EnsureDefaults()
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(m.JWTSecretKey), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("subject not found")
	}
	return sub, nil
}
