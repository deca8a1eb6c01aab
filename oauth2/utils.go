package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

func generateStateOauthCookie(w http.ResponseWriter) string {
	var expiration = time.Now().Add(time.Hour)
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Warn().Err(err).Msg("error generating oauth state")
	}
	state := base64.URLEncoding.EncodeToString(b)
	cookie := http.Cookie{Name: "oauthstate", Value: state, Path: "/", Expires: expiration, HttpOnly: true}
	http.SetCookie(w, &cookie)
	return state
}

// OauthRedirector returns a handler that sets a fresh state cookie and
// redirects the browser to the provider's consent page.
func OauthRedirector(oauthConfig *oauth2.Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		oauthState := generateStateOauthCookie(w)
		u := oauthConfig.AuthCodeURL(oauthState)
		http.Redirect(w, r, u, http.StatusFound)
	}
}

// checkOauthState verifies the state form value against the state cookie set
// when the consent flow started.
func checkOauthState(w http.ResponseWriter, r *http.Request) error {
	oauthState, _ := r.Cookie("oauthstate")
	if oauthState == nil {
		return fmt.Errorf("oauth state cookie missing")
	}
	if r.FormValue("state") != oauthState.Value {
		http.SetCookie(w, &http.Cookie{
			Name:   "oauthstate",
			Path:   "/",
			MaxAge: -1,
		})
		return fmt.Errorf("invalid oauth state: %q", r.FormValue("state"))
	}
	return nil
}
