package oauth2

import (
	"net/http"

	"golang.org/x/oauth2"
)

// HandleUserFunc receives the provider-verified profile after a successful
// callback. The profile map is whatever the provider's userinfo endpoint
// returned; "id" is always present.
type HandleUserFunc func(provider string, token *oauth2.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request)

// BaseOAuth2 holds the pieces shared by all provider strategies: the oauth2
// client config, the success callback and the URL to bounce failures to.
type BaseOAuth2 struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string
	HandleUser   HandleUserFunc

	// Where callback failures redirect to. Defaults to "/login".
	FailureURL string

	oauthConfig oauth2.Config
}

func NewBaseOAuth2(clientId, clientSecret, callbackUrl string, scopes []string, endpoint oauth2.Endpoint) *BaseOAuth2 {
	return &BaseOAuth2{
		ClientId:     clientId,
		ClientSecret: clientSecret,
		CallbackURL:  callbackUrl,
		FailureURL:   "/login",
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
	}
}

// SetOAuthEndpoint overrides the provider endpoint. Used by tests to point
// the strategy at a mock provider.
func (b *BaseOAuth2) SetOAuthEndpoint(endpoint oauth2.Endpoint) {
	b.oauthConfig.Endpoint = endpoint
}

// RedirectHandler starts the consent flow: it sets the state cookie and
// sends the browser to the provider's consent page.
func (b *BaseOAuth2) RedirectHandler() http.HandlerFunc {
	return OauthRedirector(&b.oauthConfig)
}

func (b *BaseOAuth2) failureRedirect(w http.ResponseWriter, r *http.Request) {
	target := b.FailureURL
	if target == "" {
		target = "/login"
	}
	http.Redirect(w, r, target, http.StatusFound)
}
