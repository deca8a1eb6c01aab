package oauth2_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	oauth2lib "golang.org/x/oauth2"

	"github.com/nishantjakane/Secrets/oauth2"
)

// mockProvider stands in for an identity provider: a token endpoint that
// accepts any code and a userinfo endpoint that returns a fixed profile.
func mockProvider(t *testing.T, profile map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "mock-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type capturedUser struct {
	provider string
	userInfo map[string]any
}

func callbackRequest(path, state, cookieState string) *http.Request {
	q := url.Values{}
	q.Set("state", state)
	q.Set("code", "mock-code")
	req := httptest.NewRequest(http.MethodGet, path+"?"+q.Encode(), nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: "oauthstate", Value: cookieState})
	}
	return req
}

func TestOauthRedirectorSetsStateCookie(t *testing.T) {
	google := oauth2.NewGoogleOAuth2("client-id", "client-secret", "http://localhost/auth/google/secrets", nil)
	google.SetOAuthEndpoint(oauth2lib.Endpoint{
		AuthURL:  "http://provider.test/auth",
		TokenURL: "http://provider.test/token",
	})

	rr := httptest.NewRecorder()
	google.RedirectHandler()(rr, httptest.NewRequest(http.MethodGet, "/auth/google", nil))

	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}

	var state *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "oauthstate" {
			state = c
		}
	}
	if state == nil || state.Value == "" {
		t.Fatal("redirect did not set the oauthstate cookie")
	}

	location, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(location.String(), "http://provider.test/auth") {
		t.Errorf("redirected to %q, not the consent page", location)
	}
	if got := location.Query().Get("state"); got != state.Value {
		t.Errorf("consent URL state %q does not match cookie %q", got, state.Value)
	}
}

func TestGoogleCallback(t *testing.T) {
	provider := mockProvider(t, map[string]any{"id": "g123", "email": "alice@example.com"})

	var captured *capturedUser
	google := oauth2.NewGoogleOAuth2("client-id", "client-secret", "http://localhost/auth/google/secrets",
		func(provider string, token *oauth2lib.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
			captured = &capturedUser{provider: provider, userInfo: userInfo}
			w.WriteHeader(http.StatusOK)
		})
	google.SetOAuthEndpoint(oauth2lib.Endpoint{
		AuthURL:  provider.URL + "/auth",
		TokenURL: provider.URL + "/token",
	})
	google.UserInfoURL = provider.URL + "/userinfo"
	google.VerifyIDToken = false

	rr := httptest.NewRecorder()
	google.HandleCallback(rr, callbackRequest("/auth/google/secrets", "state-1", "state-1"))

	if captured == nil {
		t.Fatalf("HandleUser was not called, status %d", rr.Code)
	}
	if captured.provider != "google" {
		t.Errorf("provider = %q, want google", captured.provider)
	}
	if got := captured.userInfo["id"]; got != "g123" {
		t.Errorf("profile id = %v, want g123", got)
	}
	if got := captured.userInfo["email"]; got != "alice@example.com" {
		t.Errorf("profile email = %v", got)
	}
}

func TestGoogleCallbackRejectsBadState(t *testing.T) {
	google := oauth2.NewGoogleOAuth2("client-id", "client-secret", "http://localhost/auth/google/secrets",
		func(provider string, token *oauth2lib.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
			t.Error("HandleUser called despite state mismatch")
		})

	tests := []struct {
		name        string
		state       string
		cookieState string
	}{
		{"mismatched state", "state-1", "state-2"},
		{"missing cookie", "state-1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			google.HandleCallback(rr, callbackRequest("/auth/google/secrets", tt.state, tt.cookieState))
			if rr.Code != http.StatusFound {
				t.Fatalf("expected redirect, got %d", rr.Code)
			}
			if got := rr.Header().Get("Location"); got != "/login" {
				t.Errorf("redirected to %q, want /login", got)
			}
		})
	}
}

func TestGoogleCallbackExchangeFailure(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer broken.Close()

	google := oauth2.NewGoogleOAuth2("client-id", "client-secret", "http://localhost/auth/google/secrets",
		func(provider string, token *oauth2lib.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
			t.Error("HandleUser called despite exchange failure")
		})
	google.SetOAuthEndpoint(oauth2lib.Endpoint{
		AuthURL:  broken.URL + "/auth",
		TokenURL: broken.URL + "/token",
	})

	rr := httptest.NewRecorder()
	google.HandleCallback(rr, callbackRequest("/auth/google/secrets", "state-1", "state-1"))
	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/login" {
		t.Errorf("redirected to %q, want /login", got)
	}
}

func TestFacebookCallback(t *testing.T) {
	provider := mockProvider(t, map[string]any{"id": "fb456", "name": "Bob"})

	var captured *capturedUser
	facebook := oauth2.NewFacebookOAuth2("client-id", "client-secret", "http://localhost/auth/facebook/callback",
		func(provider string, token *oauth2lib.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
			captured = &capturedUser{provider: provider, userInfo: userInfo}
			w.WriteHeader(http.StatusOK)
		})
	facebook.SetOAuthEndpoint(oauth2lib.Endpoint{
		AuthURL:  provider.URL + "/auth",
		TokenURL: provider.URL + "/token",
	})
	facebook.UserInfoURL = provider.URL + "/userinfo"

	rr := httptest.NewRecorder()
	facebook.HandleCallback(rr, callbackRequest("/auth/facebook/callback", "state-1", "state-1"))

	if captured == nil {
		t.Fatalf("HandleUser was not called, status %d", rr.Code)
	}
	if captured.provider != "facebook" {
		t.Errorf("provider = %q, want facebook", captured.provider)
	}
	if got := captured.userInfo["id"]; got != "fb456" {
		t.Errorf("profile id = %v, want fb456", got)
	}
}

func TestFacebookCallbackProfileWithoutID(t *testing.T) {
	provider := mockProvider(t, map[string]any{"name": "NoID"})

	facebook := oauth2.NewFacebookOAuth2("client-id", "client-secret", "http://localhost/auth/facebook/callback",
		func(provider string, token *oauth2lib.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
			t.Error("HandleUser called for a profile without an id")
		})
	facebook.SetOAuthEndpoint(oauth2lib.Endpoint{
		AuthURL:  provider.URL + "/auth",
		TokenURL: provider.URL + "/token",
	})
	facebook.UserInfoURL = provider.URL + "/userinfo"

	rr := httptest.NewRecorder()
	facebook.HandleCallback(rr, callbackRequest("/auth/facebook/callback", "state-1", "state-1"))
	if got := rr.Header().Get("Location"); got != "/login" {
		t.Errorf("redirected to %q, want /login", got)
	}
}
