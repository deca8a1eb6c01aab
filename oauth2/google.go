package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleOAuth2 struct {
	*BaseOAuth2

	// Endpoint used to fetch the user profile. Overridable for tests.
	UserInfoURL string

	// VerifyIDToken controls whether the id_token returned with the access
	// token is checked against Google's public keys. On by default; tests
	// with mock providers turn it off.
	VerifyIDToken bool
}

func NewGoogleOAuth2(clientId string, clientSecret string, callbackUrl string, handleUser HandleUserFunc) *GoogleOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL")
	}

	scopes := []string{
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	}
	out := &GoogleOAuth2{
		BaseOAuth2:    NewBaseOAuth2(clientId, clientSecret, callbackUrl, scopes, google.Endpoint),
		UserInfoURL:   googleUserInfoURL,
		VerifyIDToken: true,
	}
	out.HandleUser = handleUser
	return out
}

// HandleCallback finishes the consent flow: state check, code exchange,
// profile fetch, then hand-off to HandleUser.
func (g *GoogleOAuth2) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if err := checkOauthState(w, r); err != nil {
		log.Warn().Err(err).Msg("google callback rejected")
		g.failureRedirect(w, r)
		return
	}

	code := r.FormValue("code")
	token, err := g.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		log.Warn().Err(err).Msg("google code exchange failed")
		g.failureRedirect(w, r)
		return
	}

	userInfo, err := g.fetchUserInfo(r.Context(), token)
	if err != nil {
		log.Warn().Err(err).Msg("google profile fetch failed")
		g.failureRedirect(w, r)
		return
	}

	g.HandleUser("google", token, userInfo, w, r)
}

// fetchUserInfo prefers the verified id_token when present, otherwise asks
// the userinfo endpoint with the access token.
func (g *GoogleOAuth2) fetchUserInfo(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	if g.VerifyIDToken {
		if rawIDToken, ok := token.Extra("id_token").(string); ok && rawIDToken != "" {
			payload, err := idtoken.Validate(ctx, rawIDToken, g.ClientId)
			if err != nil {
				return nil, fmt.Errorf("id token validation failed: %w", err)
			}
			userInfo := map[string]any{}
			for k, v := range payload.Claims {
				userInfo[k] = v
			}
			userInfo["id"] = payload.Subject
			return userInfo, nil
		}
	}

	response, err := http.Get(g.UserInfoURL + "?access_token=" + token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d", response.StatusCode)
	}
	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading response: %w", err)
	}

	var userInfo map[string]any
	if err := json.Unmarshal(contents, &userInfo); err != nil {
		return nil, err
	}
	if _, ok := userInfo["id"]; !ok {
		return nil, fmt.Errorf("userinfo response has no id")
	}
	return userInfo, nil
}
