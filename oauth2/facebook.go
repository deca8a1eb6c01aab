package oauth2

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

const facebookUserInfoURL = "https://graph.facebook.com/me"

type FacebookOAuth2 struct {
	*BaseOAuth2

	// Graph API endpoint used to fetch the profile. Overridable for tests.
	UserInfoURL string
}

func NewFacebookOAuth2(clientId string, clientSecret string, callbackUrl string, handleUser HandleUserFunc) *FacebookOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_FACEBOOK_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_FACEBOOK_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_FACEBOOK_CALLBACK_URL")
	}

	scopes := []string{"public_profile"}
	out := &FacebookOAuth2{
		BaseOAuth2:  NewBaseOAuth2(clientId, clientSecret, callbackUrl, scopes, facebook.Endpoint),
		UserInfoURL: facebookUserInfoURL,
	}
	out.HandleUser = handleUser
	return out
}

func (f *FacebookOAuth2) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if err := checkOauthState(w, r); err != nil {
		log.Warn().Err(err).Msg("facebook callback rejected")
		f.failureRedirect(w, r)
		return
	}

	code := r.FormValue("code")
	token, err := f.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		log.Warn().Err(err).Msg("facebook code exchange failed")
		f.failureRedirect(w, r)
		return
	}

	userInfo, err := f.fetchUserInfo(token)
	if err != nil {
		log.Warn().Err(err).Msg("facebook profile fetch failed")
		f.failureRedirect(w, r)
		return
	}

	f.HandleUser("facebook", token, userInfo, w, r)
}

func (f *FacebookOAuth2) fetchUserInfo(token *oauth2.Token) (map[string]any, error) {
	q := url.Values{}
	q.Set("fields", "id,name,email")
	q.Set("access_token", token.AccessToken)

	response, err := http.Get(f.UserInfoURL + "?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph api returned %d", response.StatusCode)
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
		return nil, fmt.Errorf("graph api response has no id")
	}
	return userInfo, nil
}
