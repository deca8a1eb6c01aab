package secrets_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	secrets "github.com/nishantjakane/Secrets"
	"github.com/nishantjakane/Secrets/stores"
)

// newLocalAuth builds a LocalAuth over a throwaway file store with the
// redirect-style error handlers the web layer uses.
func newLocalAuth(t *testing.T) (*secrets.LocalAuth, *stores.FSUserStore) {
	t.Helper()
	store := stores.NewFSUserStore(t.TempDir())
	auth := &secrets.LocalAuth{
		Store: store,
		HandleUser: func(provider string, user *secrets.User, w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-User-Id", user.ID)
			w.WriteHeader(http.StatusOK)
		},
		OnSignupError: secrets.RedirectOnError("/register"),
		OnLoginError:  secrets.RedirectOnError("/login"),
	}
	return auth, store
}

func postForm(handler http.HandlerFunc, path string, form map[string]string) *httptest.ResponseRecorder {
	values := url.Values{}
	for k, v := range form {
		values.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestSignupFlow(t *testing.T) {
	auth, _ := newLocalAuth(t)

	tests := []struct {
		name           string
		formData       map[string]string
		expectedStatus int
		wantLocation   string
	}{
		{
			name:           "successful signup",
			formData:       map[string]string{"username": "alice", "password": "correct"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "duplicate username",
			formData:       map[string]string{"username": "alice", "password": "other"},
			expectedStatus: http.StatusFound,
			wantLocation:   "/register?error=username_taken",
		},
		{
			name:           "missing password",
			formData:       map[string]string{"username": "bob"},
			expectedStatus: http.StatusFound,
			wantLocation:   "/register?error=missing_field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postForm(auth.HandleSignup, "/register", tt.formData)
			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
			if tt.wantLocation != "" && rr.Header().Get("Location") != tt.wantLocation {
				t.Errorf("Expected redirect to %q, got %q", tt.wantLocation, rr.Header().Get("Location"))
			}
		})
	}
}

func TestDuplicateSignupLeavesFirstAccountIntact(t *testing.T) {
	auth, store := newLocalAuth(t)

	rr := postForm(auth.HandleSignup, "/register", map[string]string{"username": "alice", "password": "correct"})
	if rr.Code != http.StatusOK {
		t.Fatalf("first signup failed: %d", rr.Code)
	}
	firstID := rr.Header().Get("X-User-Id")

	postForm(auth.HandleSignup, "/register", map[string]string{"username": "alice", "password": "different"})

	user, err := store.GetUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if user.ID != firstID {
		t.Errorf("first account was replaced: id %q != %q", user.ID, firstID)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct")); err != nil {
		t.Errorf("first account's password no longer matches: %v", err)
	}
}

func TestLoginFlow(t *testing.T) {
	auth, _ := newLocalAuth(t)

	rr := postForm(auth.HandleSignup, "/register", map[string]string{"username": "alice", "password": "correct"})
	if rr.Code != http.StatusOK {
		t.Fatalf("signup failed: %d", rr.Code)
	}

	tests := []struct {
		name           string
		formData       map[string]string
		expectedStatus int
		wantLocation   string
	}{
		{
			name:           "correct password",
			formData:       map[string]string{"username": "alice", "password": "correct"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wrong password",
			formData:       map[string]string{"username": "alice", "password": "wrong"},
			expectedStatus: http.StatusFound,
			wantLocation:   "/login?error=invalid_credentials",
		},
		{
			name:           "unknown username",
			formData:       map[string]string{"username": "mallory", "password": "correct"},
			expectedStatus: http.StatusFound,
			wantLocation:   "/login?error=invalid_credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postForm(auth.HandleLogin, "/login", tt.formData)
			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
			if tt.wantLocation != "" && rr.Header().Get("Location") != tt.wantLocation {
				t.Errorf("Expected redirect to %q, got %q", tt.wantLocation, rr.Header().Get("Location"))
			}
		})
	}
}

func TestLoginMissingFields(t *testing.T) {
	auth, _ := newLocalAuth(t)

	rr := postForm(auth.HandleLogin, "/login", map[string]string{"username": "alice"})
	if rr.Code != http.StatusFound {
		t.Fatalf("Expected redirect, got %d", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/login?error=missing_field" {
		t.Errorf("Expected missing_field redirect, got %q", got)
	}
}
