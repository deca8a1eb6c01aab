package secrets

import (
	"context"
	"time"
)

// Auth providers. The set is closed: routes select a provider explicitly
// rather than registering strategies into a middleware chain.
const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// User is the single persisted entity. A user created locally has Username
// and PasswordHash set; a user created through an OAuth callback has only the
// matching provider ID set. Secret holds the one string the user has chosen
// to share (last write wins).
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username,omitempty"`
	PasswordHash string    `json:"password_hash,omitempty"`
	GoogleID     string    `json:"google_id,omitempty"`
	FacebookID   string    `json:"facebook_id,omitempty"`
	Secret       string    `json:"secret,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasSecret reports whether the user has shared a secret.
func (u *User) HasSecret() bool { return u != nil && u.Secret != "" }

// DisplayName returns something renderable for the secrets page.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return "Anonymous"
}

// UserStore is the persistence contract. Implementations must enforce
// uniqueness of Username, GoogleID and FacebookID (when set) and make
// FindOrCreateByProvider behave atomically so concurrent first-time logins
// from the same external identity cannot create duplicate accounts.
type UserStore interface {
	// GetUserByID resolves a session's stored id back into a user record.
	// Returns ErrUserNotFound when the id no longer resolves.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername looks up a local account by its username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// CreateLocalUser creates a local-auth account. Returns
	// ErrDuplicateUsername if the username is taken.
	CreateLocalUser(ctx context.Context, username, passwordHash string) (*User, error)

	// FindOrCreateByProvider returns the user whose provider id column
	// matches externalID, creating a fresh record (all other fields empty)
	// when none exists.
	FindOrCreateByProvider(ctx context.Context, provider, externalID string) (*User, error)

	// SetSecret overwrites the user's shared secret.
	SetSecret(ctx context.Context, userID, secret string) error

	// ListUsersWithSecrets returns every user with a non-empty secret.
	ListUsersWithSecrets(ctx context.Context) ([]*User, error)
}
