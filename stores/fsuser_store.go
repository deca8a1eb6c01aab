package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	secrets "github.com/nishantjakane/Secrets"
)

// FSUserStore keeps all users in a single JSON file. It is meant for tests
// and dependency-free development runs; the mutex makes find-or-create
// atomic within the process, and writes go through a temp-file rename.
type FSUserStore struct {
	StoragePath string

	mu sync.Mutex
}

func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath}
}

func (s *FSUserStore) usersFile() string {
	return filepath.Join(s.StoragePath, "users.json")
}

// load reads the user table. Callers must hold s.mu.
func (s *FSUserStore) load() (map[string]*secrets.User, error) {
	data, err := os.ReadFile(s.usersFile())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*secrets.User{}, nil
		}
		return nil, err
	}
	var users map[string]*secrets.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = map[string]*secrets.User{}
	}
	return users, nil
}

// save writes the user table back. Callers must hold s.mu.
func (s *FSUserStore) save(users map[string]*secrets.User) error {
	if err := os.MkdirAll(s.StoragePath, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(s.usersFile(), data)
}

func (s *FSUserStore) GetUserByID(ctx context.Context, id string) (*secrets.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return nil, err
	}
	user, ok := users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", secrets.ErrUserNotFound, id)
	}
	return user, nil
}

func (s *FSUserStore) GetUserByUsername(ctx context.Context, username string) (*secrets.User, error) {
	if username == "" {
		return nil, secrets.ErrUserNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", secrets.ErrUserNotFound, username)
}

func (s *FSUserStore) CreateLocalUser(ctx context.Context, username, passwordHash string) (*secrets.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		if user.Username == username {
			return nil, secrets.ErrDuplicateUsername
		}
	}

	now := time.Now()
	user := &secrets.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	users[user.ID] = user
	if err := s.save(users); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *FSUserStore) FindOrCreateByProvider(ctx context.Context, provider, externalID string) (*secrets.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return nil, err
	}

	for _, user := range users {
		if providerID(user, provider) == externalID {
			return user, nil
		}
	}

	now := time.Now()
	user := &secrets.User{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := setProviderID(user, provider, externalID); err != nil {
		return nil, err
	}
	users[user.ID] = user
	if err := s.save(users); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *FSUserStore) SetSecret(ctx context.Context, userID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return err
	}
	user, ok := users[userID]
	if !ok {
		return fmt.Errorf("%w: %s", secrets.ErrUserNotFound, userID)
	}
	user.Secret = secret
	user.UpdatedAt = time.Now()
	return s.save(users)
}

func (s *FSUserStore) ListUsersWithSecrets(ctx context.Context) ([]*secrets.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []*secrets.User
	for _, user := range users {
		if user.HasSecret() {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func providerID(user *secrets.User, provider string) string {
	switch provider {
	case secrets.ProviderGoogle:
		return user.GoogleID
	case secrets.ProviderFacebook:
		return user.FacebookID
	}
	return ""
}

func setProviderID(user *secrets.User, provider, externalID string) error {
	switch provider {
	case secrets.ProviderGoogle:
		user.GoogleID = externalID
	case secrets.ProviderFacebook:
		user.FacebookID = externalID
	default:
		return fmt.Errorf("unknown provider: %s", provider)
	}
	return nil
}
