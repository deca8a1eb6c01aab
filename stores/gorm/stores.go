package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	secrets "github.com/nishantjakane/Secrets"
)

// AutoMigrate creates the users table and its unique indexes.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{})
}

// UserStore implements secrets.UserStore using GORM.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUserByID(ctx context.Context, id string) (*secrets.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", secrets.ErrUserNotFound, id)
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*secrets.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", secrets.ErrUserNotFound, username)
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) CreateLocalUser(ctx context.Context, username, passwordHash string) (*secrets.User, error) {
	model := &UserModel{
		ID:           uuid.NewString(),
		Username:     &username,
		PasswordHash: passwordHash,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || s.usernameExists(ctx, username) {
			return nil, secrets.ErrDuplicateUsername
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) usernameExists(ctx context.Context, username string) bool {
	var count int64
	s.db.WithContext(ctx).Model(&UserModel{}).Where("username = ?", username).Count(&count)
	return count > 0
}

// FindOrCreateByProvider does an insert-on-conflict-do-nothing against the
// provider's unique index and then reads the winning row back, so two
// concurrent first-time logins from the same external identity converge on
// one record.
func (s *UserStore) FindOrCreateByProvider(ctx context.Context, provider, externalID string) (*secrets.User, error) {
	column, err := providerColumn(provider)
	if err != nil {
		return nil, err
	}

	model := &UserModel{ID: uuid.NewString()}
	switch provider {
	case secrets.ProviderGoogle:
		model.GoogleID = &externalID
	case secrets.ProviderFacebook:
		model.FacebookID = &externalID
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: column}},
		DoNothing: true,
	}).Create(model)
	if res.Error != nil {
		return nil, res.Error
	}

	var winner UserModel
	if err := s.db.WithContext(ctx).First(&winner, fmt.Sprintf("%s = ?", column), externalID).Error; err != nil {
		return nil, err
	}
	return winner.ToUser(), nil
}

func (s *UserStore) SetSecret(ctx context.Context, userID, secret string) error {
	res := s.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", userID).
		Update("secret", optional(secret))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", secrets.ErrUserNotFound, userID)
	}
	return nil
}

func (s *UserStore) ListUsersWithSecrets(ctx context.Context) ([]*secrets.User, error) {
	var models []UserModel
	if err := s.db.WithContext(ctx).
		Where("secret IS NOT NULL AND secret <> ''").
		Order("created_at").
		Find(&models).Error; err != nil {
		return nil, err
	}

	users := make([]*secrets.User, len(models))
	for i := range models {
		users[i] = models[i].ToUser()
	}
	return users, nil
}

func providerColumn(provider string) (string, error) {
	switch provider {
	case secrets.ProviderGoogle:
		return "google_id", nil
	case secrets.ProviderFacebook:
		return "facebook_id", nil
	}
	return "", fmt.Errorf("unknown provider: %s", provider)
}
