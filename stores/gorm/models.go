package gorm

import (
	"time"

	secrets "github.com/nishantjakane/Secrets"
)

// UserModel is the GORM model for users. Username and the provider ids are
// pointers so that absent values are stored as NULL and the unique indexes
// only bite when a value is actually present.
type UserModel struct {
	ID           string  `gorm:"primaryKey;size:64"`
	Username     *string `gorm:"uniqueIndex;size:64"`
	PasswordHash string  `gorm:"size:128"`
	GoogleID     *string `gorm:"uniqueIndex;size:128"`
	FacebookID   *string `gorm:"uniqueIndex;size:128"`
	Secret       *string
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *secrets.User {
	return &secrets.User{
		ID:           m.ID,
		Username:     deref(m.Username),
		PasswordHash: m.PasswordHash,
		GoogleID:     deref(m.GoogleID),
		FacebookID:   deref(m.FacebookID),
		Secret:       deref(m.Secret),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func UserToModel(u *secrets.User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Username:     optional(u.Username),
		PasswordHash: u.PasswordHash,
		GoogleID:     optional(u.GoogleID),
		FacebookID:   optional(u.FacebookID),
		Secret:       optional(u.Secret),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
