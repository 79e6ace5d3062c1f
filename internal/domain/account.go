package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type Account struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Title             string         `gorm:"size:32" json:"title"`
	FirstName         string         `gorm:"size:128" json:"firstName"`
	LastName          string         `gorm:"size:128" json:"lastName"`
	Email             string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash      string         `gorm:"size:255;not null" json:"-"`
	Role              Role           `gorm:"size:16;not null" json:"role"`
	AcceptTerms       bool           `json:"acceptTerms"`
	VerificationToken *string        `gorm:"size:128;uniqueIndex" json:"-"`
	Verified          *time.Time     `json:"verified,omitempty"`
	ResetToken        *string        `gorm:"size:128;uniqueIndex" json:"-"`
	ResetTokenExpires *time.Time     `json:"-"`
	PasswordReset     *time.Time     `json:"passwordReset,omitempty"`
	CreatedAt         time.Time      `json:"created"`
	UpdatedAt         *time.Time     `gorm:"autoUpdateTime:false" json:"updated,omitempty"`
	RefreshTokens     []RefreshToken `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
}

func (a *Account) IsVerified() bool {
	return a.Verified != nil
}

func (a *Account) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// FindRefreshToken returns the token with the given value from this account's
// collection, or nil.
func (a *Account) FindRefreshToken(value string) *RefreshToken {
	for i := range a.RefreshTokens {
		if a.RefreshTokens[i].Token == value {
			return &a.RefreshTokens[i]
		}
	}
	return nil
}

func (a *Account) OwnsToken(value string) bool {
	return a.FindRefreshToken(value) != nil
}

// CanActOn reports whether a is allowed to read or modify the account with
// the given id.
func (a *Account) CanActOn(accountID uint) bool {
	return a.ID == accountID || a.Role == RoleAdmin
}

// NormalizeEmail is applied to every email before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
