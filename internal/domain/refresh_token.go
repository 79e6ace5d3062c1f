package domain

import "time"

type RefreshToken struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	AccountID       uint       `gorm:"index;not null" json:"-"`
	Token           string     `gorm:"size:128;uniqueIndex;not null" json:"token"`
	Expires         time.Time  `gorm:"index;not null" json:"expires"`
	Created         time.Time  `gorm:"index;not null" json:"created"`
	CreatedByIP     string     `gorm:"size:64" json:"createdByIp"`
	Revoked         *time.Time `gorm:"index" json:"revoked,omitempty"`
	RevokedByIP     string     `gorm:"size:64" json:"revokedByIp,omitempty"`
	ReplacedByToken string     `gorm:"size:128" json:"replacedByToken,omitempty"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.Expires)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.Revoked != nil
}

// IsActive reports whether the token can still be exchanged. Once false it
// never becomes true again.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}

// Prunable reports whether an inactive token has outlived the retention window.
func (t *RefreshToken) Prunable(now time.Time, retention time.Duration) bool {
	return !t.IsActive(now) && !t.Created.Add(retention).After(now)
}
