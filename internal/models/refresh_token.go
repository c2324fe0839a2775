package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the persisted half of an opaque refresh token. Only the
// SHA-256 hash of the token value is stored; the plaintext is handed to the
// client exactly once at issuance.
//
// A record is valid iff RevokedAt is nil and ExpiresAt is in the future.
// The only in-place mutation ever applied is setting RevokedAt; rotation
// always creates a fresh record.
type RefreshToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	TokenHash string     `gorm:"uniqueIndex;not null;size:64" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	CreatedAt time.Time  `json:"created_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

// Valid reports whether the record can still be consumed at the given instant.
func (t *RefreshToken) Valid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
