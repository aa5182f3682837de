package auth

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is a long-lived credential bound to a user. Only the bcrypt hash of
// the secret is stored.
type APIKey struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Prefix    string
	KeyHash   string
	IsAdmin   bool
	CreatedAt time.Time
	RevokedAt *time.Time
}

// IssuedKey is returned once, when a key is created. Secret is never stored.
type IssuedKey struct {
	Key    APIKey
	Secret string
}

// UserClaims describes the validated identity extracted from a credential.
type UserClaims struct {
	UserID    uuid.UUID
	Email     string
	IsAdmin   bool
	ExpiresAt time.Time
	IssuedAt  time.Time
}
