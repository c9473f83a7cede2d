package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is one issued refresh credential. Only the SHA-256 hash of the
// opaque token string is stored. Rows are never deleted: rotation and logout
// stamp RevokedAt, rotation additionally links ReplacedBy to the hash of the
// successor token, preserving the audit chain.
type RefreshToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TokenHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time // nil while token is live
	ReplacedBy *string    // hash of the token issued by rotation, nil otherwise
}

// Active reports whether the token may still be exchanged
func (t RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
