package models

import (
	"time"

	"github.com/google/uuid"
)

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by the token manager on registration, login and refresh
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// Principal is the typed identity extracted from a verified access token.
// Built once at verification time, no free-form claim bags downstream.
type Principal struct {
	UserID    uuid.UUID
	Email     string
	OwnerID   *uuid.UUID
	OwnerName string
	Roles     []string
}

// HasRole reports whether the principal carries the named role
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthResult is what the API surface returns for register, login and refresh
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Owner        *OwnerSummary
}

// System role names
const (
	RoleOwner = "Owner"
	RoleAdmin = "Administrator"
)
