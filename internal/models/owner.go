package models

import (
	"time"

	"github.com/google/uuid"
)

// Owner is the tenant record: fleets and vehicles belong to exactly one owner.
// Linked 1:1 to the identity user that registered it. A user without an owner
// profile is possible (administrator accounts).
type Owner struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	CreatedAt    time.Time
	CompanyName  string
	ContactName  string
	ContactEmail string
	ContactPhone *string
	CityID       *uuid.UUID

	// Group id assigned by the external directory, if federation is configured
	DirectoryGroupID *string
}

// OwnerSummary is the owner view returned with authentication results
type OwnerSummary struct {
	ID           uuid.UUID
	CompanyName  string
	ContactEmail string
	ContactPhone *string
	City         *string
	Country      *string
}

type City struct {
	ID      uuid.UUID
	Name    string
	Country string
}
