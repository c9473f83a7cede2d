package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Email          string
	HashedPassword string
	Roles          []string
	LastLoginAt    *time.Time // nil if user never logged in
	DeletedAt      *time.Time // soft delete stamp, users are never hard-deleted
}
