package models

import (
	"time"

	"github.com/google/uuid"
)

type Fleet struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Name      string
	HomeBase  *string
}
