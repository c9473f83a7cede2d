package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mkovardin/fleetwatch/internal/models"
)

type CreateUserParams struct {
	Email          string
	HashedPassword string
	Roles          []string
}

// User repository interface
type UserRepo interface {
	// Create user
	// Email uniqueness is case-insensitive; on conflict must return apperrors.ErrEmailTaken
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id or email (email match is case-insensitive)
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Stamp last successful login time
	StampLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
}

type CreateOwnerParams struct {
	UserID       uuid.UUID
	CompanyName  string
	ContactName  string
	ContactEmail string
	ContactPhone *string
	CityID       *uuid.UUID
}

// Owner (tenant) repository interface
type OwnerRepo interface {
	CreateOwner(ctx context.Context, arg CreateOwnerParams) (models.Owner, error)

	// Get the owner profile linked to the identity user
	// If no profile exists must return apperrors.ErrOwnerNotFound
	GetOwnerByUserID(ctx context.Context, userID uuid.UUID) (models.Owner, error)

	// Owner summary with resolved city and country names
	GetOwnerSummary(ctx context.Context, ownerID uuid.UUID) (models.OwnerSummary, error)

	// Record the group id assigned by the external directory
	SetDirectoryGroup(ctx context.Context, ownerID uuid.UUID, groupID string) error
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Persist token (hash only, never the plaintext)
	Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Get token row by stored hash
	// If token not found must return apperrors.ErrRefreshTokenNotFound
	GetByHash(ctx context.Context, tokenHash string) (models.RefreshToken, error)

	// Same as GetByHash but locks the row until the surrounding transaction ends.
	// Rotation must call this inside Storage.InTx so concurrent refreshes of the
	// same token serialize and exactly one of them wins.
	GetByHashForUpdate(ctx context.Context, tokenHash string) (models.RefreshToken, error)

	// Stamp revoked_at (and the rotation successor hash, when rotating).
	// Must not overwrite an existing revoked_at stamp.
	Revoke(ctx context.Context, tokenID uuid.UUID, at time.Time, replacedBy *string) error
}

type CreateFleetParams struct {
	OwnerID  uuid.UUID
	Name     string
	HomeBase *string
}

type UpdateFleetParams struct {
	Name     string
	HomeBase *string
}

// Fleet repository interface
type FleetRepo interface {
	CreateFleet(ctx context.Context, arg CreateFleetParams) (models.Fleet, error)

	// If fleet not found must return apperrors.ErrFleetNotFound
	GetFleet(ctx context.Context, fleetID uuid.UUID) (models.Fleet, error)
	ListFleets(ctx context.Context, ownerID uuid.UUID) ([]models.Fleet, error)
	UpdateFleet(ctx context.Context, fleetID uuid.UUID, arg UpdateFleetParams) (models.Fleet, error)
	DeleteFleet(ctx context.Context, fleetID uuid.UUID) error
}

type CreateVehicleParams struct {
	FleetID      uuid.UUID
	Registration string
	Model        string
	Status       models.VehicleStatus
}

type UpdateVehicleParams struct {
	Registration string
	Model        string
	Status       models.VehicleStatus
}

// Vehicle repository interface
type VehicleRepo interface {
	CreateVehicle(ctx context.Context, arg CreateVehicleParams) (models.Vehicle, error)

	// If vehicle not found must return apperrors.ErrVehicleNotFound
	GetVehicle(ctx context.Context, vehicleID uuid.UUID) (models.Vehicle, error)
	ListVehicles(ctx context.Context, fleetID uuid.UUID) ([]models.Vehicle, error)
	UpdateVehicle(ctx context.Context, vehicleID uuid.UUID, arg UpdateVehicleParams) (models.Vehicle, error)
	DeleteVehicle(ctx context.Context, vehicleID uuid.UUID) error

	SaveTelemetry(ctx context.Context, snap models.TelemetrySnapshot) (models.TelemetrySnapshot, error)
}

// City lookup interface (table is migration-seeded, read only)
type CityRepo interface {
	// If city not found must return apperrors.ErrCityNotFound
	GetCity(ctx context.Context, cityID uuid.UUID) (models.City, error)
}

// Storage bundles all repositories over one connection or transaction
type Storage interface {
	User() UserRepo
	Owner() OwnerRepo
	Refresh() RefreshTokenRepo
	Fleet() FleetRepo
	Vehicle() VehicleRepo
	City() CityRepo

	// Run fn with a Storage bound to a single database transaction.
	// Commit if fn returns nil, rollback otherwise.
	InTx(ctx context.Context, fn func(Storage) error) error
}
