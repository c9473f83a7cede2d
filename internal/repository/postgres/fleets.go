package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mkovardin/fleetwatch/internal/apperrors"
	"github.com/mkovardin/fleetwatch/internal/models"
	"github.com/mkovardin/fleetwatch/internal/repository"
)

type FleetRepo struct {
	DB DBTX
}

const createFleet = `-- name: CreateFleet
INSERT INTO fleets (id, owner_id, created_at, updated_at, name, home_base)
VALUES ($1, $2, now(), now(), $3, $4)
RETURNING id, owner_id, created_at, updated_at, name, home_base
`

func (r *FleetRepo) CreateFleet(ctx context.Context, arg repository.CreateFleetParams) (models.Fleet, error) {
	rows, _ := r.DB.Query(ctx, createFleet, uuid.New(), arg.OwnerID, arg.Name, arg.HomeBase)
	fleet, err := pgx.CollectOneRow(rows, rowToFleet)
	if err != nil {
		return fleet, fmt.Errorf("db error: %w", err)
	}
	return fleet, nil
}

const getFleet = `-- name: GetFleet
SELECT id, owner_id, created_at, updated_at, name, home_base
FROM fleets
WHERE id = $1
`

func (r *FleetRepo) GetFleet(ctx context.Context, fleetID uuid.UUID) (models.Fleet, error) {
	rows, _ := r.DB.Query(ctx, getFleet, fleetID)
	fleet, err := pgx.CollectOneRow(rows, rowToFleet)

	switch {
	case err == nil:
		return fleet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return fleet, fmt.Errorf("repo error: %w", apperrors.ErrFleetNotFound)
	default:
		return fleet, fmt.Errorf("db error: %w", err)
	}
}

const listFleets = `-- name: ListFleets
SELECT id, owner_id, created_at, updated_at, name, home_base
FROM fleets
WHERE owner_id = $1
ORDER BY created_at
`

func (r *FleetRepo) ListFleets(ctx context.Context, ownerID uuid.UUID) ([]models.Fleet, error) {
	rows, _ := r.DB.Query(ctx, listFleets, ownerID)
	fleets, err := pgx.CollectRows(rows, rowToFleet)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return fleets, nil
}

const updateFleet = `-- name: UpdateFleet
UPDATE fleets
SET name = $2, home_base = $3, updated_at = now()
WHERE id = $1
RETURNING id, owner_id, created_at, updated_at, name, home_base
`

func (r *FleetRepo) UpdateFleet(ctx context.Context, fleetID uuid.UUID, arg repository.UpdateFleetParams) (models.Fleet, error) {
	rows, _ := r.DB.Query(ctx, updateFleet, fleetID, arg.Name, arg.HomeBase)
	fleet, err := pgx.CollectOneRow(rows, rowToFleet)

	switch {
	case err == nil:
		return fleet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return fleet, fmt.Errorf("repo error: %w", apperrors.ErrFleetNotFound)
	default:
		return fleet, fmt.Errorf("db error: %w", err)
	}
}

const deleteFleet = `-- name: DeleteFleet
DELETE FROM fleets
WHERE id = $1
`

func (r *FleetRepo) DeleteFleet(ctx context.Context, fleetID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteFleet, fleetID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrFleetNotFound)
	}
	return nil
}

func rowToFleet(row pgx.CollectableRow) (models.Fleet, error) {
	var f models.Fleet
	err := row.Scan(&f.ID, &f.OwnerID, &f.CreatedAt, &f.UpdatedAt, &f.Name, &f.HomeBase)
	return f, err
}
