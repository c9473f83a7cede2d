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

type VehicleRepo struct {
	DB DBTX
}

const createVehicle = `-- name: CreateVehicle
INSERT INTO vehicles (id, fleet_id, created_at, updated_at, registration, model, status)
VALUES ($1, $2, now(), now(), $3, $4, $5)
RETURNING id, fleet_id, created_at, updated_at, registration, model, status
`

func (r *VehicleRepo) CreateVehicle(ctx context.Context, arg repository.CreateVehicleParams) (models.Vehicle, error) {
	rows, _ := r.DB.Query(ctx, createVehicle, uuid.New(), arg.FleetID, arg.Registration, arg.Model, arg.Status)
	vehicle, err := pgx.CollectOneRow(rows, rowToVehicle)
	if err != nil {
		return vehicle, fmt.Errorf("db error: %w", err)
	}
	return vehicle, nil
}

const getVehicle = `-- name: GetVehicle
SELECT id, fleet_id, created_at, updated_at, registration, model, status
FROM vehicles
WHERE id = $1
`

func (r *VehicleRepo) GetVehicle(ctx context.Context, vehicleID uuid.UUID) (models.Vehicle, error) {
	rows, _ := r.DB.Query(ctx, getVehicle, vehicleID)
	vehicle, err := pgx.CollectOneRow(rows, rowToVehicle)

	switch {
	case err == nil:
		return vehicle, nil
	case errors.Is(err, pgx.ErrNoRows):
		return vehicle, fmt.Errorf("repo error: %w", apperrors.ErrVehicleNotFound)
	default:
		return vehicle, fmt.Errorf("db error: %w", err)
	}
}

const listVehicles = `-- name: ListVehicles
SELECT id, fleet_id, created_at, updated_at, registration, model, status
FROM vehicles
WHERE fleet_id = $1
ORDER BY created_at
`

func (r *VehicleRepo) ListVehicles(ctx context.Context, fleetID uuid.UUID) ([]models.Vehicle, error) {
	rows, _ := r.DB.Query(ctx, listVehicles, fleetID)
	vehicles, err := pgx.CollectRows(rows, rowToVehicle)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return vehicles, nil
}

const updateVehicle = `-- name: UpdateVehicle
UPDATE vehicles
SET registration = $2, model = $3, status = $4, updated_at = now()
WHERE id = $1
RETURNING id, fleet_id, created_at, updated_at, registration, model, status
`

func (r *VehicleRepo) UpdateVehicle(ctx context.Context, vehicleID uuid.UUID, arg repository.UpdateVehicleParams) (models.Vehicle, error) {
	rows, _ := r.DB.Query(ctx, updateVehicle, vehicleID, arg.Registration, arg.Model, arg.Status)
	vehicle, err := pgx.CollectOneRow(rows, rowToVehicle)

	switch {
	case err == nil:
		return vehicle, nil
	case errors.Is(err, pgx.ErrNoRows):
		return vehicle, fmt.Errorf("repo error: %w", apperrors.ErrVehicleNotFound)
	default:
		return vehicle, fmt.Errorf("db error: %w", err)
	}
}

const deleteVehicle = `-- name: DeleteVehicle
DELETE FROM vehicles
WHERE id = $1
`

func (r *VehicleRepo) DeleteVehicle(ctx context.Context, vehicleID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteVehicle, vehicleID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrVehicleNotFound)
	}
	return nil
}

const saveTelemetry = `-- name: SaveTelemetry
INSERT INTO vehicle_telemetry (id, vehicle_id, recorded_at, latitude, longitude, speed_kph, fuel_percent, odometer_km)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, vehicle_id, recorded_at, latitude, longitude, speed_kph, fuel_percent, odometer_km
`

func (r *VehicleRepo) SaveTelemetry(ctx context.Context, snap models.TelemetrySnapshot) (models.TelemetrySnapshot, error) {
	rows, _ := r.DB.Query(ctx, saveTelemetry,
		snap.ID, snap.VehicleID, snap.RecordedAt, snap.Latitude, snap.Longitude,
		snap.SpeedKPH, snap.FuelPercent, snap.OdometerKm)
	saved, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.TelemetrySnapshot, error) {
		var s models.TelemetrySnapshot
		err := row.Scan(&s.ID, &s.VehicleID, &s.RecordedAt, &s.Latitude, &s.Longitude,
			&s.SpeedKPH, &s.FuelPercent, &s.OdometerKm)
		return s, err
	})
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

func rowToVehicle(row pgx.CollectableRow) (models.Vehicle, error) {
	var v models.Vehicle
	err := row.Scan(&v.ID, &v.FleetID, &v.CreatedAt, &v.UpdatedAt, &v.Registration, &v.Model, &v.Status)
	return v, err
}
