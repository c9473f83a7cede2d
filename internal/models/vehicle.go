package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type VehicleStatus string

const (
	VehicleActive      VehicleStatus = "active"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleRetired     VehicleStatus = "retired"
)

type Vehicle struct {
	ID           uuid.UUID
	FleetID      uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Registration string
	Model        string
	Status       VehicleStatus
}

// TelemetrySnapshot is one periodic reading emitted by a vehicle.
// Fuel and odometer are fixed-precision device readings.
type TelemetrySnapshot struct {
	ID          uuid.UUID
	VehicleID   uuid.UUID
	RecordedAt  time.Time
	Latitude    float64
	Longitude   float64
	SpeedKPH    int
	FuelPercent decimal.Decimal
	OdometerKm  decimal.Decimal
}
