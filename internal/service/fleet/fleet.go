package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkovardin/fleetwatch/internal/apperrors"
	"github.com/mkovardin/fleetwatch/internal/logger"
	"github.com/mkovardin/fleetwatch/internal/models"
	"github.com/mkovardin/fleetwatch/internal/realtime"
	"github.com/mkovardin/fleetwatch/internal/repository"
)

// Broadcaster pushes domain events to live connections, best effort.
// BroadcastMany keeps one event id across all groups, so connections
// subscribed to several of them can drop duplicates.
type Broadcaster interface {
	Broadcast(group string, event string, payload any)
	BroadcastMany(event string, payload any, groups ...string)
}

// Service implements fleet and vehicle operations for one tenant. Every
// mutation is scoped to the calling owner and notifies the broadcaster.
type Service struct {
	storage     repository.Storage
	broadcaster Broadcaster
	logger      logger.Logger
}

func NewService(storage repository.Storage, broadcaster Broadcaster, log logger.Logger) (*Service, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}
	if broadcaster == nil {
		return nil, errors.New("broadcaster must not be nil")
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	return &Service{
		storage:     storage,
		broadcaster: broadcaster,
		logger:      log,
	}, nil
}

type FleetParams struct {
	Name     string
	HomeBase *string
}

func (s *Service) CreateFleet(ctx context.Context, ownerID uuid.UUID, arg FleetParams) (models.Fleet, error) {
	fleet, err := s.storage.Fleet().CreateFleet(ctx, repository.CreateFleetParams{
		OwnerID:  ownerID,
		Name:     arg.Name,
		HomeBase: arg.HomeBase,
	})
	if err != nil {
		return fleet, err
	}

	s.broadcaster.Broadcast(realtime.GroupOwner(ownerID), realtime.EventFleetCreated, fleetPayload(fleet))
	return fleet, nil
}

func (s *Service) ListFleets(ctx context.Context, ownerID uuid.UUID) ([]models.Fleet, error) {
	return s.storage.Fleet().ListFleets(ctx, ownerID)
}

func (s *Service) UpdateFleet(ctx context.Context, ownerID uuid.UUID, fleetID uuid.UUID, arg FleetParams) (models.Fleet, error) {
	if _, err := s.ownedFleet(ctx, ownerID, fleetID); err != nil {
		return models.Fleet{}, err
	}

	fleet, err := s.storage.Fleet().UpdateFleet(ctx, fleetID, repository.UpdateFleetParams{
		Name:     arg.Name,
		HomeBase: arg.HomeBase,
	})
	if err != nil {
		return fleet, err
	}

	s.broadcaster.Broadcast(realtime.GroupOwner(ownerID), realtime.EventFleetUpdated, fleetPayload(fleet))
	return fleet, nil
}

func (s *Service) DeleteFleet(ctx context.Context, ownerID uuid.UUID, fleetID uuid.UUID) error {
	if _, err := s.ownedFleet(ctx, ownerID, fleetID); err != nil {
		return err
	}

	if err := s.storage.Fleet().DeleteFleet(ctx, fleetID); err != nil {
		return err
	}

	s.broadcaster.Broadcast(realtime.GroupOwner(ownerID), realtime.EventFleetDeleted, map[string]any{
		"fleetId": fleetID,
		"ownerId": ownerID,
	})
	return nil
}

type VehicleParams struct {
	Registration string
	Model        string
	Status       models.VehicleStatus
}

func (s *Service) CreateVehicle(ctx context.Context, ownerID uuid.UUID, fleetID uuid.UUID, arg VehicleParams) (models.Vehicle, error) {
	if _, err := s.ownedFleet(ctx, ownerID, fleetID); err != nil {
		return models.Vehicle{}, err
	}

	if arg.Status == "" {
		arg.Status = models.VehicleActive
	}

	vehicle, err := s.storage.Vehicle().CreateVehicle(ctx, repository.CreateVehicleParams{
		FleetID:      fleetID,
		Registration: arg.Registration,
		Model:        arg.Model,
		Status:       arg.Status,
	})
	if err != nil {
		return vehicle, err
	}

	s.broadcastVehicle(realtime.EventVehicleCreated, ownerID, vehicle)
	return vehicle, nil
}

func (s *Service) ListVehicles(ctx context.Context, ownerID uuid.UUID, fleetID uuid.UUID) ([]models.Vehicle, error) {
	if _, err := s.ownedFleet(ctx, ownerID, fleetID); err != nil {
		return nil, err
	}

	return s.storage.Vehicle().ListVehicles(ctx, fleetID)
}

func (s *Service) UpdateVehicle(ctx context.Context, ownerID uuid.UUID, vehicleID uuid.UUID, arg VehicleParams) (models.Vehicle, error) {
	if _, err := s.ownedVehicle(ctx, ownerID, vehicleID); err != nil {
		return models.Vehicle{}, err
	}

	vehicle, err := s.storage.Vehicle().UpdateVehicle(ctx, vehicleID, repository.UpdateVehicleParams{
		Registration: arg.Registration,
		Model:        arg.Model,
		Status:       arg.Status,
	})
	if err != nil {
		return vehicle, err
	}

	s.broadcastVehicle(realtime.EventVehicleUpdated, ownerID, vehicle)
	return vehicle, nil
}

func (s *Service) DeleteVehicle(ctx context.Context, ownerID uuid.UUID, vehicleID uuid.UUID) error {
	vehicle, err := s.ownedVehicle(ctx, ownerID, vehicleID)
	if err != nil {
		return err
	}

	if err := s.storage.Vehicle().DeleteVehicle(ctx, vehicleID); err != nil {
		return err
	}

	payload := map[string]any{
		"vehicleId": vehicle.ID,
		"fleetId":   vehicle.FleetID,
		"ownerId":   ownerID,
	}
	s.broadcaster.BroadcastMany(realtime.EventVehicleDeleted, payload,
		realtime.GroupFleet(vehicle.FleetID), realtime.GroupOwner(ownerID))
	return nil
}

type TelemetryParams struct {
	RecordedAt  time.Time
	Latitude    float64
	Longitude   float64
	SpeedKPH    int
	FuelPercent decimal.Decimal
	OdometerKm  decimal.Decimal
}

// RecordTelemetry stores one snapshot and pushes it to the vehicle and owner
// groups
func (s *Service) RecordTelemetry(ctx context.Context, ownerID uuid.UUID, vehicleID uuid.UUID, arg TelemetryParams) (models.TelemetrySnapshot, error) {
	if _, err := s.ownedVehicle(ctx, ownerID, vehicleID); err != nil {
		return models.TelemetrySnapshot{}, err
	}

	recordedAt := arg.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	snap, err := s.storage.Vehicle().SaveTelemetry(ctx, models.TelemetrySnapshot{
		ID:          uuid.New(),
		VehicleID:   vehicleID,
		RecordedAt:  recordedAt,
		Latitude:    arg.Latitude,
		Longitude:   arg.Longitude,
		SpeedKPH:    arg.SpeedKPH,
		FuelPercent: arg.FuelPercent,
		OdometerKm:  arg.OdometerKm,
	})
	if err != nil {
		return snap, err
	}

	payload := map[string]any{
		"vehicleId":   snap.VehicleID,
		"recordedAt":  snap.RecordedAt,
		"latitude":    snap.Latitude,
		"longitude":   snap.Longitude,
		"speedKph":    snap.SpeedKPH,
		"fuelPercent": snap.FuelPercent,
		"odometerKm":  snap.OdometerKm,
	}
	s.broadcaster.BroadcastMany(realtime.EventTelemetryRecorded, payload,
		realtime.GroupVehicle(vehicleID), realtime.GroupOwner(ownerID))

	return snap, nil
}

// broadcastVehicle dual-delivers to the fleet and the owner group. Clients in
// both receive the same envelope twice and dedup on the envelope id.
func (s *Service) broadcastVehicle(event string, ownerID uuid.UUID, vehicle models.Vehicle) {
	s.broadcaster.BroadcastMany(event, vehiclePayload(vehicle),
		realtime.GroupFleet(vehicle.FleetID), realtime.GroupOwner(ownerID))
	s.logger.Debug("vehicle event broadcast", "event", event, "vehicle_id", vehicle.ID, "fleet_id", vehicle.FleetID)
}

// ownedFleet loads the fleet and hides other tenants' fleets behind not-found
func (s *Service) ownedFleet(ctx context.Context, ownerID uuid.UUID, fleetID uuid.UUID) (models.Fleet, error) {
	fleet, err := s.storage.Fleet().GetFleet(ctx, fleetID)
	if err != nil {
		return fleet, err
	}
	if fleet.OwnerID != ownerID {
		return fleet, fmt.Errorf("fleet belongs to different owner: %w", apperrors.ErrFleetNotFound)
	}
	return fleet, nil
}

func (s *Service) ownedVehicle(ctx context.Context, ownerID uuid.UUID, vehicleID uuid.UUID) (models.Vehicle, error) {
	vehicle, err := s.storage.Vehicle().GetVehicle(ctx, vehicleID)
	if err != nil {
		return vehicle, err
	}

	if _, err := s.ownedFleet(ctx, ownerID, vehicle.FleetID); err != nil {
		return vehicle, fmt.Errorf("vehicle belongs to different owner: %w", apperrors.ErrVehicleNotFound)
	}
	return vehicle, nil
}

func fleetPayload(fleet models.Fleet) map[string]any {
	return map[string]any{
		"fleetId":   fleet.ID,
		"ownerId":   fleet.OwnerID,
		"name":      fleet.Name,
		"homeBase":  fleet.HomeBase,
		"updatedAt": fleet.UpdatedAt,
	}
}

func vehiclePayload(vehicle models.Vehicle) map[string]any {
	return map[string]any{
		"vehicleId":    vehicle.ID,
		"fleetId":      vehicle.FleetID,
		"registration": vehicle.Registration,
		"model":        vehicle.Model,
		"status":       vehicle.Status,
		"updatedAt":    vehicle.UpdatedAt,
	}
}
