package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkovardin/fleetwatch/internal/apperrors"
	"github.com/mkovardin/fleetwatch/internal/handlers/render"
	"github.com/mkovardin/fleetwatch/internal/logger"
	"github.com/mkovardin/fleetwatch/internal/models"
	"github.com/mkovardin/fleetwatch/internal/service/fleet"
)

type vehicleResponse struct {
	ID           uuid.UUID            `json:"id"`
	FleetID      uuid.UUID            `json:"fleetId"`
	Registration string               `json:"registration"`
	Model        string               `json:"model"`
	Status       models.VehicleStatus `json:"status"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

func newVehicleResponse(v models.Vehicle) vehicleResponse {
	return vehicleResponse{
		ID:           v.ID,
		FleetID:      v.FleetID,
		Registration: v.Registration,
		Model:        v.Model,
		Status:       v.Status,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

type vehicleRequest struct {
	Registration string `json:"registration" validate:"required,min=2,max=20"`
	Model        string `json:"model" validate:"required,min=1,max=100"`
	Status       string `json:"status" validate:"omitempty,oneof=active maintenance retired"`
}

func handleCreateVehicle(fleetService fleetService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFromRequest(w, r)
		if !ok {
			return
		}
		fleetID, ok := pathID(w, r, "fleetID")
		if !ok {
			return
		}

		data, err := render.BindAndValidate[vehicleRequest](w, r)
		if err != nil {
			return
		}

		created, err := fleetService.CreateVehicle(r.Context(), ownerID, fleetID, fleet.VehicleParams{
			Registration: data.Registration,
			Model:        data.Model,
			Status:       models.VehicleStatus(data.Status),
		})
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrFleetNotFound):
				render.ServiceError(w, "Fleet not found", http.StatusNotFound)
			default:
				logger.Error("create vehicle failed", "err", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSONWithStatus(w, newVehicleResponse(created), http.StatusCreated)
	})
}

func handleListVehicles(fleetService fleetService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFromRequest(w, r)
		if !ok {
			return
		}
		fleetID, ok := pathID(w, r, "fleetID")
		if !ok {
			return
		}

		vehicles, err := fleetService.ListVehicles(r.Context(), ownerID, fleetID)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrFleetNotFound):
				render.ServiceError(w, "Fleet not found", http.StatusNotFound)
			default:
				logger.Error("list vehicles failed", "err", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		res := make([]vehicleResponse, 0, len(vehicles))
		for _, v := range vehicles {
			res = append(res, newVehicleResponse(v))
		}
		render.JSON(w, res)
	})
}

func handleUpdateVehicle(fleetService fleetService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFromRequest(w, r)
		if !ok {
			return
		}
		vehicleID, ok := pathID(w, r, "vehicleID")
		if !ok {
			return
		}

		data, err := render.BindAndValidate[vehicleRequest](w, r)
		if err != nil {
			return
		}

		updated, err := fleetService.UpdateVehicle(r.Context(), ownerID, vehicleID, fleet.VehicleParams{
			Registration: data.Registration,
			Model:        data.Model,
			Status:       models.VehicleStatus(data.Status),
		})
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrVehicleNotFound):
				render.ServiceError(w, "Vehicle not found", http.StatusNotFound)
			default:
				logger.Error("update vehicle failed", "err", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, newVehicleResponse(updated))
	})
}

func handleDeleteVehicle(fleetService fleetService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFromRequest(w, r)
		if !ok {
			return
		}
		vehicleID, ok := pathID(w, r, "vehicleID")
		if !ok {
			return
		}

		err := fleetService.DeleteVehicle(r.Context(), ownerID, vehicleID)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrVehicleNotFound):
				render.ServiceError(w, "Vehicle not found", http.StatusNotFound)
			default:
				logger.Error("delete vehicle failed", "err", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func handleRecordTelemetry(fleetService fleetService, logger logger.Logger) http.Handler {
	type request struct {
		RecordedAt  *time.Time      `json:"recordedAt,omitempty"`
		Latitude    float64         `json:"latitude" validate:"min=-90,max=90"`
		Longitude   float64         `json:"longitude" validate:"min=-180,max=180"`
		SpeedKPH    int             `json:"speedKph" validate:"min=0,max=400"`
		FuelPercent decimal.Decimal `json:"fuelPercent"`
		OdometerKm  decimal.Decimal `json:"odometerKm"`
	}
	type response struct {
		ID         uuid.UUID `json:"id"`
		VehicleID  uuid.UUID `json:"vehicleId"`
		RecordedAt time.Time `json:"recordedAt"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFromRequest(w, r)
		if !ok {
			return
		}
		vehicleID, ok := pathID(w, r, "vehicleID")
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		arg := fleet.TelemetryParams{
			Latitude:    data.Latitude,
			Longitude:   data.Longitude,
			SpeedKPH:    data.SpeedKPH,
			FuelPercent: data.FuelPercent,
			OdometerKm:  data.OdometerKm,
		}
		if data.RecordedAt != nil {
			arg.RecordedAt = *data.RecordedAt
		}

		snap, err := fleetService.RecordTelemetry(r.Context(), ownerID, vehicleID, arg)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrVehicleNotFound):
				render.ServiceError(w, "Vehicle not found", http.StatusNotFound)
			default:
				logger.Error("record telemetry failed", "err", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSONWithStatus(w, response{
			ID:         snap.ID,
			VehicleID:  snap.VehicleID,
			RecordedAt: snap.RecordedAt,
		}, http.StatusAccepted)
	})
}
