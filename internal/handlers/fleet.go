package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mkovardin/fleetwatch/internal/apperrors"
	"github.com/mkovardin/fleetwatch/internal/handlers/render"
	"github.com/mkovardin/fleetwatch/internal/handlers/userctx"
	"github.com/mkovardin/fleetwatch/internal/logger"
	"github.com/mkovardin/fleetwatch/internal/models"
	"github.com/mkovardin/fleetwatch/internal/service/fleet"
)

type fleetResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	HomeBase  *string   `json:"homeBase,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newFleetResponse(f models.Fleet) fleetResponse {
	return fleetResponse{
		ID:        f.ID,
		Name:      f.Name,
		HomeBase:  f.HomeBase,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ownerFromRequest resolves the tenant of the authenticated principal.
// Writes 403 and returns false for users without an owner profile.
func ownerFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	principal, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return uuid.Nil, false
	}
	if principal.OwnerID == nil {
		render.ServiceError(w, "Forbidden", http.StatusForbidden)
		return uuid.Nil, false
	}
	return *principal.OwnerID, true
}

// pathID parses the named path segment as uuid. Writes 404 on garbage ids so
// malformed and unknown ids are indistinguishable.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		render.ServiceError(w, "Not found", http.StatusNotFound)
		return uuid.Nil, false
	}
	return id, true
}

type fleetRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=200"`
	HomeBase *string `json:"homeBase,omitempty" validate:"omitempty,max=200"`
}

func handleCreateFleet(fleetService fleetService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFromRequest(w, r)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[fleetRequest](w, r)
		if err != nil {
			return
		}

		created, err := fleetService.CreateFleet(r.Context(), ownerID, fleet.FleetParams{
			Name:     data.Name,
			HomeBase: data.HomeBase,
		})
		if err != nil {
			logger.Error("create fleet failed", "err", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSONWithStatus(w, newFleetResponse(created), http.StatusCreated)
	})
}

func handleListFleets(fleetService fleetService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFromRequest(w, r)
		if !ok {
			return
		}

		fleets, err := fleetService.ListFleets(r.Context(), ownerID)
		if err != nil {
			logger.Error("list fleets failed", "err", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		res := make([]fleetResponse, 0, len(fleets))
		for _, f := range fleets {
			res = append(res, newFleetResponse(f))
		}
		render.JSON(w, res)
	})
}

func handleUpdateFleet(fleetService fleetService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFromRequest(w, r)
		if !ok {
			return
		}
		fleetID, ok := pathID(w, r, "fleetID")
		if !ok {
			return
		}

		data, err := render.BindAndValidate[fleetRequest](w, r)
		if err != nil {
			return
		}

		updated, err := fleetService.UpdateFleet(r.Context(), ownerID, fleetID, fleet.FleetParams{
			Name:     data.Name,
			HomeBase: data.HomeBase,
		})
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrFleetNotFound):
				render.ServiceError(w, "Fleet not found", http.StatusNotFound)
			default:
				logger.Error("update fleet failed", "err", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, newFleetResponse(updated))
	})
}

func handleDeleteFleet(fleetService fleetService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFromRequest(w, r)
		if !ok {
			return
		}
		fleetID, ok := pathID(w, r, "fleetID")
		if !ok {
			return
		}

		err := fleetService.DeleteFleet(r.Context(), ownerID, fleetID)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrFleetNotFound):
				render.ServiceError(w, "Fleet not found", http.StatusNotFound)
			default:
				logger.Error("delete fleet failed", "err", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}
