package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/mkovardin/fleetwatch/internal/handlers/middleware"
	loggerpkg "github.com/mkovardin/fleetwatch/internal/logger"
	"github.com/mkovardin/fleetwatch/internal/models"
	"github.com/mkovardin/fleetwatch/internal/service/auth"
	"github.com/mkovardin/fleetwatch/internal/service/fleet"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	fleetService fleetService,
	hub connectionHub,
	logger loggerpkg.Logger,
) http.Handler {
	if logger == nil {
		logger = loggerpkg.NewNoOp()
	}

	authMiddleware := middleware.AuthMiddleware(authService)
	ownerOnly := middleware.RequireRole(models.RoleOwner)

	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}
	withOwner := func(h http.Handler) http.Handler {
		return authMiddleware(ownerOnly(h))
	}

	api := http.NewServeMux()

	api.Handle("POST /auth/register", handleRegister(authService, logger))
	api.Handle("POST /auth/login", handleLogin(authService, logger))
	api.Handle("POST /auth/refresh", handleTokenRefresh(authService, logger))
	api.Handle("POST /auth/revoke", handleTokenRevoke(authService, logger))
	api.Handle("GET /auth/me", withAuth(handleMe()))

	api.Handle("POST /fleets", withOwner(handleCreateFleet(fleetService, logger)))
	api.Handle("GET /fleets", withOwner(handleListFleets(fleetService, logger)))
	api.Handle("PUT /fleets/{fleetID}", withOwner(handleUpdateFleet(fleetService, logger)))
	api.Handle("DELETE /fleets/{fleetID}", withOwner(handleDeleteFleet(fleetService, logger)))

	api.Handle("POST /fleets/{fleetID}/vehicles", withOwner(handleCreateVehicle(fleetService, logger)))
	api.Handle("GET /fleets/{fleetID}/vehicles", withOwner(handleListVehicles(fleetService, logger)))
	api.Handle("PUT /vehicles/{vehicleID}", withOwner(handleUpdateVehicle(fleetService, logger)))
	api.Handle("DELETE /vehicles/{vehicleID}", withOwner(handleDeleteVehicle(fleetService, logger)))
	api.Handle("POST /vehicles/{vehicleID}/telemetry", withOwner(handleRecordTelemetry(fleetService, logger)))

	api.Handle("GET /ws", handleWebsocket(authService, hub, logger))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register a new owner account with its identity user
	// Has to return apperrors.ErrEmailTaken if the email is in use
	RegisterOwner(ctx context.Context, arg auth.RegisterParams) (models.AuthResult, error)

	// Login with email and password
	// Has to return apperrors.ErrInvalidCredentials on any authentication failure
	Login(ctx context.Context, email string, password string) (models.AuthResult, error)

	// Rotate the refresh token and issue a new pair
	// Has to return apperrors.ErrInvalidRefreshToken for unusable tokens
	Refresh(ctx context.Context, refreshToken string) (models.AuthResult, error)

	// Revoke the refresh token
	// Has to return apperrors.ErrRefreshTokenNotFound for unknown tokens
	Revoke(ctx context.Context, refreshToken string) error

	// Validate access token and return the principal it carries
	Authenticate(ctx context.Context, accessToken string) (models.Principal, error)
}

type fleetService interface {
	CreateFleet(ctx context.Context, ownerID uuid.UUID, arg fleet.FleetParams) (models.Fleet, error)
	ListFleets(ctx context.Context, ownerID uuid.UUID) ([]models.Fleet, error)
	UpdateFleet(ctx context.Context, ownerID uuid.UUID, fleetID uuid.UUID, arg fleet.FleetParams) (models.Fleet, error)
	DeleteFleet(ctx context.Context, ownerID uuid.UUID, fleetID uuid.UUID) error

	CreateVehicle(ctx context.Context, ownerID uuid.UUID, fleetID uuid.UUID, arg fleet.VehicleParams) (models.Vehicle, error)
	ListVehicles(ctx context.Context, ownerID uuid.UUID, fleetID uuid.UUID) ([]models.Vehicle, error)
	UpdateVehicle(ctx context.Context, ownerID uuid.UUID, vehicleID uuid.UUID, arg fleet.VehicleParams) (models.Vehicle, error)
	DeleteVehicle(ctx context.Context, ownerID uuid.UUID, vehicleID uuid.UUID) error

	RecordTelemetry(ctx context.Context, ownerID uuid.UUID, vehicleID uuid.UUID, arg fleet.TelemetryParams) (models.TelemetrySnapshot, error)
}
