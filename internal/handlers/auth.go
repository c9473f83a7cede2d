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
	"github.com/mkovardin/fleetwatch/internal/service/auth"
)

type ownerResponse struct {
	ID           uuid.UUID `json:"id"`
	CompanyName  string    `json:"companyName"`
	ContactEmail string    `json:"contactEmail"`
	ContactPhone *string   `json:"contactPhone,omitempty"`
	City         *string   `json:"city,omitempty"`
	Country      *string   `json:"country,omitempty"`
}

type authResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	ExpiresAt    time.Time      `json:"expiresAt"`
	Owner        *ownerResponse `json:"owner,omitempty"`
}

func newAuthResponse(result models.AuthResult) authResponse {
	res := authResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    result.ExpiresAt,
	}
	if result.Owner != nil {
		res.Owner = &ownerResponse{
			ID:           result.Owner.ID,
			CompanyName:  result.Owner.CompanyName,
			ContactEmail: result.Owner.ContactEmail,
			ContactPhone: result.Owner.ContactPhone,
			City:         result.Owner.City,
			Country:      result.Owner.Country,
		}
	}
	return res
}

func handleRegister(authService authService, logger logger.Logger) http.Handler {
	type request struct {
		CompanyName  string     `json:"companyName" validate:"required,min=2,max=200"`
		Email        string     `json:"email" validate:"required,email"`
		Password     string     `json:"password" validate:"required,min=12"`
		ContactName  string     `json:"contactName" validate:"required,min=2,max=200"`
		ContactPhone *string    `json:"contactPhone,omitempty" validate:"omitempty,max=30"`
		CityID       *uuid.UUID `json:"cityId,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := authService.RegisterOwner(r.Context(), auth.RegisterParams{
			CompanyName:  data.CompanyName,
			Email:        data.Email,
			Password:     data.Password,
			ContactName:  data.ContactName,
			ContactPhone: data.ContactPhone,
			CityID:       data.CityID,
		})
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrEmailTaken):
				render.ServiceError(w, "Email already registered", http.StatusConflict)
			case errors.Is(err, apperrors.ErrPasswordPolicy):
				render.ServiceError(w, "Password does not meet the policy", http.StatusBadRequest)
			case errors.Is(err, apperrors.ErrCityNotFound):
				render.ServiceError(w, "Unknown city", http.StatusBadRequest)
			default:
				logger.Error("register failed", "err", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSONWithStatus(w, newAuthResponse(result), http.StatusCreated)
	})
}

func handleLogin(authService authService, logger logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := authService.Login(r.Context(), data.Email, data.Password)
		if err != nil {
			// Unknown email and wrong password answer identically
			switch {
			case errors.Is(err, apperrors.ErrInvalidCredentials):
				render.ServiceError(w, "Invalid credentials.", http.StatusUnauthorized)
			default:
				logger.Error("login failed", "err", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, newAuthResponse(result))
	})
}

func handleTokenRefresh(authService authService, logger logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := authService.Refresh(r.Context(), data.RefreshToken)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidRefreshToken):
				render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
			default:
				logger.Error("token refresh failed", "err", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, newAuthResponse(result))
	})
}

func handleTokenRevoke(authService authService, logger logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = authService.Revoke(r.Context(), data.RefreshToken)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrRefreshTokenNotFound):
				render.ServiceError(w, "Refresh token not found", http.StatusNotFound)
			default:
				logger.Error("token revoke failed", "err", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{Message: "Token revoked"})
	})
}

func handleMe() http.Handler {
	type response struct {
		UserID    uuid.UUID  `json:"userId"`
		Email     string     `json:"email"`
		OwnerID   *uuid.UUID `json:"ownerId,omitempty"`
		OwnerName string     `json:"ownerName,omitempty"`
		Roles     []string   `json:"roles"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ := userctx.FromContext(r.Context())
		render.JSON(w, response{
			UserID:    principal.UserID,
			Email:     principal.Email,
			OwnerID:   principal.OwnerID,
			OwnerName: principal.OwnerName,
			Roles:     principal.Roles,
		})
	})
}
