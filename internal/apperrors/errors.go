package apperrors

import (
	"errors"
)

var (
	ErrEmailTaken     = errors.New("email already registered")
	ErrPasswordPolicy = errors.New("password does not satisfy policy")
	ErrUserNotFound   = errors.New("user not found")
	ErrOwnerNotFound  = errors.New("owner not found")

	// Returned for any bad credential: unknown email or wrong password.
	// Callers must not be able to tell which check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Returned for any unusable refresh token: unknown, expired or revoked.
	// Callers must not be able to tell which.
	ErrInvalidRefreshToken = errors.New("refresh token is invalid or expired")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")

	ErrCityNotFound    = errors.New("city not found")
	ErrFleetNotFound   = errors.New("fleet not found")
	ErrVehicleNotFound = errors.New("vehicle not found")
)
