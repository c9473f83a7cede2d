package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkovardin/fleetwatch/internal/apperrors"
	"github.com/mkovardin/fleetwatch/internal/logger"
	"github.com/mkovardin/fleetwatch/internal/models"
	"github.com/mkovardin/fleetwatch/internal/repository"
	"github.com/mkovardin/fleetwatch/internal/service/auth/tokenmanager"
)

// Directory is the optional external identity directory (user provisioning and
// per-owner groups). A nil-safe no-op implementation is fine: provisioning is
// best-effort and never fails registration.
type Directory interface {
	Enabled() bool
	ProvisionUser(ctx context.Context, email string, fullName string) (string, error)
	EnsureOwnerGroup(ctx context.Context, companyName string) (string, error)
}

type Config struct {
	// Hasher used during registration and login
	// BcryptHasher is used if not set
	Hasher PasswordHasher
}

// Service orchestrates registration, login, refresh rotation and revocation
// against the storage and the token manager
type Service struct {
	tokens    *tokenmanager.TokenManager
	hasher    PasswordHasher
	storage   repository.Storage
	directory Directory
	logger    logger.Logger
}

func NewService(cfg Config, tokens *tokenmanager.TokenManager, storage repository.Storage, directory Directory, log logger.Logger) (*Service, error) {
	if tokens == nil {
		return nil, errors.New("token manager must not be nil")
	}
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	return &Service{
		tokens:    tokens,
		hasher:    hasher,
		storage:   storage,
		directory: directory,
		logger:    log,
	}, nil
}

type RegisterParams struct {
	CompanyName  string
	Email        string
	Password     string
	ContactName  string
	ContactPhone *string
	CityID       *uuid.UUID
}

// RegisterOwner creates the identity user, the owner profile and the first
// session in one transaction. Either everything commits or nothing does:
// a duplicate email never leaves an orphaned owner row behind.
func (s *Service) RegisterOwner(ctx context.Context, arg RegisterParams) (models.AuthResult, error) {
	var result models.AuthResult

	if err := ValidatePassword(arg.Password, arg.CompanyName); err != nil {
		return result, err
	}

	hash, err := s.hasher.Hash(arg.Password)
	if err != nil {
		return result, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	var ownerID uuid.UUID
	err = s.storage.InTx(ctx, func(store repository.Storage) error {
		if arg.CityID != nil {
			if _, err := store.City().GetCity(ctx, *arg.CityID); err != nil {
				return err
			}
		}

		user, err := store.User().CreateUser(ctx, repository.CreateUserParams{
			Email:          arg.Email,
			HashedPassword: hash,
			Roles:          []string{models.RoleOwner},
		})
		if err != nil {
			return err
		}

		owner, err := store.Owner().CreateOwner(ctx, repository.CreateOwnerParams{
			UserID:       user.ID,
			CompanyName:  arg.CompanyName,
			ContactName:  arg.ContactName,
			ContactEmail: user.Email,
			ContactPhone: arg.ContactPhone,
			CityID:       arg.CityID,
		})
		if err != nil {
			return err
		}
		ownerID = owner.ID

		result, err = s.issueSession(ctx, store, user, &owner)
		return err
	})
	if err != nil {
		return models.AuthResult{}, err
	}

	s.provisionDirectory(ctx, ownerID, arg)

	return result, nil
}

// Login verifies credentials and opens a new session. Prior sessions stay
// valid so the same account can be signed in on several devices.
func (s *Service) Login(ctx context.Context, email string, password string) (models.AuthResult, error) {
	var result models.AuthResult

	user, err := s.storage.User().GetUserByEmail(ctx, email)
	if err != nil {
		// Burn a compare anyway so unknown emails cost the same as bad passwords
		_ = s.hasher.Compare(dummyHash, password)
		return result, fmt.Errorf("login failed: %w", apperrors.ErrInvalidCredentials)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return result, fmt.Errorf("login failed: %w", apperrors.ErrInvalidCredentials)
	}

	now := time.Now().Truncate(time.Second)
	if err := s.storage.User().StampLastLogin(ctx, user.ID, now); err != nil {
		return result, err
	}

	owner, err := s.loadOwner(ctx, s.storage, user.ID)
	if err != nil {
		return result, err
	}

	return s.issueSession(ctx, s.storage, user, owner)
}

// Refresh rotates the presented refresh token: exactly one concurrent caller
// wins, the rest observe the token as already revoked. The row lock taken by
// GetByHashForUpdate serializes racing rotations inside the transaction.
func (s *Service) Refresh(ctx context.Context, plainRefresh string) (models.AuthResult, error) {
	var result models.AuthResult
	hash := s.tokens.HashRefresh(plainRefresh)

	err := s.storage.InTx(ctx, func(store repository.Storage) error {
		row, err := store.Refresh().GetByHashForUpdate(ctx, hash)
		if err != nil {
			return fmt.Errorf("refresh failed: %w", apperrors.ErrInvalidRefreshToken)
		}

		// Expired and revoked map to the same error as unknown tokens
		now := time.Now().Truncate(time.Second)
		if !row.Active(now) {
			return fmt.Errorf("refresh failed: %w", apperrors.ErrInvalidRefreshToken)
		}

		user, err := store.User().GetUserByID(ctx, row.UserID)
		if err != nil {
			return err
		}

		owner, err := s.loadOwner(ctx, store, user.ID)
		if err != nil {
			return err
		}

		pair, err := s.tokens.IssuePair(user, owner)
		if err != nil {
			return err
		}

		newHash := s.tokens.HashRefresh(pair.Refresh.Value)
		if err := store.Refresh().Revoke(ctx, row.ID, now, &newHash); err != nil {
			return err
		}

		if _, err := store.Refresh().Save(ctx, models.RefreshToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			TokenHash: newHash,
			CreatedAt: now,
			ExpiresAt: pair.Refresh.ExpiresAt,
		}); err != nil {
			return err
		}

		result, err = s.buildAuthResult(ctx, store, pair, owner)
		return err
	})
	if err != nil {
		return models.AuthResult{}, err
	}

	return result, nil
}

// Revoke is the logout path: stamps revoked_at on the stored token.
// Revoking an already revoked token succeeds (idempotent), an unknown token is
// reported as not found. Live access tokens are untouched and expire naturally.
func (s *Service) Revoke(ctx context.Context, plainRefresh string) error {
	hash := s.tokens.HashRefresh(plainRefresh)

	row, err := s.storage.Refresh().GetByHash(ctx, hash)
	if err != nil {
		return err
	}

	if row.RevokedAt != nil {
		return nil
	}

	return s.storage.Refresh().Revoke(ctx, row.ID, time.Now().Truncate(time.Second), nil)
}

// Authenticate verifies an access token and returns the typed principal
func (s *Service) Authenticate(ctx context.Context, accessToken string) (models.Principal, error) {
	return s.tokens.ParseAccess(accessToken)
}

// issueSession generates a pair, persists the refresh token hash and maps the result
func (s *Service) issueSession(ctx context.Context, store repository.Storage, user models.User, owner *models.Owner) (models.AuthResult, error) {
	var result models.AuthResult

	pair, err := s.tokens.IssuePair(user, owner)
	if err != nil {
		return result, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	_, err = store.Refresh().Save(ctx, models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: s.tokens.HashRefresh(pair.Refresh.Value),
		CreatedAt: time.Now().Truncate(time.Second),
		ExpiresAt: pair.Refresh.ExpiresAt,
	})
	if err != nil {
		return result, err
	}

	return s.buildAuthResult(ctx, store, pair, owner)
}

func (s *Service) buildAuthResult(ctx context.Context, store repository.Storage, pair models.TokenPair, owner *models.Owner) (models.AuthResult, error) {
	result := models.AuthResult{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
		ExpiresAt:    pair.Access.ExpiresAt,
	}

	if owner != nil {
		summary, err := store.Owner().GetOwnerSummary(ctx, owner.ID)
		if err != nil {
			return result, err
		}
		result.Owner = &summary
	}

	return result, nil
}

// loadOwner returns nil without error when the user has no owner profile
func (s *Service) loadOwner(ctx context.Context, store repository.Storage, userID uuid.UUID) (*models.Owner, error) {
	owner, err := store.Owner().GetOwnerByUserID(ctx, userID)
	switch {
	case err == nil:
		return &owner, nil
	case errors.Is(err, apperrors.ErrOwnerNotFound):
		return nil, nil
	default:
		return nil, err
	}
}

// provisionDirectory pushes the new owner to the external directory, if one is
// configured. Failures are logged and swallowed: the local registration is
// already committed.
func (s *Service) provisionDirectory(ctx context.Context, ownerID uuid.UUID, arg RegisterParams) {
	if s.directory == nil || !s.directory.Enabled() {
		return
	}

	if _, err := s.directory.ProvisionUser(ctx, arg.Email, arg.ContactName); err != nil {
		s.logger.Warn("directory user provisioning failed", "email", arg.Email, "error", err.Error())
	}

	groupID, err := s.directory.EnsureOwnerGroup(ctx, arg.CompanyName)
	if err != nil {
		s.logger.Warn("directory group provisioning failed", "company", arg.CompanyName, "error", err.Error())
		return
	}

	if err := s.storage.Owner().SetDirectoryGroup(ctx, ownerID, groupID); err != nil {
		s.logger.Warn("can't store directory group id", "owner_id", ownerID, "error", err.Error())
	}
}

// Precomputed bcrypt hash of an empty password, compared against on unknown
// emails to keep login timing uniform
var dummyHash = func() string {
	h, err := BcryptHasher{}.Hash("")
	if err != nil {
		panic(err)
	}
	return h
}()
