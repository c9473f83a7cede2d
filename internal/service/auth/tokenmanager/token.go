package tokenmanager

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mkovardin/fleetwatch/internal/models"
)

const (
	defaultAccessTokenTTL  = 30 * time.Minute
	defaultRefreshTokenTTL = 14 * 24 * time.Hour
	defaultSigningMethod   = "HS256"

	// Opaque refresh token entropy, before base64
	refreshTokenBytes = 64
)

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Email     string     `json:"email"`
	OwnerID   *uuid.UUID `json:"ownerId,omitempty"`
	OwnerName string     `json:"ownerName,omitempty"`
	Roles     []string   `json:"roles,omitempty"`
}

// Token manager config with sensible defaults
type Config struct {
	// Secret key to sign access token
	// Required to be set
	SecretKey string

	// Token issuer and audience claims
	Issuer   string
	Audience string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set then default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set then default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenManager issues access/refresh token pairs and verifies access tokens.
// It holds no storage: persistence of refresh token hashes is the caller's job.
type TokenManager struct {
	key      string
	issuer   string
	audience string

	alg jwt.SigningMethod

	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		key:        cfg.SecretKey,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		alg:        jwt.GetSigningMethod(cfg.Alg),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// IssuePair generates a signed access token for the user (with tenant claims
// when an owner profile is linked) and a fresh opaque refresh token.
// Nothing is persisted here.
func (m *TokenManager) IssuePair(user models.User, owner *models.Owner) (models.TokenPair, error) {
	var pair models.TokenPair
	now := time.Now().Truncate(time.Second)
	accessExpiresAt := now.Add(m.accessTTL)
	refreshExpiresAt := now.Add(m.refreshTTL)

	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiresAt),
		},
		Email: user.Email,
		Roles: user.Roles,
	}
	if owner != nil {
		claims.OwnerID = &owner.ID
		claims.OwnerName = owner.CompanyName
	}

	access, err := jwt.NewWithClaims(m.alg, claims).SignedString([]byte(m.key))
	if err != nil {
		return pair, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return pair, err
	}

	return models.TokenPair{
		Access:  models.IssuedToken{Value: access, ExpiresAt: accessExpiresAt},
		Refresh: models.IssuedToken{Value: refresh, ExpiresAt: refreshExpiresAt},
	}, nil
}

// HashRefresh returns the storage form of a refresh token.
// The plaintext token is never persisted anywhere.
func (m *TokenManager) HashRefresh(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// RefreshTTL is the configured refresh token lifetime
func (m *TokenManager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// ParseAccess validates signature and expiry and builds the typed principal.
// No store lookup: an access token stays valid until natural expiry.
func (m *TokenManager) ParseAccess(access string) (models.Principal, error) {
	claims := &AccessTokenClaims{}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{m.alg.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	_, err := jwt.ParseWithClaims(
		access,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		opts...,
	)
	if err != nil {
		return models.Principal{}, fmt.Errorf("error while parsing or validating token. Err: %w", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Principal{}, fmt.Errorf("malformed subject claim. Err: %w", err)
	}

	return models.Principal{
		UserID:    userID,
		Email:     claims.Email,
		OwnerID:   claims.OwnerID,
		OwnerName: claims.OwnerName,
		Roles:     claims.Roles,
	}, nil
}

// newRefreshToken returns base64 of crypto-random bytes, claims are never embedded
func newRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error while generating refresh token. Err: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
