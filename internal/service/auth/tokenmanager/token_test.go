package tokenmanager

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkovardin/fleetwatch/internal/models"
)

func Test_TokenManager(t *testing.T) {
	t.Parallel()

	testUser := models.User{
		ID:             uuid.New(),
		Email:          "boss@acme.example",
		HashedPassword: "hashed_password",
		Roles:          []string{models.RoleOwner},
	}
	testOwner := models.Owner{
		ID:          uuid.New(),
		UserID:      testUser.ID,
		CompanyName: "Acme Logistics",
	}

	newManager := func(t *testing.T, cfg Config) *TokenManager {
		t.Helper()
		if cfg.SecretKey == "" {
			cfg.SecretKey = "test-secret-key"
		}
		m, err := New(cfg)
		require.NoError(t, err, "token manager should be created without errors")
		return m
	}

	t.Run("new defaults", func(t *testing.T) {
		m := newManager(t, Config{SecretKey: "secret"})

		require.Equal(t, "secret", m.key, "secret key should be set")
		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultRefreshTokenTTL, m.refreshTTL, "default refresh token TTL")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
	})

	t.Run("new requires secret", func(t *testing.T) {
		_, err := New(Config{})

		require.Error(t, err, "empty secret key should be rejected")
	})

	t.Run("IssuePair", func(t *testing.T) {
		t.Run("return token pair", func(t *testing.T) {
			m := newManager(t, Config{AccessTTL: 15 * time.Minute, RefreshTTL: 24 * time.Hour})

			pair, err := m.IssuePair(testUser, &testOwner)

			require.NoError(t, err)
			assert.NotEmpty(t, pair.Access.Value, "access token should not be empty")
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.Access.ExpiresAt, time.Second)
			assert.NotEmpty(t, pair.Refresh.Value, "refresh token should not be empty")
			assert.WithinDuration(t, time.Now().Add(24*time.Hour), pair.Refresh.ExpiresAt, time.Second)
		})

		t.Run("access claims", func(t *testing.T) {
			m := newManager(t, Config{Issuer: "fleetwatch", Audience: "fleetwatch-api"})

			pair, err := m.IssuePair(testUser, &testOwner)
			require.NoError(t, err)

			token, err := jwt.ParseWithClaims(pair.Access.Value, &AccessTokenClaims{}, func(token *jwt.Token) (any, error) {
				return []byte("test-secret-key"), nil
			})
			require.NoError(t, err)
			require.True(t, token.Valid, "access token should be valid")

			claims, ok := token.Claims.(*AccessTokenClaims)
			require.True(t, ok, "claims should be of type AccessTokenClaims")
			assert.Equal(t, testUser.ID.String(), claims.Subject, "subject should carry the user id")
			assert.Equal(t, testUser.Email, claims.Email)
			assert.Equal(t, "fleetwatch", claims.Issuer)
			assert.Contains(t, claims.Audience, "fleetwatch-api")
			assert.NotEmpty(t, claims.ID, "token has to has jti")
			require.NotNil(t, claims.OwnerID, "owner id claim should be set")
			assert.Equal(t, testOwner.ID, *claims.OwnerID)
			assert.Equal(t, testOwner.CompanyName, claims.OwnerName)
			assert.Equal(t, testUser.Roles, claims.Roles)
			assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second, "issued at should be close to now")
		})

		t.Run("no owner claims without owner", func(t *testing.T) {
			m := newManager(t, Config{})

			pair, err := m.IssuePair(testUser, nil)
			require.NoError(t, err)

			token, err := jwt.ParseWithClaims(pair.Access.Value, &AccessTokenClaims{}, func(token *jwt.Token) (any, error) {
				return []byte("test-secret-key"), nil
			})
			require.NoError(t, err)

			claims := token.Claims.(*AccessTokenClaims)
			assert.Nil(t, claims.OwnerID, "owner id claim should be absent")
			assert.Empty(t, claims.OwnerName)
		})

		t.Run("refresh tokens are unique", func(t *testing.T) {
			m := newManager(t, Config{})

			first, err := m.IssuePair(testUser, nil)
			require.NoError(t, err)
			second, err := m.IssuePair(testUser, nil)
			require.NoError(t, err)

			assert.NotEqual(t, first.Refresh.Value, second.Refresh.Value)
		})
	})

	t.Run("ParseAccess", func(t *testing.T) {
		t.Run("roundtrip principal", func(t *testing.T) {
			m := newManager(t, Config{Issuer: "fleetwatch", Audience: "fleetwatch-api"})

			pair, err := m.IssuePair(testUser, &testOwner)
			require.NoError(t, err)

			principal, err := m.ParseAccess(pair.Access.Value)

			require.NoError(t, err)
			assert.Equal(t, testUser.ID, principal.UserID)
			assert.Equal(t, testUser.Email, principal.Email)
			require.NotNil(t, principal.OwnerID)
			assert.Equal(t, testOwner.ID, *principal.OwnerID)
			assert.Equal(t, testOwner.CompanyName, principal.OwnerName)
			assert.True(t, principal.HasRole(models.RoleOwner))
		})

		t.Run("reject token signed with another key", func(t *testing.T) {
			m := newManager(t, Config{})
			other := newManager(t, Config{SecretKey: "another-secret"})

			pair, err := other.IssuePair(testUser, nil)
			require.NoError(t, err)

			_, err = m.ParseAccess(pair.Access.Value)

			require.Error(t, err)
		})

		t.Run("reject expired token", func(t *testing.T) {
			m := newManager(t, Config{AccessTTL: -time.Minute})

			pair, err := m.IssuePair(testUser, nil)
			require.NoError(t, err)

			_, err = m.ParseAccess(pair.Access.Value)

			require.Error(t, err)
			assert.ErrorIs(t, err, jwt.ErrTokenExpired)
		})

		t.Run("reject wrong issuer", func(t *testing.T) {
			m := newManager(t, Config{Issuer: "fleetwatch"})
			other := newManager(t, Config{Issuer: "someone-else"})

			pair, err := other.IssuePair(testUser, nil)
			require.NoError(t, err)

			_, err = m.ParseAccess(pair.Access.Value)

			require.Error(t, err)
		})

		t.Run("reject garbage", func(t *testing.T) {
			m := newManager(t, Config{})

			_, err := m.ParseAccess("not-a-jwt")

			require.Error(t, err)
		})
	})

	t.Run("HashRefresh", func(t *testing.T) {
		m := newManager(t, Config{})

		first := m.HashRefresh("some-refresh-token")
		second := m.HashRefresh("some-refresh-token")
		other := m.HashRefresh("another-refresh-token")

		assert.Equal(t, first, second, "hash must be deterministic")
		assert.NotEqual(t, first, other)
		assert.NotContains(t, first, "some-refresh-token", "hash must not leak the plaintext")
	})
}
