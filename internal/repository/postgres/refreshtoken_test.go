package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkovardin/fleetwatch/internal/apperrors"
	"github.com/mkovardin/fleetwatch/internal/models"
	"github.com/mkovardin/fleetwatch/internal/repository"
	"github.com/mkovardin/fleetwatch/internal/testutil"
)

func Test_RefreshTokenRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Tokens reference users, so every subtest creates one first
	createUser := func(t *testing.T, tx pgx.Tx) models.User {
		t.Helper()
		user, err := (&UserRepo{DB: tx}).CreateUser(t.Context(), repository.CreateUserParams{
			Email:          "driver@example.com",
			HashedPassword: "hashedpassword123",
			Roles:          []string{models.RoleOwner},
		})
		require.NoError(t, err)
		return user
	}

	newToken := func(userID uuid.UUID, hash string) models.RefreshToken {
		now := time.Now().Truncate(time.Second)
		return models.RefreshToken{
			ID:        uuid.New(),
			UserID:    userID,
			TokenHash: hash,
			CreatedAt: now,
			ExpiresAt: now.Add(24 * time.Hour),
		}
	}

	t.Run("save and get by hash", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := RefreshTokenRepo{DB: tx}
			user := createUser(t, tx)

			saved, err := r.Save(t.Context(), newToken(user.ID, "hash-one"))
			require.NoError(t, err)
			assert.Nil(t, saved.RevokedAt)
			assert.Nil(t, saved.ReplacedBy)

			got, err := r.GetByHash(t.Context(), "hash-one")

			require.NoError(t, err)
			assert.Equal(t, saved.ID, got.ID)
			assert.Equal(t, user.ID, got.UserID)
			assert.WithinDuration(t, saved.ExpiresAt, got.ExpiresAt, time.Second)
		})
	})

	t.Run("get by hash not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := RefreshTokenRepo{DB: tx}

			_, err := r.GetByHash(t.Context(), "no-such-hash")

			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound, "should return well known error")
		})
	})

	t.Run("get by hash for update finds the row", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := RefreshTokenRepo{DB: tx}
			user := createUser(t, tx)

			saved, err := r.Save(t.Context(), newToken(user.ID, "hash-locked"))
			require.NoError(t, err)

			got, err := r.GetByHashForUpdate(t.Context(), "hash-locked")

			require.NoError(t, err)
			assert.Equal(t, saved.ID, got.ID)
		})
	})

	t.Run("revoke stamps revoked_at and successor", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := RefreshTokenRepo{DB: tx}
			user := createUser(t, tx)

			saved, err := r.Save(t.Context(), newToken(user.ID, "hash-old"))
			require.NoError(t, err)

			at := time.Now().Truncate(time.Second)
			successor := "hash-new"
			err = r.Revoke(t.Context(), saved.ID, at, &successor)
			require.NoError(t, err)

			got, err := r.GetByHash(t.Context(), "hash-old")
			require.NoError(t, err)
			require.NotNil(t, got.RevokedAt)
			assert.WithinDuration(t, at, *got.RevokedAt, time.Second)
			require.NotNil(t, got.ReplacedBy)
			assert.Equal(t, successor, *got.ReplacedBy)
			assert.False(t, got.Active(time.Now()), "revoked token must not be active")
		})
	})

	t.Run("revoke keeps the first stamp", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := RefreshTokenRepo{DB: tx}
			user := createUser(t, tx)

			saved, err := r.Save(t.Context(), newToken(user.ID, "hash-twice"))
			require.NoError(t, err)

			first := time.Now().Truncate(time.Second).Add(-time.Hour)
			require.NoError(t, r.Revoke(t.Context(), saved.ID, first, nil))
			require.NoError(t, r.Revoke(t.Context(), saved.ID, time.Now(), nil))

			got, err := r.GetByHash(t.Context(), "hash-twice")
			require.NoError(t, err)
			require.NotNil(t, got.RevokedAt)
			assert.WithinDuration(t, first, *got.RevokedAt, time.Second, "later revoke must not move the stamp")
		})
	})

	t.Run("revoke unknown token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := RefreshTokenRepo{DB: tx}

			err := r.Revoke(t.Context(), uuid.New(), time.Now(), nil)

			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("duplicate hash rejected", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := RefreshTokenRepo{DB: tx}
			user := createUser(t, tx)

			_, err := r.Save(t.Context(), newToken(user.ID, "hash-dup"))
			require.NoError(t, err)

			_, err = r.Save(t.Context(), newToken(user.ID, "hash-dup"))

			require.Error(t, err, "token_hash is unique")
		})
	})

	t.Run("token active window", func(t *testing.T) {
		now := time.Now()

		token := models.RefreshToken{ExpiresAt: now.Add(time.Minute)}
		assert.True(t, token.Active(now))
		assert.False(t, token.Active(now.Add(2*time.Minute)), "expired token is not active")

		token.RevokedAt = &now
		assert.False(t, token.Active(now), "revoked token is not active")
	})
}
