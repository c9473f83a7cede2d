package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mkovardin/fleetwatch/internal/handlers/userctx"
	"github.com/mkovardin/fleetwatch/internal/models"
)

// Allow to use a function as authenticator
type authFunc func(ctx context.Context, accessToken string) (models.Principal, error)

func (f authFunc) Authenticate(ctx context.Context, accessToken string) (models.Principal, error) {
	return f(ctx, accessToken)
}

func Test_AuthMiddleware(t *testing.T) {
	// Simple handler that echoes the principal email from the context
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := userctx.FromContext(r.Context())
		require.True(t, ok, "middleware must put the principal into the context")

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(principal.Email))
		require.NoError(t, err)
	})

	t.Run("auth ok", func(t *testing.T) {
		var seenToken string
		middleware := AuthMiddleware(authFunc(func(ctx context.Context, accessToken string) (models.Principal, error) {
			seenToken = accessToken
			return models.Principal{UserID: uuid.New(), Email: "boss@acme.example"}, nil
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/test", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer some-access-token")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equalf(t, http.StatusOK, resp.StatusCode, "should return status OK. Resp: %s", string(body))
		require.Equal(t, "boss@acme.example", string(body))
		require.Equal(t, "some-access-token", seenToken, "token should be stripped of the Bearer prefix")
	})

	t.Run("missing header", func(t *testing.T) {
		middleware := AuthMiddleware(authFunc(func(ctx context.Context, accessToken string) (models.Principal, error) {
			t.Fatal("authenticator must not be called without a token")
			return models.Principal{}, nil
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("auth fail", func(t *testing.T) {
		middleware := AuthMiddleware(authFunc(func(ctx context.Context, accessToken string) (models.Principal, error) {
			return models.Principal{}, errors.New("bad token")
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/test", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer expired-token")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func Test_RequireRole(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	newRequest := func(t *testing.T, srv *httptest.Server) *http.Request {
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		return req
	}

	t.Run("role present", func(t *testing.T) {
		wrapped := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := userctx.New(r.Context(), models.Principal{Roles: []string{models.RoleAdmin}})
			RequireRole(models.RoleAdmin)(handler).ServeHTTP(w, r.WithContext(ctx))
		})
		srv := httptest.NewServer(wrapped)
		defer srv.Close()

		resp, err := http.DefaultClient.Do(newRequest(t, srv))
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("role missing", func(t *testing.T) {
		wrapped := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := userctx.New(r.Context(), models.Principal{Roles: []string{models.RoleOwner}})
			RequireRole(models.RoleAdmin)(handler).ServeHTTP(w, r.WithContext(ctx))
		})
		srv := httptest.NewServer(wrapped)
		defer srv.Close()

		resp, err := http.DefaultClient.Do(newRequest(t, srv))
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
