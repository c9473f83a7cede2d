package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mkovardin/fleetwatch/internal/db"
	"github.com/mkovardin/fleetwatch/internal/handlers"
	"github.com/mkovardin/fleetwatch/internal/logger"
	"github.com/mkovardin/fleetwatch/internal/realtime"
	"github.com/mkovardin/fleetwatch/internal/repository/postgres"
	"github.com/mkovardin/fleetwatch/internal/service/auth"
	"github.com/mkovardin/fleetwatch/internal/service/auth/tokenmanager"
	"github.com/mkovardin/fleetwatch/internal/service/directory"
	"github.com/mkovardin/fleetwatch/internal/service/fleet"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		SecretKey:  c.SecretKey,
		Issuer:     c.TokenIssuer,
		Audience:   c.TokenAudience,
		AccessTTL:  time.Duration(c.AccessTTLMinutes) * time.Minute,
		RefreshTTL: time.Duration(c.RefreshTTLDays) * 24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	directoryClient := directory.New(directory.Config{
		BaseURL:      c.DirectoryBaseURL,
		ClientID:     c.DirectoryClientID,
		ClientSecret: c.DirectoryClientSecret,
	}, logger)

	authService, err := auth.NewService(auth.Config{}, tokenManager, storage, directoryClient, logger)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	hub := realtime.NewHub(logger)
	fleetService, err := fleet.NewService(storage, hub, logger)
	if err != nil {
		return nil, fmt.Errorf("error while creating fleet service. Err: %w", err)
	}

	mux := handlers.NewRouter(authService, fleetService, hub, logger)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
