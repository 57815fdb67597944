// ABOUTME: Wires the catalog, store, auth, HTTP server, and MCP bridge together.
// ABOUTME: Owns the serving lifecycle including graceful shutdown.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/spellbook/internal/auth"
	"github.com/2389/spellbook/internal/builtins"
	"github.com/2389/spellbook/internal/catalog"
	"github.com/2389/spellbook/internal/config"
	"github.com/2389/spellbook/internal/mcp"
	"github.com/2389/spellbook/internal/server"
	"github.com/2389/spellbook/internal/store"
)

// app bundles the wired components of a running server.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.SQLiteStore
	bridge *mcp.Server
	http   *http.Server
}

// buildApp constructs every component from configuration.
func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	cat := catalog.New(logger.With("component", "catalog"))

	dispatcherOpts := []catalog.DispatcherOption{catalog.WithAudit(st)}
	if cfg.Tools.CallTimeout > 0 {
		dispatcherOpts = append(dispatcherOpts, catalog.WithTimeout(cfg.Tools.CallTimeout))
	}
	dispatcher := catalog.NewDispatcher(cat, logger.With("component", "dispatcher"), dispatcherOpts...)

	if err := builtins.RegisterBase(cat); err != nil {
		st.Close()
		return nil, fmt.Errorf("registering base tools: %w", err)
	}

	var verifier *auth.JWTVerifier
	if cfg.Auth.Mode == "jwt" {
		verifier = auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err := builtins.RegisterAdmin(cat, verifier, st); err != nil {
			st.Close()
			return nil, fmt.Errorf("registering admin tools: %w", err)
		}
	}

	srv, err := server.New(server.Config{
		Catalog:    cat,
		Dispatcher: dispatcher,
		Logger:     logger.With("component", "server"),
		Name:       cfg.Server.Name,
		Version:    version,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating server: %w", err)
	}

	if verifier != nil {
		if err := srv.SetAuthenticator(verifier.Handler()); err != nil {
			st.Close()
			return nil, fmt.Errorf("configuring authenticator: %w", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/", srv.Handler())

	var bridge *mcp.Server
	if cfg.MCP.Enabled {
		bridge, err = mcp.NewServer(mcp.Config{
			Catalog:    cat,
			Dispatcher: dispatcher,
			Logger:     logger.With("component", "mcp"),
			Name:       cfg.Server.Name,
			Version:    version,
		})
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("creating MCP bridge: %w", err)
		}
		// The bridge shares the server's authenticator so bearer tokens
		// grant the same tool visibility over MCP.
		mux.Handle("/mcp", srv.Middleware()(bridge.Handler()))
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		bridge: bridge,
		http: &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves until the context is canceled, then shuts down gracefully.
func (a *app) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// Close releases held resources.
func (a *app) Close() {
	if a.bridge != nil {
		a.bridge.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
}
