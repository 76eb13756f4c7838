// Package app wires the ScholarBridge security core: config, logging, HTTP
// routes, the credential service, and the realtime gateway.
//
// It is intentionally small and deterministic to keep CI gates strict and behavior predictable.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"scholarbridge/cmd/identity"
	authapi "scholarbridge/cmd/internal/auth/api"
	"scholarbridge/cmd/internal/metrics"
	"scholarbridge/cmd/internal/realtime"
	"scholarbridge/cmd/security/credential"
	"scholarbridge/cmd/security/eventsign"
	"scholarbridge/cmd/security/secret"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

// App is the server runtime: it owns HTTP server wiring and the realtime
// gateway's lifecycle.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	registry *prometheus.Registry

	ws   *realtime.WSGateway
	auth *authapi.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	st, dbPool, dbEnabled, idStore, err := newStore(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	met := metrics.NewCollector(registry)

	key := secret.ProcessKey()

	credCfg, err := credential.FromEnv()
	if err != nil {
		return nil, err
	}
	creds := credential.NewService(log, credCfg, key, nil)

	authCfg := authapi.LoadConfigFromEnv()
	authHandler, err := authapi.NewHandler(log, dbPool, idStore, creds, authCfg, met)
	if err != nil {
		return nil, err
	}

	signer := eventsign.New(key)
	ws := realtime.NewWSGateway(log, signer, identityAwarder{store: idStore}, met)

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		registry:  registry,
		ws:        ws,
		auth:      authHandler,
	}, nil
}

// Gateway exposes the realtime gateway (for event publication by callers).
func (a *App) Gateway() *realtime.WSGateway { return a.ws }

// identityAwarder adapts the identity store to the gateway's point callback.
type identityAwarder struct {
	store identity.Store
}

func (aw identityAwarder) AwardPoints(ctx context.Context, subjectID int64, points int64) error {
	return aw.store.AwardPoints(ctx, subjectID, points)
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.ws, a.auth, a.registry)

	handler := WithRequestLogging(mux, a.log)
	handler = WithCORS(handler, a.cfg, a.log)
	handler = WithSecurityHeaders(handler)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.ws.Run(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	// Close store resources (pool etc).
	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStore decides between Postgres-backed persistence and the in-memory dev store.
func newStore(ctx context.Context, cfg Config, log Logger) (Store, *pgxpool.Pool, bool, identity.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return nopStore{}, nil, false, identity.NewInMemoryStore(), nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, nil, err
	}

	log.Info("db.enabled.postgres_store")

	// Ownership model: app owns the pool lifecycle.
	idStore, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, err
	}

	return dbStore{pool: pool}, pool, true, idStore, nil
}

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
