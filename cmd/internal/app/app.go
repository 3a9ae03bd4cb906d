// Package app wires a campus service runtime: config, logging, stores, auth
// pipeline, HTTP server, and metrics.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"campus/cmd/catalog"
	"campus/cmd/identity"
	"campus/cmd/internal/api"
	"campus/cmd/internal/auth"
	"campus/cmd/internal/auth/session"
	"campus/cmd/internal/auth/token"
	"campus/cmd/internal/enrollment"
	"campus/cmd/internal/metrics"
)

// App is one campus service runtime. The same wiring serves both services;
// cfg.Service decides which route set is registered.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	users    identity.Store
	courses  catalog.Store
	sessions session.Store
	tokens   token.Manager
	mgr      *enrollment.Manager
	authn    *auth.Authenticator

	registry  *prometheus.Registry
	collector *metrics.Collector
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.Service)
	}

	a := &App{cfg: cfg, log: log}

	a.registry = prometheus.NewRegistry()
	a.collector = metrics.NewCollector(a.registry)

	if err := a.initStores(context.Background()); err != nil {
		return nil, err
	}

	tokCfg, err := token.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	a.tokens, err = token.NewPasetoV4LocalManager(tokCfg)
	if err != nil {
		return nil, err
	}

	// Session handles are process-local. The course service keeps a store of
	// its own and simply never finds user-service handles in it, which
	// degrades those requests to token-only authentication.
	a.sessions = session.NewMemoryStore()

	a.mgr = enrollment.NewManager(a.users, a.courses, log,
		enrollment.WithMetrics(a.collector))

	a.authn = auth.NewAuthenticator(
		auth.NewVerifier(a.tokens, a.sessions, nil),
		auth.NewResolver(a.users),
	)

	return a, nil
}

func (a *App) initStores(ctx context.Context) error {
	if a.cfg.DatabaseURL == "" {
		a.log.Info("db.disabled.inmemory_store")
		a.users = identity.NewMemoryStore()
		a.courses = catalog.NewMemoryStore()
		return nil
	}

	if a.cfg.MigrateOnStart {
		if err := RunMigrations(a.cfg.DatabaseURL); err != nil {
			return err
		}
		a.log.Info("db.migrations.applied")
	}

	pool, err := NewDBPool(ctx, a.cfg)
	if err != nil {
		return err
	}
	a.dbPool = pool
	a.dbEnabled = true
	a.log.Info("db.enabled.postgres_store")

	a.users, err = identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return err
	}
	a.courses, err = catalog.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return err
	}
	return nil
}

// routes builds the service's mux: operational endpoints plus the route set
// of the selected service.
func (a *App) routes() *http.ServeMux {
	mux := http.NewServeMux()
	registerOps(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.registry)

	switch a.cfg.Service {
	case ServiceCourses:
		h := api.NewCourseHandler(api.CourseHandlerConfig{
			Users:   a.users,
			Courses: a.courses,
			Manager: a.mgr,
			Authn:   a.authn,
			Log:     a.log,
		})
		h.Routes(mux)
	default:
		h := api.NewUserHandler(api.UserHandlerConfig{
			Users:                  a.users,
			Courses:                a.courses,
			Tokens:                 a.tokens,
			Sessions:               a.sessions,
			Manager:                a.mgr,
			Authn:                  a.authn,
			Log:                    a.log,
			LoginAttemptsPerMinute: a.cfg.LoginAttemptsPerMinute,
		})
		h.Routes(mux)
	}
	return mux
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(a.routes(), a.log, a.collector),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

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

	if a.dbPool != nil {
		a.dbPool.Close()
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
