// Package server wires configuration, the credential store, the
// authenticator and both network boundaries into a runnable application.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/access"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/avatars"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/store"
	"github.com/dmitrijs2005/gophauth/internal/server/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

// OpenStore opens the store selected by cfg.DatabaseDriver and applies
// migrations. The returned func releases it.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, func() error, error) {
	switch cfg.DatabaseDriver {
	case "pgx", "postgres":
		s, db, err := store.OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, db.Close, nil
	case "sqlite":
		db, err := store.OpenSQLite(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return store.NewSQLiteStore(db), db.Close, nil
	case "memory":
		return store.NewMemoryStore(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", common.ErrUnknownDriver, cfg.DatabaseDriver)
	}
}

// NewAuthenticator builds the authenticator described by cfg on top of g.
func NewAuthenticator(cfg *config.Config, g auth.Guard, opts ...auth.Option) (*auth.Authenticator, error) {
	hasher, err := cryptox.NewHasher(cfg.PasswordHasher)
	if err != nil {
		return nil, err
	}
	policy := auth.Policy{TokenLifetime: cfg.TokenLifetime, RefreshWindow: cfg.RefreshWindow}
	return auth.NewAuthenticator(g, policy, append([]auth.Option{auth.WithHasher(hasher)}, opts...)...)
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	closeDB  func() error
	auth     *auth.Authenticator
	avatars  *avatars.Resolver
	registry *prometheus.Registry
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.LogLevel)

	s, closeDB, err := OpenStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := NewAuthenticator(c, access.NewGuard(s, logger), auth.WithLogger(logger), auth.WithMetrics(auth.NewMetrics(registry)))
	if err != nil {
		_ = closeDB()
		return nil, fmt.Errorf("auth init error: %w", err)
	}

	return &App{
		config:   c,
		logger:   logger,
		closeDB:  closeDB,
		auth:     a,
		avatars:  avatars.NewResolver(c),
		registry: registry,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.auth)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := web.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.auth, app.avatars, app.config.TokenCookieName, app.registry)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves both boundaries until ctx is done, a signal arrives or one of
// the servers fails, then closes the store.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "driver", app.config.DatabaseDriver)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.closeDB(); err != nil {
		app.logger.Error(ctx, "close store", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
