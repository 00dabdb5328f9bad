// Package app wires configuration, storage, the HTTP surface and the CDC
// consumer into runnable commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/cdc"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/config"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/credential"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/eventlog"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/router"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/token"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/user"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/pkg/database"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/pkg/utilities"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/web"
)

const (
	tokenIssuer     = "service-auth-cdc"
	shutdownTimeout = 5 * time.Second
)

// App holds the long-lived collaborators shared by every command.
type App struct {
	cfg      *config.Config
	logger   *zap.SugaredLogger
	registry *prometheus.Registry
	events   *eventlog.Logger
	ids      *utilities.IDSource
	cdc      *cdc.Metrics

	db    *sqlx.DB
	store *credential.SQLStore
	ready atomic.Bool
}

// New opens the event log and prepares metrics. The database is opened
// lazily by the commands that need it.
func New(cfg *config.Config, logger *zap.SugaredLogger) (*App, error) {
	events, err := eventlog.New(cfg.EventLog)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &App{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		events:   events,
		ids:      utilities.NewIDSource(cfg.SnowflakeNode),
		cdc:      cdc.NewMetrics(reg),
	}, nil
}

// Close releases the database pool and the event log file.
func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	errs = append(errs, a.events.Close())
	return errors.Join(errs...)
}

// InitDB opens the pool and blocks until the schema exists.
func (a *App) InitDB(ctx context.Context) error {
	if a.db == nil {
		db, err := database.Open(a.cfg.Database)
		if err != nil {
			return err
		}
		a.db = db
		a.store = credential.NewSQLStore(db)
	}
	return database.Init(ctx, a.db, a.cfg.Database, a.logger.Named("db"), a.store.Initializers()...)
}

// Serve initializes storage, then runs the HTTP server and, when enabled,
// the CDC consumer until ctx is cancelled or one of them fails.
func (a *App) Serve(ctx context.Context) error {
	if err := a.InitDB(ctx); err != nil {
		return err
	}
	tokens, err := token.NewService(a.store, token.Config{
		Secret: []byte(a.cfg.JWTSecret),
		TTL:    a.cfg.TokenTTL,
		Issuer: tokenIssuer,
	})
	if err != nil {
		return err
	}
	users := user.NewUserService(a.store, tokens, user.BcryptHasher{Cost: a.cfg.BcryptCost}, a.events)

	srv := &http.Server{
		Handler: router.RegisterRoutes(router.Deps{
			Logger:  a.logger.Named("http"),
			Users:   user.NewHandler(users, a.logger.Named("user"), a.registry),
			Tokens:  tokens,
			Static:  web.Static(),
			Metrics: promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}),
			Ready:   a.ready.Load,
		}),
		ReadTimeout:       a.cfg.ReadTimeout,
		ReadHeaderTimeout: a.cfg.ReadTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
	}
	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.HTTPAddr, err)
	}
	a.logger.Infow("http server listening", "addr", ln.Addr().String())

	var workers []func(context.Context) error
	if a.cfg.Kafka.Enabled {
		workers = append(workers, a.consume)
	} else {
		a.logger.Info("cdc consumer disabled")
	}
	return run(ctx, srv, ln, &a.ready, a.logger, workers...)
}

// Consume runs only the CDC consumer.
func (a *App) Consume(ctx context.Context) error {
	return a.consume(ctx)
}

func (a *App) consume(ctx context.Context) error {
	broker := cdc.NewKafkaBroker(a.cfg.Kafka, a.logger.Named("kafka"))
	c := cdc.NewConsumer(a.cfg.Kafka, broker, a.events, a.ids, a.logger.Named("cdc"), a.cdc)
	return c.Run(ctx)
}

// run serves HTTP on ln next to the workers. The first worker or server
// error cancels everything else; the server is drained before run returns.
func run(ctx context.Context, srv *http.Server, ln net.Listener, ready *atomic.Bool, logger *zap.SugaredLogger, workers ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	for _, w := range workers {
		g.Go(func() error { return w(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		ready.Store(false)
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("http server shutdown failed", "err", err)
		}
		return nil
	})

	ready.Store(true)
	return g.Wait()
}
