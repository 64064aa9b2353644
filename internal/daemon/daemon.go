package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gitgud-app/gitgud/internal/api"
	"github.com/gitgud-app/gitgud/internal/app/identity"
	"github.com/gitgud-app/gitgud/internal/app/ledger"
	"github.com/gitgud-app/gitgud/internal/domain"
	"github.com/gitgud-app/gitgud/internal/health"
	"github.com/gitgud-app/gitgud/internal/infra/postgres"
	"github.com/gitgud-app/gitgud/internal/infra/sqlite"
)

// Daemon is the GitGud runtime. It wires together all services.
type Daemon struct {
	Config   Config
	Store    domain.Store
	Ledger   *ledger.Service
	Identity *identity.Resolver
	Server   *api.Server
	Health   *health.Checker
	log      *slog.Logger
	cancel   context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New(ctx context.Context) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(ctx, cfg, nil)
}

// OpenStore opens the storage backend selected by cfg.
func OpenStore(ctx context.Context, cfg StorageConfig) (domain.Store, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return postgres.Open(ctx, cfg.Postgres.DSN, postgres.PoolConfig{
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: parseDuration(cfg.Postgres.MaxConnLifetime, 30*time.Minute),
		})
	case DriverSQLite, "":
		dir := cfg.Dir
		if dir == "" {
			dir = gitgudHome()
		}
		return sqlite.Open(dir)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// NewLedger builds the ledger service over store as configured.
func NewLedger(cfg Config, store domain.Store, logger *slog.Logger) *ledger.Service {
	return ledger.NewService(store, ledger.Options{
		DiminishingReturns: cfg.Ledger.DiminishingReturns,
	}, logger)
}

// NewWithConfig creates a Daemon with the given configuration. A nil
// logger uses the one described by cfg.Logging.
func NewWithConfig(ctx context.Context, cfg Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = NewLogger(cfg.Logging, os.Stderr)
	}

	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}

	resolver, err := identity.NewResolver(store, cfg.Auth.CacheSize, cfg.Auth.AutoProvision, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	auth, err := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, resolver)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("auth: %w", err)
	}

	svc := NewLedger(cfg, store, logger)

	dataDir := ""
	if cfg.Storage.Driver != DriverPostgres {
		dataDir = cfg.Storage.Dir
	}
	checker := health.NewChecker(store, dataDir, logger)
	checker.SetInterval(parseDuration(cfg.Telemetry.HealthInterval, 60*time.Second))

	srv := api.NewServer(svc, auth, logger)
	srv.SetHealth(checker)
	srv.SetTimeout(parseDuration(cfg.API.RequestTimeout, 30*time.Second))
	if cfg.API.CORS {
		srv.EnableCORS()
	}
	// Enable Prometheus /metrics if configured
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:   cfg,
		Store:    store,
		Ledger:   svc,
		Identity: resolver,
		Server:   srv,
		Health:   checker,
		log:      logger.With(slog.String("component", "daemon")),
	}, nil
}

// Serve starts the HTTP server and blocks until ctx ends or a signal
// arrives, then shuts down gracefully.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, d.cancel = context.WithCancel(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)

	// Health checker (always runs)
	g.Go(func() error {
		d.Health.Run(gctx)
		return nil
	})

	g.Go(func() error {
		d.log.Info("serving",
			slog.String("addr", "http://"+addr),
			slog.String("storage", d.Config.Storage.Driver),
			slog.Bool("metrics", d.Config.Telemetry.Prometheus),
		)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		d.log.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if cerr := d.Store.Close(); cerr != nil {
		d.log.Warn("close store", slog.Any("error", cerr))
	}
	return err
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Store != nil {
		_ = d.Store.Close()
	}
}
