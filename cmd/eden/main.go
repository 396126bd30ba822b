package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eden-hr/casetracker/internal/blob"
	"github.com/eden-hr/casetracker/internal/casenumber"
	"github.com/eden-hr/casetracker/internal/lookup"
	"github.com/eden-hr/casetracker/internal/record/domain"
	"github.com/eden-hr/casetracker/internal/record/infrastructure"
	"github.com/eden-hr/casetracker/internal/shared/config"
	"github.com/eden-hr/casetracker/internal/shared/database"
	"github.com/eden-hr/casetracker/internal/shared/events"
	"github.com/eden-hr/casetracker/internal/shared/logger"
	"github.com/eden-hr/casetracker/internal/shared/logger/console"
	"github.com/eden-hr/casetracker/internal/shared/logger/structured"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := initLogger(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func initLogger(cfg config.LogConfig) error {
	var instances []logger.LoggerInstance
	if cfg.Format == "console" || cfg.Format == "both" {
		instances = append(instances, console.NewConsoleLogger(console.ConsoleLoggerParams{Level: cfg.Level}))
	}
	if cfg.Format == "json" || cfg.Format == "both" {
		z, err := structured.New(cfg.Level)
		if err != nil {
			return err
		}
		instances = append(instances, z)
	}
	logger.Init(instances...)
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	app, cleanup, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(app),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening",
			"addr", srv.Addr,
			"env", cfg.Server.Env,
			"store", cfg.Records.StoreDriver,
			"storage", cfg.Storage.Driver,
			"kurrentdb", cfg.KurrentDB.Enabled,
			"redis", cfg.Redis.Enabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return app.Blobs.RunSweeper(gctx, cfg.Storage.SweepInterval, cfg.Storage.OrphanTTL)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newApp wires the backends selected by cfg. cleanup releases them in reverse order.
func newApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	app := &App{Config: cfg}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var store domain.Store
	switch cfg.Records.StoreDriver {
	case "postgres":
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, db.Close)
		if err := database.Migrate(ctx, db.Pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		app.DB = db
		store = infrastructure.NewPostgresStore(db.Pool)
	default:
		logger.Warn("using in-memory record store; data is lost on restart")
		store = infrastructure.NewMemoryStore()
	}
	app.Store = store

	app.Bus = events.NewMemoryBus()
	if cfg.KurrentDB.Enabled {
		bus, err := events.NewBus(ctx, cfg.KurrentDB)
		if err != nil {
			logger.Warn("KurrentDB not available, events stay in process", "error", err)
		} else {
			closers = append(closers, bus.Close)
			app.Bus = bus
			logger.Info("KurrentDB event bus initialized", "host", cfg.KurrentDB.Host, "port", cfg.KurrentDB.Port)
		}
	}

	var objects blob.ObjectStore = blob.NewMemoryObjects()
	if cfg.Storage.Driver == "s3" {
		s3, err := blob.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		objects = s3
	}

	var cache lookup.Cache = lookup.NewMemoryCache(cfg.Redis.LookupTTL)
	if cfg.Redis.Enabled {
		rc, err := lookup.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LookupTTL)
		if err != nil {
			logger.Warn("Redis not available, caching lookups in process", "error", err)
		} else {
			closers = append(closers, func() { _ = rc.Close() })
			app.Redis = rc
			cache = rc
		}
	}

	app.Numbers = casenumber.NewGenerator(cfg.Records.CaseNumberPrefix, cfg.Records.Location())
	app.Blobs = blob.NewService(store, objects, cfg.Storage.Prefix)
	app.Lookup = lookup.NewService(store, cache)
	if err := app.Lookup.Subscribe(ctx, app.Bus); err != nil {
		logger.Warn("lookup cache invalidation not subscribed", "error", err)
	}

	return app, cleanup, nil
}
