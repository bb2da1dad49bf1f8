// Package app assembles an entitykit process from its configuration.
//
// New opens the backends, builds the entity store pipeline
//
//	sqlstore (or memory) -> storemetrics -> changefeed
//
// installs the repository resolver on a fresh instance registry, registers
// the default capabilities and runs the configured bootstrap hook. The
// registry becomes the process default until Close.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/entitykit/internal/api"
	"github.com/nerrad567/entitykit/internal/cache"
	"github.com/nerrad567/entitykit/internal/entity"
	"github.com/nerrad567/entitykit/internal/entity/changefeed"
	"github.com/nerrad567/entitykit/internal/entity/memory"
	"github.com/nerrad567/entitykit/internal/entity/sqlstore"
	"github.com/nerrad567/entitykit/internal/entity/storemetrics"
	"github.com/nerrad567/entitykit/internal/infrastructure/config"
	"github.com/nerrad567/entitykit/internal/infrastructure/database"
	"github.com/nerrad567/entitykit/internal/infrastructure/influxdb"
	"github.com/nerrad567/entitykit/internal/infrastructure/logging"
	"github.com/nerrad567/entitykit/internal/infrastructure/mqtt"
	"github.com/nerrad567/entitykit/internal/instances"
	"github.com/nerrad567/entitykit/internal/validation"
)

// ErrUnknownBootstrap is returned when the configured bootstrap names no
// hook in Options.Bootstraps.
var ErrUnknownBootstrap = errors.New("app: unknown bootstrap")

// Bootstrap initialises application state once the registry is ready.
type Bootstrap func(ctx context.Context, a *App) error

// Options are the code-side inputs of New.
type Options struct {
	Version string

	// Repositories binds the application's repository types onto the
	// resolver, typically with entity.Provide.
	Repositories func(res *entity.Resolver, store entity.Store)

	// Shapes are browsable on the admin /entities routes.
	Shapes []*entity.Shape

	// Bootstraps is the catalog the bootstrap config key selects from.
	Bootstraps map[string]Bootstrap

	// Metrics receives every collector. A fresh registry when nil.
	Metrics *prometheus.Registry
}

// App holds the assembled process.
type App struct {
	Config   *config.Config
	Logger   *logging.Logger
	Registry *instances.Registry
	Resolver *entity.Resolver
	Store    entity.Store
	Cache    cache.Cache

	DB       *database.DB
	MQTT     *mqtt.Client
	InfluxDB *influxdb.Client

	metrics *prometheus.Registry
	admin   *api.Server
	checks  map[string]api.HealthChecker

	// closers run in reverse order on Close.
	closers []func() error
}

// New assembles the application. On error everything opened so far is
// closed again.
func New(ctx context.Context, cfg *config.Config, log *logging.Logger, opts Options) (a *App, err error) {
	if log == nil {
		log = logging.Default()
	}
	a = &App{
		Config:   cfg,
		Logger:   log,
		Registry: instances.New(),
		Resolver: entity.NewResolver(),
		metrics:  opts.Metrics,
		checks:   make(map[string]api.HealthChecker),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	if a.metrics == nil {
		a.metrics = prometheus.NewRegistry()
		a.metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	a.Registry.SetLogger(log.Component("instances"))
	a.Registry.SetMetrics(instances.NewMetrics(a.metrics))
	a.Registry.SetSource(cfg)
	a.closers = append(a.closers, closer(instances.SetDefault(a.Registry)))

	tm, err := a.openStore(ctx)
	if err != nil {
		return a, err
	}
	if err = a.connectTelemetry(); err != nil {
		return a, err
	}
	if err = a.connectChangeFeed(); err != nil {
		return a, err
	}

	if opts.Repositories != nil {
		opts.Repositories(a.Resolver, a.Store)
	}
	a.Resolver.Install(a.Registry)

	engine := validation.New(validation.FromConfig(cfg))
	a.closers = append(a.closers, closer(validation.SetDefault(engine)))
	a.Cache = cache.NewMemory(0)

	instances.Register[entity.Clock](a.Registry, func() entity.Clock { return entity.SystemClock{} })
	instances.Register[entity.TransactionManager](a.Registry, func() entity.TransactionManager { return tm })
	instances.Register[cache.Cache](a.Registry, func() cache.Cache { return a.Cache })
	instances.Register[*validation.Engine](a.Registry, func() *validation.Engine { return engine })

	if cfg.Admin.Enabled {
		a.admin, err = api.New(api.Deps{
			Config:   cfg.Admin,
			Logger:   log,
			Registry: a.Registry,
			Gatherer: a.metrics,
			Checks:   a.checks,
			Store:    a.Store,
			Shapes:   opts.Shapes,
			Version:  opts.Version,
		})
		if err != nil {
			return a, fmt.Errorf("creating admin server: %w", err)
		}
	}

	if err = a.bootstrap(ctx, opts.Bootstraps); err != nil {
		return a, err
	}
	return a, nil
}

// openStore opens the SQLite store when the database is enabled and the
// in-memory store otherwise.
func (a *App) openStore(ctx context.Context) (entity.TransactionManager, error) {
	cfg := a.Config.Database
	if !cfg.Enabled {
		a.Logger.Info("database disabled, entities are kept in memory")
		a.Store = memory.NewStore()
		return entity.NoTransactions{}, nil
	}

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, func() error {
		a.Logger.Info("closing database")
		return db.Close()
	})
	a.checks["database"] = db

	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	a.Logger.Info("database connected", "path", cfg.Path)

	a.Store = sqlstore.New(db)
	return sqlstore.NewTransactionManager(db), nil
}

// connectTelemetry wraps the store with timing, writing points to InfluxDB
// when it is enabled.
func (a *App) connectTelemetry() error {
	var points storemetrics.PointWriter
	if a.Config.InfluxDB.Enabled {
		client, err := influxdb.Connect(a.Config.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		client.SetOnError(func(err error) {
			a.Logger.Error("InfluxDB write error", "error", err)
		})
		a.InfluxDB = client
		a.closers = append(a.closers, func() error {
			a.Logger.Info("closing InfluxDB connection")
			return client.Close()
		})
		a.checks["influxdb"] = client
		points = client
		a.Logger.Info("InfluxDB connected", "url", a.Config.InfluxDB.URL, "bucket", a.Config.InfluxDB.Bucket)
	}

	a.Store = storemetrics.New(a.Store, storemetrics.NewMetrics(a.metrics), points)
	return nil
}

// connectChangeFeed publishes store writes over MQTT when it is enabled.
func (a *App) connectChangeFeed() error {
	if !a.Config.MQTT.Enabled {
		return nil
	}

	client, err := mqtt.Connect(a.Config.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetOnConnect(func() {
		a.Logger.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		a.Logger.Warn("MQTT disconnected", "error", err)
	})
	a.MQTT = client
	a.closers = append(a.closers, func() error {
		a.Logger.Info("disconnecting from MQTT")
		return client.Close()
	})
	a.checks["mqtt"] = client
	a.Logger.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", a.Config.MQTT.Broker.Host, a.Config.MQTT.Broker.Port),
		"client_id", a.Config.MQTT.Broker.ClientID,
	)

	a.Store = changefeed.New(a.Store, client, client.Topics(),
		changefeed.WithQoS(client.QoS()),
		changefeed.WithLogger(a.Logger.Component("changefeed")),
	)
	return nil
}

func (a *App) bootstrap(ctx context.Context, catalog map[string]Bootstrap) error {
	name := a.Config.Bootstrap
	if name == "" {
		return nil
	}
	hook, ok := catalog[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBootstrap, name)
	}
	if err := hook(ctx, a); err != nil {
		return fmt.Errorf("bootstrap %s: %w", name, err)
	}
	a.Logger.Info("bootstrap complete", "bootstrap", name)
	return nil
}

// Admin returns the admin server, or nil when it is disabled.
func (a *App) Admin() *api.Server {
	return a.admin
}

// Metrics returns the Prometheus registry every collector is registered on.
func (a *App) Metrics() *prometheus.Registry {
	return a.metrics
}

// HealthCheck verifies every connected backend.
func (a *App) HealthCheck(ctx context.Context) error {
	for name, checker := range a.checks {
		if err := checker.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Run starts the admin server, blocks until ctx is cancelled and then
// closes the application.
func (a *App) Run(ctx context.Context) error {
	if err := a.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if a.admin != nil {
		if err := a.admin.Start(ctx); err != nil {
			return err
		}
		a.closers = append(a.closers, a.admin.Close)
	}

	a.Logger.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	a.Logger.Info("shutdown signal received, cleaning up")

	return a.Close()
}

// Close releases everything New opened, newest first. It is safe to call
// more than once.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func closer(restore func()) func() error {
	return func() error {
		restore()
		return nil
	}
}
