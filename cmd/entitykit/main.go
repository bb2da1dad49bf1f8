// Command entitykit runs the entity registry service: the SQLite entity
// store, the optional MQTT change feed and InfluxDB telemetry, and the admin
// HTTP surface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/entitykit/migrations"

	"github.com/nerrad567/entitykit/internal/app"
	"github.com/nerrad567/entitykit/internal/infrastructure/config"
	"github.com/nerrad567/entitykit/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting entitykit",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, source, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "source", source, "environment", cfg.Environment)

	log = logging.New(cfg.Logging, version)

	a, err := app.New(ctx, cfg, log, app.Options{
		Version:    version,
		Bootstraps: bootstraps,
	})
	if err != nil {
		return err
	}

	if err := a.Run(ctx); err != nil {
		_ = a.Close()
		return err
	}

	log.Info("entitykit stopped")
	return nil
}

// bootstraps is the catalog the bootstrap config key selects from.
var bootstraps = map[string]app.Bootstrap{
	"log-bindings": func(_ context.Context, a *app.App) error {
		for _, b := range a.Registry.Bindings() {
			a.Logger.Info("capability bound", "type", b.Type, "kind", b.Kind)
		}
		return nil
	},
}

// loadConfig reads ENTITYKIT_CONFIG as a single file when set, and
// otherwise layers app.yml, app-<env>.yml and secret.yml from
// ENTITYKIT_CONFIG_DIR (default "configs").
func loadConfig() (*config.Config, string, error) {
	if path := os.Getenv("ENTITYKIT_CONFIG"); path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}

	dir := os.Getenv("ENTITYKIT_CONFIG_DIR")
	if dir == "" {
		dir = defaultConfigDir
	}
	cfg, err := config.LoadLayered(dir, config.Environment())
	return cfg, dir, err
}

const defaultConfigDir = "configs"
