package app_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/entitykit/internal/app"
	"github.com/nerrad567/entitykit/internal/cache"
	"github.com/nerrad567/entitykit/internal/entity"
	"github.com/nerrad567/entitykit/internal/infrastructure/config"
	"github.com/nerrad567/entitykit/internal/infrastructure/database"
	"github.com/nerrad567/entitykit/internal/infrastructure/logging"
	"github.com/nerrad567/entitykit/internal/instances"
	"github.com/nerrad567/entitykit/internal/testutil"
	"github.com/nerrad567/entitykit/internal/validation"
	_ "github.com/nerrad567/entitykit/migrations"
)

func testConfig() *config.Config {
	return &config.Config{
		Logging:  config.LoggingConfig{Level: "error"},
		Database: config.DatabaseConfig{Enabled: true, Path: database.MemoryPath, BusyTimeout: 1},
		Admin:    config.AdminConfig{Enabled: true, Host: "127.0.0.1"},
		Email:    config.EmailConfig{ValidUserDomains: []string{"example.com"}},
	}
}

func testLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error"}, "test")
}

func provideFixtures(res *entity.Resolver, store entity.Store) {
	entity.Provide(res, store, testutil.Somethings, nil)
	entity.Provide(res, store, testutil.SomethingElses, nil)
}

// somethings returns the Something repository bound by provideFixtures.
func somethings() entity.Repository[*testutil.Something] {
	return entity.RepositoryFor[*testutil.Something](instances.Default(), testutil.SomethingShape)
}

func newApp(t *testing.T, cfg *config.Config, opts app.Options) *app.App {
	t.Helper()
	if opts.Repositories == nil {
		opts.Repositories = provideFixtures
	}
	a, err := app.New(context.Background(), cfg, testLogger(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNew_WiresRegistry(t *testing.T) {
	a := newApp(t, testConfig(), app.Options{})

	assert.Same(t, a.Registry, instances.Default())
	require.NotNil(t, a.DB)
	require.NoError(t, a.HealthCheck(context.Background()))

	_, err := instances.Get[entity.Clock](a.Registry)
	assert.NoError(t, err)
	_, err = instances.Get[entity.TransactionManager](a.Registry)
	assert.NoError(t, err)

	c, err := cache.From(a.Registry)
	require.NoError(t, err)
	assert.True(t, c.Connected())

	engine, err := instances.Get[*validation.Engine](a.Registry)
	require.NoError(t, err)
	assert.Same(t, engine, validation.Default())
}

func TestNew_RepositoriesPersist(t *testing.T) {
	ctx := context.Background()
	a := newApp(t, testConfig(), app.Options{})

	repo := somethings()
	err := entity.Transaction(ctx, a.Registry, func(ctx context.Context) error {
		_, err := repo.Create(ctx, testutil.Somethings.New(func(s *testutil.Something) { s.SetName("stored") }))
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, a.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM entity_records WHERE kind = 'Something'`).Scan(&count))
	assert.Equal(t, 1, count)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "stored", all[0].Name())
}

func TestNew_MemoryStoreWhenDatabaseDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Database.Enabled = false

	a := newApp(t, cfg, app.Options{})
	assert.Nil(t, a.DB)

	_, err := somethings().Create(ctx, testutil.Somethings.New())
	require.NoError(t, err)

	all, err := somethings().All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNew_Bootstrap(t *testing.T) {
	cfg := testConfig()
	cfg.Bootstrap = "seed"

	var ran bool
	a := newApp(t, cfg, app.Options{
		Bootstraps: map[string]app.Bootstrap{
			"seed": func(ctx context.Context, a *app.App) error {
				ran = true
				_, err := somethings().Create(ctx, testutil.Somethings.New())
				return err
			},
		},
	})
	assert.True(t, ran)

	all, err := somethings().All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.NotNil(t, a.Admin())
}

func TestNew_BootstrapFailures(t *testing.T) {
	before := instances.Default()

	cfg := testConfig()
	cfg.Bootstrap = "missing"
	_, err := app.New(context.Background(), cfg, testLogger(), app.Options{})
	assert.ErrorIs(t, err, app.ErrUnknownBootstrap)
	assert.Same(t, before, instances.Default(), "failed New restores the default registry")

	boom := errors.New("boom")
	cfg.Bootstrap = "broken"
	_, err = app.New(context.Background(), cfg, testLogger(), app.Options{
		Bootstraps: map[string]app.Bootstrap{
			"broken": func(context.Context, *app.App) error { return boom },
		},
	})
	assert.ErrorIs(t, err, boom)
}

func TestNew_AdminDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Admin.Enabled = false
	a := newApp(t, cfg, app.Options{})
	assert.Nil(t, a.Admin())
}

func TestAdmin_ServesStore(t *testing.T) {
	ctx := context.Background()
	a := newApp(t, testConfig(), app.Options{Shapes: []*entity.Shape{testutil.SomethingShape}})

	_, err := somethings().Create(ctx, testutil.Somethings.New(func(s *testutil.Something) { s.SetName("listed") }))
	require.NoError(t, err)

	h := a.Admin().Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/entities/Something", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"listed"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "entitykit_store_operation_duration_seconds")
	assert.Contains(t, rec.Body.String(), "entitykit_instances_resolutions_total")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Admin.Enabled = false
	a := newApp(t, cfg, app.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	assert.NoError(t, a.Run(ctx))
	assert.NoError(t, a.Close())
}
