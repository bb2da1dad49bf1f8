package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/entitykit/internal/entity"
	"github.com/nerrad567/entitykit/internal/entity/sqlstore"
	"github.com/nerrad567/entitykit/internal/infrastructure/database"
	"github.com/nerrad567/entitykit/internal/instances"
	"github.com/nerrad567/entitykit/internal/testutil"
	_ "github.com/nerrad567/entitykit/migrations"
)

func setupStore(t *testing.T) (*database.DB, *sqlstore.Store) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Path: database.MemoryPath, BusyTimeout: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db, sqlstore.New(db)
}

func setupRepo(t *testing.T) (*entity.StoreRepository[*testutil.Something], *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	_, store := setupStore(t)
	return entity.NewStoreRepository(store, testutil.Somethings, env.Clock), env
}

func fullSomething() *testutil.Something {
	value := "optional"
	long := int64(1) << 40
	return testutil.Somethings.New(func(s *testutil.Something) {
		s.SetName("FirstValue")
		s.SetValue(&value)
		s.SetEnabled(true)
		s.SetNum(42)
		s.SetDate(entity.Date{Year: 2001, Month: time.January, Day: 1})
		s.SetDateTime(time.Date(2001, 1, 1, 1, 0, 0, 123456789, time.UTC))
		s.SetEnum(testutil.Two)
		s.SetLong(&long)
	})
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	created, err := repo.Create(ctx, fullSomething())
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, created.ID())
	require.NoError(t, err)
	assert.True(t, entity.Equal(created, found), "stored %s, read %s", created.Record(), found.Record())
	assert.Equal(t, testutil.Two, found.Enum())
	assert.Equal(t, int64(1)<<40, *found.Long())
}

func TestStore_RoundTripZeroValues(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	created, err := repo.Create(ctx, testutil.Somethings.New())
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, created.ID())
	require.NoError(t, err)
	assert.True(t, entity.Equal(created, found))
	assert.Nil(t, found.Value())
	assert.Nil(t, found.Long())
}

func TestStore_ExampleScenario(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	created, err := repo.Create(ctx, testutil.Somethings.New(func(s *testutil.Something) {
		s.SetName("FirstValue")
		s.SetEnabled(true)
	}))
	require.NoError(t, err)
	assert.True(t, created.CreatedAt().Equal(created.UpdatedAt()))

	found, err := repo.FindByID(ctx, created.ID())
	require.NoError(t, err)
	found.SetName("Updated")

	updated, err := repo.Update(ctx, found)
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt().After(updated.CreatedAt()))

	reloaded, err := repo.FindByID(ctx, created.ID())
	require.NoError(t, err)
	assert.Equal(t, "Updated", reloaded.Name())
	assert.True(t, reloaded.CreatedAt().Equal(created.CreatedAt()))
}

func TestStore_OrderAndLookup(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	var ids []uuid.UUID
	for _, name := range []string{"a", "b", "c"} {
		s, err := repo.Create(ctx, testutil.Somethings.New(func(s *testutil.Something) { s.SetName(name) }))
		require.NoError(t, err)
		ids = append(ids, s.ID())
	}

	// Updating the first row keeps its position.
	first, err := repo.FindByID(ctx, ids[0])
	require.NoError(t, err)
	first.SetName("a2")
	_, err = repo.Update(ctx, first)
	require.NoError(t, err)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids, entity.IDs(all))
	assert.Equal(t, "a2", all[0].Name())

	some, err := repo.FindByIDs(ctx, []uuid.UUID{ids[2], ids[0]})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ids[0], ids[2]}, entity.IDs(some))

	none, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestStore_DeleteAndDeleteAll(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	a, err := repo.Create(ctx, testutil.Somethings.New(func(s *testutil.Something) { s.SetName("a") }))
	require.NoError(t, err)
	b, err := repo.Create(ctx, testutil.Somethings.New(func(s *testutil.Something) { s.SetName("b") }))
	require.NoError(t, err)
	c, err := repo.Create(ctx, testutil.Somethings.New(func(s *testutil.Something) { s.SetName("c") }))
	require.NoError(t, err)

	_, err = repo.Delete(ctx, a)
	require.NoError(t, err)
	_, err = repo.Delete(ctx, a)
	require.NoError(t, err)

	stale := repo.Copy(c)
	stale.SetName("stale")
	_, err = repo.DeleteAll(ctx, []*testutil.Something{b, stale})
	require.NoError(t, err)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "c", all[0].Name())
}

func TestStore_RemoveReportsRemoval(t *testing.T) {
	ctx := context.Background()
	_, store := setupStore(t)

	rec := testutil.Somethings.New().Record()
	require.NoError(t, store.Insert(ctx, rec))

	stale := rec.Copy()
	require.NoError(t, stale.SetProperty("name", "stale"))
	removed, err := store.RemoveEqual(ctx, stale)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = store.Remove(ctx, rec.Shape(), rec.ID())
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Remove(ctx, rec.Shape(), rec.ID())
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStore_DuplicateInsert(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	s := testutil.Somethings.New()
	_, err := repo.Create(ctx, s)
	require.NoError(t, err)

	_, err = repo.Create(ctx, s)
	assert.ErrorIs(t, err, sqlstore.ErrDuplicateID)
}

func TestStore_KindsAreSeparate(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	_, store := setupStore(t)

	things := entity.NewStoreRepository(store, testutil.Somethings, env.Clock)
	others := entity.NewStoreRepository(store, testutil.SomethingElses, env.Clock)

	s, err := things.Create(ctx, testutil.Somethings.New())
	require.NoError(t, err)

	_, err = others.FindByID(ctx, s.ID())
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestTransactionManager(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	db, store := setupStore(t)
	repo := entity.NewStoreRepository(store, testutil.Somethings, env.Clock)
	tm := sqlstore.NewTransactionManager(db)

	boom := errors.New("boom")
	err := tm.InTransaction(ctx, func(ctx context.Context) error {
		if _, err := repo.Create(ctx, testutil.Somethings.New()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "rolled back")

	err = tm.InTransaction(ctx, func(ctx context.Context) error {
		return tm.InTransaction(ctx, func(ctx context.Context) error {
			_, err := repo.Create(ctx, testutil.Somethings.New())
			return err
		})
	})
	require.NoError(t, err)

	all, err = repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestProvide_ThroughRegistry(t *testing.T) {
	ctx := context.Background()
	db, store := setupStore(t)

	reg := instances.New()
	t.Cleanup(instances.SetDefault(reg))
	instances.Register[entity.TransactionManager](reg, func() entity.TransactionManager {
		return sqlstore.NewTransactionManager(db)
	})
	res := entity.NewResolver()
	entity.Provide(res, store, testutil.SomethingElses, nil)
	res.Install(reg)

	repo, err := instances.Get[entity.Repository[*testutil.SomethingElse]](reg)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = entity.Transaction(ctx, reg, func(ctx context.Context) error {
		if _, err := repo.Create(ctx, testutil.SomethingElses.New()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = entity.Transaction(ctx, reg, func(ctx context.Context) error {
		_, err := repo.Create(ctx, testutil.SomethingElses.New(func(e *testutil.SomethingElse) { e.SetName("kept") }))
		return err
	})
	require.NoError(t, err)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "kept", all[0].Name())
	assert.False(t, all[0].CreatedAt().IsZero())
}
