package entity

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/entitykit/internal/instances"
)

// AnyRepository is the family every repository belongs to. Resolvers for
// repositories are registered against it.
type AnyRepository interface {
	Shape() *Shape
}

// Repository persists entities of type T.
//
// Every entity handed back is a copy: mutating it never changes stored
// state, and later writes to the store never change it.
type Repository[T Entity] interface {
	AnyRepository

	// Copy returns a structural copy of e without touching the store.
	Copy(e T) T

	// Create stores a copy of e stamped with created_at = updated_at = now.
	Create(ctx context.Context, e T) (T, error)

	// Update stores a copy of e stamped with updated_at = now.
	Update(ctx context.Context, e T) (T, error)

	// Delete removes the row with e's id and returns e. Deleting a missing
	// row is not an error.
	Delete(ctx context.Context, e T) (T, error)

	// All returns every row in store order.
	All(ctx context.Context) ([]T, error)

	// DeleteAll removes every row equal to an element of list and returns list.
	DeleteAll(ctx context.Context, list []T) ([]T, error)

	// FindByID returns the row with id, or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (T, error)

	// FindByIDs returns the rows whose id is in ids, in store order.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]T, error)

	// ForceSet writes field on e through the SetProperty bypass. It exists
	// for test setup of fields the declared setters refuse.
	ForceSet(e T, field string, value any) error
}

// Store keeps records of any shape. Backends implement it once and every
// StoreRepository shares it.
//
// Records passed in belong to the store afterwards; records returned belong
// to the caller.
type Store interface {
	// Insert appends r.
	Insert(ctx context.Context, r *Record) error

	// Replace swaps the row with r's id for r in place, or appends r when no
	// such row exists.
	Replace(ctx context.Context, r *Record) error

	// Remove deletes the first row of shape with id and reports whether
	// there was one.
	Remove(ctx context.Context, shape *Shape, id uuid.UUID) (bool, error)

	// RemoveEqual deletes the first row equal to r and reports whether
	// there was one.
	RemoveEqual(ctx context.Context, r *Record) (bool, error)

	// List returns every row of shape in store order.
	List(ctx context.Context, shape *Shape) ([]*Record, error)

	// Get returns the first row of shape with id, or ErrNotFound.
	Get(ctx context.Context, shape *Shape, id uuid.UUID) (*Record, error)

	// GetMany returns the rows of shape whose id is in ids, in store order.
	GetMany(ctx context.Context, shape *Shape, ids []uuid.UUID) ([]*Record, error)
}

// StoreRepository implements Repository for T over any Store.
type StoreRepository[T Entity] struct {
	store   Store
	factory *Factory[T]
	clock   Clock
}

// NewStoreRepository returns a repository for factory's shape. A nil clock
// means SystemClock.
func NewStoreRepository[T Entity](store Store, factory *Factory[T], clock Clock) *StoreRepository[T] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &StoreRepository[T]{store: store, factory: factory, clock: clock}
}

// Shape implements AnyRepository.
func (r *StoreRepository[T]) Shape() *Shape {
	return r.factory.Shape()
}

// Factory returns the factory the repository wraps records with.
func (r *StoreRepository[T]) Factory() *Factory[T] {
	return r.factory
}

// Copy implements Repository.
func (r *StoreRepository[T]) Copy(e T) T {
	return r.factory.Copy(e)
}

// Create implements Repository.
func (r *StoreRepository[T]) Create(ctx context.Context, e T) (T, error) {
	rec := e.Record().Copy()
	rec.Touch(r.clock.Now(), true)
	out := rec.Copy()

	if err := r.store.Insert(ctx, rec); err != nil {
		var zero T
		return zero, fmt.Errorf("creating %s: %w", r.Shape().Name(), err)
	}
	return r.factory.Wrap(out), nil
}

// Update implements Repository.
func (r *StoreRepository[T]) Update(ctx context.Context, e T) (T, error) {
	rec := e.Record().Copy()
	rec.Touch(r.clock.Now(), false)
	out := rec.Copy()

	if err := r.store.Replace(ctx, rec); err != nil {
		var zero T
		return zero, fmt.Errorf("updating %s: %w", r.Shape().Name(), err)
	}
	return r.factory.Wrap(out), nil
}

// Delete implements Repository.
func (r *StoreRepository[T]) Delete(ctx context.Context, e T) (T, error) {
	if _, err := r.store.Remove(ctx, r.Shape(), e.Record().ID()); err != nil {
		var zero T
		return zero, fmt.Errorf("deleting %s: %w", r.Shape().Name(), err)
	}
	return e, nil
}

// All implements Repository.
func (r *StoreRepository[T]) All(ctx context.Context) ([]T, error) {
	recs, err := r.store.List(ctx, r.Shape())
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.Shape().Name(), err)
	}
	return r.wrapAll(recs), nil
}

// DeleteAll implements Repository.
func (r *StoreRepository[T]) DeleteAll(ctx context.Context, list []T) ([]T, error) {
	for _, e := range list {
		if _, err := r.store.RemoveEqual(ctx, e.Record()); err != nil {
			return nil, fmt.Errorf("deleting %s: %w", r.Shape().Name(), err)
		}
	}
	return list, nil
}

// FindByID implements Repository.
func (r *StoreRepository[T]) FindByID(ctx context.Context, id uuid.UUID) (T, error) {
	rec, err := r.store.Get(ctx, r.Shape(), id)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("finding %s %s: %w", r.Shape().Name(), id, err)
	}
	return r.factory.Wrap(rec), nil
}

// FindByIDs implements Repository.
func (r *StoreRepository[T]) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]T, error) {
	recs, err := r.store.GetMany(ctx, r.Shape(), ids)
	if err != nil {
		return nil, fmt.Errorf("finding %s: %w", r.Shape().Name(), err)
	}
	return r.wrapAll(recs), nil
}

// ForceSet implements Repository.
func (r *StoreRepository[T]) ForceSet(e T, field string, value any) error {
	return e.Record().SetProperty(field, value)
}

func (r *StoreRepository[T]) wrapAll(recs []*Record) []T {
	out := make([]T, len(recs))
	for i, rec := range recs {
		out[i] = r.factory.Wrap(rec)
	}
	return out
}

// DeferredRepository is a Repository whose implementation is resolved on
// first use. Every call while unbound retries resolution; once bound, calls
// go straight to the delegate.
type DeferredRepository[T Entity] struct {
	handle *instances.Deferred[Repository[T]]
	shape  *Shape
}

// Defer returns a repository for T that resolves through reg on first use.
// shape answers Shape() without resolving.
func Defer[T Entity](reg *instances.Registry, shape *Shape) *DeferredRepository[T] {
	return &DeferredRepository[T]{handle: instances.Lookup[Repository[T]](reg), shape: shape}
}

// RepositoryFor returns the repository bound for T in reg, or a deferred
// one when nothing is bound yet.
func RepositoryFor[T Entity](reg *instances.Registry, shape *Shape) Repository[T] {
	if repo, err := instances.Get[Repository[T]](reg); err == nil {
		return repo
	}
	return Defer[T](reg, shape)
}

// Bound reports whether the delegate has been resolved.
func (d *DeferredRepository[T]) Bound() bool {
	return d.handle.Bound()
}

// Delegate resolves the repository.
func (d *DeferredRepository[T]) Delegate() (Repository[T], error) {
	return d.handle.Get()
}

// Shape implements AnyRepository.
func (d *DeferredRepository[T]) Shape() *Shape {
	return d.shape
}

// Copy implements Repository. It panics when no repository can be resolved,
// since it has no error return.
func (d *DeferredRepository[T]) Copy(e T) T {
	return d.handle.MustGet().Copy(e)
}

// Create implements Repository.
func (d *DeferredRepository[T]) Create(ctx context.Context, e T) (T, error) {
	repo, err := d.handle.Get()
	if err != nil {
		var zero T
		return zero, err
	}
	return repo.Create(ctx, e)
}

// Update implements Repository.
func (d *DeferredRepository[T]) Update(ctx context.Context, e T) (T, error) {
	repo, err := d.handle.Get()
	if err != nil {
		var zero T
		return zero, err
	}
	return repo.Update(ctx, e)
}

// Delete implements Repository.
func (d *DeferredRepository[T]) Delete(ctx context.Context, e T) (T, error) {
	repo, err := d.handle.Get()
	if err != nil {
		var zero T
		return zero, err
	}
	return repo.Delete(ctx, e)
}

// All implements Repository.
func (d *DeferredRepository[T]) All(ctx context.Context) ([]T, error) {
	repo, err := d.handle.Get()
	if err != nil {
		return nil, err
	}
	return repo.All(ctx)
}

// DeleteAll implements Repository.
func (d *DeferredRepository[T]) DeleteAll(ctx context.Context, list []T) ([]T, error) {
	repo, err := d.handle.Get()
	if err != nil {
		return nil, err
	}
	return repo.DeleteAll(ctx, list)
}

// FindByID implements Repository.
func (d *DeferredRepository[T]) FindByID(ctx context.Context, id uuid.UUID) (T, error) {
	repo, err := d.handle.Get()
	if err != nil {
		var zero T
		return zero, err
	}
	return repo.FindByID(ctx, id)
}

// FindByIDs implements Repository.
func (d *DeferredRepository[T]) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]T, error) {
	repo, err := d.handle.Get()
	if err != nil {
		return nil, err
	}
	return repo.FindByIDs(ctx, ids)
}

// ForceSet implements Repository.
func (d *DeferredRepository[T]) ForceSet(e T, field string, value any) error {
	repo, err := d.handle.Get()
	if err != nil {
		return err
	}
	return repo.ForceSet(e, field, value)
}
