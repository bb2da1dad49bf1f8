package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/entitykit/internal/entity"
)

// Store is an entity.Store over process-local slices, one per shape.
//
// Rows are snapshots: the store copies nothing on the way in because it owns
// what it is given, and copies every row on the way out, so no caller ever
// holds a reference into the store.
type Store struct {
	mu   sync.Mutex
	rows map[*entity.Shape][]*entity.Record
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{rows: make(map[*entity.Shape][]*entity.Record)}
}

// Insert implements entity.Store.
func (s *Store) Insert(_ context.Context, r *entity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[r.Shape()] = append(s.rows[r.Shape()], r)
	return nil
}

// Replace implements entity.Store.
func (s *Store) Replace(_ context.Context, r *entity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[r.Shape()]
	if i := indexOfID(rows, r.ID()); i >= 0 {
		rows[i] = r
		return nil
	}
	s.rows[r.Shape()] = append(rows, r)
	return nil
}

// Remove implements entity.Store.
func (s *Store) Remove(_ context.Context, shape *entity.Shape, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[shape]
	i := indexOfID(rows, id)
	if i < 0 {
		return false, nil
	}
	s.rows[shape] = append(rows[:i:i], rows[i+1:]...)
	return true, nil
}

// RemoveEqual implements entity.Store.
func (s *Store) RemoveEqual(_ context.Context, r *entity.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[r.Shape()]
	for i, row := range rows {
		if row.Equal(r) {
			s.rows[r.Shape()] = append(rows[:i:i], rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// List implements entity.Store.
func (s *Store) List(_ context.Context, shape *entity.Shape) ([]*entity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[shape]
	out := make([]*entity.Record, len(rows))
	for i, row := range rows {
		out[i] = row.Copy()
	}
	return out, nil
}

// Get implements entity.Store.
func (s *Store) Get(_ context.Context, shape *entity.Shape, id uuid.UUID) (*entity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[shape]
	if i := indexOfID(rows, id); i >= 0 {
		return rows[i].Copy(), nil
	}
	return nil, fmt.Errorf("%s %s: %w", shape.Name(), id, entity.ErrNotFound)
}

// GetMany implements entity.Store.
func (s *Store) GetMany(_ context.Context, shape *entity.Shape, ids []uuid.UUID) ([]*entity.Record, error) {
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*entity.Record
	for _, row := range s.rows[shape] {
		if _, ok := want[row.ID()]; ok {
			out = append(out, row.Copy())
		}
	}
	return out, nil
}

// Len returns the number of rows of shape.
func (s *Store) Len(shape *entity.Shape) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows[shape])
}

// Clear drops every row.
func (s *Store) Clear() {
	s.mu.Lock()
	clear(s.rows)
	s.mu.Unlock()
}

func indexOfID(rows []*entity.Record, id uuid.UUID) int {
	for i, row := range rows {
		if row.ID() == id {
			return i
		}
	}
	return -1
}
