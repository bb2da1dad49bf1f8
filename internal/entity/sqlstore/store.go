package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nerrad567/entitykit/internal/entity"
	"github.com/nerrad567/entitykit/internal/infrastructure/database"
)

// ErrDuplicateID is returned by Insert when a row of the same kind and id
// already exists.
var ErrDuplicateID = errors.New("sqlstore: duplicate id")

const timeLayout = time.RFC3339Nano

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements entity.Store on the entity_records table. Each row holds
// the base fields in columns and the declared fields as a JSON object.
//
// Operations join the transaction carried by ctx, if any.
type Store struct {
	db *database.DB
}

// New returns a store on db. The entity_records migration must have run.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

func (s *Store) q(ctx context.Context) querier {
	if tx := txFrom(ctx); tx != nil {
		return tx
	}
	return s.db
}

// Insert implements entity.Store.
func (s *Store) Insert(ctx context.Context, r *entity.Record) error {
	fields, err := encodeFields(r)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO entity_records (kind, id, created_at, updated_at, fields)
		VALUES (?, ?, ?, ?, ?)`

	_, err = s.q(ctx).ExecContext(ctx, query,
		r.Shape().Name(), r.ID().String(), nullTime(r.CreatedAt()), nullTime(r.UpdatedAt()), fields)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%s %s: %w", r.Shape().Name(), r.ID(), ErrDuplicateID)
		}
		return fmt.Errorf("inserting %s: %w", r.Shape().Name(), err)
	}
	return nil
}

// Replace implements entity.Store. An existing row keeps its position.
func (s *Store) Replace(ctx context.Context, r *entity.Record) error {
	fields, err := encodeFields(r)
	if err != nil {
		return err
	}

	query := `
		UPDATE entity_records
		SET created_at = ?, updated_at = ?, fields = ?
		WHERE kind = ? AND id = ?`

	result, err := s.q(ctx).ExecContext(ctx, query,
		nullTime(r.CreatedAt()), nullTime(r.UpdatedAt()), fields, r.Shape().Name(), r.ID().String())
	if err != nil {
		return fmt.Errorf("updating %s: %w", r.Shape().Name(), err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return s.Insert(ctx, r)
	}
	return nil
}

// Remove implements entity.Store.
func (s *Store) Remove(ctx context.Context, shape *entity.Shape, id uuid.UUID) (bool, error) {
	result, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM entity_records WHERE kind = ? AND id = ?`, shape.Name(), id.String())
	if err != nil {
		return false, fmt.Errorf("deleting %s: %w", shape.Name(), err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n > 0, nil
}

// RemoveEqual implements entity.Store. Ids are unique per kind, so the only
// candidate is the row with r's id.
func (s *Store) RemoveEqual(ctx context.Context, r *entity.Record) (bool, error) {
	stored, err := s.Get(ctx, r.Shape(), r.ID())
	if errors.Is(err, entity.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !stored.Equal(r) {
		return false, nil
	}
	return s.Remove(ctx, r.Shape(), r.ID())
}

// List implements entity.Store.
func (s *Store) List(ctx context.Context, shape *entity.Shape) ([]*entity.Record, error) {
	query := `
		SELECT id, created_at, updated_at, fields
		FROM entity_records
		WHERE kind = ?
		ORDER BY seq`

	return s.query(ctx, shape, query, shape.Name())
}

// Get implements entity.Store.
func (s *Store) Get(ctx context.Context, shape *entity.Shape, id uuid.UUID) (*entity.Record, error) {
	query := `
		SELECT id, created_at, updated_at, fields
		FROM entity_records
		WHERE kind = ? AND id = ?`

	row := s.q(ctx).QueryRowContext(ctx, query, shape.Name(), id.String())
	rec, err := scanRecord(shape, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", shape.Name(), id, entity.ErrNotFound)
		}
		return nil, fmt.Errorf("querying %s by id: %w", shape.Name(), err)
	}
	return rec, nil
}

// GetMany implements entity.Store.
func (s *Store) GetMany(ctx context.Context, shape *entity.Shape, ids []uuid.UUID) ([]*entity.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, shape.Name())
	for _, id := range ids {
		args = append(args, id.String())
	}

	query := `
		SELECT id, created_at, updated_at, fields
		FROM entity_records
		WHERE kind = ? AND id IN (?` + strings.Repeat(", ?", len(ids)-1) + `)
		ORDER BY seq`

	return s.query(ctx, shape, query, args...)
}

func (s *Store) query(ctx context.Context, shape *entity.Shape, query string, args ...any) ([]*entity.Record, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", shape.Name(), err)
	}
	defer rows.Close()

	var out []*entity.Record
	for rows.Next() {
		rec, err := scanRecord(shape, rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", shape.Name(), err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", shape.Name(), err)
	}
	return out, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(shape *entity.Shape, row scanner) (*entity.Record, error) {
	var (
		id                   string
		createdAt, updatedAt sql.NullString
		fields               string
	)
	if err := row.Scan(&id, &createdAt, &updatedAt, &fields); err != nil {
		return nil, err
	}

	values, err := decodeFields(shape, []byte(fields))
	if err != nil {
		return nil, err
	}

	if values[entity.FieldID], err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing id: %w", err)
	}
	if values[entity.FieldCreatedAt], err = parseNullTime(createdAt); err != nil {
		return nil, err
	}
	if values[entity.FieldUpdatedAt], err = parseNullTime(updatedAt); err != nil {
		return nil, err
	}

	return entity.Materialize(shape, values)
}

// encodeFields renders the declared fields of r as a JSON object. Enum
// values are stored by name.
func encodeFields(r *entity.Record) (string, error) {
	doc := r.Document()
	for _, name := range []string{entity.FieldID, entity.FieldCreatedAt, entity.FieldUpdatedAt} {
		delete(doc, name)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshalling %s fields: %w", r.Shape().Name(), err)
	}
	return string(data), nil
}

// decodeFields decodes each declared field into its declared type. Fields
// missing from the document are left out, so they materialize as zero.
func decodeFields(shape *entity.Shape, data []byte) (map[string]any, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshalling %s fields: %w", shape.Name(), err)
	}

	values := make(map[string]any, len(raw)+3)
	for _, f := range shape.Fields() {
		msg, ok := raw[f.Name]
		if !ok || isBase(f.Name) {
			continue
		}
		v, err := decodeField(f, msg)
		if err != nil {
			return nil, fmt.Errorf("decoding %s.%s: %w", shape.Name(), f.Name, err)
		}
		if v == nil && !f.Nullable {
			continue
		}
		values[f.Name] = v
	}
	return values, nil
}

func decodeField(f entity.Field, msg json.RawMessage) (any, error) {
	if string(msg) == "null" {
		return nil, nil
	}
	if len(f.Enum) > 0 {
		var name string
		if err := json.Unmarshal(msg, &name); err != nil {
			return nil, err
		}
		return entity.Coerce(f, name)
	}

	ptr := reflect.New(f.Type)
	if err := json.Unmarshal(msg, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

func isBase(name string) bool {
	return name == entity.FieldID || name == entity.FieldCreatedAt || name == entity.FieldUpdatedAt
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

func parseNullTime(s sql.NullString) (any, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp %q: %w", s.String, err)
	}
	return t, nil
}
