package changefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nerrad567/entitykit/internal/entity"
	"github.com/nerrad567/entitykit/internal/infrastructure/mqtt"
)

// Operations carried in Event.Op and the last topic segment.
const (
	OpInsert  = "insert"
	OpReplace = "replace"
	OpRemove  = "remove"
)

// Publisher sends one message. *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger receives publish failures. *logging.Logger satisfies it.
type Logger interface {
	Warn(msg string, args ...any)
}

// Event is the payload of one change message. Fields is nil for removals
// by id; enum values appear by name.
type Event struct {
	Kind   string         `json:"kind"`
	Op     string         `json:"op"`
	ID     uuid.UUID      `json:"id"`
	At     time.Time      `json:"at"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Store is an entity.Store that publishes an Event after each write.
type Store struct {
	next   entity.Store
	pub    Publisher
	topics mqtt.Topics
	qos    byte
	clock  entity.Clock
	logger Logger
}

// Option configures a Store.
type Option func(*Store)

// WithQoS sets the publish QoS (default 1).
func WithQoS(qos byte) Option {
	return func(s *Store) { s.qos = qos }
}

// WithClock sets the clock stamping Event.At.
func WithClock(c entity.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger for publish failures.
func WithLogger(l Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New wraps next, publishing events on pub under topics.
func New(next entity.Store, pub Publisher, topics mqtt.Topics, opts ...Option) *Store {
	s := &Store{
		next:   next,
		pub:    pub,
		topics: topics,
		qos:    1,
		clock:  entity.SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert implements entity.Store.
func (s *Store) Insert(ctx context.Context, r *entity.Record) error {
	if err := s.next.Insert(ctx, r); err != nil {
		return err
	}
	s.publish(OpInsert, r.Shape(), r.ID(), r)
	return nil
}

// Replace implements entity.Store.
func (s *Store) Replace(ctx context.Context, r *entity.Record) error {
	if err := s.next.Replace(ctx, r); err != nil {
		return err
	}
	s.publish(OpReplace, r.Shape(), r.ID(), r)
	return nil
}

// Remove implements entity.Store. Nothing is published when no row had id.
func (s *Store) Remove(ctx context.Context, shape *entity.Shape, id uuid.UUID) (bool, error) {
	removed, err := s.next.Remove(ctx, shape, id)
	if err != nil || !removed {
		return removed, err
	}
	s.publish(OpRemove, shape, id, nil)
	return true, nil
}

// RemoveEqual implements entity.Store. Nothing is published when no row
// equalled r.
func (s *Store) RemoveEqual(ctx context.Context, r *entity.Record) (bool, error) {
	removed, err := s.next.RemoveEqual(ctx, r)
	if err != nil || !removed {
		return removed, err
	}
	s.publish(OpRemove, r.Shape(), r.ID(), r)
	return true, nil
}

// List implements entity.Store.
func (s *Store) List(ctx context.Context, shape *entity.Shape) ([]*entity.Record, error) {
	return s.next.List(ctx, shape)
}

// Get implements entity.Store.
func (s *Store) Get(ctx context.Context, shape *entity.Shape, id uuid.UUID) (*entity.Record, error) {
	return s.next.Get(ctx, shape, id)
}

// GetMany implements entity.Store.
func (s *Store) GetMany(ctx context.Context, shape *entity.Shape, ids []uuid.UUID) ([]*entity.Record, error) {
	return s.next.GetMany(ctx, shape, ids)
}

func (s *Store) publish(op string, shape *entity.Shape, id uuid.UUID, r *entity.Record) {
	event := Event{
		Kind: shape.Name(),
		Op:   op,
		ID:   id,
		At:   s.clock.Now(),
	}
	if r != nil {
		event.Fields = r.Document()
	}

	payload, err := json.Marshal(event)
	if err == nil {
		err = s.pub.Publish(s.topics.EntityEvent(event.Kind, op), payload, s.qos, false)
	}
	if err != nil && s.logger != nil {
		s.logger.Warn("entity change not published",
			"kind", event.Kind,
			"op", op,
			"id", id,
			"error", err,
		)
	}
}

// Decode parses an event payload.
func Decode(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, fmt.Errorf("decoding entity event: %w", err)
	}
	return e, nil
}

var _ entity.Store = (*Store)(nil)
