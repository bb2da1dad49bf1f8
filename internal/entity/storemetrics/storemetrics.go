// Package storemetrics times entity store calls.
//
// Store wraps another entity.Store and observes every call in the
// entitykit_store_operation_duration_seconds histogram. When a point writer
// is attached (the InfluxDB client), each call is also written to the
// store_operations measurement.
package storemetrics

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nerrad567/entitykit/internal/entity"
)

// Operation labels.
const (
	OpInsert      = "insert"
	OpReplace     = "replace"
	OpRemove      = "remove"
	OpRemoveEqual = "remove_equal"
	OpList        = "list"
	OpGet         = "get"
	OpGetMany     = "get_many"
)

// Outcome labels. A Get that finds nothing is "not_found", not "error".
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// PointWriter records one store call. *influxdb.Client satisfies it.
type PointWriter interface {
	WriteStoreOperation(kind, op, outcome string, d time.Duration)
}

// Metrics holds the Prometheus collectors of a Store.
type Metrics struct {
	Duration *prometheus.HistogramVec
}

// NewMetrics registers the store metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "entitykit_store_operation_duration_seconds",
			Help:    "Entity store call latency by kind, operation and outcome",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"kind", "op", "outcome"}),
	}
}

// Store is an entity.Store that times every call.
type Store struct {
	next    entity.Store
	metrics *Metrics
	points  PointWriter
}

// New wraps next. Either of metrics and points may be nil.
func New(next entity.Store, metrics *Metrics, points PointWriter) *Store {
	return &Store{next: next, metrics: metrics, points: points}
}

func (s *Store) observe(kind, op string, start time.Time, err error) {
	d := time.Since(start)
	outcome := outcomeOf(err)
	if s.metrics != nil {
		s.metrics.Duration.WithLabelValues(kind, op, outcome).Observe(d.Seconds())
	}
	if s.points != nil {
		s.points.WriteStoreOperation(kind, op, outcome, d)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, entity.ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}

// Insert implements entity.Store.
func (s *Store) Insert(ctx context.Context, r *entity.Record) (err error) {
	defer func(start time.Time) { s.observe(r.Shape().Name(), OpInsert, start, err) }(time.Now())
	return s.next.Insert(ctx, r)
}

// Replace implements entity.Store.
func (s *Store) Replace(ctx context.Context, r *entity.Record) (err error) {
	defer func(start time.Time) { s.observe(r.Shape().Name(), OpReplace, start, err) }(time.Now())
	return s.next.Replace(ctx, r)
}

// Remove implements entity.Store.
func (s *Store) Remove(ctx context.Context, shape *entity.Shape, id uuid.UUID) (_ bool, err error) {
	defer func(start time.Time) { s.observe(shape.Name(), OpRemove, start, err) }(time.Now())
	return s.next.Remove(ctx, shape, id)
}

// RemoveEqual implements entity.Store.
func (s *Store) RemoveEqual(ctx context.Context, r *entity.Record) (_ bool, err error) {
	defer func(start time.Time) { s.observe(r.Shape().Name(), OpRemoveEqual, start, err) }(time.Now())
	return s.next.RemoveEqual(ctx, r)
}

// List implements entity.Store.
func (s *Store) List(ctx context.Context, shape *entity.Shape) (_ []*entity.Record, err error) {
	defer func(start time.Time) { s.observe(shape.Name(), OpList, start, err) }(time.Now())
	return s.next.List(ctx, shape)
}

// Get implements entity.Store.
func (s *Store) Get(ctx context.Context, shape *entity.Shape, id uuid.UUID) (_ *entity.Record, err error) {
	defer func(start time.Time) { s.observe(shape.Name(), OpGet, start, err) }(time.Now())
	return s.next.Get(ctx, shape, id)
}

// GetMany implements entity.Store.
func (s *Store) GetMany(ctx context.Context, shape *entity.Shape, ids []uuid.UUID) (_ []*entity.Record, err error) {
	defer func(start time.Time) { s.observe(shape.Name(), OpGetMany, start, err) }(time.Now())
	return s.next.GetMany(ctx, shape, ids)
}

var _ entity.Store = (*Store)(nil)
