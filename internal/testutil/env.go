// Package testutil holds the fixtures and helpers shared by package tests:
// an isolated default registry, a stepping clock and fixture entities with
// in-memory repositories.
package testutil

import (
	"testing"
	"time"

	"github.com/nerrad567/entitykit/internal/entity"
	"github.com/nerrad567/entitykit/internal/entity/memory"
	"github.com/nerrad567/entitykit/internal/instances"
)

// Epoch is the first reading of clocks made by NewEnv.
var Epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// Env is an isolated registry with in-memory fixture repositories.
type Env struct {
	Registry *instances.Registry
	Resolver *entity.Resolver
	Clock    *Clock
}

// NewEnv installs a fresh registry as the default for the duration of t.
// The registry serves the fixture repositories and a Clock that advances
// one second per reading.
func NewEnv(t testing.TB) *Env {
	t.Helper()

	reg := instances.New()
	t.Cleanup(instances.SetDefault(reg))

	clock := NewClock(Epoch, time.Second)
	instances.Register[entity.Clock](reg, func() entity.Clock { return clock })

	res := entity.NewResolver()
	ProvideFixtures(res, memory.WithClock(clock))
	res.Install(reg)

	return &Env{Registry: reg, Resolver: res, Clock: clock}
}
