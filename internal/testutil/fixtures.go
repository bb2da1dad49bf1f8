package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/entitykit/internal/entity"
	"github.com/nerrad567/entitykit/internal/entity/memory"
	"github.com/nerrad567/entitykit/internal/instances"
	"github.com/nerrad567/entitykit/internal/validation"
)

// MyEnum is the enum field type of Something.
type MyEnum string

// MyEnum values.
const (
	One MyEnum = "One"
	Two MyEnum = "Two"
)

// Something is a fixture entity with one field of every supported kind.
type Something struct{ entity.Base }

var (
	somethingName     = entity.Attr[string]("name")
	somethingValue    = entity.Optional[string]("value")
	somethingEnabled  = entity.Attr[bool]("enabled")
	somethingNum      = entity.Attr[int]("num")
	somethingDate     = entity.Attr[entity.Date]("date")
	somethingDateTime = entity.Attr[time.Time]("date_time")
	somethingEnum     = entity.EnumAttr("enum", One, Two)
	somethingLong     = entity.Optional[int64]("long")
	somethingLazy     = entity.Computed("a_lazy_value", func(*Something) string { return uuid.NewString() })

	// SomethingShape is the shape of Something.
	SomethingShape = entity.NewShape("Something",
		somethingName, somethingValue, somethingEnabled, somethingNum,
		somethingDate, somethingDateTime, somethingEnum, somethingLong, somethingLazy)

	// Somethings builds Something instances.
	Somethings = entity.NewFactory(SomethingShape, func(r *entity.Record) *Something {
		return &Something{Base: entity.NewBase(r)}
	})
)

func (s *Something) Name() string              { return somethingName.Get(s) }
func (s *Something) SetName(v string)          { somethingName.Set(s, v) }
func (s *Something) Value() *string            { return somethingValue.Get(s) }
func (s *Something) SetValue(v *string)        { somethingValue.Set(s, v) }
func (s *Something) Enabled() bool             { return somethingEnabled.Get(s) }
func (s *Something) SetEnabled(v bool)         { somethingEnabled.Set(s, v) }
func (s *Something) Num() int                  { return somethingNum.Get(s) }
func (s *Something) SetNum(v int)              { somethingNum.Set(s, v) }
func (s *Something) Date() entity.Date         { return somethingDate.Get(s) }
func (s *Something) SetDate(v entity.Date)     { somethingDate.Set(s, v) }
func (s *Something) DateTime() time.Time       { return somethingDateTime.Get(s) }
func (s *Something) SetDateTime(v time.Time)   { somethingDateTime.Set(s, v) }
func (s *Something) Enum() MyEnum              { return somethingEnum.Get(s) }
func (s *Something) SetEnum(v MyEnum)          { somethingEnum.Set(s, v) }
func (s *Something) Long() *int64              { return somethingLong.Get(s) }
func (s *Something) SetLong(v *int64)          { somethingLong.Set(s, v) }
func (s *Something) ALazyValue() string        { return somethingLazy.Get(s) }
func (s *Something) ClearALazyValue()          { somethingLazy.Clear(s) }
func (s *Something) IsALazyValueLoaded() bool  { return somethingLazy.Loaded(s) }
func (s *Something) LazyValueName() string     { return somethingLazy.Name() }

// Validate requires a non-blank name.
func (s *Something) Validate() error {
	return validation.ValidateEntity(s, func(v *validation.Validator) {
		v.Field("name", func(f *validation.Field) { f.NotBlank() })
	})
}

// SomethingRepository is the repository of Something, with domain queries.
type SomethingRepository interface {
	entity.Repository[*Something]

	FindByLotsOfThings(ctx context.Context, name string, count int, at time.Time) ([]*Something, error)
	CreateNamed(ctx context.Context, name string) (*Something, error)
}

type somethingMemory struct {
	*memory.Repository[*Something]
}

func (r somethingMemory) FindByLotsOfThings(ctx context.Context, name string, count int, at time.Time) ([]*Something, error) {
	ret := r.Invoke("FindByLotsOfThings", name, count, at)
	list, _ := ret.Get(0).([]*Something)
	return list, ret.Error(1)
}

// CreateNamed has a default implementation that a test may replace with On.
func (r somethingMemory) CreateNamed(ctx context.Context, name string) (*Something, error) {
	if r.Mocked("CreateNamed", name) {
		ret := r.Invoke("CreateNamed", name)
		s, _ := ret.Get(0).(*Something)
		return s, ret.Error(1)
	}
	return r.Create(ctx, Somethings.New(func(s *Something) { s.SetName(name) }))
}

// SomethingElse is a fixture entity referring to a Something.
type SomethingElse struct{ entity.Base }

var (
	somethingElseSomethingID = entity.Attr[uuid.UUID]("something_id")
	somethingElseName        = entity.Attr[string]("name")

	somethingElseSomething = entity.Computed("something", func(e *SomethingElse) *Something {
		s, err := SomethingRepo().FindByID(context.Background(), e.SomethingID())
		if err != nil {
			return nil
		}
		return s
	})
	somethingElseSomethings = entity.Computed("somethings", func(e *SomethingElse) []*Something {
		list, _ := SomethingRepo().FindByIDs(context.Background(), []uuid.UUID{e.SomethingID()})
		return list
	})

	// SomethingElseShape is the shape of SomethingElse.
	SomethingElseShape = entity.NewShape("SomethingElse",
		somethingElseSomethingID, somethingElseName, somethingElseSomething, somethingElseSomethings)

	// SomethingElses builds SomethingElse instances.
	SomethingElses = entity.NewFactory(SomethingElseShape, func(r *entity.Record) *SomethingElse {
		return &SomethingElse{Base: entity.NewBase(r)}
	})
)

func (e *SomethingElse) SomethingID() uuid.UUID     { return somethingElseSomethingID.Get(e) }
func (e *SomethingElse) SetSomethingID(v uuid.UUID) { somethingElseSomethingID.Set(e, v) }
func (e *SomethingElse) Name() string               { return somethingElseName.Get(e) }
func (e *SomethingElse) SetName(v string)           { somethingElseName.Set(e, v) }

// Something loads the referenced Something once per instance.
func (e *SomethingElse) Something() *Something { return somethingElseSomething.Get(e) }

// Somethings loads the referenced Something as a list.
func (e *SomethingElse) Somethings() []*Something { return somethingElseSomethings.Get(e) }

// Validate requires a non-blank name.
func (e *SomethingElse) Validate() error {
	return validation.ValidateEntity(e, func(v *validation.Validator) {
		v.Field("name", func(f *validation.Field) { f.NotBlank() })
		v.Field("something_id", func(f *validation.Field) { f.NotNull() })
	})
}

// PreloadSomething loads Something for every element with one query.
func PreloadSomething(list []*SomethingElse) []*SomethingElse {
	return entity.PreloadLazyValue(list, somethingElseSomething.Name(), lookupSomethings,
		func(e *SomethingElse, items []*Something) *Something {
			for _, s := range items {
				if s.ID() == e.SomethingID() {
					return s
				}
			}
			return nil
		})
}

// PreloadSomethings loads Somethings for every element with one query.
func PreloadSomethings(list []*SomethingElse) []*SomethingElse {
	return entity.PreloadLazyList(list, somethingElseSomethings.Name(), lookupSomethings,
		func(e *SomethingElse, items []*Something) []*Something {
			var out []*Something
			for _, s := range items {
				if s.ID() == e.SomethingID() {
					out = append(out, s)
				}
			}
			return out
		})
}

func lookupSomethings(list []*SomethingElse) []*Something {
	ids := make([]uuid.UUID, len(list))
	for i, e := range list {
		ids[i] = e.SomethingID()
	}
	found, _ := SomethingRepo().FindByIDs(context.Background(), ids)
	return found
}

// SomethingRepo returns the SomethingRepository of the default registry.
func SomethingRepo() SomethingRepository {
	return instances.MustGet[SomethingRepository](instances.Default())
}

// SomethingElseRepo returns the SomethingElse repository of the default
// registry, deferred when none is bound yet.
func SomethingElseRepo() entity.Repository[*SomethingElse] {
	return entity.RepositoryFor[*SomethingElse](instances.Default(), SomethingElseShape)
}

// ProvideFixtures binds in-memory repositories for the fixture entities.
func ProvideFixtures(res *entity.Resolver, opts ...memory.Option) {
	memory.ProvideAs(res, Somethings, func(r *memory.Repository[*Something]) SomethingRepository {
		return somethingMemory{r}
	}, opts...)
	memory.Provide(res, SomethingElses, opts...)
}
