package entity_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/nerrad567/entitykit/internal/entity"
)

func mustWidget(t *testing.T, fields map[string]any) *widget {
	t.Helper()
	w, err := widgets.FromMap(fields)
	require.NoError(t, err)
	return w
}

func TestNewShape_BaseFieldsFirst(t *testing.T) {
	fields := widgetShape.Fields()
	require.GreaterOrEqual(t, len(fields), 3)
	assert.Equal(t, entity.FieldID, fields[0].Name)
	assert.Equal(t, entity.FieldCreatedAt, fields[1].Name)
	assert.Equal(t, entity.FieldUpdatedAt, fields[2].Name)
	assert.True(t, fields[0].ReadOnly)
	assert.True(t, fields[1].Nullable)

	_, stored := widgetShape.Field("token")
	assert.False(t, stored)
	assert.True(t, widgetShape.IsComputed("token"))
}

func TestNewShape_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		entity.NewShape("Twice", entity.Attr[string]("name"), entity.Attr[int64]("name"))
	})
	assert.Panics(t, func() {
		entity.NewShape("Shadow", entity.Attr[string]("id"))
	})
}

func TestMaterialize(t *testing.T) {
	t.Run("generates id", func(t *testing.T) {
		w := widgets.New()
		assert.NotEqual(t, uuid.Nil, w.ID())
		assert.True(t, w.CreatedAt().IsZero())
		assert.True(t, w.UpdatedAt().IsZero())
	})

	t.Run("ids are time ordered", func(t *testing.T) {
		a, b := widgets.New().ID(), widgets.New().ID()
		assert.Equal(t, uuid.Version(7), a.Version())
		assert.Negative(t, bytes.Compare(a[:], b[:]))
	})

	t.Run("keeps supplied id", func(t *testing.T) {
		id := uuid.New()
		w := mustWidget(t, map[string]any{"id": id})
		assert.Equal(t, id, w.ID())
	})

	t.Run("missing fields take zero or nil", func(t *testing.T) {
		w := widgets.New()
		assert.Equal(t, "", w.Name())
		assert.Equal(t, int64(0), w.Count())
		assert.Nil(t, widgetNote.Get(w))
		assert.Nil(t, w.Record().Get("note"))
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := widgets.FromMap(map[string]any{"colour": "red"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, entity.ErrUnknownField))
		assert.True(t, errors.Is(err, entity.ErrShapeViolation))
	})

	t.Run("null into non-null", func(t *testing.T) {
		_, err := widgets.FromMap(map[string]any{"name": nil})
		var sv *entity.ShapeViolationError
		require.ErrorAs(t, err, &sv)
		assert.Equal(t, "name", sv.Field)
	})

	t.Run("widens narrow integers", func(t *testing.T) {
		w := mustWidget(t, map[string]any{"count": 7})
		assert.Equal(t, int64(7), w.Count())
	})

	t.Run("custom id generator", func(t *testing.T) {
		id := uuid.MustParse("018f2e6c-0000-7000-8000-000000000001")
		f := entity.NewFactory(widgetShape, func(r *entity.Record) *widget {
			return &widget{Base: entity.NewBase(r)}
		}, entity.WithMaterializer(entity.DefaultMaterializer{NewID: func() uuid.UUID { return id }}))
		assert.Equal(t, id, f.New().ID())
	})
}

func TestNew_AppliesInitInOrder(t *testing.T) {
	w := widgets.New(
		func(w *widget) { w.SetName("first") },
		func(w *widget) { w.SetName(w.Name() + "+second") },
	)
	assert.Equal(t, "first+second", w.Name())
}

func TestSet_Violations(t *testing.T) {
	w := widgets.New()

	assert.PanicsWithError(t, "entity: Widget.id: field is read-only", func() {
		w.Record().Set("id", uuid.New())
	})
	assert.Panics(t, func() { w.Record().Set("name", 12) })
	assert.Panics(t, func() { w.Record().Set("name", nil) })
	assert.Panics(t, func() { w.Record().Set("nope", "x") })
	assert.Panics(t, func() { w.Record().Get("nope") })

	assert.NotPanics(t, func() { w.Record().Set("count", int32(3)) })
	assert.Equal(t, int64(3), w.Count())

	// int64 does not narrow.
	assert.Panics(t, func() { w.Record().Set("name", int64(1)) })
}

func TestSetProperty_Bypass(t *testing.T) {
	w := widgets.New()
	id := uuid.New()

	require.NoError(t, w.Record().SetProperty("id", id))
	assert.Equal(t, id, w.ID())

	err := w.Record().SetProperty("name", 3.5)
	assert.ErrorIs(t, err, entity.ErrShapeViolation)

	err = w.Record().SetProperty("name", nil)
	assert.ErrorIs(t, err, entity.ErrShapeViolation)

	require.NoError(t, w.Record().SetProperty("note", nil))
}

func TestOptionalAttribute(t *testing.T) {
	w := widgets.New()
	note := "hello"

	widgetNote.Set(w, &note)
	note = "changed"

	got, ok := widgetNote.Value(w)
	require.True(t, ok)
	assert.Equal(t, "hello", got)
	assert.Equal(t, "hello", *widgetNote.Get(w))

	widgetNote.Set(w, nil)
	assert.Nil(t, widgetNote.Get(w))
}

func TestEquality(t *testing.T) {
	id := uuid.New()
	a := mustWidget(t, map[string]any{"id": id, "name": "a", "count": 1})
	b := mustWidget(t, map[string]any{"id": id, "name": "a", "count": 1})
	c := mustWidget(t, map[string]any{"id": id, "name": "a", "count": 2})

	assert.True(t, entity.Equal(a, b))
	assert.Equal(t, entity.Hash(a), entity.Hash(b))
	assert.False(t, entity.Equal(a, c))

	g, err := gadgets.FromMap(map[string]any{"id": id, "name": "a"})
	require.NoError(t, err)
	h, err := gadgets.FromMap(map[string]any{"id": id, "name": "a"})
	require.NoError(t, err)
	assert.True(t, entity.Equal(g, h))
	assert.False(t, entity.Equal(a, g))
}

func TestEquality_TimeComparedByInstant(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := mustWidget(t, map[string]any{"id": id, "at": at})
	b := mustWidget(t, map[string]any{"id": id, "at": at.In(time.FixedZone("X", 3600))})
	assert.True(t, entity.Equal(a, b))
	assert.Equal(t, entity.Hash(a), entity.Hash(b))
}

func TestEquality_ExcludesLazyValues(t *testing.T) {
	a := widgets.New()
	b := widgets.Copy(a)

	_ = a.Token()
	assert.True(t, entity.Equal(a, b))
}

func TestCopy_Independent(t *testing.T) {
	src := widgets.New(func(w *widget) {
		w.SetName("src")
		w.SetTags([]string{"x", "y"})
	})
	_ = src.Token()

	cp := widgets.Copy(src)
	require.True(t, entity.Equal(src, cp))
	assert.False(t, widgetToken.Loaded(cp), "copy starts with an empty lazy cache")

	cp.SetName("copy")
	cp.Tags()[0] = "mutated"
	assert.Equal(t, "src", src.Name())
	assert.Equal(t, []string{"x", "y"}, src.Tags())

	src.SetName("changed")
	assert.Equal(t, "copy", cp.Name())
	assert.False(t, entity.Equal(src, cp))
}

func TestFields_ReturnsCopy(t *testing.T) {
	w := widgets.New(func(w *widget) { w.SetTags([]string{"a"}) })
	fields := w.Record().Fields()
	fields["name"] = "outside"
	fields["tags"].([]string)[0] = "outside"

	assert.Equal(t, "", w.Name())
	assert.Equal(t, []string{"a"}, w.Tags())
}

func TestRecord_Document(t *testing.T) {
	w := widgets.New(func(w *widget) {
		w.SetName("doc")
		widgetLevel.Set(w, levelHigh)
		w.SetTags([]string{"a"})
	})

	doc := w.Record().Document()
	assert.Equal(t, "High", doc["level"])
	assert.Equal(t, "doc", doc["name"])
	assert.Equal(t, w.ID(), doc["id"])
	assert.Contains(t, doc, "note")
	assert.Nil(t, doc["note"])
	assert.NotContains(t, doc, "token", "computed values are not stored")

	doc["tags"].([]string)[0] = "outside"
	assert.Equal(t, []string{"a"}, w.Tags())
	assert.Equal(t, levelHigh, widgetLevel.Get(w))
}

func TestWrap_RejectsForeignShape(t *testing.T) {
	g := gadgets.New()
	assert.Panics(t, func() { widgets.Wrap(g.Record()) })
}

func TestRecord_String(t *testing.T) {
	id := uuid.MustParse("00000000-0000-7000-8000-000000000000")
	g, err := gadgets.FromMap(map[string]any{"id": id, "name": "n"})
	require.NoError(t, err)
	assert.Equal(t, `Gadget{id=00000000-0000-7000-8000-000000000000, created_at=null, updated_at=null, name="n"}`, g.Record().String())
}

func TestIDs(t *testing.T) {
	a, b := widgets.New(), widgets.New()
	assert.Equal(t, []uuid.UUID{a.ID(), b.ID()}, entity.IDs([]*widget{a, b}))
}

func TestEquality_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := uuid.New()
		name := rapid.String().Draw(t, "name")
		count := rapid.Int64().Draw(t, "count")
		tags := rapid.SliceOf(rapid.String()).Draw(t, "tags")

		a, err := widgets.FromMap(map[string]any{"id": id, "name": name, "count": count, "tags": tags})
		if err != nil {
			t.Fatalf("FromMap: %v", err)
		}
		b := widgets.Copy(a)

		if !entity.Equal(a, b) || entity.Hash(a) != entity.Hash(b) {
			t.Fatalf("copy not equal to source: %s vs %s", a.Record(), b.Record())
		}

		other := rapid.Int64().Filter(func(v int64) bool { return v != count }).Draw(t, "other")
		b.Record().Set("count", other)
		if entity.Equal(a, b) {
			t.Fatalf("records with counts %d and %d compare equal", count, other)
		}
		if a.Count() != count {
			t.Fatalf("source changed through copy: %d", a.Count())
		}
	})
}
