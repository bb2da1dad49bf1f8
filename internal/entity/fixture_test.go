package entity_test

import (
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/entitykit/internal/entity"
)

type level int

const (
	levelLow level = iota + 1
	levelHigh
)

func (l level) String() string {
	switch l {
	case levelLow:
		return "Low"
	case levelHigh:
		return "High"
	default:
		return "Unknown"
	}
}

type widget struct{ entity.Base }

var (
	widgetName  = entity.Attr[string]("name")
	widgetNote  = entity.Optional[string]("note")
	widgetCount = entity.Attr[int64]("count")
	widgetLevel = entity.EnumAttr("level", levelLow, levelHigh)
	widgetDue   = entity.Attr[entity.Date]("due")
	widgetAt    = entity.Optional[time.Time]("at")
	widgetOwner = entity.Optional[uuid.UUID]("owner")
	widgetTags  = entity.Attr[[]string]("tags")
	widgetToken = entity.Computed("token", func(*widget) string { return uuid.NewString() })

	widgetShape = entity.NewShape("Widget",
		widgetName, widgetNote, widgetCount, widgetLevel, widgetDue, widgetAt, widgetOwner, widgetTags, widgetToken)

	widgets = entity.NewFactory(widgetShape, func(r *entity.Record) *widget {
		return &widget{Base: entity.NewBase(r)}
	})
)

func (w *widget) Name() string       { return widgetName.Get(w) }
func (w *widget) SetName(v string)   { widgetName.Set(w, v) }
func (w *widget) Count() int64       { return widgetCount.Get(w) }
func (w *widget) Tags() []string     { return widgetTags.Get(w) }
func (w *widget) SetTags(v []string) { widgetTags.Set(w, v) }
func (w *widget) Token() string      { return widgetToken.Get(w) }

// gadget has the same fields as widget but a different shape.
type gadget struct{ entity.Base }

var (
	gadgetName  = entity.Attr[string]("name")
	gadgetShape = entity.NewShape("Gadget", gadgetName)
	gadgets     = entity.NewFactory(gadgetShape, func(r *entity.Record) *gadget {
		return &gadget{Base: entity.NewBase(r)}
	})
)
