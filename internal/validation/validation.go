package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nerrad567/entitykit/internal/entity"
)

// EmailDomainsKey is the configuration list of accepted e-mail domains.
const EmailDomainsKey = "email.valid_user_domains"

// ListSource reads list-valued configuration. *config.Config satisfies it.
type ListSource interface {
	List(key string) []string
}

// Engine runs validations. It holds settings only; the state of each run
// lives in its own Validator.
type Engine struct {
	emailDomains []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithEmailDomains sets the domains ValidEmailDomain accepts. An empty list
// accepts every address.
func WithEmailDomains(domains ...string) Option {
	return func(e *Engine) {
		e.emailDomains = make([]string, 0, len(domains))
		for _, d := range domains {
			if d = strings.TrimSpace(d); d != "" {
				e.emailDomains = append(e.emailDomains, strings.ToLower(d))
			}
		}
	}
}

// FromConfig reads the accepted e-mail domains from src.
func FromConfig(src ListSource) Option {
	return WithEmailDomains(src.List(EmailDomainsKey)...)
}

// New returns an engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate runs fn in a new validation scope and returns a *ValidationError
// with every failed check, or nil when all passed.
func (e *Engine) Validate(fn func(v *Validator)) error {
	return e.run(nil, fn)
}

// ValidateEntity is Validate with ent as the source of field values, so
// Validator.Field can read them by name.
func (e *Engine) ValidateEntity(ent entity.Entity, fn func(v *Validator)) error {
	return e.run(ent, fn)
}

// ValidateField validates a single value.
func (e *Engine) ValidateField(name string, value any, fn func(f *Field)) error {
	return e.Validate(func(v *Validator) {
		v.FieldValue(name, value, fn)
	})
}

func (e *Engine) run(ent entity.Entity, fn func(v *Validator)) error {
	v := &Validator{engine: e, entity: ent}
	defer func() { v.closed = true }()

	fn(v)

	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

// Validator is one validation scope. It is only valid inside the function
// passed to Validate.
type Validator struct {
	engine *Engine
	entity entity.Entity
	errors []FieldError
	open   *Field
	closed bool
}

// Field opens a field scope for name, reading its value from the entity
// being validated.
func (v *Validator) Field(name string, fn func(f *Field)) {
	if v.entity == nil {
		panic(misuse("Field", "no entity to read "+name+" from; use FieldValue or ValidateEntity"))
	}
	rec := v.entity.Record()
	if _, ok := rec.Shape().Field(name); !ok {
		panic(misuse("Field", fmt.Sprintf("%s has no field %q", rec.Shape().Name(), name)))
	}
	v.FieldValue(name, rec.Get(name), fn)
}

// FieldValue opens a field scope for name with an explicit value.
func (v *Validator) FieldValue(name string, value any, fn func(f *Field)) {
	if v.closed {
		panic(misuse("Field", "validation scope already closed"))
	}
	if v.open != nil {
		panic(misuse("Field", fmt.Sprintf("field %s opened inside field %s", name, v.open.name)))
	}

	f := &Field{v: v, name: name, value: value}
	v.open = f
	defer func() {
		f.closed = true
		v.open = nil
	}()

	fn(f)
}

// Errors returns the failures recorded so far.
func (v *Validator) Errors() []FieldError {
	out := make([]FieldError, len(v.errors))
	copy(out, v.errors)
	return out
}

// Field is one field scope. Checks append to the enclosing Validator.
type Field struct {
	v      *Validator
	name   string
	value  any
	closed bool
}

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Value returns the value under validation.
func (f *Field) Value() any { return f.value }

// Error records a failure with message.
func (f *Field) Error(message string) {
	f.active("Error")
	f.v.errors = append(f.v.errors, FieldError{Field: f.name, Message: message})
}

// Check records message when ok is false.
func (f *Field) Check(message string, ok func() bool) {
	f.active("Check")
	if !ok() {
		f.Error(message)
	}
}

// NotNull fails when the value is nil.
func (f *Field) NotNull(message ...string) {
	f.active("NotNull")
	if f.isNil() {
		f.Error(pick(message, f.name+" cannot be null"))
	}
}

// NotBlank fails when the value is nil or a string of only white space.
// It panics on non-string values.
func (f *Field) NotBlank(message ...string) {
	f.active("NotBlank")
	msg := pick(message, f.name+" cannot be blank")
	if f.isNil() {
		f.Error(msg)
		return
	}
	if strings.TrimSpace(f.str("NotBlank")) == "" {
		f.Error(msg)
	}
}

// LengthAtLeast fails when the value is a string shorter than n characters.
// A nil value fails as NotNull does. It panics on non-string values.
func (f *Field) LengthAtLeast(n int, message ...string) {
	f.active("LengthAtLeast")
	if f.isNil() {
		f.NotNull()
		return
	}
	if utf8.RuneCountInString(f.str("LengthAtLeast")) < n {
		f.Error(pick(message, fmt.Sprintf("%s must be at least %d characters in length", f.name, n)))
	}
}

// ValidEmailDomain fails when the engine has accepted domains and the
// address ends in none of them. A nil value fails as NotNull does.
func (f *Field) ValidEmailDomain() {
	f.active("ValidEmailDomain")
	if f.isNil() {
		f.NotNull()
		return
	}
	domains := f.v.engine.emailDomains
	if len(domains) == 0 {
		return
	}
	addr := strings.ToLower(f.str("ValidEmailDomain"))
	for _, d := range domains {
		if strings.HasSuffix(addr, "@"+d) {
			return
		}
	}
	f.Error("Invalid email address domain")
}

// ValidID fails when the value is an id for which ok returns false.
// A nil value passes.
func (f *Field) ValidID(ok func(id uuid.UUID) bool) {
	f.active("ValidID")
	var id *uuid.UUID
	switch v := f.value.(type) {
	case nil:
	case uuid.UUID:
		id = &v
	case *uuid.UUID:
		id = v
	default:
		panic(misuse("ValidID", fmt.Sprintf("%s is %T, not a uuid.UUID", f.name, f.value)))
	}
	f.Check("Invalid ID", func() bool {
		return id == nil || ok(*id)
	})
}

func (f *Field) active(op string) {
	if f.closed {
		panic(misuse(op, "field scope "+f.name+" already closed"))
	}
	if f.v.closed {
		panic(misuse(op, "validation scope already closed"))
	}
}

// isNil treats a nil pointer of any type as null, so Optional getters can be
// passed straight through.
func (f *Field) isNil() bool {
	if f.value == nil {
		return true
	}
	rv := reflect.ValueOf(f.value)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func (f *Field) str(op string) string {
	switch v := f.value.(type) {
	case string:
		return v
	case *string:
		return *v
	default:
		panic(misuse(op, fmt.Sprintf("%s is %T, not a string", f.name, f.value)))
	}
}

func pick(message []string, fallback string) string {
	if len(message) > 0 && message[0] != "" {
		return message[0]
	}
	return fallback
}

var (
	defaultMu     sync.RWMutex
	defaultEngine = New()
)

// Default returns the process-wide engine.
func Default() *Engine {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultEngine
}

// SetDefault replaces the process-wide engine and returns a function that
// restores the previous one.
func SetDefault(e *Engine) (restore func()) {
	defaultMu.Lock()
	prev := defaultEngine
	defaultEngine = e
	defaultMu.Unlock()

	return func() {
		defaultMu.Lock()
		defaultEngine = prev
		defaultMu.Unlock()
	}
}

// Validate runs fn with the default engine.
func Validate(fn func(v *Validator)) error {
	return Default().Validate(fn)
}

// ValidateEntity runs fn against ent with the default engine.
func ValidateEntity(ent entity.Entity, fn func(v *Validator)) error {
	return Default().ValidateEntity(ent, fn)
}

// ValidateField validates one value with the default engine.
func ValidateField(name string, value any, fn func(f *Field)) error {
	return Default().ValidateField(name, value, fn)
}
