package validation

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/entitykit/internal/entity"
)

var (
	memberName  = entity.Attr[string]("name")
	memberEmail = entity.Optional[string]("email")
	memberShape = entity.NewShape("Member", memberName, memberEmail)
	members     = entity.NewFactory(memberShape, func(r *entity.Record) *member {
		return &member{Base: entity.NewBase(r)}
	})
)

type member struct{ entity.Base }

func TestValidate_BatchesErrors(t *testing.T) {
	err := New().Validate(func(v *Validator) {
		v.FieldValue("name", "", func(f *Field) { f.NotBlank() })
		v.FieldValue("password", "abc", func(f *Field) { f.LengthAtLeast(8) })
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, []FieldError{
		{Field: "name", Message: "name cannot be blank"},
		{Field: "password", Message: "password must be at least 8 characters in length"},
	}, verr.Errors)
	assert.Equal(t, []string{"name", "password"}, verr.Fields())
}

func TestValidate_NoErrorsReturnsNil(t *testing.T) {
	err := New().Validate(func(v *Validator) {
		v.FieldValue("name", "ok", func(f *Field) {
			f.NotNull()
			f.NotBlank()
			f.LengthAtLeast(2)
		})
	})
	assert.NoError(t, err)
}

func TestChecks(t *testing.T) {
	good := uuid.New()

	tests := []struct {
		name  string
		value any
		check func(f *Field)
		want  []string
	}{
		{"not null passes", "x", func(f *Field) { f.NotNull() }, nil},
		{"not null fails", nil, func(f *Field) { f.NotNull() }, []string{"field cannot be null"}},
		{"not null on nil int pointer", (*int64)(nil), func(f *Field) { f.NotNull() }, []string{"field cannot be null"}},
		{"not null on nil id pointer", (*uuid.UUID)(nil), func(f *Field) { f.NotNull() }, []string{"field cannot be null"}},
		{"not null on set pointer", new(int64), func(f *Field) { f.NotNull() }, nil},
		{"not null custom message", nil, func(f *Field) { f.NotNull("required") }, []string{"required"}},
		{"not blank on spaces", "  \t", func(f *Field) { f.NotBlank() }, []string{"field cannot be blank"}},
		{"not blank on nil", nil, func(f *Field) { f.NotBlank() }, []string{"field cannot be blank"}},
		{"not blank on nil pointer", (*string)(nil), func(f *Field) { f.NotBlank() }, []string{"field cannot be blank"}},
		{"length counts characters", "héllo", func(f *Field) { f.LengthAtLeast(5) }, nil},
		{"length on nil", nil, func(f *Field) { f.LengthAtLeast(3) }, []string{"field cannot be null"}},
		{"check fails", 3, func(f *Field) { f.Check("too small", func() bool { return false }) }, []string{"too small"}},
		{"error always records", 3, func(f *Field) { f.Error("nope") }, []string{"nope"}},
		{"valid id on nil", nil, func(f *Field) { f.ValidID(func(uuid.UUID) bool { return false }) }, nil},
		{"valid id passes", good, func(f *Field) { f.ValidID(func(id uuid.UUID) bool { return id == good }) }, nil},
		{"valid id fails", uuid.New(), func(f *Field) { f.ValidID(func(id uuid.UUID) bool { return id == good }) }, []string{"Invalid ID"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().ValidateField("field", tt.value, tt.check)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			var got []string
			for _, fe := range verr.Errors {
				got = append(got, fe.Message)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidEmailDomain(t *testing.T) {
	engine := New(WithEmailDomains("Example.com", " corp.io "))

	tests := []struct {
		value any
		ok    bool
	}{
		{"Someone@EXAMPLE.com", true},
		{"a@corp.io", true},
		{"a@notexample.com", false},
		{"a@example.com.evil", false},
		{nil, false},
	}
	for _, tt := range tests {
		err := engine.ValidateField("email", tt.value, func(f *Field) { f.ValidEmailDomain() })
		if tt.ok {
			assert.NoError(t, err, "%v", tt.value)
		} else {
			assert.Error(t, err, "%v", tt.value)
		}
	}

	err := New().ValidateField("email", "anyone@anywhere", func(f *Field) { f.ValidEmailDomain() })
	assert.NoError(t, err, "no configured domains accepts everything")
}

type listSource map[string][]string

func (s listSource) List(key string) []string { return s[key] }

func TestFromConfig(t *testing.T) {
	engine := New(FromConfig(listSource{EmailDomainsKey: {"example.com"}}))
	assert.Error(t, engine.ValidateField("email", "a@b.c", func(f *Field) { f.ValidEmailDomain() }))
	assert.NoError(t, engine.ValidateField("email", "a@example.com", func(f *Field) { f.ValidEmailDomain() }))
}

func TestValidateEntity(t *testing.T) {
	m := members.New(func(m *member) { memberName.Set(m, " ") })

	err := ValidateEntity(m, func(v *Validator) {
		v.Field("name", func(f *Field) { f.NotBlank() })
		v.Field("email", func(f *Field) { f.NotNull() })
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"name", "email"}, verr.Fields())
}

func TestScopeMisuse(t *testing.T) {
	engine := New()

	t.Run("check after field closed", func(t *testing.T) {
		var leaked *Field
		_ = engine.Validate(func(v *Validator) {
			v.FieldValue("name", "x", func(f *Field) { leaked = f })
			assertScopePanic(t, func() { leaked.NotNull() })
		})
	})

	t.Run("field after validation closed", func(t *testing.T) {
		var leaked *Validator
		_ = engine.Validate(func(v *Validator) { leaked = v })
		assertScopePanic(t, func() {
			leaked.FieldValue("name", "x", func(*Field) {})
		})
	})

	t.Run("nested field", func(t *testing.T) {
		_ = engine.Validate(func(v *Validator) {
			v.FieldValue("outer", 1, func(*Field) {
				assertScopePanic(t, func() {
					v.FieldValue("inner", 2, func(*Field) {})
				})
			})
		})
	})

	t.Run("field without entity", func(t *testing.T) {
		_ = engine.Validate(func(v *Validator) {
			assertScopePanic(t, func() { v.Field("name", func(*Field) {}) })
		})
	})

	t.Run("unknown entity field", func(t *testing.T) {
		_ = engine.ValidateEntity(members.New(), func(v *Validator) {
			assertScopePanic(t, func() { v.Field("nope", func(*Field) {}) })
		})
	})

	t.Run("string check on non-string", func(t *testing.T) {
		assertScopePanic(t, func() {
			_ = engine.ValidateField("n", 12, func(f *Field) { f.NotBlank() })
		})
	})
}

func assertScopePanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		var se *ScopeError
		assert.True(t, errors.As(err, &se), "panic value %v is not a *ScopeError", err)
	}()
	fn()
}

func TestConcurrentValidationsDoNotInterleave(t *testing.T) {
	engine := New()
	var wg sync.WaitGroup
	results := make([]error, 50)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.Validate(func(v *Validator) {
				v.FieldValue("a", "", func(f *Field) { f.NotBlank() })
				if i%2 == 0 {
					v.FieldValue("b", nil, func(f *Field) { f.NotNull() })
				}
			})
		}(i)
	}
	wg.Wait()

	for i, err := range results {
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		want := 1
		if i%2 == 0 {
			want = 2
		}
		assert.Len(t, verr.Errors, want)
	}
}

func TestSetDefault(t *testing.T) {
	restore := SetDefault(New(WithEmailDomains("only.test")))
	t.Cleanup(restore)

	assert.Error(t, ValidateField("email", "a@b.c", func(f *Field) { f.ValidEmailDomain() }))
}
