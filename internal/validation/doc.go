// Package validation is a field-scoped validation DSL.
//
//	err := validation.ValidateEntity(user, func(v *validation.Validator) {
//		v.Field("name", func(f *validation.Field) { f.NotBlank() })
//		v.Field("email", func(f *validation.Field) { f.ValidEmailDomain() })
//	})
//
// Failed checks accumulate inside the scope and come back as a single
// *ValidationError. Using a Validator or Field after its function returned
// panics with *ScopeError.
package validation
