// Package patch reads tri-state request fields (absent, null, value) for
// partial updates.
package patch

import (
	"github.com/oapi-codegen/nullable"

	"github.com/zenGate-Global/worklane/platform/go/apperr"
)

// Value reads a field that may be absent but must not be null. ok is false
// when the field is absent or null; null also records a field error.
func Value[T any](v nullable.Nullable[T], name string, fields apperr.FieldErrors) (T, bool) {
	var zero T
	if !v.IsSpecified() {
		return zero, false
	}
	if v.IsNull() {
		fields.Add(name, name+" cannot be null")
		return zero, false
	}
	val, err := v.Get()
	if err != nil {
		return zero, false
	}
	return val, true
}

// Optional reads a nullable field. ok is false when the field is absent; a
// nil pointer with ok true means the field was set to null.
func Optional[T any](v nullable.Nullable[T]) (*T, bool) {
	if !v.IsSpecified() {
		return nil, false
	}
	if v.IsNull() {
		return nil, true
	}
	val, err := v.Get()
	if err != nil {
		return nil, false
	}
	return &val, true
}
