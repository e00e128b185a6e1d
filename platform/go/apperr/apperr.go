// Package apperr holds the error taxonomy shared by every domain service.
// Handlers classify errors with errors.Is / errors.As against these values and
// never expose the wrapped cause to callers.
package apperr

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Taxonomy sentinels.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrBadCredential   = errors.New("bad credential")
	ErrAccountInactive = errors.New("account inactive")
	ErrTenantInactive  = errors.New("tenant inactive")
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// Add appends a message for field. Safe on a nil receiver.
func (f FieldErrors) Add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	if len(v.Fields) == 0 {
		return "validation error"
	}
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "validation error: " + strings.Join(keys, ", ")
}

// Validation builds a ValidationError from a field -> message map.
func Validation(fields map[string]string) error {
	fe := FieldErrors{}
	for key, message := range fields {
		fe.Add(key, message)
	}
	return &ValidationError{Fields: fe}
}

// FromValidator converts validator/v10 errors into a ValidationError keyed by
// the JSON field name. Other errors are returned untouched.
func FromValidator(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fe := FieldErrors{}
	for _, fieldErr := range verrs {
		fe.Add(fieldErr.Field(), describe(fieldErr))
	}
	return &ValidationError{Fields: fe}
}

func describe(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email"
	case "min":
		return name + " must be at least " + fe.Param() + " characters"
	case "max":
		return name + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return name + " must be one of: " + fe.Param()
	case "gte":
		return name + " must be >= " + fe.Param()
	default:
		return name + " is invalid"
	}
}

// messageError carries a stable user-facing message next to a taxonomy error.
type messageError struct {
	err     error
	message string
}

func (m *messageError) Error() string { return m.message + ": " + m.err.Error() }
func (m *messageError) Unwrap() error { return m.err }

// WithMessage attaches a stable, caller-safe message to err.
func WithMessage(err error, message string) error {
	if err == nil {
		return nil
	}
	return &messageError{err: err, message: message}
}

// Message returns the outermost caller-safe message attached with WithMessage.
func Message(err error) (string, bool) {
	var m *messageError
	if errors.As(err, &m) {
		return m.message, true
	}
	return "", false
}
