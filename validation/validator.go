package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Mulet-J/desktopeye/errors"
)

// FieldError is one failed rule, reported under the "fields" detail.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator accumulates rule failures that span several fields, such as a
// script path that is only required for the script backend.
type Validator struct {
	failures []FieldError
}

func New() *Validator {
	return &Validator{}
}

// Check records message against field unless ok holds.
func (v *Validator) Check(ok bool, field, message string) *Validator {
	if !ok {
		v.failures = append(v.failures, FieldError{Field: field, Message: message})
	}
	return v
}

// Required fails on empty or whitespace-only values.
func (v *Validator) Required(field, value string) *Validator {
	return v.Check(strings.TrimSpace(value) != "", field, "is required")
}

// MaxRunes counts characters, not bytes.
func (v *Validator) MaxRunes(field, value string, limit int) *Validator {
	return v.Check(utf8.RuneCountInString(value) <= limit, field,
		fmt.Sprintf("must be %d characters or less", limit))
}

func (v *Validator) HasErrors() bool { return len(v.failures) > 0 }

func (v *Validator) Errors() []FieldError { return v.failures }

// Validate returns nil, or an INVALID_INPUT error naming every failure.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	parts := make([]string, 0, len(v.failures))
	for _, f := range v.failures {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return errors.Validation(strings.Join(parts, "; ")).WithDetail("fields", v.failures)
}
