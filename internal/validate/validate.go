// Package validate collects field-level request validation failures into a
// single apperrors validation error.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"

	"github.com/devmadlani/auth-service/internal/apperrors"
)

// Validator accumulates field errors. Each check is skipped once its field
// has already failed, so a field reports at most one message.
type Validator struct {
	fields []apperrors.FieldError
	failed map[string]bool
}

func New() *Validator { return &Validator{failed: map[string]bool{}} }

func (v *Validator) add(path, msg string) {
	if v.failed[path] {
		return
	}
	v.failed[path] = true
	v.fields = append(v.fields, apperrors.Field(path, msg))
}

// Required fails when value is blank.
func (v *Validator) Required(path, value, msg string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(path, msg)
	}
	return v
}

// Email fails when value is not a syntactically valid address. Blank values
// are left to Required.
func (v *Validator) Email(path, value, msg string) *Validator {
	if value != "" && !govalidator.IsEmail(value) {
		v.add(path, msg)
	}
	return v
}

// MinLen fails when value has fewer than n characters.
func (v *Validator) MinLen(path, value string, n int, msg string) *Validator {
	if value != "" && utf8.RuneCountInString(value) < n {
		v.add(path, msg)
	}
	return v
}

// MaxLen fails when value is longer than n bytes.
func (v *Validator) MaxLen(path, value string, n int, msg string) *Validator {
	if len(value) > n {
		v.add(path, msg)
	}
	return v
}

// OneOf fails when value is not one of allowed. Comparison is exact.
func (v *Validator) OneOf(path, value string, allowed []string, msg string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("%s must be one of %s", path, strings.Join(allowed, ", "))
	}
	v.add(path, msg)
	return v
}

// Err returns the accumulated failures as a validation error, or nil.
func (v *Validator) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return apperrors.Invalid(v.fields...)
}
