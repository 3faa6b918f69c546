// Package validation checks form input before it reaches the services.
package validation

import (
	"errors"
	"fmt"

	"fambam/internal/models"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength is the shortest password sign-up accepts.
const MinPasswordLength = 6

// ValidationError represents an error encountered during validation of a struct field.
type ValidationError struct {
	Field string
	Tag   string
}

// Validator wraps go-playground/validator.
type Validator struct {
	cli *validator.Validate
}

// New initializes and returns a new instance of the Validator
func New() *Validator {
	return &Validator{
		cli: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateStruct returns the failing fields of s in declaration order.
func (v *Validator) ValidateStruct(s interface{}) []ValidationError {
	err := v.cli.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: "", Tag: err.Error()}}
	}
	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{Field: fe.StructField(), Tag: fe.Tag()})
	}
	return out
}

// Messages maps "Field.tag" or "*.tag" to the text shown to the user.
type Messages map[string]string

func (m Messages) lookup(e ValidationError) string {
	if msg, ok := m[e.Field+"."+e.Tag]; ok {
		return msg
	}
	if msg, ok := m["*."+e.Tag]; ok {
		return msg
	}
	return fmt.Sprintf("%s is invalid", e.Field)
}

// Check validates s and turns the first failure into a models validation
// error. Every required-field failure is reported before any format failure
// so a half-empty form gets the "required" message.
func (v *Validator) Check(s interface{}, messages Messages) error {
	errs := v.ValidateStruct(s)
	if len(errs) == 0 {
		return nil
	}
	for _, e := range errs {
		if e.Tag == "required" {
			return models.NewValidationError(messages.lookup(e))
		}
	}
	return models.NewValidationError(messages.lookup(errs[0]))
}
