package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. Custom registrations must
// happen in init() before the first call to Struct.
var v = validator.New()

// Struct validates the given struct using its validate tags.
// Returns a human-readable error or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// Errors returns the individual field errors of a validation failure, or
// nil when err did not come from the validator.
func Errors(err error) validator.ValidationErrors {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	return ve
}

// Raw validates s and returns the validator's own error value so callers
// can inspect individual fields with Errors.
func Raw(s interface{}) error {
	return v.Struct(s)
}

// Var validates a single value against tag, e.g. Var(email, "required,email").
func Var(field interface{}, tag string) error {
	return v.Var(field, tag)
}
