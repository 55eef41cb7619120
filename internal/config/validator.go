// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, ensuring the binary never
// runs with partial, malformed, or missing configuration.
//
// secret.Value fields are validated against their exposed value through a
// custom type func, so `required` on `Database.Password` means "non-empty
// password".  The validator reports field names only; it never echoes the
// value into an error message.
//
// Notes
// -----
//   - All field errors are combined into one error with multierr.
//   - Oxford commas, two spaces after periods.

package config

import (
	"errors"
	"reflect"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"github.com/Tombleron/z2p/internal/secret"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if s, ok := field.Interface().(secret.Value[string]); ok {
			return s.Expose()
		}
		return nil
	}, secret.Value[string]{})
	return val
}

//
// public API
//

// validateStruct returns every validation failure combined, or nil.
func validateStruct(c *Config) error {
	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var combined error
	for _, fe := range fieldErrs {
		combined = multierr.Append(combined, fe)
	}
	return combined
}
