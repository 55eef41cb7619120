// internal/config/errors.go
//
// Configuration error taxonomy.
//
// Context
// -------
// Every failure inside Load surfaces as one *Error.  Kind says which step
// failed, Source names the layer or key involved, and Err carries the
// cause.  Decode and validation failures are aggregated with multierr so
// operators see every bad key in a single message instead of fixing them
// one restart at a time.
//
// Notes
// -----
//   - Errors never include secret values; validator messages name the
//     field only.
//   - Oxford commas, two spaces after periods.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies configuration failures.
type Kind int

const (
	KindLayer       Kind = iota + 1 // layer file missing, unreadable, or malformed
	KindDecode                      // merged tree does not fit Config, or fails validation
	KindEnvironment                 // APP_ENV holds an unsupported value
	KindSecret                      // a vault: reference could not be resolved
)

func (k Kind) String() string {
	switch k {
	case KindLayer:
		return "layer"
	case KindDecode:
		return "decode"
	case KindEnvironment:
		return "environment"
	case KindSecret:
		return "secret"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by Load.
type Error struct {
	Kind   Kind
	Source string
	Err    error
}

func (e *Error) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("config %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("config %s %s: %v", e.Kind, e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrInvalidEnvironment matches every *EnvironmentError via errors.Is.
var ErrInvalidEnvironment = errors.New("invalid environment")

// EnvironmentError reports an APP_ENV value that names no known
// Environment.
type EnvironmentError struct {
	Value    string
	Accepted []string
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("%q is not a supported environment, use one of: %s",
		e.Value, strings.Join(e.Accepted, ", "))
}

func (e *EnvironmentError) Is(target error) bool { return target == ErrInvalidEnvironment }
