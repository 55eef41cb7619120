// internal/secret/secret.go
//
// Redacting wrapper for credentials.
//
// Context
// -------
// Database passwords travel from YAML, env overrides, or Vault into the
// typed Config and from there into the pgx connection config.  Along the
// way the Config is logged, printed by `z2p config`, and dumped by tests.
// `Value[T]` keeps the plaintext behind one accessor, `Expose`, so the
// only way to read it is to ask for it by name.
//
// Every other rendering path (fmt verbs, JSON, YAML, text, zap fields)
// writes the fixed placeholder `[REDACTED]` and never fails, so a log line
// that includes a struct holding a secret is always safe to emit.
//
// Notes
// -----
//   - Decoding (text, JSON, YAML) stores the raw value; koanf relies on
//     UnmarshalText when it decodes the merged tree.
//   - Oxford commas, two spaces after periods.
package secret

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Redacted is printed in place of the wrapped value.
const Redacted = "[REDACTED]"

// Value wraps a sensitive value of type T.  The zero value wraps the zero
// T and is safe to use.
type Value[T any] struct {
	v T
}

// New takes ownership of v.
func New[T any](v T) Value[T] {
	return Value[T]{v: v}
}

// Expose returns the wrapped value.  Call it only where the plaintext is
// handed to the consumer that needs it, such as a driver config.
func (s Value[T]) Expose() T {
	return s.v
}

// IsZero reports whether the wrapped value is the zero T.
func (s Value[T]) IsZero() bool {
	return reflect.ValueOf(&s.v).Elem().IsZero()
}

//
// Rendering, always redacted
//

func (s Value[T]) String() string { return Redacted }
func (s Value[T]) GoString() string { return "secret.Value(" + Redacted + ")" }

// Format covers every fmt verb, including %v, %+v, %#v, %s, %q, and %x.
func (s Value[T]) Format(f fmt.State, verb rune) {
	switch verb {
	case 'q':
		fmt.Fprintf(f, "%q", Redacted)
	case 'v':
		if f.Flag('#') {
			_, _ = f.Write([]byte(s.GoString()))
			return
		}
		_, _ = f.Write([]byte(Redacted))
	default:
		_, _ = f.Write([]byte(Redacted))
	}
}

func (s Value[T]) MarshalJSON() ([]byte, error) { return json.Marshal(Redacted) }
func (s Value[T]) MarshalText() ([]byte, error) { return []byte(Redacted), nil }
func (s Value[T]) MarshalYAML() (any, error) { return Redacted, nil }

//
// Decoding, raw values accepted
//

// UnmarshalText stores text as the wrapped value.  T must be string or
// []byte; koanf and mapstructure call this for string inputs.
func (s *Value[T]) UnmarshalText(text []byte) error {
	switch p := any(&s.v).(type) {
	case *string:
		*p = string(text)
	case *[]byte:
		*p = append([]byte(nil), text...)
	default:
		return fmt.Errorf("secret: cannot decode text into %T", s.v)
	}
	return nil
}

// UnmarshalJSON decodes data into the wrapped T.
func (s *Value[T]) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &s.v)
}

// UnmarshalYAML decodes the node into the wrapped T.
func (s *Value[T]) UnmarshalYAML(unmarshal func(any) error) error {
	return unmarshal(&s.v)
}
