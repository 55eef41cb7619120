// internal/config/model.go
//
// Typed configuration model for z2p.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   - `conf/base.yaml`                       – shared defaults,
//   - `conf/<local|prod>.yaml`               – per-environment deltas,
//   - `APP__`-prefixed environment overrides – highest precedence.
//
// Any string value that begins with `vault:` is resolved through the
// configured SecretResolver *before* unmarshalling, so the model never
// stores Vault references, only resolved values.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   - Koanf reads the `koanf:"…"` tags.  The matching `yaml:"…"` tags only
//     shape `z2p config` output.
//   - Ports are uint16.  Env overrides arrive as strings and are coerced by
//     koanf's weakly typed decode, not before.
//   - Oxford commas, two spaces after periods.  No em-dash.

package config

import (
	"net"
	"strconv"
	"time"

	"github.com/Tombleron/z2p/internal/secret"
)

//
// Application section
//

// ApplicationConfig holds the HTTP listener address.
type ApplicationConfig struct {
	Host string `koanf:"host" yaml:"host" validate:"required"`
	Port uint16 `koanf:"port" yaml:"port" validate:"required"`
}

// Address joins Host and Port for net.Listen.
func (a ApplicationConfig) Address() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

//
// Database section
//

// DatabaseConfig describes how to reach PostgreSQL.
//
// The password is wrapped in secret.Value so that printing, logging, or
// marshalling a DatabaseConfig never reveals it.  Connection descriptors
// are derived on demand by WithoutDatabase and WithDatabase (connect.go).
type DatabaseConfig struct {
	Username     string               `koanf:"username"      yaml:"username"      validate:"required"`
	Password     secret.Value[string] `koanf:"password"      yaml:"password"      validate:"required"`
	Host         string               `koanf:"host"          yaml:"host"          validate:"required"`
	Port         uint16               `koanf:"port"          yaml:"port"          validate:"required"`
	DatabaseName string               `koanf:"database_name" yaml:"database_name" validate:"required"`
	RequireSSL   bool                 `koanf:"require_ssl"   yaml:"require_ssl"`

	// Pool tunables; zero means "use database.DefaultOptions".
	MaxOpenConns   int           `koanf:"max_open_conns"  yaml:"max_open_conns"  validate:"gte=0"`
	AcquireTimeout time.Duration `koanf:"acquire_timeout" yaml:"acquire_timeout" validate:"gte=0"`

	// LogStatements asks the driver to log every statement.  Diagnostic
	// only; it is applied to WithDatabase descriptors.
	LogStatements bool `koanf:"log_statements" yaml:"log_statements"`
}

//
// Log section
//

// LogConfig tunes the zap logger built by internal/logger.  Every field is
// optional.
type LogConfig struct {
	Level string `koanf:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `koanf:"dir" yaml:"dir"`
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load.  It is built once at
// startup and then shared read-only.
type Config struct {
	Application ApplicationConfig `koanf:"application" yaml:"application"`
	Database    DatabaseConfig    `koanf:"database" yaml:"database"`
	Log         LogConfig         `koanf:"log" yaml:"log"`

	Environment Environment `koanf:"-" yaml:"environment"` // resolved from APP_ENV, never from files
}
