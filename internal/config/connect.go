// internal/config/connect.go
//
// Connection descriptors derived from DatabaseConfig.
//
// Context
// -------
// Two descriptors are needed:
//
//   - WithoutDatabase – server only.  Used for administrative work, such as
//     CREATE DATABASE, before the target database exists.
//   - WithDatabase    – server plus the configured database_name.
//
// Both are pure derivations that keep the password wrapped.  The single
// place that calls Password.Expose is ConnectOptions.ConnConfig, which
// hands the plaintext straight to pgx.
//
// Notes
// -----
//   - ConnectOptions.String renders a keyword/value DSN with the password
//     replaced, so descriptors are safe to log.  The pgx config returned by
//     ConnConfig is not; never log it wholesale.
//   - Oxford commas, two spaces after periods.
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Tombleron/z2p/internal/secret"
)

// ConnectOptions describes one PostgreSQL connection target.
type ConnectOptions struct {
	Host     string
	Port     uint16
	User     string
	Password secret.Value[string]

	// Database is empty for server-only descriptors.
	Database string

	SSLMode        string        // "require" or "prefer"
	ConnectTimeout time.Duration // zero means driver default

	// LogStatements is a driver-facing hint; database.Open attaches a
	// statement tracer when it is set.
	LogStatements bool
}

// WithoutDatabase returns a descriptor that selects no database.
func (d DatabaseConfig) WithoutDatabase() ConnectOptions {
	ssl := "prefer"
	if d.RequireSSL {
		ssl = "require"
	}
	return ConnectOptions{
		Host:           d.Host,
		Port:           d.Port,
		User:           d.Username,
		Password:       d.Password,
		SSLMode:        ssl,
		ConnectTimeout: d.AcquireTimeout,
	}
}

// WithDatabase returns WithoutDatabase plus DatabaseName.
func (d DatabaseConfig) WithDatabase() ConnectOptions {
	o := d.WithoutDatabase()
	o.Database = d.DatabaseName
	o.LogStatements = d.LogStatements
	return o
}

// ConnConfig builds the pgx config, exposing the password.
func (o ConnectOptions) ConnConfig() (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig(o.keywordValue(false))
	if err != nil {
		return nil, fmt.Errorf("parse connect options %s: %w", o, err)
	}

	// ParseConfig falls back to PGDATABASE; a server-only descriptor must
	// stay server-only.
	cfg.Database = o.Database
	cfg.Password = o.Password.Expose()
	return cfg, nil
}

// String renders the descriptor as a DSN with the password redacted.
func (o ConnectOptions) String() string {
	return o.keywordValue(true)
}

func (o ConnectOptions) keywordValue(withPlaceholder bool) string {
	parts := []string{
		"host=" + quoteValue(o.Host),
		"port=" + strconv.Itoa(int(o.Port)),
		"user=" + quoteValue(o.User),
	}
	if withPlaceholder && !o.Password.IsZero() {
		parts = append(parts, "password="+quoteValue(secret.Redacted))
	}
	if o.Database != "" {
		parts = append(parts, "dbname="+quoteValue(o.Database))
	}
	if o.SSLMode != "" {
		parts = append(parts, "sslmode="+o.SSLMode)
	}
	if o.ConnectTimeout > 0 {
		secs := int(math.Ceil(o.ConnectTimeout.Seconds()))
		parts = append(parts, "connect_timeout="+strconv.Itoa(secs))
	}
	return strings.Join(parts, " ")
}

// quoteValue single-quotes v for a libpq keyword/value string.
func quoteValue(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
