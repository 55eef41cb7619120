// internal/database/migrate.go
//
// Schema migrations.
//
// Context
// -------
// The ordered SQL files under migrations/ are embedded into the binary and
// applied with goose's Provider API.  Both `z2p migrate` and the test
// database provisioner call Migrate; the server itself never migrates on
// startup.
//
// Notes
// -----
//   - A failed run reports the first failing file through *MigrationError.
//   - Migrations already applied are skipped by goose's version table.
//   - Oxford commas, two spaces after periods.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Migrations returns the embedded migration set rooted at its directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		panic(err) // directory is embedded at build time
	}
	return sub
}

// MigrationError names the migration that stopped a run.
type MigrationError struct {
	Version int64
	Source  string // file name, e.g. 20240101000000_create_subscriptions_table.sql
	Err     error
}

func (e *MigrationError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("migrate: %v", e.Err)
	}
	return fmt.Sprintf("migration %s (version %d): %v", e.Source, e.Version, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// Migrate applies every pending embedded migration to db.
func Migrate(ctx context.Context, db *sql.DB, log *zap.SugaredLogger) error {
	return MigrateFS(ctx, db, Migrations(), log)
}

// MigrateFS applies every pending migration found at the root of fsys.
// Files follow goose naming, <version>_<name>.sql.
func MigrateFS(ctx context.Context, db *sql.DB, fsys fs.FS, log *zap.SugaredLogger) error {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return &MigrationError{Err: err}
	}

	results, err := provider.Up(ctx)
	if err != nil {
		var partial *goose.PartialError
		if errors.As(err, &partial) && partial.Failed != nil && partial.Failed.Source != nil {
			return &MigrationError{
				Version: partial.Failed.Source.Version,
				Source:  path.Base(partial.Failed.Source.Path),
				Err:     partial.Err,
			}
		}
		return &MigrationError{Err: err}
	}

	for _, r := range results {
		log.Infow("migration applied",
			"source", path.Base(r.Source.Path),
			"version", r.Source.Version,
			"duration", r.Duration,
		)
	}
	return nil
}
