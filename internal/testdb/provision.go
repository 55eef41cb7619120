// internal/testdb/provision.go
//
// Ephemeral PostgreSQL databases for test isolation.
//
// Context
// -------
// Tests that touch the store must not share state.  Each call to
// Provision creates a brand-new database named after a random v4 UUID,
// migrates it, and returns a pool bound to it:
//
//  1. Start          – copy the Config, set Database.DatabaseName to a
//                      fresh UUID (in memory only).
//  2. AdminConnect   – one connection via WithoutDatabase.
//  3. CreateDatabase – CREATE DATABASE "<uuid>" with identifier quoting.
//  4. PoolConnect    – pool via WithDatabase.
//  5. Migrate        – embedded goose migrations.
//  6. Ready          – pool handed to the caller.
//
// Every step fails fast; there are no retries.  The database is never
// dropped here.  Cleanup of leftover test databases is left to the
// environment that hosts the test server (a throwaway container in CI).
//
// Notes
// -----
//   - Name collisions are not checked; 122 random bits make them
//     negligible.
//   - Open, Migrate, and NewName are injectable so the state machine can
//     be exercised against sqlmock.
//   - Oxford commas, two spaces after periods.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Tombleron/z2p/internal/config"
	"github.com/Tombleron/z2p/internal/database"
)

//
// Errors
//

// Stage names a provisioning step.
type Stage int

const (
	StageAdminConnect Stage = iota + 1
	StageCreateDatabase
	StagePoolConnect
	StageMigrate
)

func (s Stage) String() string {
	switch s {
	case StageAdminConnect:
		return "admin connect"
	case StageCreateDatabase:
		return "create database"
	case StagePoolConnect:
		return "pool connect"
	case StageMigrate:
		return "migrate"
	default:
		return "unknown stage"
	}
}

// Sentinels matched by errors.Is against *Error.
var (
	ErrAdminConnect   = errors.New("admin connect failed")
	ErrCreateDatabase = errors.New("create database failed")
	ErrPoolConnect    = errors.New("pool connect failed")
	ErrMigration      = errors.New("migration failed")
)

// Error reports the step that stopped Provision.
type Error struct {
	Stage    Stage
	Database string
	// Migration is the first failing migration file, StageMigrate only.
	Migration string
	Err       error
}

func (e *Error) Error() string {
	if e.Migration != "" {
		return fmt.Sprintf("testdb %s %q: %s: %v", e.Stage, e.Database, e.Migration, e.Err)
	}
	return fmt.Sprintf("testdb %s %q: %v", e.Stage, e.Database, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch e.Stage {
	case StageAdminConnect:
		return target == ErrAdminConnect
	case StageCreateDatabase:
		return target == ErrCreateDatabase
	case StagePoolConnect:
		return target == ErrPoolConnect
	case StageMigrate:
		return target == ErrMigration
	}
	return false
}

//
// Provisioner
//

// OpenFunc opens a pool for one connection descriptor.
type OpenFunc func(ctx context.Context, target config.ConnectOptions, opts database.Options) (*sqlx.DB, error)

// MigrateFunc applies the schema to db.
type MigrateFunc func(ctx context.Context, db *sql.DB) error

// Provisioner creates migrated throwaway databases.  Only Config is
// required; the remaining fields default to the real implementations.
type Provisioner struct {
	Config  config.Config
	Open    OpenFunc
	Migrate MigrateFunc
	NewName func() string
	Log     *zap.Logger
}

// Database is a Ready provisioning result.
type Database struct {
	*sqlx.DB
	Name   string
	Config config.Config // copy with Database.DatabaseName set to Name
}

// Provision runs the state machine once.  On error nothing is returned
// and any pool opened along the way is closed.
func (p *Provisioner) Provision(ctx context.Context) (*Database, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	open, migrate, newName := p.Open, p.Migrate, p.NewName
	if open == nil {
		open = func(ctx context.Context, target config.ConnectOptions, opts database.Options) (*sqlx.DB, error) {
			return database.Open(ctx, target, opts, log)
		}
	}
	if migrate == nil {
		migrate = func(ctx context.Context, db *sql.DB) error {
			return database.Migrate(ctx, db, log.Sugar())
		}
	}
	if newName == nil {
		newName = uuid.NewString
	}

	// Start
	cfg := p.Config
	cfg.Database.DatabaseName = newName()
	name := cfg.Database.DatabaseName
	log.Debug("provisioning test database", zap.String("database", name))

	// AdminConnect
	admin, err := open(ctx, cfg.Database.WithoutDatabase(), database.AdminOptions)
	if err != nil {
		return nil, &Error{Stage: StageAdminConnect, Database: name, Err: err}
	}

	// CreateDatabase
	stmt := "CREATE DATABASE " + pgx.Identifier{name}.Sanitize()
	_, err = admin.ExecContext(ctx, stmt)
	_ = admin.Close()
	if err != nil {
		return nil, &Error{Stage: StageCreateDatabase, Database: name, Err: err}
	}

	// PoolConnect
	pool, err := open(ctx, cfg.Database.WithDatabase(), database.OptionsFrom(cfg.Database))
	if err != nil {
		return nil, &Error{Stage: StagePoolConnect, Database: name, Err: err}
	}

	// Migrate
	if err := migrate(ctx, pool.DB); err != nil {
		_ = pool.Close()
		perr := &Error{Stage: StageMigrate, Database: name, Err: err}
		var merr *database.MigrationError
		if errors.As(err, &merr) {
			perr.Migration = merr.Source
		}
		return nil, perr
	}

	// Ready
	log.Info("test database ready", zap.String("database", name))
	return &Database{DB: pool, Name: name, Config: cfg}, nil
}
