// Package database centralises sqlx connection helpers.  The driver is
// jackc/pgx through its database/sql adapter, so callers get a plain
// *sqlx.DB backed by PostgreSQL.
//
// Public entry points:
//
//	Open(ctx, target, opts, log)  – pool for one connection descriptor.
//	OptionsFrom(cfg)              – pool tunables from DatabaseConfig.
//	Migrate(ctx, db, log)         – apply the embedded schema migrations.
//
// Open pings the database before returning so callers can fail fast during
// bootstrap.  Callers should Close() the returned *sqlx.DB when no longer
// needed.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Tombleron/z2p/internal/config"
)

// DriverName is the database/sql driver registered by pgx/stdlib.
const DriverName = "pgx"

// Options tunes one pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// AcquireTimeout bounds the initial ping.  Zero waits on ctx alone.
	AcquireTimeout time.Duration
}

// DefaultOptions: 15 max open, 5 idle, a 30-minute connection lifetime,
// and a 2-second acquire timeout.  Suitable for process-wide pools or for
// test setups.
var DefaultOptions = Options{
	MaxOpenConns:    15,
	MaxIdleConns:    5,
	ConnMaxLifetime: 30 * time.Minute,
	AcquireTimeout:  2 * time.Second,
}

// AdminOptions describe the single short-lived connection used for
// server-level statements such as CREATE DATABASE.
var AdminOptions = Options{
	MaxOpenConns:   1,
	MaxIdleConns:   1,
	AcquireTimeout: DefaultOptions.AcquireTimeout,
}

// OptionsFrom overlays the pool tunables of d on DefaultOptions.
func OptionsFrom(d config.DatabaseConfig) Options {
	opts := DefaultOptions
	if d.MaxOpenConns > 0 {
		opts.MaxOpenConns = d.MaxOpenConns
		if opts.MaxIdleConns > opts.MaxOpenConns {
			opts.MaxIdleConns = opts.MaxOpenConns
		}
	}
	if d.AcquireTimeout > 0 {
		opts.AcquireTimeout = d.AcquireTimeout
	}
	return opts
}

// Open builds a pool for target and pings it.  When target.LogStatements is
// set and log is non-nil, every statement is traced to log at debug level.
func Open(ctx context.Context, target config.ConnectOptions, opts Options, log *zap.Logger) (*sqlx.DB, error) {
	cc, err := target.ConnConfig()
	if err != nil {
		return nil, err
	}
	if target.LogStatements && log != nil {
		cc.Tracer = &tracelog.TraceLog{
			Logger:   NewTraceLogger(log),
			LogLevel: tracelog.LogLevelDebug,
		}
	}

	db := sqlx.NewDb(stdlib.OpenDB(*cc), DriverName)
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := Ping(ctx, db, opts.AcquireTimeout); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", target, err)
	}
	return db, nil
}

// Ping checks db within timeout, or within ctx alone when timeout is zero.
func Ping(ctx context.Context, db *sqlx.DB, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.PingContext(ctx)
}
