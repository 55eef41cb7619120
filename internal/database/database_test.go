// internal/database/database_test.go
//
// Unit-tests for pool helpers.  Nothing here needs a live PostgreSQL; the
// provisioning round-trip lives in internal/testdb under the integration
// build tag.
//
// Run: go test ./internal/database -v

package database

import (
	"context"
	"errors"
	"io/fs"
	"sort"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pressly/goose/v3"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Tombleron/z2p/internal/config"
	"github.com/Tombleron/z2p/internal/secret"
)

func TestOptionsFrom(t *testing.T) {
	got := OptionsFrom(config.DatabaseConfig{})
	if got != DefaultOptions {
		t.Fatalf("zero config = %+v, want defaults", got)
	}

	got = OptionsFrom(config.DatabaseConfig{MaxOpenConns: 3, AcquireTimeout: 5 * time.Second})
	if got.MaxOpenConns != 3 || got.MaxIdleConns != 3 {
		t.Fatalf("pool = %d open / %d idle, want 3 / 3", got.MaxOpenConns, got.MaxIdleConns)
	}
	if got.AcquireTimeout != 5*time.Second {
		t.Fatalf("acquire timeout = %v", got.AcquireTimeout)
	}
}

func TestPing(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	db := sqlx.NewDb(raw, "sqlmock")
	defer db.Close()

	mock.ExpectPing()
	if err := Ping(context.Background(), db, time.Second); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	mock.ExpectPing().WillReturnError(errors.New("down"))
	if err := Ping(context.Background(), db, 0); err == nil {
		t.Fatalf("expected ping error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOpen_UnreachableServer(t *testing.T) {
	const pw = "do-not-print-me"
	target := config.DatabaseConfig{
		Username:     "postgres",
		Password:     secret.New(pw),
		Host:         "127.0.0.1",
		Port:         1, // nothing listens here
		DatabaseName: "newsletter",
	}.WithDatabase()

	_, err := Open(context.Background(), target, Options{MaxOpenConns: 1, AcquireTimeout: 2 * time.Second}, nil)
	if err == nil {
		t.Fatalf("expected connect error")
	}
	if strings.Contains(err.Error(), pw) {
		t.Fatalf("error leaked password: %v", err)
	}
}

func TestMigrationsEmbeddedInOrder(t *testing.T) {
	files, err := fs.Glob(Migrations(), "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("no migrations embedded")
	}
	if !sort.StringsAreSorted(files) {
		t.Fatalf("migrations not in version order: %v", files)
	}

	body, err := fs.ReadFile(Migrations(), files[0])
	if err != nil {
		t.Fatalf("read %s: %v", files[0], err)
	}
	if !strings.Contains(string(body), "-- +goose Up") {
		t.Fatalf("%s lacks goose Up annotation", files[0])
	}
}

func TestMigrationError(t *testing.T) {
	cause := errors.New("syntax error")
	err := &MigrationError{Version: 20240101000000, Source: "20240101000000_create_subscriptions_table.sql", Err: cause}

	if !errors.Is(err, cause) {
		t.Fatalf("MigrationError does not unwrap")
	}
	if !strings.Contains(err.Error(), "20240101000000_create_subscriptions_table.sql") {
		t.Fatalf("message lacks migration id: %v", err)
	}
}

func TestMigrateFS_EmptySetIsMigrationError(t *testing.T) {
	raw, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer raw.Close()

	err = MigrateFS(context.Background(), raw, fstest.MapFS{}, nil)
	var merr *MigrationError
	if !errors.As(err, &merr) {
		t.Fatalf("err = %v, want *MigrationError", err)
	}
	if merr.Source != "" || !errors.Is(err, goose.ErrNoMigrations) {
		t.Fatalf("unexpected error: %+v", merr)
	}
}

func TestTraceLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tl := NewTraceLogger(zap.New(core))

	tl.Log(context.Background(), tracelog.LogLevelInfo, "Query", map[string]any{"sql": "SELECT 1", "args": []any{}})
	tl.Log(context.Background(), tracelog.LogLevelError, "Query", map[string]any{"err": "boom"})

	if logs.Len() != 2 {
		t.Fatalf("entries = %d, want 2", logs.Len())
	}
	first := logs.All()[0]
	if first.Level != zapcore.InfoLevel || first.ContextMap()["sql"] != "SELECT 1" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if logs.All()[1].Level != zapcore.ErrorLevel {
		t.Fatalf("error level not mapped")
	}
}
