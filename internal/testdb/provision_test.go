// internal/testdb/provision_test.go
//
// Unit-tests for the provisioning state machine using sqlmock.
//
// Context
// -------
// The Provisioner's Open and Migrate hooks are replaced by fakes that hand
// out sqlmock pools, so every transition (and every failure exit) runs
// without a PostgreSQL server.  The first Open call is the admin
// connection, the second is the pool for the new database.
//
// Run: go test ./internal/testdb -v

package testdb

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/Tombleron/z2p/internal/config"
	"github.com/Tombleron/z2p/internal/database"
	"github.com/Tombleron/z2p/internal/secret"
)

func baseConfig() config.Config {
	return config.Config{
		Application: config.ApplicationConfig{Host: "127.0.0.1", Port: 8000},
		Database: config.DatabaseConfig{
			Username:     "postgres",
			Password:     secret.New("password"),
			Host:         "localhost",
			Port:         5432,
			DatabaseName: "newsletter",
		},
	}
}

// fakeOpener hands out one sqlmock pool per Open call and records the
// descriptors it was asked for.
type fakeOpener struct {
	t       *testing.T
	dbs     []*sqlx.DB
	errs    []error
	targets []config.ConnectOptions
}

func (f *fakeOpener) open(_ context.Context, target config.ConnectOptions, _ database.Options) (*sqlx.DB, error) {
	i := len(f.targets)
	f.targets = append(f.targets, target)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.dbs) {
		f.t.Fatalf("unexpected Open call #%d", i+1)
	}
	return f.dbs[i], nil
}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return sqlx.NewDb(raw, "sqlmock"), mock
}

func fixedName(name string) func() string { return func() string { return name } }

func TestProvision_Ready(t *testing.T) {
	admin, adminMock := newMock(t)
	pool, poolMock := newMock(t)

	adminMock.ExpectExec(regexp.QuoteMeta(`CREATE DATABASE "db-one"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	adminMock.ExpectClose()
	poolMock.ExpectClose()

	opener := &fakeOpener{t: t, dbs: []*sqlx.DB{admin, pool}}
	var migrated *sql.DB
	p := &Provisioner{
		Config:  baseConfig(),
		Open:    opener.open,
		Migrate: func(_ context.Context, db *sql.DB) error { migrated = db; return nil },
		NewName: fixedName("db-one"),
	}

	db, err := p.Provision(context.Background())
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if db.Name != "db-one" || db.Config.Database.DatabaseName != "db-one" {
		t.Fatalf("name = %q / %q, want db-one", db.Name, db.Config.Database.DatabaseName)
	}
	if p.Config.Database.DatabaseName != "newsletter" {
		t.Fatalf("provisioner mutated its own Config")
	}
	if migrated != pool.DB {
		t.Fatalf("migrations ran against the wrong handle")
	}

	if len(opener.targets) != 2 {
		t.Fatalf("Open called %d times, want 2", len(opener.targets))
	}
	if opener.targets[0].Database != "" {
		t.Fatalf("admin descriptor selects database %q", opener.targets[0].Database)
	}
	if opener.targets[1].Database != "db-one" {
		t.Fatalf("pool descriptor database = %q", opener.targets[1].Database)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	for _, m := range []sqlmock.Sqlmock{adminMock, poolMock} {
		if err := m.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet SQL expectations: %v", err)
		}
	}
}

func TestProvision_QuotesIdentifier(t *testing.T) {
	admin, adminMock := newMock(t)
	pool, _ := newMock(t)

	adminMock.ExpectExec(regexp.QuoteMeta(`CREATE DATABASE "we""ird name"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	p := &Provisioner{
		Config:  baseConfig(),
		Open:    (&fakeOpener{t: t, dbs: []*sqlx.DB{admin, pool}}).open,
		Migrate: func(context.Context, *sql.DB) error { return nil },
		NewName: fixedName(`we"ird name`),
	}
	if _, err := p.Provision(context.Background()); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := adminMock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestProvision_AdminConnectFailure(t *testing.T) {
	opener := &fakeOpener{t: t, errs: []error{errors.New("connection refused")}}
	migrateCalled := false
	p := &Provisioner{
		Config:  baseConfig(),
		Open:    opener.open,
		Migrate: func(context.Context, *sql.DB) error { migrateCalled = true; return nil },
		NewName: fixedName("db-admin"),
	}

	db, err := p.Provision(context.Background())
	if db != nil {
		t.Fatalf("got database on failure")
	}
	if !errors.Is(err, ErrAdminConnect) {
		t.Fatalf("err = %v, want ErrAdminConnect", err)
	}
	if len(opener.targets) != 1 || migrateCalled {
		t.Fatalf("provisioner continued after admin failure")
	}
}

func TestProvision_CreateFailure(t *testing.T) {
	admin, adminMock := newMock(t)
	adminMock.ExpectExec(`CREATE DATABASE`).WillReturnError(errors.New("permission denied"))
	adminMock.ExpectClose()

	opener := &fakeOpener{t: t, dbs: []*sqlx.DB{admin}}
	p := &Provisioner{Config: baseConfig(), Open: opener.open, NewName: fixedName("db-create")}

	_, err := p.Provision(context.Background())
	if !errors.Is(err, ErrCreateDatabase) {
		t.Fatalf("err = %v, want ErrCreateDatabase", err)
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Database != "db-create" {
		t.Fatalf("error does not name the database: %v", err)
	}
	if len(opener.targets) != 1 {
		t.Fatalf("pool opened after create failure")
	}
	if err := adminMock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestProvision_PoolConnectFailure(t *testing.T) {
	admin, adminMock := newMock(t)
	adminMock.ExpectExec(`CREATE DATABASE`).WillReturnResult(sqlmock.NewResult(0, 0))

	opener := &fakeOpener{
		t:    t,
		dbs:  []*sqlx.DB{admin},
		errs: []error{nil, errors.New("too many connections")},
	}
	p := &Provisioner{Config: baseConfig(), Open: opener.open, NewName: fixedName("db-pool")}

	_, err := p.Provision(context.Background())
	if !errors.Is(err, ErrPoolConnect) {
		t.Fatalf("err = %v, want ErrPoolConnect", err)
	}
}

func TestProvision_MigrationFailureNamesMigration(t *testing.T) {
	admin, adminMock := newMock(t)
	pool, poolMock := newMock(t)
	adminMock.ExpectExec(`CREATE DATABASE`).WillReturnResult(sqlmock.NewResult(0, 0))
	poolMock.ExpectClose()

	p := &Provisioner{
		Config: baseConfig(),
		Open:   (&fakeOpener{t: t, dbs: []*sqlx.DB{admin, pool}}).open,
		Migrate: func(context.Context, *sql.DB) error {
			return &database.MigrationError{
				Version: 20240101000000,
				Source:  "20240101000000_create_subscriptions_table.sql",
				Err:     errors.New("relation already exists"),
			}
		},
		NewName: fixedName("db-migrate"),
	}

	_, err := p.Provision(context.Background())
	if !errors.Is(err, ErrMigration) {
		t.Fatalf("err = %v, want ErrMigration", err)
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Migration != "20240101000000_create_subscriptions_table.sql" {
		t.Fatalf("failing migration not reported: %v", err)
	}
	if err := poolMock.ExpectationsWereMet(); err != nil {
		t.Errorf("pool not closed after migration failure: %v", err)
	}
}

func TestProvision_FreshNamePerRun(t *testing.T) {
	names := make(map[string]bool)
	for i := 0; i < 2; i++ {
		admin, adminMock := newMock(t)
		pool, _ := newMock(t)
		adminMock.ExpectExec(`CREATE DATABASE "[0-9a-f-]{36}"`).WillReturnResult(sqlmock.NewResult(0, 0))

		p := &Provisioner{
			Config:  baseConfig(),
			Open:    (&fakeOpener{t: t, dbs: []*sqlx.DB{admin, pool}}).open,
			Migrate: func(context.Context, *sql.DB) error { return nil },
		}
		db, err := p.Provision(context.Background())
		if err != nil {
			t.Fatalf("Provision #%d: %v", i+1, err)
		}
		names[db.Name] = true
	}
	if len(names) != 2 {
		t.Fatalf("two runs produced %d distinct names", len(names))
	}
}

func TestStageString(t *testing.T) {
	for s, want := range map[Stage]string{
		StageAdminConnect:   "admin connect",
		StageCreateDatabase: "create database",
		StagePoolConnect:    "pool connect",
		StageMigrate:        "migrate",
	} {
		if s.String() != want {
			t.Fatalf("Stage(%d) = %q, want %q", s, s, want)
		}
	}
}
