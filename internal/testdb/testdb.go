package testdb

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/Tombleron/z2p/internal/config"
)

// New loads the repository configuration, provisions a fresh database, and
// fails the test on any error.  The pool is closed when the test ends; the
// database itself is left behind.
func New(tb testing.TB) *Database {
	tb.Helper()

	log := zaptest.NewLogger(tb)
	ctx := context.Background()

	cfg, err := config.Load(ctx, log.Sugar())
	if err != nil {
		tb.Fatalf("testdb: load configuration: %v", err)
	}

	p := &Provisioner{Config: *cfg, Log: log}
	db, err := p.Provision(ctx)
	if err != nil {
		tb.Fatalf("testdb: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	return db
}
