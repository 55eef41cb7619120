// internal/subscription/store.go
//
// Query helpers for the newsletter subscriber list.
//
// Context
// -------
// The schema is owned by the embedded goose migrations in
// internal/database:
//
//	subscriptions (id uuid PK, email UNIQUE, name, subscribed_at)
//
// Handlers call Insert once per accepted form; ByEmail exists for
// operators and tests.  Both accept the narrow sqlx interfaces so a
// *sqlx.DB, a *sqlx.Tx, or a sqlmock-backed handle all fit.
//
// Notes
// -----
//   - A unique-constraint violation surfaces as ErrDuplicateEmail.
//   - Oxford commas, two spaces after periods.
package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

var (
	// ErrDuplicateEmail reports an address that is already subscribed.
	ErrDuplicateEmail = errors.New("email already subscribed")
	// ErrNotFound reports a lookup with no matching row.
	ErrNotFound = errors.New("subscriber not found")
)

// Insert stores s.  The caller supplies ID and SubscribedAt, normally via
// NewSubscriber.
func Insert(ctx context.Context, db sqlx.ExtContext, s Subscriber) error {
	const q = `INSERT INTO subscriptions (id, email, name, subscribed_at)
	           VALUES (:id, :email, :name, :subscribed_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, s); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

// ByEmail fetches the subscriber registered under email.
func ByEmail(ctx context.Context, db sqlx.QueryerContext, email string) (*Subscriber, error) {
	const q = `SELECT id, email, name, subscribed_at
	             FROM subscriptions
	            WHERE email = $1`

	var s Subscriber
	if err := sqlx.GetContext(ctx, db, &s, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("subscriber by email: %w", err)
	}
	return &s, nil
}
