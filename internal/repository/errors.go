// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios. ErrNotFound signals that no row matched the lookup (or that
// a conditional update found no row in the required state), while
// ErrConflict signals that a write was rejected by a uniqueness
// constraint, such as a second open pass for the same subject.
package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a referenced row does not exist or is
// not in a state the operation applies to.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert or update is rejected by a
// uniqueness constraint. Handlers should translate this into an HTTP
// 409 response.
var ErrConflict = errors.New("conflict")

// queryer is satisfied by both *sql.DB and *sql.Tx so read helpers can
// run inside or outside a caller's transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
