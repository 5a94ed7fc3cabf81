// package repositories provides persistence layer implementations for all model types.
//
// Each repository handles CRUD operations for one entity on SQLite, with
// sequence generation for human-readable ordering and not-found reporting via
// [shared.ErrNotFound]. All writes are transactional per logical operation.
package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/evanheo/podwire/internal/shared"
)

// querier is the statement surface shared by *sql.DB and *sql.Tx, letting
// repository operations run standalone or inside a caller's transaction.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers provide human-readable ordering for entities (e.g., job #42).
// They are not exposed in API output but used internally for sorting and debugging.
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := nextSequence(tx, table)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// nextSequence increments the table's sequence counter on the given statement
// surface. Callers passing a bare *sql.DB get no atomicity; use NextSequence.
func nextSequence(q querier, table string) (int, error) {
	sequenceTable := table + "_sequence"

	_, err := q.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = q.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	return sequence, nil
}

// nullString maps empty strings to NULL for insertion.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullTime maps nil times to NULL for insertion.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// scanNullString unwraps a nullable text column.
func scanNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// scanNullTime unwraps a nullable timestamp column.
func scanNullTime(nt sql.NullTime) *time.Time {
	if nt.Valid {
		t := nt.Time.UTC()
		return &t
	}
	return nil
}

// notFound wraps shared.ErrNotFound with entity context.
func notFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", shared.ErrNotFound, entity, id)
}
