// Package storage defines the Session interface — a contract that any
// database backend must satisfy to drive the registry walkthrough.
//
// WHY AN INTERFACE?
// ─────────────────
// The walkthrough (registry package) should not know or care which
// database it is talking to. By depending only on this interface:
//
//   - Switching databases = implement the interface for the new DB,
//     change one line in main.go. Zero walkthrough changes.
//
//   - Writing tests = pass a fake that satisfies the interface.
//     No real database needed for unit tests.
//
// A Session is a unit-of-work, not a bare connection pool: it tracks
// the row objects it has handed out, and Commit persists their pending
// in-memory changes in one step.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/student-registry/internal/types"
)

// Error taxonomy. The sqlite implementation wraps driver and statement
// errors with these sentinels so callers can classify failures without
// string matching. None of them are recovered from — any error aborts
// the remaining walkthrough phases.
var (
	// ErrInvalidRecord marks a record that failed validation before it
	// reached the store (schema-level failure, not a driver one).
	ErrInvalidRecord = errors.New("invalid student record")

	// ErrStudentNotFound is returned by single-row lookups that match
	// nothing. Bulk predicate deletes never return it — deleting zero
	// rows is a no-op, not an error.
	ErrStudentNotFound = errors.New("student not found")
)

// Session is the unit-of-work contract.
// Any concrete type that implements ALL of these methods automatically
// satisfies this interface — Go does this implicitly.
type Session interface {
	// BulkSave validates and inserts the given records in one bulk
	// operation, applying the schema's shared enrolled-at default to
	// any record with a zero EnrolledAt, and writes the assigned
	// primary keys back into the records.
	BulkSave(ctx context.Context, students []*types.Student) error

	// All returns every student, in natural order (insertion order,
	// ties broken by assigned id). Returned rows are tracked by the
	// session: mutate them in memory, then call Commit to persist.
	All(ctx context.Context) ([]*types.Student, error)

	// Commit persists pending changes on every tracked row in a single
	// transaction, so all mutations become visible together.
	Commit(ctx context.Context) error

	// Names projects just the name column, in natural order.
	Names(ctx context.Context) ([]string, error)

	// NamesByNameAsc returns names sorted lexicographically ascending.
	NamesByNameAsc(ctx context.Context) ([]string, error)

	// ByGradeDesc returns (name, grade) pairs sorted by grade
	// descending, ties broken by natural row order.
	ByGradeDesc(ctx context.Context) ([]types.NameGrade, error)

	// OldestByBirthday returns up to limit rows ordered by birthday
	// ascending — the size-bounded access pattern.
	OldestByBirthday(ctx context.Context, limit int) ([]types.NameBirthday, error)

	// FirstByBirthday returns the single earliest-birthday row — the
	// first-match access pattern. Both accessors yield the same row.
	FirstByBirthday(ctx context.Context) (types.NameBirthday, error)

	// Count returns the number of rows via a COUNT aggregate, never by
	// fetching rows and counting client-side.
	Count(ctx context.Context) (int64, error)

	// Filter returns rows whose name contains nameContains
	// (case-sensitive) AND whose grade equals grade.
	Filter(ctx context.Context, nameContains string, grade int) ([]types.Student, error)

	// IncrementAllGrades bumps every row's grade by delta in one bulk
	// statement, without materialising rows first. Returns the number
	// of rows affected.
	IncrementAllGrades(ctx context.Context, delta int) (int64, error)

	// FirstByName resolves an exact-name predicate to at most one row.
	// Returns ErrStudentNotFound when nothing matches.
	FirstByName(ctx context.Context, name string) (*types.Student, error)

	// Delete removes one specific row by its primary key and commits.
	Delete(ctx context.Context, student *types.Student) error

	// DeleteByName bulk-deletes all rows matching an exact-name
	// predicate. Matching zero rows is a safe no-op; the count of
	// deleted rows is returned.
	DeleteByName(ctx context.Context, name string) (int64, error)

	// Close releases the underlying connection. For the in-memory
	// store this also discards all data.
	Close() error
}
