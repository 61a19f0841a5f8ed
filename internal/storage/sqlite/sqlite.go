// Package sqlite provides a SQLite-backed implementation of the
// storage.Session interface, built on the sqlair statement layer over
// Go's standard database/sql package.
//
// WHY SQLite IN MEMORY?
// ─────────────────────
// The registry walkthrough needs a real relational engine (ordering,
// aggregates, predicates are all pushed down to SQL) but no durability:
// the store lives exactly as long as the process. The ":memory:" DSN
// gives us a full SQLite instance that is created on open and discarded
// on close — no file, no server, no cleanup.
//
// WHY sqlair ON TOP?
// ──────────────────
// database/sql alone forces a Scan call per column per query. sqlair
// lets each statement name its inputs and outputs by type ($Student.name,
// &Student.*) and maps rows to structs via their db:"..." tags, so the
// SQL below stays readable and the mapping stays in one place.
//
// The blank import registers the sqlite3 driver with database/sql.
// The driver's init() function does this automatically when the package
// is loaded — we never call anything from it directly.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/canonical/sqlair"
	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-registry/internal/storage"
	"github.com/aanand-mishra/student-registry/internal/types"
	"github.com/aanand-mishra/student-registry/internal/utils/render"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"
)

// Every statement the session can run, prepared once at package load.
// MustPrepare panics on a malformed statement, which is the right
// behaviour here: a statement that cannot be constructed is a
// programming error, not a runtime condition.
var (
	insertStmt = sqlair.MustPrepare(`
		INSERT INTO students (name, email, grade, birthday, enrolled_date)
		VALUES ($Student.name, $Student.email, $Student.grade,
			$Student.birthday, $Student.enrolled_date);`,
		types.Student{})

	// Natural order is insertion order with ties broken by assigned id.
	// SQLite happens to scan in rowid order anyway, but the walkthrough
	// promises the order, so the statement says it explicitly.
	allStmt = sqlair.MustPrepare(`
		SELECT &Student.* FROM students ORDER BY id;`,
		types.Student{})

	namesStmt = sqlair.MustPrepare(`
		SELECT &Student.name FROM students ORDER BY id;`,
		types.Student{})

	namesAscStmt = sqlair.MustPrepare(`
		SELECT &Student.name FROM students ORDER BY name ASC;`,
		types.Student{})

	byGradeDescStmt = sqlair.MustPrepare(`
		SELECT (name, grade) AS (&NameGrade.*)
		FROM students ORDER BY grade DESC, id;`,
		types.NameGrade{})

	oldestStmt = sqlair.MustPrepare(`
		SELECT (name, birthday) AS (&NameBirthday.*)
		FROM students ORDER BY birthday ASC LIMIT $M.limit;`,
		types.NameBirthday{}, sqlair.M{})

	firstByBirthdayStmt = sqlair.MustPrepare(`
		SELECT (name, birthday) AS (&NameBirthday.*)
		FROM students ORDER BY birthday ASC;`,
		types.NameBirthday{})

	countStmt = sqlair.MustPrepare(`
		SELECT count(id) AS &M.count FROM students;`,
		sqlair.M{})

	// instr() rather than LIKE: SQLite's LIKE is case-insensitive for
	// ASCII, and the contains-match here is case-sensitive.
	filterStmt = sqlair.MustPrepare(`
		SELECT &Student.*
		FROM students
		WHERE instr(name, $M.needle) > 0 AND grade = $M.grade
		ORDER BY id;`,
		types.Student{}, sqlair.M{})

	updateStmt = sqlair.MustPrepare(`
		UPDATE students
		SET name = $Student.name, email = $Student.email,
			grade = $Student.grade, birthday = $Student.birthday,
			enrolled_date = $Student.enrolled_date
		WHERE id = $Student.id;`,
		types.Student{})

	incrementAllStmt = sqlair.MustPrepare(`
		UPDATE students SET grade = grade + $M.delta;`,
		sqlair.M{})

	firstByNameStmt = sqlair.MustPrepare(`
		SELECT &Student.* FROM students
		WHERE name = $M.name ORDER BY id;`,
		types.Student{}, sqlair.M{})

	deleteStmt = sqlair.MustPrepare(`
		DELETE FROM students WHERE id = $Student.id;`,
		types.Student{})

	deleteByNameStmt = sqlair.MustPrepare(`
		DELETE FROM students WHERE name = $M.name;`,
		sqlair.M{})
)

// Session is the concrete implementation of storage.Session.
//
// Besides the database handle it carries the session's working state:
// an identity map of every row object handed out by All, plus a clean
// snapshot of each as last seen in the database. Commit diffs the two
// and writes back only what actually changed.
type Session struct {
	db       *sqlair.DB
	schema   storage.Schema
	validate *validator.Validate

	// identity maps primary key to the one live object for that row.
	// Repeated All calls return the same pointers, so a caller's
	// in-memory edits survive re-querying until Commit.
	identity map[int64]*types.Student

	// clean holds each tracked row as the database last saw it.
	clean map[int64]types.Student
}

// New opens a SQLite database at the given DSN, applies the schema DDL,
// and returns a ready-to-use *Session.
//
// sql.Open does NOT open a real connection yet — it just validates the
// driver name and DSN. The Ping forces a real connection so that an
// unreachable or misconfigured store fails here, at startup, rather
// than on the first walkthrough phase.
func New(dsn string, schema storage.Schema) (*Session, error) {
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	if err := sqldb.Ping(); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("sqlite.New: connect: %w", err)
	}

	// An in-memory SQLite database exists per connection. database/sql
	// pools connections, so cap the pool at one to keep every statement
	// on the connection that owns the data.
	sqldb.SetMaxOpenConns(1)

	if _, err := sqldb.Exec(schema.DDL); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("sqlite.New: create schema: %w", err)
	}

	return &Session{
		db:       sqlair.NewDB(sqldb),
		schema:   schema,
		validate: validator.New(),
		identity: make(map[int64]*types.Student),
		clean:    make(map[int64]types.Student),
	}, nil
}

// Close releases the connection. For ":memory:" this drops all data.
func (s *Session) Close() error {
	return s.db.PlainDB().Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// BulkSave inserts all given records inside one transaction.
//
// Each record is validated against its validate:"..." tags first — a
// record that fails never reaches the database, and the whole batch is
// rejected (storage.ErrInvalidRecord). Records with a zero EnrolledAt
// get the schema's shared default, the single instant captured when the
// schema value was built.
//
// Assigned primary keys are written back into the records, but the
// records are NOT tracked by the session: bulk-saved objects are fire
// and forget, load them with All if you want to mutate them later.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Session) BulkSave(ctx context.Context, students []*types.Student) error {
	for _, st := range students {
		if err := s.validate.Struct(st); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				return fmt.Errorf("BulkSave: %q: %s: %w",
					st.Name, render.ValidationError(verrs), storage.ErrInvalidRecord)
			}
			return fmt.Errorf("BulkSave: validate: %w", err)
		}
		if st.EnrolledAt.IsZero() {
			st.EnrolledAt = s.schema.EnrolledDefault
		}
	}

	tx, err := s.db.Begin(ctx, nil)
	if err != nil {
		return fmt.Errorf("BulkSave: begin: %w", err)
	}

	for _, st := range students {
		var outcome sqlair.Outcome
		if err := tx.Query(ctx, insertStmt, st).Get(&outcome); err != nil {
			tx.Rollback()
			return fmt.Errorf("BulkSave: insert %q: %w", st.Name, err)
		}
		id, err := outcome.Result().LastInsertId()
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("BulkSave: last insert id: %w", err)
		}
		st.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("BulkSave: commit: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// All returns every student in natural order and tracks each returned
// row in the session's identity map.
//
// Identity-map rule: one live object per primary key. If a row is
// already tracked, the SAME pointer is returned again; its fields are
// refreshed from the database only when the object has no pending edits
// (pending edits always win until Commit or a rollback-by-discard).
// ─────────────────────────────────────────────────────────────────────────────
func (s *Session) All(ctx context.Context) ([]*types.Student, error) {
	var rows []types.Student
	if err := s.db.Query(ctx, allStmt).GetAll(&rows); err != nil {
		if errors.Is(err, sqlair.ErrNoRows) {
			return []*types.Student{}, nil
		}
		return nil, fmt.Errorf("All: query: %w", err)
	}

	students := make([]*types.Student, 0, len(rows))
	for _, row := range rows {
		row := row
		tracked, ok := s.identity[row.ID]
		switch {
		case !ok:
			tracked = &row
			s.identity[row.ID] = tracked
			s.clean[row.ID] = row
		case *tracked == s.clean[row.ID]:
			// No pending edits: refresh from the database.
			*tracked = row
			s.clean[row.ID] = row
		}
		students = append(students, tracked)
	}
	return students, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Commit flushes pending changes on all tracked rows in one
// transaction, so every in-memory mutation becomes visible at once.
// Unchanged rows cost nothing — the diff against the clean snapshot
// decides what is written.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Session) Commit(ctx context.Context) error {
	dirty := make([]*types.Student, 0, len(s.identity))
	for id, st := range s.identity {
		if *st != s.clean[id] {
			dirty = append(dirty, st)
		}
	}
	if len(dirty) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx, nil)
	if err != nil {
		return fmt.Errorf("Commit: begin: %w", err)
	}
	for _, st := range dirty {
		if err := tx.Query(ctx, updateStmt, st).Run(); err != nil {
			tx.Rollback()
			return fmt.Errorf("Commit: update id %d: %w", st.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Commit: commit: %w", err)
	}

	for _, st := range dirty {
		s.clean[st.ID] = *st
	}
	return nil
}

// Names projects the name column only, in natural order.
func (s *Session) Names(ctx context.Context) ([]string, error) {
	return s.nameQuery(ctx, namesStmt, "Names")
}

// NamesByNameAsc returns names sorted lexicographically ascending.
// The secondary index on name serves this ordering.
func (s *Session) NamesByNameAsc(ctx context.Context) ([]string, error) {
	return s.nameQuery(ctx, namesAscStmt, "NamesByNameAsc")
}

func (s *Session) nameQuery(ctx context.Context, stmt *sqlair.Statement, op string) ([]string, error) {
	var rows []types.Student
	if err := s.db.Query(ctx, stmt).GetAll(&rows); err != nil {
		if errors.Is(err, sqlair.ErrNoRows) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Name)
	}
	return names, nil
}

// ByGradeDesc returns (name, grade) pairs ordered by grade descending,
// ties broken by natural row order.
func (s *Session) ByGradeDesc(ctx context.Context) ([]types.NameGrade, error) {
	var pairs []types.NameGrade
	if err := s.db.Query(ctx, byGradeDescStmt).GetAll(&pairs); err != nil {
		if errors.Is(err, sqlair.ErrNoRows) {
			return []types.NameGrade{}, nil
		}
		return nil, fmt.Errorf("ByGradeDesc: query: %w", err)
	}
	return pairs, nil
}

// OldestByBirthday is the size-bounded accessor for the
// earliest-birthday query: birthday ascending, take limit.
func (s *Session) OldestByBirthday(ctx context.Context, limit int) ([]types.NameBirthday, error) {
	var rows []types.NameBirthday
	err := s.db.Query(ctx, oldestStmt, sqlair.M{"limit": limit}).GetAll(&rows)
	if err != nil {
		if errors.Is(err, sqlair.ErrNoRows) {
			return []types.NameBirthday{}, nil
		}
		return nil, fmt.Errorf("OldestByBirthday: query: %w", err)
	}
	return rows, nil
}

// FirstByBirthday is the first-match accessor for the same query. Both
// accessors must resolve to the identical row.
func (s *Session) FirstByBirthday(ctx context.Context) (types.NameBirthday, error) {
	var row types.NameBirthday
	if err := s.db.Query(ctx, firstByBirthdayStmt).Get(&row); err != nil {
		if errors.Is(err, sqlair.ErrNoRows) {
			return types.NameBirthday{}, fmt.Errorf("FirstByBirthday: %w", storage.ErrStudentNotFound)
		}
		return types.NameBirthday{}, fmt.Errorf("FirstByBirthday: query: %w", err)
	}
	return row, nil
}

// Count returns the row count via a COUNT aggregate — the database does
// the counting, no rows travel to the client.
func (s *Session) Count(ctx context.Context) (int64, error) {
	m := sqlair.M{}
	if err := s.db.Query(ctx, countStmt).Get(m); err != nil {
		return 0, fmt.Errorf("Count: query: %w", err)
	}
	count, ok := m["count"].(int64)
	if !ok {
		return 0, fmt.Errorf("Count: unexpected count type %T", m["count"])
	}
	return count, nil
}

// Filter returns rows whose name contains nameContains (case-sensitive)
// AND whose grade equals grade. Zero matches is an empty slice, not an
// error.
func (s *Session) Filter(ctx context.Context, nameContains string, grade int) ([]types.Student, error) {
	var rows []types.Student
	args := sqlair.M{"needle": nameContains, "grade": grade}
	if err := s.db.Query(ctx, filterStmt, args).GetAll(&rows); err != nil {
		if errors.Is(err, sqlair.ErrNoRows) {
			return []types.Student{}, nil
		}
		return nil, fmt.Errorf("Filter: query: %w", err)
	}
	return rows, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// IncrementAllGrades is the bulk update strategy: one UPDATE statement,
// every row's grade bumped by delta, no rows materialised client-side.
// Contrast with the tracked-object strategy (All + mutate + Commit) —
// both leave the table in the same state for the same starting data.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Session) IncrementAllGrades(ctx context.Context, delta int) (int64, error) {
	var outcome sqlair.Outcome
	err := s.db.Query(ctx, incrementAllStmt, sqlair.M{"delta": delta}).Get(&outcome)
	if err != nil {
		return 0, fmt.Errorf("IncrementAllGrades: exec: %w", err)
	}
	affected, err := outcome.Result().RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("IncrementAllGrades: rows affected: %w", err)
	}

	// Tracked objects are now stale relative to the database; discard
	// clean ones so the next All re-reads them. Dirty objects keep
	// their pending edits.
	for id, st := range s.identity {
		if *st == s.clean[id] {
			delete(s.identity, id)
			delete(s.clean, id)
		}
	}
	return affected, nil
}

// FirstByName resolves an exact-name predicate to at most one row and
// tracks the result. ErrStudentNotFound when nothing matches.
func (s *Session) FirstByName(ctx context.Context, name string) (*types.Student, error) {
	var row types.Student
	if err := s.db.Query(ctx, firstByNameStmt, sqlair.M{"name": name}).Get(&row); err != nil {
		if errors.Is(err, sqlair.ErrNoRows) {
			return nil, fmt.Errorf("FirstByName %q: %w", name, storage.ErrStudentNotFound)
		}
		return nil, fmt.Errorf("FirstByName %q: query: %w", name, err)
	}

	if tracked, ok := s.identity[row.ID]; ok {
		return tracked, nil
	}
	s.identity[row.ID] = &row
	s.clean[row.ID] = row
	return &row, nil
}

// Delete removes one specific row by primary key and commits
// immediately. The object is dropped from the identity map so later
// queries cannot resurrect it.
func (s *Session) Delete(ctx context.Context, student *types.Student) error {
	if err := s.db.Query(ctx, deleteStmt, student).Run(); err != nil {
		return fmt.Errorf("Delete id %d: %w", student.ID, err)
	}
	delete(s.identity, student.ID)
	delete(s.clean, student.ID)
	return nil
}

// DeleteByName bulk-deletes every row matching an exact-name predicate.
// Matching zero rows is a safe no-op: affected comes back 0, no error.
func (s *Session) DeleteByName(ctx context.Context, name string) (int64, error) {
	var outcome sqlair.Outcome
	err := s.db.Query(ctx, deleteByNameStmt, sqlair.M{"name": name}).Get(&outcome)
	if err != nil {
		return 0, fmt.Errorf("DeleteByName %q: exec: %w", name, err)
	}
	affected, err := outcome.Result().RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteByName %q: rows affected: %w", name, err)
	}

	for id, st := range s.identity {
		if st.Name == name {
			delete(s.identity, id)
			delete(s.clean, id)
		}
	}
	return affected, nil
}

// Compile-time proof that *Session satisfies the storage contract.
var _ storage.Session = (*Session)(nil)
