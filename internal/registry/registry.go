// Package registry contains the student registry walkthrough — the
// demo component that exercises every session operation in a fixed
// order against one store.
//
// LAYERING:
// ─────────
// The walkthrough only ever talks to the storage.Session INTERFACE,
// never to the concrete SQLite store. The caller injects the session
// (and the output writer) through New — the same dependency injection
// pattern handlers use in a server, applied to a one-shot demo. Tests
// inject an in-memory session and a bytes.Buffer.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aanand-mishra/student-registry/internal/storage"
	"github.com/aanand-mishra/student-registry/internal/types"
	"github.com/aanand-mishra/student-registry/internal/utils/render"
)

// SeedStudents returns the two records every run starts from.
// Fresh values on every call, since the session writes assigned IDs
// and the enrolled-at default back into the records it is given.
func SeedStudents() []*types.Student {
	return []*types.Student{
		{
			Name:     "Albert Einstein",
			Email:    "albert.einstein@zurich.edu",
			Grade:    6,
			Birthday: time.Date(1879, time.March, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			Name:     "Alan Turing",
			Email:    "alan.turing@sherborne.edu",
			Grade:    11,
			Birthday: time.Date(1912, time.June, 23, 0, 0, 0, 0, time.UTC),
		},
	}
}

// Walkthrough runs the demo phases in order against one session.
type Walkthrough struct {
	log  *slog.Logger
	sess storage.Session
	out  io.Writer
}

// New wires a walkthrough to its logger, session, and phase output
// destination (os.Stdout in production, a buffer in tests).
func New(log *slog.Logger, sess storage.Session, out io.Writer) *Walkthrough {
	return &Walkthrough{log: log, sess: sess, out: out}
}

// Run executes every phase in sequence. The first error aborts the
// remaining phases — there is no retry or partial-failure recovery,
// the walkthrough is designed to run exactly once per store instance.
func (w *Walkthrough) Run(ctx context.Context) error {
	if err := w.seed(ctx); err != nil {
		return err
	}
	if err := w.read(ctx); err != nil {
		return err
	}
	if err := w.update(ctx); err != nil {
		return err
	}
	return w.remove(ctx)
}

// seed bulk-inserts the two seed records.
func (w *Walkthrough) seed(ctx context.Context) error {
	students := SeedStudents()
	if err := w.sess.BulkSave(ctx, students); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	w.log.Info("seeded students", slog.Int("count", len(students)))
	return nil
}

// read runs the read-only phases: full scan, projection, both
// orderings, both earliest-birthday accessors, the count aggregate,
// and the ANDed predicate filter.
func (w *Walkthrough) read(ctx context.Context) error {
	// ── Full scan ─────────────────────────────────────────────────────
	students, err := w.sess.All(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w.out, "students: %s\n", render.Students(students))

	// ── Projection: name column only ──────────────────────────────────
	names, err := w.sess.Names(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w.out, "names: %s\n", render.Names(names))

	// ── Ordering, ascending by name ───────────────────────────────────
	byName, err := w.sess.NamesByNameAsc(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w.out, "names ascending: %s\n", render.Names(byName))

	// ── Ordering, descending by grade ─────────────────────────────────
	byGrade, err := w.sess.ByGradeDesc(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w.out, "by grade descending: %s\n", render.NameGrades(byGrade))

	// ── Limiting: the earliest birthday, both access patterns ─────────
	oldest, err := w.sess.OldestByBirthday(ctx, 1)
	if err != nil {
		return err
	}
	fmt.Fprintf(w.out, "oldest (limit 1): %s\n", render.NameBirthdays(oldest))

	first, err := w.sess.FirstByBirthday(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w.out, "oldest (first): %s\n", render.NameBirthday(first))

	// ── Aggregate count, computed store-side ──────────────────────────
	count, err := w.sess.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w.out, "Student count: %d\n", count)

	// ── Predicate filter: name contains "Alan" AND grade = 11 ─────────
	filtered, err := w.sess.Filter(ctx, "Alan", 11)
	if err != nil {
		return err
	}
	for _, record := range filtered {
		fmt.Fprintf(w.out, "Filtered name %d: %s\n", record.ID, record.Name)
	}
	return nil
}

// update applies the two grade-increment strategies in sequence. Each
// one changes state, so running both moves the seed grades 6 and 11 to
// 8 and 13.
func (w *Walkthrough) update(ctx context.Context) error {
	// ── Strategy 1: tracked objects ───────────────────────────────────
	// Load every row, bump the grade in memory, commit once. No row is
	// written until Commit, then all increments land together.
	students, err := w.sess.All(ctx)
	if err != nil {
		return err
	}
	for _, student := range students {
		student.Grade++
	}
	if err := w.sess.Commit(ctx); err != nil {
		return err
	}
	if err := w.printGrades(ctx, "grades after tracked update"); err != nil {
		return err
	}

	// ── Strategy 2: bulk update ───────────────────────────────────────
	// One UPDATE statement with no predicate hits every row without
	// loading anything client-side.
	affected, err := w.sess.IncrementAllGrades(ctx, 1)
	if err != nil {
		return err
	}
	w.log.Info("bulk grade update", slog.Int64("rows", affected))
	return w.printGrades(ctx, "grades after bulk update")
}

// remove deletes Albert Einstein twice: first as a resolved object,
// then through a bulk predicate delete that finds nothing left.
func (w *Walkthrough) remove(ctx context.Context) error {
	// ── Strategy 1: object delete ─────────────────────────────────────
	albert, err := w.sess.FirstByName(ctx, "Albert Einstein")
	if err != nil {
		return err
	}
	if err := w.sess.Delete(ctx, albert); err != nil {
		return err
	}
	if err := w.printByName(ctx, "Albert Einstein after delete", albert.Name); err != nil {
		return err
	}

	// ── Strategy 2: bulk predicate delete ─────────────────────────────
	// The row is already gone, so this affects zero rows — a safe
	// no-op, not an error.
	affected, err := w.sess.DeleteByName(ctx, "Albert Einstein")
	if err != nil {
		return err
	}
	w.log.Info("bulk delete", slog.Int64("rows", affected))
	return w.printByName(ctx, "Albert Einstein after bulk delete", "Albert Einstein")
}

// printGrades prints the current (name, grade) pairs in natural order.
func (w *Walkthrough) printGrades(ctx context.Context, label string) error {
	students, err := w.sess.All(ctx)
	if err != nil {
		return err
	}
	pairs := make([]types.NameGrade, 0, len(students))
	for _, student := range students {
		pairs = append(pairs, types.NameGrade{Name: student.Name, Grade: student.Grade})
	}
	fmt.Fprintf(w.out, "%s: %s\n", label, render.NameGrades(pairs))
	return nil
}

// printByName re-evaluates an exact-name lookup and prints the row, or
// <none> when the predicate no longer matches anything.
func (w *Walkthrough) printByName(ctx context.Context, label, name string) error {
	student, err := w.sess.FirstByName(ctx, name)
	switch {
	case errors.Is(err, storage.ErrStudentNotFound):
		fmt.Fprintf(w.out, "%s: <none>\n", label)
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(w.out, "%s: %s\n", label, student)
	return nil
}
