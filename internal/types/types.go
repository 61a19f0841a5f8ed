// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles —
// the registry walkthrough, storage, and utils can all import types
// without depending on each other.
package types

import (
	"fmt"
	"time"
)

// Student represents one row of the students table.
//
// Struct tags serve three purposes:
//
//  1. db:"..." — maps the field to its column name for the sqlair
//     statement layer ($Student.name on input, &Student.name on output).
//
//  2. json:"..." — controls how the field appears when encoded to JSON,
//     should a caller want a machine-readable dump of a result set.
//
//  3. validate:"..." — rules checked by the go-playground/validator
//     package before a record is persisted. "required" means non-zero,
//     "max=55" bounds the email field to the column's declared width.
type Student struct {
	// ID is assigned by the store on insert and never changes after.
	ID int64 `db:"id" json:"id"`

	Name  string `db:"name"  json:"name"  validate:"required"`
	Email string `db:"email" json:"email" validate:"required,max=55"`
	Grade int    `db:"grade" json:"grade" validate:"required"`

	// Birthday is author-supplied. EnrolledAt is filled with the shared
	// schema default when left zero (see storage.Schema).
	Birthday   time.Time `db:"birthday"      json:"birthday"`
	EnrolledAt time.Time `db:"enrolled_date" json:"enrolled_date"`
}

// String renders the one-line summary printed after walkthrough phases,
// e.g. "Student 2: Alan Turing, Grade 11".
func (s Student) String() string {
	return fmt.Sprintf("Student %d: %s, Grade %d", s.ID, s.Name, s.Grade)
}

// NameGrade is the projected (name, grade) pair returned by the
// descending-grade ordering query.
type NameGrade struct {
	Name  string `db:"name"  json:"name"`
	Grade int    `db:"grade" json:"grade"`
}

// NameBirthday is the projected (name, birthday) pair returned by the
// earliest-birthday queries.
type NameBirthday struct {
	Name     string    `db:"name"     json:"name"`
	Birthday time.Time `db:"birthday" json:"birthday"`
}
