// Package render centralises the human-readable formatting of
// walkthrough results written to standard output.
//
// Every phase of the walkthrough prints a result set. Rather than
// repeating the same format-and-join lines in every phase, they live
// here — consistent result shapes also make the phase output easy to
// assert on in tests.
package render

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-registry/internal/types"
)

// Students renders a full result set of record summaries, e.g.
//
//	[Student 1: Albert Einstein, Grade 6; Student 2: Alan Turing, Grade 11]
//
// The summaries themselves contain commas, so entries are joined with
// semicolons.
func Students(students []*types.Student) string {
	entries := make([]string, 0, len(students))
	for _, st := range students {
		entries = append(entries, st.String())
	}
	return "[" + strings.Join(entries, "; ") + "]"
}

// Names renders a projected name list, e.g. [Alan Turing, Albert Einstein].
func Names(names []string) string {
	return "[" + strings.Join(names, ", ") + "]"
}

// NameGrades renders (name, grade) pairs, e.g.
//
//	[(Alan Turing, 11), (Albert Einstein, 6)]
func NameGrades(pairs []types.NameGrade) string {
	entries := make([]string, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, fmt.Sprintf("(%s, %d)", p.Name, p.Grade))
	}
	return "[" + strings.Join(entries, ", ") + "]"
}

// NameBirthdays renders (name, birthday) pairs with the birthday cut
// down to its date, e.g. [(Albert Einstein, 1879-03-14)].
func NameBirthdays(rows []types.NameBirthday) string {
	entries := make([]string, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, NameBirthday(r))
	}
	return "[" + strings.Join(entries, ", ") + "]"
}

// NameBirthday renders a single (name, birthday) pair.
func NameBirthday(r types.NameBirthday) string {
	return fmt.Sprintf("(%s, %s)", r.Name, r.Birthday.Format("2006-01-02"))
}

// ─────────────────────────────────────────────────────────────────────────────
// ValidationError converts a slice of validator.FieldError values into
// a single human-readable message.
//
// The go-playground/validator package returns one FieldError per
// failing struct field. Each is converted to a plain English sentence
// and joined with ", " so the caller sees a single descriptive string.
//
// Example output:
//
//	field Name is required, field Email must be at most 55 characters
//
// ─────────────────────────────────────────────────────────────────────────────
func ValidationError(errs validator.ValidationErrors) string {
	var errMessages []string

	for _, e := range errs {
		switch e.ActualTag() {
		// "required" tag — field was missing or zero-valued
		case "required":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		// "max" tag — field exceeded its declared bound
		case "max":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at most %s characters", e.Field(), e.Param()))
		// Catch-all for any other validation tag (min, len, email, etc.)
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return strings.Join(errMessages, ", ")
}
