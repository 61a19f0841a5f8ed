package storage

import "time"

// Schema is the explicit record-shape value for the students table.
//
// It is constructed once at startup and passed into the store
// constructor — there is no package-level registry of table
// definitions. Two things live here:
//
//   - DDL: the CREATE TABLE / CREATE INDEX statements. Only what the
//     table actually declares is enforced: an auto-assigned integer
//     primary key and a secondary index on name. No uniqueness or
//     check constraints beyond the primary key.
//
//   - EnrolledDefault: the timestamp applied to every inserted row
//     whose EnrolledAt field is zero. Note this is captured ONCE, when
//     the schema value is built, not re-evaluated per insert — every
//     seed row in a run shares the same enrolment instant. Callers who
//     want per-row timestamps set the field on the record themselves.
type Schema struct {
	DDL             string
	EnrolledDefault time.Time
}

// NewSchema builds the students schema with its shared enrolled-at
// default pinned to the given instant (normally time.Now() in main).
func NewSchema(enrolledDefault time.Time) Schema {
	return Schema{
		DDL: `
		CREATE TABLE IF NOT EXISTS students (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			name          TEXT,
			email         VARCHAR(55),
			grade         INTEGER,
			birthday      DATETIME,
			enrolled_date DATETIME
		);
		CREATE INDEX IF NOT EXISTS index_name ON students (name);`,
		EnrolledDefault: enrolledDefault,
	}
}
