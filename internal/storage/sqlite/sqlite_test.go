package sqlite_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-registry/internal/storage"
	"github.com/aanand-mishra/student-registry/internal/storage/sqlite"
	"github.com/aanand-mishra/student-registry/internal/types"
)

var enrolledDefault = time.Date(2024, time.September, 1, 8, 30, 0, 0, time.UTC)

func newTestSession(t *testing.T) *sqlite.Session {
	t.Helper()
	sess, err := sqlite.New(":memory:", storage.NewSchema(enrolledDefault))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

func seedStudents() []*types.Student {
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

func seed(t *testing.T, sess *sqlite.Session) []*types.Student {
	t.Helper()
	students := seedStudents()
	if err := sess.BulkSave(context.Background(), students); err != nil {
		t.Fatalf("BulkSave: %v", err)
	}
	return students
}

func TestBulkSave_AssignsIDsAndEnrolledDefault(t *testing.T) {
	sess := newTestSession(t)
	students := seed(t, sess)

	assert.Equal(t, int64(1), students[0].ID)
	assert.Equal(t, int64(2), students[1].ID)

	// Both rows share the one default instant captured at schema
	// construction time.
	assert.True(t, students[0].EnrolledAt.Equal(enrolledDefault))
	assert.True(t, students[1].EnrolledAt.Equal(enrolledDefault))
}

func TestBulkSave_KeepsExplicitEnrolledAt(t *testing.T) {
	sess := newTestSession(t)
	enrolled := time.Date(2023, time.January, 9, 0, 0, 0, 0, time.UTC)

	students := []*types.Student{{
		Name:       "Emmy Noether",
		Email:      "emmy.noether@erlangen.edu",
		Grade:      9,
		Birthday:   time.Date(1882, time.March, 23, 0, 0, 0, 0, time.UTC),
		EnrolledAt: enrolled,
	}}
	require.NoError(t, sess.BulkSave(context.Background(), students))

	assert.True(t, students[0].EnrolledAt.Equal(enrolled))
}

func TestBulkSave_RejectsInvalidRecord(t *testing.T) {
	sess := newTestSession(t)
	ctx := context.Background()

	bad := []*types.Student{{
		Name:  "Too Long",
		Email: strings.Repeat("x", 50) + "@example.edu", // over the 55-char bound
		Grade: 7,
	}}
	err := sess.BulkSave(ctx, bad)
	require.ErrorIs(t, err, storage.ErrInvalidRecord)

	// The batch never reached the database.
	count, err := sess.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestAll_NaturalOrder(t *testing.T) {
	sess := newTestSession(t)
	seed(t, sess)

	students, err := sess.All(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Albert Einstein", students[0].Name)
	assert.Equal(t, "Alan Turing", students[1].Name)
}

func TestCount_MatchesFullScan(t *testing.T) {
	sess := newTestSession(t)
	seed(t, sess)
	ctx := context.Background()

	students, err := sess.All(ctx)
	require.NoError(t, err)

	count, err := sess.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(students)), count)
	assert.Equal(t, int64(2), count)
}

func TestNames_ProjectionAndOrdering(t *testing.T) {
	sess := newTestSession(t)
	seed(t, sess)
	ctx := context.Background()

	names, err := sess.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Albert Einstein", "Alan Turing"}, names)

	ascending, err := sess.NamesByNameAsc(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alan Turing", "Albert Einstein"}, ascending)
}

func TestByGradeDesc(t *testing.T) {
	sess := newTestSession(t)
	seed(t, sess)

	pairs, err := sess.ByGradeDesc(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.NameGrade{
		{Name: "Alan Turing", Grade: 11},
		{Name: "Albert Einstein", Grade: 6},
	}, pairs)
}

func TestPairProjections_ConsistentWithFullScan(t *testing.T) {
	// The pair-shaped queries (grade-desc ordering and both
	// earliest-birthday accessors) must project the same rows the full
	// scan sees, just reshaped and reordered.
	sess := newTestSession(t)
	seed(t, sess)
	ctx := context.Background()

	students, err := sess.All(ctx)
	require.NoError(t, err)

	byID := make(map[string]*types.Student, len(students))
	for _, st := range students {
		byID[st.Name] = st
	}

	pairs, err := sess.ByGradeDesc(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, len(students))
	for _, p := range pairs {
		require.Contains(t, byID, p.Name)
		assert.Equal(t, byID[p.Name].Grade, p.Grade)
	}

	limited, err := sess.OldestByBirthday(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	first, err := sess.FirstByBirthday(ctx)
	require.NoError(t, err)
	require.Contains(t, byID, first.Name)
	assert.Equal(t,
		byID[first.Name].Birthday.Format("2006-01-02"),
		first.Birthday.Format("2006-01-02"))
	assert.Equal(t, limited[0].Name, first.Name)
}

func TestOldestByBirthday_BothAccessorsAgree(t *testing.T) {
	sess := newTestSession(t)
	seed(t, sess)
	ctx := context.Background()

	limited, err := sess.OldestByBirthday(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	first, err := sess.FirstByBirthday(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Albert Einstein", first.Name)
	assert.Equal(t, limited[0].Name, first.Name)
	assert.Equal(t,
		limited[0].Birthday.Format("2006-01-02"),
		first.Birthday.Format("2006-01-02"))
	assert.Equal(t, "1879-03-14", first.Birthday.Format("2006-01-02"))
}

func TestFilter_NameContainsAndGrade(t *testing.T) {
	sess := newTestSession(t)
	seed(t, sess)
	ctx := context.Background()

	matches, err := sess.Filter(ctx, "Alan", 11)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Alan Turing", matches[0].Name)

	// Both conditions are ANDed: right name, wrong grade.
	matches, err = sess.Filter(ctx, "Alan", 6)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// The contains-match is case-sensitive.
	matches, err = sess.Filter(ctx, "alan", 11)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestTrackedUpdate_CommitsAllAtOnce(t *testing.T) {
	sess := newTestSession(t)
	seed(t, sess)
	ctx := context.Background()

	students, err := sess.All(ctx)
	require.NoError(t, err)
	for _, st := range students {
		st.Grade++
	}

	// Nothing is visible before Commit.
	pairs, err := sess.ByGradeDesc(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, pairs[0].Grade)

	require.NoError(t, sess.Commit(ctx))

	pairs, err = sess.ByGradeDesc(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.NameGrade{
		{Name: "Alan Turing", Grade: 12},
		{Name: "Albert Einstein", Grade: 7},
	}, pairs)
}

func TestBothUpdateStrategies_InSequence(t *testing.T) {
	sess := newTestSession(t)
	seed(t, sess)
	ctx := context.Background()

	students, err := sess.All(ctx)
	require.NoError(t, err)
	for _, st := range students {
		st.Grade++
	}
	require.NoError(t, sess.Commit(ctx))

	affected, err := sess.IncrementAllGrades(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	pairs, err := sess.ByGradeDesc(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.NameGrade{
		{Name: "Alan Turing", Grade: 13},
		{Name: "Albert Einstein", Grade: 8},
	}, pairs)
}

func TestAll_IdentityMapReturnsSamePointers(t *testing.T) {
	sess := newTestSession(t)
	seed(t, sess)
	ctx := context.Background()

	first, err := sess.All(ctx)
	require.NoError(t, err)
	first[0].Grade = 99 // pending edit, not committed

	second, err := sess.All(ctx)
	require.NoError(t, err)

	// Same live object per row, and the pending edit survives the
	// re-query.
	assert.Same(t, first[0], second[0])
	assert.Equal(t, 99, second[0].Grade)

	// The database still holds the old value until Commit.
	pairs, err := sess.ByGradeDesc(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, pairs[0].Grade)
}

func TestFirstByName(t *testing.T) {
	sess := newTestSession(t)
	seed(t, sess)
	ctx := context.Background()

	albert, err := sess.FirstByName(ctx, "Albert Einstein")
	require.NoError(t, err)
	assert.Equal(t, int64(1), albert.ID)

	_, err = sess.FirstByName(ctx, "Isaac Newton")
	assert.ErrorIs(t, err, storage.ErrStudentNotFound)
}

func TestObjectDelete_ThenBulkDeleteIsNoop(t *testing.T) {
	sess := newTestSession(t)
	seed(t, sess)
	ctx := context.Background()

	albert, err := sess.FirstByName(ctx, "Albert Einstein")
	require.NoError(t, err)
	require.NoError(t, sess.Delete(ctx, albert))

	// Re-evaluating the same predicate finds nothing.
	_, err = sess.FirstByName(ctx, "Albert Einstein")
	assert.ErrorIs(t, err, storage.ErrStudentNotFound)

	// Bulk delete on the emptied predicate: zero rows, no error.
	affected, err := sess.DeleteByName(ctx, "Albert Einstein")
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	count, err := sess.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDeleteByName_RemovesMatchingRows(t *testing.T) {
	sess := newTestSession(t)
	seed(t, sess)
	ctx := context.Background()

	affected, err := sess.DeleteByName(ctx, "Alan Turing")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	names, err := sess.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Albert Einstein"}, names)
}

func TestNew_BadDSN(t *testing.T) {
	_, err := sqlite.New("file:?mode=invalid", storage.NewSchema(enrolledDefault))
	assert.Error(t, err)
}
