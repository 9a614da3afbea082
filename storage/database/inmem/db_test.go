package inmemdb_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/dispatch"
	"github.com/trezcool/siabdul/core/roster"
	"github.com/trezcool/siabdul/core/snapshot"
	testutil "github.com/trezcool/siabdul/tests"
)

func TestStudentRepository(t *testing.T) {
	store := testutil.NewStore(t)
	students := testutil.CreateDemoStudents(t, store.Students)

	t.Run("find by code then legacy id", func(t *testing.T) {
		st, err := store.Students.FindStudent("0012345680")
		require.NoError(t, err)
		assert.Equal(t, "STU-003", st.ID)

		st, err = store.Students.FindStudent("STU-004")
		require.NoError(t, err)
		assert.Equal(t, "0012345681", st.Code)

		_, err = store.Students.FindStudent("9999999999")
		assert.Equal(t, roster.ErrNotFound, err)
	})

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, roster.ErrCodeExists, store.Students.CheckUniqueness("0012345678", ""))
		assert.Equal(t, roster.ErrIDExists, store.Students.CheckUniqueness("1111111111", "STU-001"))
		assert.NoError(t, store.Students.CheckUniqueness("0012345678", "", students[0]))
		_, err := store.Students.CreateStudent(roster.Student{ID: "X", Code: "0012345679", Name: "Dup", Class: "12 IPA 1"})
		assert.Equal(t, roster.ErrCodeExists, err)
	})

	t.Run("roster order and class filter", func(t *testing.T) {
		got, err := store.Students.QueryStudents(roster.QueryFilter{Class: "12 IPA 1"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "STU-001", got[0].ID)
		assert.Equal(t, "STU-002", got[1].ID)
	})

	t.Run("new class is added atomically", func(t *testing.T) {
		testutil.CreateStudent(t, store.Students, "STU-006", "0012345683", "Fajar Nugroho", "10 A", "")
		classes, err := store.Students.QueryClasses()
		require.NoError(t, err)
		assert.Equal(t, []string{"10 A", "12 IPA 1", "12 IPA 2", "12 IPS 1", "12 IPS 2"}, classes)
	})
}

func TestStudentRepository_UpdateStudent(t *testing.T) {
	store := testutil.NewStore(t)
	students := testutil.CreateDemoStudents(t, store.Students)

	st := students[0]
	st.Code = "0099999999"
	st.Class = "12 IPA 3"
	_, err := store.Students.UpdateStudent(st)
	require.NoError(t, err)

	_, err = store.Students.FindStudent("0012345678")
	assert.Equal(t, roster.ErrNotFound, err)
	found, err := store.Students.FindStudent("0099999999")
	require.NoError(t, err)
	assert.Equal(t, "12 IPA 3", found.Class)

	st.Code = students[1].Code
	_, err = store.Students.UpdateStudent(st)
	assert.Equal(t, roster.ErrCodeExists, err)

	_, err = store.Students.UpdateStudent(roster.Student{ID: "nope"})
	assert.Equal(t, roster.ErrNotFound, err)
}

func TestStudentRepository_Classes(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.CreateDemoStudents(t, store.Students)

	assert.Equal(t, roster.ErrClassExists, store.Students.CreateClass("12 IPA 1"))
	require.NoError(t, store.Students.CreateClass("11 IPA 1"))
	require.NoError(t, store.Students.DeleteClass("11 IPA 1"))
	assert.Equal(t, roster.ErrClassNotFound, store.Students.DeleteClass("11 IPA 1"))

	err := store.Students.DeleteClass("12 IPA 1")
	require.IsType(t, &roster.ClassNotEmptyError{}, err)
	assert.Equal(t, 2, err.(*roster.ClassNotEmptyError).Students)

	require.NoError(t, store.Students.RenameClass("12 IPA 1", "12 MIPA 1"))
	got, err := store.Students.QueryStudents(roster.QueryFilter{Class: "12 MIPA 1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	left, err := store.Students.QueryStudents(roster.QueryFilter{Class: "12 IPA 1"})
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Equal(t, roster.ErrClassExists, store.Students.RenameClass("12 MIPA 1", "12 IPA 2"))
}

func TestLedger(t *testing.T) {
	store := testutil.NewStore(t)
	students := testutil.CreateDemoStudents(t, store.Students)
	morning := testutil.At(2026, 3, 2, 7, 5)
	today := attendance.DateOf(morning, testutil.Jakarta)

	rec := testutil.AddRecord(t, store.Ledger, students[0].ID, morning, attendance.StatusPresent)
	ok, err := store.Ledger.HasRecord(students[0].ID, today)
	require.NoError(t, err)
	assert.True(t, ok)

	// same day, later: rejected
	dup := attendance.NewRecord(students[0].ID, morning.Add(time.Hour), attendance.StatusPresent, testutil.Jakarta)
	assert.Equal(t, attendance.ErrDuplicateDate, store.Ledger.Append(dup))

	// replace keeps one record per day
	sick := attendance.NewRecord(students[0].ID, morning.Add(time.Hour), attendance.StatusSick, testutil.Jakarta)
	require.NoError(t, store.Ledger.Replace(sick))
	got, err := store.Ledger.GetRecord(students[0].ID, today)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusSick, got.Status)
	assert.NotEqual(t, rec.ID, got.ID)

	all, err := store.Ledger.QueryRecords(attendance.RecordFilter{StudentID: students[0].ID})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = store.Ledger.GetRecord(students[1].ID, today)
	assert.Equal(t, attendance.ErrNoRecord, err)
}

func TestLedger_QueryRecords(t *testing.T) {
	store := testutil.NewStore(t)
	students := testutil.CreateDemoStudents(t, store.Students)

	for day := 1; day <= 3; day++ {
		for _, st := range students[:2] {
			testutil.AddRecord(t, store.Ledger, st.ID, testutil.At(2026, 3, day, 7, day), attendance.StatusPresent)
		}
	}

	recs, err := store.Ledger.QueryRecords(attendance.RecordFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, 3, recs[0].Date.Day)
	assert.Equal(t, students[1].ID, recs[0].StudentID)

	from, _ := attendance.ParseDate("2026-03-02")
	recs, err = store.Ledger.QueryRecords(attendance.RecordFilter{From: from, To: from})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestDeleteStudents_CascadesAttendance(t *testing.T) {
	store := testutil.NewStore(t)
	students := testutil.CreateDemoStudents(t, store.Students)
	at := testutil.At(2026, 3, 2, 7, 0)
	testutil.AddRecord(t, store.Ledger, students[0].ID, at, attendance.StatusPresent)
	testutil.AddRecord(t, store.Ledger, students[1].ID, at, attendance.StatusPresent)

	require.NoError(t, store.Students.DeleteStudents(students[0].ID))

	recs, err := store.Ledger.QueryRecords(attendance.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, students[1].ID, recs[0].StudentID)

	date := attendance.DateOf(at, testutil.Jakarta)
	view, err := store.Reports.Snapshot("12 IPA 1", date, date)
	require.NoError(t, err)
	assert.Len(t, view.Students, 1)
	assert.Len(t, view.Records, 1)
}

func TestLogRepository(t *testing.T) {
	store := testutil.NewStore(t)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Logs.AppendLog(dispatch.LogEntry{ID: id, Status: dispatch.LogSent}))
	}

	logs, err := store.Logs.QueryLogs(2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "c", logs[0].ID)
	assert.Equal(t, "b", logs[1].ID)

	require.NoError(t, store.Logs.ClearLogs())
	logs, err = store.Logs.QueryLogs(0)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSnapshotStore_Restore(t *testing.T) {
	store := testutil.NewStore(t)
	students := testutil.CreateDemoStudents(t, store.Students)
	testutil.AddRecord(t, store.Ledger, students[0].ID, testutil.At(2026, 3, 2, 7, 0), attendance.StatusPresent)

	// students replaced, attendance kept: orphaned records go away
	keep := students[1]
	require.NoError(t, store.Snapshot.Restore(snapshot.State{Students: []roster.Student{keep}}))

	st, err := store.Snapshot.Dump()
	require.NoError(t, err)
	assert.Equal(t, []roster.Student{keep}, st.Students)
	assert.Empty(t, st.Records)
	assert.Contains(t, st.Classes, keep.Class)

	name := "SMA Negeri 1"
	require.NoError(t, store.Snapshot.Restore(snapshot.State{SchoolName: &name}))
	s, err := store.Settings.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, name, s.SchoolName)
}
