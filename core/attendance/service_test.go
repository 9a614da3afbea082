package attendance_test

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/roster"
	testutil "github.com/trezcool/siabdul/tests"
)

func setupService(t *testing.T) (*attendance.Service, *testutil.Store, []roster.Student) {
	store := testutil.NewStore(t)
	students := testutil.CreateDemoStudents(t, store.Students)
	rosterSvc := roster.NewService(store.Students, &testutil.Logger{})
	return attendance.NewService(store.Ledger, rosterSvc, &testutil.Logger{}, testutil.Jakarta), store, students
}

func TestMark_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mark    attendance.Mark
		wantErr bool
	}{
		{name: "sick", mark: attendance.Mark{StudentID: "STU-001", Status: "sick"}},
		{name: "upper case", mark: attendance.Mark{StudentID: "STU-001", Status: " ABSENT "}},
		{name: "late is scan only", mark: attendance.Mark{StudentID: "STU-001", Status: "late"}, wantErr: true},
		{name: "unknown", mark: attendance.Mark{StudentID: "STU-001", Status: "holiday"}, wantErr: true},
		{name: "no student", mark: attendance.Mark{Status: "sick"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.mark.Validate()
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.IsType(t, validator.ValidationErrors{}, err)
		})
	}
}

func TestService_Mark(t *testing.T) {
	svc, store, students := setupService(t)
	testutil.FixNow(t, &attendance.NowFunc, testutil.At(2026, 3, 2, 8, 0))
	today := svc.Today()

	rec, err := svc.Mark(attendance.Mark{StudentID: students[0].ID, Status: attendance.StatusSick})
	require.NoError(t, err)
	assert.Equal(t, today, rec.Date)

	// re-marking the same day replaces the record
	_, err = svc.Mark(attendance.Mark{StudentID: students[0].ID, Status: attendance.StatusPermission})
	require.NoError(t, err)
	recs, err := store.Ledger.QueryRecords(attendance.RecordFilter{StudentID: students[0].ID})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, attendance.StatusPermission, recs[0].Status)

	_, err = svc.Mark(attendance.Mark{StudentID: "STU-404", Status: attendance.StatusSick})
	assert.Equal(t, roster.ErrNotFound, err)

	unmarked, err := svc.Unmarked(students, today)
	require.NoError(t, err)
	assert.Len(t, unmarked, len(students)-1)
}

func TestService_FeedAndStatuses(t *testing.T) {
	svc, store, students := setupService(t)
	testutil.AddRecord(t, store.Ledger, students[0].ID, testutil.At(2026, 3, 2, 7, 0), attendance.StatusPresent)
	testutil.AddRecord(t, store.Ledger, students[2].ID, testutil.At(2026, 3, 2, 7, 10), attendance.StatusLate)
	testutil.AddRecord(t, store.Ledger, students[1].ID, testutil.At(2026, 3, 3, 6, 55), attendance.StatusPresent)

	feed, err := svc.Feed(2)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "Budi Pratama", feed[0].StudentName)
	assert.Equal(t, "06:55", feed[0].TimeIn)
	assert.Equal(t, "Citra Dewi", feed[1].StudentName)

	date, err := attendance.ParseDate("2026-03-02")
	require.NoError(t, err)
	statuses, err := svc.StatusesOn(date)
	require.NoError(t, err)
	assert.Len(t, statuses, 2)
	assert.Equal(t, attendance.StatusLate, statuses[students[2].ID].Status)

	require.NoError(t, svc.Reset())
	feed, err = svc.Feed(0)
	require.NoError(t, err)
	assert.Empty(t, feed)

	left, err := store.Students.QueryStudents(roster.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, left, len(students))
}

func TestParseStatus(t *testing.T) {
	st, err := attendance.ParseStatus("alpha")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusAbsent, st)

	_, err = attendance.ParseStatus("holiday")
	assert.Error(t, err)
}

func TestDate(t *testing.T) {
	d, err := attendance.ParseDate("2026-02-28")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", d.AddDays(1).String())

	// 17:30 UTC is already the next day in Jakarta
	utc := time.Date(2026, 2, 28, 17, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-02-28", attendance.DateOf(utc, nil).String())
	assert.Equal(t, "2026-03-01", attendance.DateOf(utc, testutil.Jakarta).String())

	text, err := d.MarshalText()
	require.NoError(t, err)
	var back attendance.Date
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, d, back)

	_, err = attendance.ParseDate("02/28/2026")
	assert.Equal(t, attendance.ErrInvalidDate, err)
}
