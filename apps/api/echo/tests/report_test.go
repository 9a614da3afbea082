package tests

import (
	"bytes"
	"net/http"
	"net/url"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/siabdul/apps/api/echo"
	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/report"
	"github.com/trezcool/siabdul/core/retry"
	testutil "github.com/trezcool/siabdul/tests"
)

// seedDay records Monday 2 March 2026: Ahmad present, Budi late, Citra sick, Eko absent.
// Dewi has no record.
func seedDay(t *testing.T, e *env) {
	testutil.AddRecord(t, e.store.Ledger, "STU-001", testutil.At(2026, 3, 2, 6, 50), attendance.StatusPresent)
	testutil.AddRecord(t, e.store.Ledger, "STU-002", testutil.At(2026, 3, 2, 7, 20), attendance.StatusLate)
	testutil.AddRecord(t, e.store.Ledger, "STU-003", testutil.At(2026, 3, 2, 8, 0), attendance.StatusSick)
	testutil.AddRecord(t, e.store.Ledger, "STU-005", testutil.At(2026, 3, 2, 8, 0), attendance.StatusAbsent)
	// previous month, outside every default window
	testutil.AddRecord(t, e.store.Ledger, "STU-001", testutil.At(2026, 2, 27, 7, 0), attendance.StatusPresent)
}

func Test_reportApi_daily(t *testing.T) {
	e := setup(t, nil)
	seedDay(t, e)

	req, rec := newRequest(http.MethodGet, "/api/reports/daily?"+url.Values{"class": {"12 IPA 1"}}.Encode())
	e.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sheets []report.DailySheet
	decode(t, rec, &sheets)
	require.Len(t, sheets, 1)
	assert.Equal(t, "2026-03-02", sheets[0].Date)
	assert.Equal(t, []report.DailyRow{
		{No: 1, Code: "0012345678", Name: "Ahmad Santoso", Class: "12 IPA 1", Date: "2026-03-02", TimeIn: "06:50", Status: report.LabelPresent},
		{No: 2, Code: "0012345679", Name: "Budi Pratama", Class: "12 IPA 1", Date: "2026-03-02", TimeIn: "07:20", Status: report.LabelPresent},
	}, sheets[0].Rows)

	// every class, CSV
	req, rec = newRequest(http.MethodGet, "/api/reports/daily?format=csv")
	e.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="daily_2026-03-02.csv"`, rec.Header().Get("Content-Disposition"))

	all, err := e.app.Reports.Daily("", attendance.Date{Year: 2026, Month: 3, Day: 2})
	require.NoError(t, err)
	require.Len(t, all, 4)
	var want bytes.Buffer
	require.NoError(t, report.WriteDailyCSV(&want, all...))
	assert.Equal(t, want.String(), rec.Body.String())
	assert.Contains(t, rec.Body.String(), "1,0012345681,Dewi Lestari,12 IPS 1,2026-03-02,-,No Information")

	tests := []httpTest{
		{
			name: "another date", path: "/api/reports/daily?class=12+IPS+2&date=2026-02-27", wantCode: http.StatusOK,
			wantData: marshalList(t, report.DailySheet{Class: "12 IPS 2", Date: "2026-02-27", Rows: []report.DailyRow{
				{No: 1, Code: "0012345682", Name: "Eko Kurniawan", Class: "12 IPS 2", Date: "2026-02-27", TimeIn: "-", Status: report.LabelNoInfo},
			}}),
		},
		{
			name: "bad date", path: "/api/reports/daily?date=02-03-2026",
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"date": attendance.ErrInvalidDate.Error()}),
		},
	}
	runHTTPTests(t, e, tests)
}

func Test_reportApi_monthly(t *testing.T) {
	e := setup(t, nil)
	seedDay(t, e)

	req, rec := newRequest(http.MethodGet, "/api/reports/monthly?class=12+IPA+1")
	e.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var matrices []report.MonthlyMatrix
	decode(t, rec, &matrices)
	require.Len(t, matrices, 1)
	m := matrices[0]
	require.Len(t, m.Rows, 2)
	assert.Len(t, m.Rows[0].Cells, 31)
	assert.Equal(t, "H", m.Rows[0].Cells[1])
	assert.Equal(t, 1, m.Rows[0].H)
	assert.Equal(t, 1, m.Rows[1].H) // late counts as present

	req, rec = newRequest(http.MethodGet, "/api/reports/monthly?class=12+IPA+1&month=2026-02&format=CSV")
	e.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="monthly_2026-02.csv"`, rec.Header().Get("Content-Disposition"))

	feb, err := e.app.Reports.Monthly("12 IPA 1", report.Month{Year: 2026, Month: 2})
	require.NoError(t, err)
	var want bytes.Buffer
	require.NoError(t, report.WriteMonthlyCSV(&want, feb...))
	assert.Equal(t, want.String(), rec.Body.String())

	runHTTPTests(t, e, []httpTest{
		{
			name: "bad month", path: "/api/reports/monthly?month=2026-13",
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"month": report.ErrInvalidMonth.Error()}),
		},
	})
}

func Test_reportApi_stats(t *testing.T) {
	e := setup(t, nil)
	seedDay(t, e)

	req, rec := newRequest(http.MethodGet, "/api/reports/stats")
	e.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stats report.Stats
	decode(t, rec, &stats)
	assert.Equal(t, "2026-03-02", stats.Date)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Present)
	assert.Equal(t, 1, stats.Sick)
	assert.Equal(t, 0, stats.Permission)
	assert.Equal(t, 1, stats.Absent)
	assert.Equal(t, 1, stats.NoInfo)
	assert.Equal(t, 40, stats.Rate)
	require.Len(t, stats.Classes, 4)
	assert.Equal(t, report.ClassStat{Class: "12 IPA 1", Total: 2, Present: 2, Rate: 100}, stats.Classes[0])
}

func Test_reportApi_summary(t *testing.T) {
	t.Run("generated", func(t *testing.T) {
		e := setup(t, summarizerMock{text: "**Kehadiran baik.**"})
		seedDay(t, e)

		req, rec := newRequest(http.MethodGet, "/api/reports/summary")
		e.do(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var sum report.Summary
		decode(t, rec, &sum)
		assert.True(t, sum.Generated)
		assert.Equal(t, "**Kehadiran baik.**", sum.Text)
		assert.Equal(t, "40.0%", sum.Data.AttendanceRate)
		assert.Equal(t, []string{"Ahmad Santoso", "Budi Pratama"}, sum.Data.PresentNames)
	})

	for name, tc := range map[string]struct {
		sum  report.Summarizer
		want string
	}{
		"no summarizer": {want: "API Key not configured. Unable to generate smart report."},
		"no key":        {sum: summarizerMock{err: report.ErrSummarizerDisabled}, want: "API Key not configured. Unable to generate smart report."},
		"quota":         {sum: summarizerMock{err: &retry.RateLimitError{Attempts: 4, Err: errors.New("429 Too Many Requests")}}, want: "Unable to generate report: API Quota Exceeded. Please try again later."},
		"failure":       {sum: summarizerMock{err: errors.New("boom")}, want: "Failed to generate report due to an error."},
	} {
		t.Run(name, func(t *testing.T) {
			e := setup(t, tc.sum)
			req, rec := newRequest(http.MethodGet, "/api/reports/summary?date=2026-03-02")
			e.do(req, rec)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var sum report.Summary
			decode(t, rec, &sum)
			assert.False(t, sum.Generated)
			assert.Equal(t, tc.want, sum.Text)
		})
	}
}

func Test_reportApi_emailSummary(t *testing.T) {
	e := setup(t, summarizerMock{text: "# Laporan\n\n**12 IPA 1** hadir semua."})
	seedDay(t, e)

	runHTTPTests(t, e, []httpTest{
		{
			name: "no recipients", method: http.MethodPost, path: "/api/reports/summary/email", body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"recipients": "at least one recipient is required"}),
		},
		{
			name: "invalid recipient", method: http.MethodPost, path: "/api/reports/summary/email",
			body: marshalObj(t, echoapi.EmailSummaryRequest{To: []string{"not-an-email"}}), wantCode: http.StatusBadRequest,
		},
	})
	assert.Empty(t, e.mailer.Sent)

	req, rec := newRequest(http.MethodPost, "/api/reports/summary/email",
		marshalObj(t, echoapi.EmailSummaryRequest{To: []string{"kepala@riyadlul-ulum.sch.id"}}))
	e.do(req, rec)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	require.Len(t, e.mailer.Sent, 1)
	msg := e.mailer.Sent[0]
	assert.Equal(t, "MTs Riyadlul Ulum: Attendance report 2026-03-02", msg.Subject)
	require.Len(t, msg.To, 1)
	assert.Equal(t, "kepala@riyadlul-ulum.sch.id", msg.To[0].Address)
	assert.Contains(t, msg.HTMLContent, "<strong>12 IPA 1</strong>")
}
