package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/siabdul/apps/api/echo"
	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/dispatch"
	"github.com/trezcool/siabdul/core/roster"
)

func scanBody(t *testing.T, code string) []byte {
	return marshalObj(t, echoapi.ScanRequest{Code: code})
}

func todayRecord(t *testing.T, e *env, st roster.Student) attendance.Record {
	rec, err := e.store.Ledger.GetRecord(st.ID, attendance.DateOf(attendance.NowFunc(), e.conf.Location))
	require.NoError(t, err)
	return rec
}

func Test_scanApi(t *testing.T) {
	e := setup(t, nil)
	ahmad, budi := e.students[0], e.students[1]

	// first scan records the arrival
	req, rec := newRequest(http.MethodPost, "/api/scan", scanBody(t, " 0012345678 "))
	e.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	recorded := attendance.Result{
		Outcome: attendance.OutcomeRecorded,
		Student: ahmad,
		Record:  todayRecord(t, e, ahmad),
		Message: "Verifikasi Berhasil",
	}
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, recorded)}, rec)
	assert.Equal(t, attendance.StatusPresent, recorded.Record.Status)

	duplicate := attendance.Result{
		Outcome: attendance.OutcomeDuplicate,
		Student: ahmad,
		Record:  recorded.Record,
		Message: "Ahmad Santoso sudah tercatat hadir pukul 07:05.",
	}

	tests := []httpTest{
		{
			name: "same code again is a duplicate", method: http.MethodPost, path: "/api/scan", body: scanBody(t, "0012345678"),
			wantCode: http.StatusOK, wantData: marshalObj(t, duplicate),
		},
		{
			name: "legacy id of the same student is a duplicate", method: http.MethodPost, path: "/api/scan", body: scanBody(t, "STU-001"),
			wantCode: http.StatusOK, wantData: marshalObj(t, duplicate),
		},
		{name: "last", path: "/api/scan/last", wantCode: http.StatusOK, wantData: marshalObj(t, recorded)},
		{name: "next", method: http.MethodPost, path: "/api/scan/next", wantCode: http.StatusNoContent},
		{name: "last after next", path: "/api/scan/last", wantCode: http.StatusNoContent},
		{
			name: "rescan after next is a duplicate", method: http.MethodPost, path: "/api/scan", body: scanBody(t, "0012345678"),
			wantCode: http.StatusOK, wantData: marshalObj(t, duplicate),
		},
		{
			name: "unknown code", method: http.MethodPost, path: "/api/scan", body: scanBody(t, "9999999999"),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "unknown student code: 9999999999"}),
		},
		{
			name: "empty input", method: http.MethodPost, path: "/api/scan", body: scanBody(t, "  "),
			wantCode: http.StatusOK, wantData: marshalObj(t, attendance.Result{Outcome: attendance.OutcomeIgnored}),
		},
		{
			name: "typing a partial code", method: http.MethodPost, path: "/api/scan/manual", body: scanBody(t, "00123"),
			wantCode: http.StatusOK, wantData: marshalObj(t, echoapi.TypeResponse{}),
		},
	}
	runHTTPTests(t, e, tests)

	// the unknown code left the ledger untouched
	recs, err := e.store.Ledger.QueryRecords(attendance.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	// typed input shorter than a code is not resolved
	req, rec = newRequest(http.MethodPost, "/api/scan/manual", scanBody(t, "STU-002"))
	e.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, echoapi.TypeResponse{})}, rec)

	req, rec = newRequest(http.MethodPost, "/api/scan/manual", scanBody(t, "0012345679"))
	e.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	var typed echoapi.TypeResponse
	decode(t, rec, &typed)
	require.True(t, typed.Resolved)
	require.NotNil(t, typed.Result)
	assert.Equal(t, attendance.OutcomeRecorded, typed.Result.Outcome)
	assert.Equal(t, budi, typed.Result.Student)
}

func Test_scanApi_autoSend(t *testing.T) {
	e := setup(t, nil)

	var (
		mutex   sync.Mutex
		targets []string
	)
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mutex.Lock()
		defer mutex.Unlock()
		_ = r.ParseForm()
		targets = append(targets, r.PostForm.Get("target"))
	}))
	defer gw.Close()

	cfg := dispatch.Config{Mode: dispatch.ModeGateway, GatewayURL: gw.URL, GatewayKey: "wa-key", AutoSend: true}
	req, rec := newRequest(http.MethodPut, "/api/settings", marshalObj(t, map[string]interface{}{"dispatch": cfg}))
	e.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Dewi has no guardian contact: recorded, not notified
	for code, notified := range map[string]bool{"0012345678": true, "0012345681": false} {
		e.app.Scanner.Next()
		req, rec = newRequest(http.MethodPost, "/api/scan", scanBody(t, code))
		e.do(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)

		var res attendance.Result
		decode(t, rec, &res)
		assert.Equal(t, attendance.OutcomeRecorded, res.Outcome, code)
		assert.Equal(t, notified, res.Notified, code)
	}
	assert.Equal(t, 1, e.app.Outbox.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.app.Outbox.Run(ctx) }()

	assert.Eventually(t, func() bool {
		mutex.Lock()
		defer mutex.Unlock()
		return len(targets) == 1
	}, time.Second, 5*time.Millisecond)
	mutex.Lock()
	assert.Equal(t, []string{"6281234567890"}, targets)
	mutex.Unlock()
}

func Test_attendanceApi(t *testing.T) {
	e := setup(t, nil)
	ahmad, budi, dewi := e.students[0], e.students[1], e.students[3]

	_, err := e.app.Scanner.Scan(ahmad.Code)
	require.NoError(t, err)
	arrival := todayRecord(t, e, ahmad)

	todayPath := "/api/attendance/today?" + url.Values{"class": {" 12 IPA  1"}}.Encode()
	req, rec := newRequest(http.MethodGet, todayPath)
	e.do(req, rec)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marshalList(t,
			echoapi.RosterEntry{Student: ahmad, Record: &arrival},
			echoapi.RosterEntry{Student: budi},
		),
	}, rec)

	// manual marks
	markBody := func(id string, status attendance.Status) []byte {
		return marshalObj(t, attendance.Mark{StudentID: id, Status: status})
	}
	req, rec = newRequest(http.MethodPost, "/api/attendance/mark", markBody(dewi.ID, "SICK"))
	e.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sick := todayRecord(t, e, dewi)
	assert.Equal(t, attendance.StatusSick, sick.Status)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, sick)}, rec)

	for name, tc := range map[string]struct {
		body     []byte
		wantCode int
		wantKey  string
	}{
		"late is scan only": {body: markBody(budi.ID, attendance.StatusLate), wantCode: http.StatusBadRequest, wantKey: "status"},
		"missing student":   {body: markBody("", attendance.StatusAbsent), wantCode: http.StatusBadRequest, wantKey: "student_id"},
		"unknown student":   {body: markBody("STU-404", attendance.StatusAbsent), wantCode: http.StatusNotFound, wantKey: "error"},
	} {
		t.Run(name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/attendance/mark", tc.body)
			e.do(req, rec)
			assert.Equal(t, tc.wantCode, rec.Code)
			var body map[string]string
			decode(t, rec, &body)
			assert.Contains(t, body, tc.wantKey)
		})
	}

	// feed, most recent first
	req, rec = newRequest(http.MethodGet, "/api/attendance/feed?limit=1")
	e.do(req, rec)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marshalList(t, attendance.FeedItem{
			Record:       sick,
			StudentName:  dewi.Name,
			StudentCode:  dewi.Code,
			StudentClass: dewi.Class,
			TimeIn:       "07:05",
		}),
	}, rec)

	tests := []httpTest{
		{
			name: "reset needs confirmation", method: http.MethodDelete, path: "/api/attendance",
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "resetting attendance must be confirmed"}),
		},
		{name: "reset", method: http.MethodDelete, path: "/api/attendance?confirm=true", wantCode: http.StatusNoContent},
		{name: "feed after reset", path: "/api/attendance/feed", wantCode: http.StatusOK, wantData: marshalList(t)},
	}
	runHTTPTests(t, e, tests)

	// students survive a reset
	students, err := e.app.Roster.Query(roster.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, students, len(e.students))
}
