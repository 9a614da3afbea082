package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	echoapi "github.com/trezcool/siabdul/apps/api/echo"
	"github.com/trezcool/siabdul/apps/shared"
	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/report"
	"github.com/trezcool/siabdul/core/roster"
	testutil "github.com/trezcool/siabdul/tests"
)

type summarizerMock struct {
	text string
	err  error
}

func (m summarizerMock) Summarize(context.Context, report.SummaryData) (string, error) {
	return m.text, m.err
}

type env struct {
	conf     *core.Config
	server   *echoapi.Server
	app      *shared.App
	store    *testutil.Store
	students []roster.Student
	mailer   *testutil.Mailer
	logger   *testutil.Logger
}

// setup serves the demo roster with the clock pinned to Monday 2 March 2026, 07:05.
func setup(t *testing.T, sum report.Summarizer) *env {
	testutil.FixNow(t, &attendance.NowFunc, testutil.At(2026, 3, 2, 7, 5))

	e := &env{
		conf:   testutil.Config(),
		store:  testutil.NewStore(t),
		mailer: &testutil.Mailer{},
		logger: &testutil.Logger{},
	}
	e.conf.ReportRecipients = nil
	e.students = testutil.CreateDemoStudents(t, e.store.Students)
	e.app = shared.New(e.conf, e.store.DB, shared.Adapters{Mailer: e.mailer, Summarizer: sum}, e.logger, nil)

	deps := e.app.ServerDeps(e.conf, e.logger)
	deps.DisableReqLogs = true
	e.server = echoapi.NewServer(deps)
	return e
}

func (e *env) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	e.server.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

// newUploadRequest posts `content` as the multipart `file` field, with extra form `fields`.
func newUploadRequest(t *testing.T, path string, content []byte, fields map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("newUploadRequest(): %v", err)
		}
	}
	fw, err := w.CreateFormFile("file", "upload")
	if err != nil {
		t.Fatalf("newUploadRequest(): %v", err)
	}
	if _, err := io.Copy(fw, bytes.NewReader(content)); err != nil {
		t.Fatalf("newUploadRequest(): %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newUploadRequest(): %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, httptest.NewRecorder()
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshalList(): %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, e *env, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newRequest(method, tt.path, tt.body)
			checkCodeAndData(t, tt, e.do(req, rec))
		})
	}
}
