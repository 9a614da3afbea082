package sumsvc_test

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/report"
	"github.com/trezcool/siabdul/core/retry"
	sumsvc "github.com/trezcool/siabdul/services/summarizer"
	testutil "github.com/trezcool/siabdul/tests"
)

var data = report.SummaryData{
	Date:           "2026-03-02",
	TotalStudents:  5,
	PresentCount:   2,
	AbsentCount:    3,
	PresentNames:   []string{"Ahmad Santoso", "Citra Dewi"},
	AbsentNames:    []string{"Budi Pratama", "Dewi Lestari", "Eko Kurniawan"},
	AttendanceRate: "40.0%",
}

func conf(baseURL string) core.SummarizerConfig {
	return core.SummarizerConfig{
		APIKey:     "gm-key",
		Model:      "gemini-3-flash-preview",
		BaseURL:    baseURL,
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
	}
}

func TestGemini_Summarize(t *testing.T) {
	var path, key string
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, key = r.URL.Path, r.URL.Query().Get("key")
		raw, _ := ioutil.ReadAll(r.Body)
		var req struct {
			Contents []struct {
				Parts []struct{ Text string } `json:"parts"`
			} `json:"contents"`
		}
		_ = json.Unmarshal(raw, &req)
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			prompt = req.Contents[0].Parts[0].Text
		}
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "# Laporan 2026-03-02"}]}}]}`))
	}))
	defer srv.Close()

	sum := sumsvc.NewGemini(conf(srv.URL+"/"), srv.Client(), &testutil.Logger{})
	text, err := sum.Summarize(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, "# Laporan 2026-03-02", text)
	assert.Equal(t, "/v1beta/models/gemini-3-flash-preview:generateContent", path)
	assert.Equal(t, "gm-key", key)
	assert.Contains(t, prompt, `"attendanceRate": "40.0%"`)
	assert.Contains(t, prompt, "Budi Pratama")
}

func TestGemini_NoKey(t *testing.T) {
	c := conf("http://127.0.0.1:0")
	c.APIKey = ""
	_, err := sumsvc.NewGemini(c, nil, &testutil.Logger{}).Summarize(context.Background(), data)
	assert.Equal(t, report.ErrSummarizerDisabled, err)
}

func TestGemini_RateLimited(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "Resource has been exhausted (e.g. check quota).", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	logger := &testutil.Logger{}
	_, err := sumsvc.NewGemini(conf(srv.URL), srv.Client(), logger).Summarize(context.Background(), data)
	require.True(t, retry.IsRateLimitExhausted(err))
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Len(t, logger.Lines(), 3)
	assert.Equal(t, "Unable to generate report: API Quota Exceeded. Please try again later.", report.FailureText(err))
}

func TestGemini_RecoversAfterRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "ok"}]}}]}`))
	}))
	defer srv.Close()

	text, err := sumsvc.NewGemini(conf(srv.URL), srv.Client(), &testutil.Logger{}).Summarize(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGemini_OtherError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	_, err := sumsvc.NewGemini(conf(srv.URL), srv.Client(), &testutil.Logger{}).Summarize(context.Background(), data)
	var apiErr *retry.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_ARGUMENT", apiErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "Failed to generate report due to an error.", report.FailureText(err))
}
