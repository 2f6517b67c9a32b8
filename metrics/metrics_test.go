package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Counts(t *testing.T) {
	r := NewRun()
	r.SheetWritten("http", 12)
	r.SheetWritten("http", 3)
	r.SheetSkipped("http")
	r.SheetWritten("repository", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.sheets.WithLabelValues("http", "written")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sheets.WithLabelValues("http", "skipped")))
	assert.Equal(t, 15.0, testutil.ToFloat64(r.rows.WithLabelValues("http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sheets.WithLabelValues("repository", "written")))
}

func TestRun_FinishFailureOmitsLastSuccess(t *testing.T) {
	r := NewRun()
	r.Finish(false, 3*time.Second, time.Unix(1700000000, 0))

	assert.Equal(t, 0.0, testutil.ToFloat64(r.success))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.duration))
	n, err := testutil.GatherAndCount(r.registry, "latency_report_last_success_timestamp_seconds")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRun_FinishSuccess(t *testing.T) {
	r := NewRun()
	r.Finish(true, time.Second, time.Unix(1700000000, 0))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.success))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.lastSuccess))
	n, err := testutil.GatherAndCount(r.registry, "latency_report_last_success_timestamp_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_Push(t *testing.T) {
	var method, path string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewRun()
	r.SheetWritten("http", 1)
	r.Finish(true, time.Second, time.Now())
	require.NoError(t, r.Push(context.Background(), srv.URL, "latency_report"))

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/metrics/job/latency_report", path)
	assert.Contains(t, string(body), "latency_report_sheets_total")
}

func TestRun_PushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewRun()
	require.Error(t, r.Push(context.Background(), srv.URL, "latency_report"))
}
