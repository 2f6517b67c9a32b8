package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFetch_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "latency-report/1.0", r.UserAgent())
		assert.Equal(t, "up", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, zaptest.NewLogger(t))
	res, err := c.Fetch(context.Background(), srv.URL+"/api/v1/query_range?query=up")
	require.NoError(t, err)
	assert.False(t, res.Absent())
	assert.Equal(t, `{"status":"success"}`, string(res.Body))
}

func TestFetch_NonOKIsAbsent(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"status":"error"}`))
		}))

		c := NewClient(5*time.Second, zaptest.NewLogger(t))
		res, err := c.Fetch(context.Background(), srv.URL)
		srv.Close()

		require.NoError(t, err, "status %d", code)
		assert.True(t, res.Absent(), "status %d", code)
		assert.Nil(t, res.Body)
		assert.Equal(t, code, res.StatusCode)
	}
}

func TestFetch_BasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "reader" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, nil)
	res, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, res.Absent())

	c.Username, c.Password = "reader", "secret"
	res, err = c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.False(t, res.Absent())
}

func TestFetch_TransportErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := NewClient(time.Second, zaptest.NewLogger(t))
	_, err := c.Fetch(context.Background(), addr)
	require.Error(t, err)
}

func TestFetch_MalformedURL(t *testing.T) {
	c := NewClient(time.Second, zaptest.NewLogger(t))
	_, err := c.Fetch(context.Background(), "http://[::1")
	require.Error(t, err)
}
