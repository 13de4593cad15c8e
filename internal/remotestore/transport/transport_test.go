package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRetriesRateLimitThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "t", RatePerSecond: 1000, Burst: 1000})

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.Do(context.Background(), http.MethodGet, "/x", nil, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.EqualValues(t, 4, atomic.LoadInt32(&calls))
}

func TestDoSurfacesNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "t", RatePerSecond: 1000, Burst: 1000})
	err := c.Do(context.Background(), http.MethodGet, "/missing", nil, nil)
	require.Error(t, err)
}

func TestDoHonorsContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "t", RatePerSecond: 1000, Burst: 1000})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Do(ctx, http.MethodGet, "/x", nil, nil)
	require.Error(t, err)
}
