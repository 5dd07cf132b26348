package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/logging"
	"JobsScanner/internal/metrics"
)

func testConfig() Config {
	return Config{
		MaxAttempts:    3,
		AttemptTimeout: 2 * time.Second,
		BackoffBase:    time.Millisecond,
		BackoffMax:     5 * time.Millisecond,
		UserAgent:      "JobsScanner-test",
	}
}

func TestGetReturnsBodyAndHeaders(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "JobsScanner-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	f := New(testConfig(), logging.Discard(), nil)
	resp, err := f.Get(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.ContentType())
	assert.Equal(t, "<html>ok</html>", string(resp.Body))
}

func TestGetRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer server.Close()

	rec := metrics.New()
	f := New(testConfig(), logging.Discard(), rec)
	resp, err := f.Get(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "recovered", string(resp.Body))
	assert.Equal(t, int32(3), hits.Load())
}

func TestGetGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := New(testConfig(), logging.Discard(), nil)
	_, err := f.Get(context.Background(), server.URL)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 3, fetchErr.Attempts)
	assert.ErrorIs(t, err, domain.ErrTransientNetwork)
	assert.Equal(t, int32(3), hits.Load())
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := New(testConfig(), logging.Discard(), nil)
	_, err := f.Get(context.Background(), server.URL)

	assert.ErrorIs(t, err, domain.ErrPermanentFetch)
	assert.Equal(t, int32(1), hits.Load())
}

func TestAttemptTimeoutCountsAsFailedAttempt(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	f := New(testConfig(), logging.Discard(), nil)
	_, err := f.Do(context.Background(), Request{
		URL:            server.URL,
		MaxAttempts:    2,
		AttemptTimeout: 50 * time.Millisecond,
	})

	assert.ErrorIs(t, err, domain.ErrTransientNetwork)
	assert.Equal(t, int32(2), hits.Load())
}

func TestTLSFailureFallsBackToUnverifiedOnce(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("self-signed"))
	}))
	defer server.Close()

	f := New(testConfig(), logging.Discard(), nil)
	resp, err := f.Get(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "self-signed", string(resp.Body))
	assert.Equal(t, int32(1), hits.Load(), "verified attempt never reaches the handler")
}

func TestTLSFallbackFailureIsPermanent(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := New(testConfig(), logging.Discard(), nil)
	_, err := f.Get(context.Background(), server.URL)
	require.Error(t, err)

	assert.ErrorIs(t, err, domain.ErrTransportSecurity)
	assert.Equal(t, int32(1), hits.Load(), "exactly one unverified retry")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 2, fetchErr.Attempts)
}

func TestCancelledContextStopsRetries(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.BackoffBase = time.Second
	cfg.BackoffMax = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	f := New(cfg, logging.Discard(), nil)
	start := time.Now()
	_, err := f.Get(ctx, server.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxBodyBytes = 16
	f := New(cfg, logging.Discard(), nil)
	_, err := f.Get(context.Background(), server.URL)

	assert.ErrorIs(t, err, domain.ErrPermanentFetch)
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	t.Parallel()

	f := New(Config{BackoffBase: time.Second, BackoffMax: 5 * time.Second}, logging.Discard(), nil)

	assert.Equal(t, time.Second, f.backoff(1))
	assert.Equal(t, 2*time.Second, f.backoff(2))
	assert.Equal(t, 4*time.Second, f.backoff(3))
	assert.Equal(t, 5*time.Second, f.backoff(4))
}
