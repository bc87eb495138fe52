package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient(t *testing.T) {
	t.Run("applies defaults for zero values", func(t *testing.T) {
		client := NewHTTPClient(HTTPClientConfig{})

		require.NotNil(t, client)
		assert.Equal(t, 30*time.Second, client.config.Timeout)
		assert.Equal(t, 10.0, client.config.RateLimit)
		assert.Equal(t, 1, client.config.BurstSize)
		assert.Equal(t, 0, client.config.MaxRetries)
		assert.Equal(t, time.Second, client.config.RetryDelay)
		assert.Equal(t, "PaperScroll/1.0", client.config.UserAgent)
	})

	t.Run("keeps explicit configuration", func(t *testing.T) {
		client := NewHTTPClient(HTTPClientConfig{
			Timeout:    5 * time.Second,
			RateLimit:  2,
			BurstSize:  4,
			MaxRetries: 3,
			RetryDelay: 100 * time.Millisecond,
			UserAgent:  "Custom/2.0",
		})

		assert.Equal(t, 5*time.Second, client.config.Timeout)
		assert.Equal(t, 2.0, client.config.RateLimit)
		assert.Equal(t, 4, client.config.BurstSize)
		assert.Equal(t, 3, client.config.MaxRetries)
		assert.Equal(t, 100*time.Millisecond, client.config.RetryDelay)
		assert.Equal(t, "Custom/2.0", client.config.UserAgent)
	})
}

// fastClient returns a client with a high rate limit so tests are not
// throttled, and a short retry delay so retry paths run quickly.
func fastClient(maxRetries int) *HTTPClient {
	return NewHTTPClient(HTTPClientConfig{
		RateLimit:  1000,
		BurstSize:  100,
		MaxRetries: maxRetries,
		RetryDelay: 10 * time.Millisecond,
	})
}

func TestHTTPClient_Do(t *testing.T) {
	t.Run("sets default User-Agent", func(t *testing.T) {
		var gotUA string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := fastClient(0)
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "PaperScroll/1.0", gotUA)
	})

	t.Run("preserves an explicit User-Agent", func(t *testing.T) {
		var gotUA string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := fastClient(0)
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "Caller/1.0")

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "Caller/1.0", gotUA)
	})

	t.Run("retries on 429 and succeeds", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := fastClient(2)
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("honors Retry-After seconds on 429", func(t *testing.T) {
		var attempts atomic.Int32
		var secondAt time.Time
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) == 1 {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			secondAt = time.Now()
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := fastClient(1)
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		start := time.Now()
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.GreaterOrEqual(t, secondAt.Sub(start), 900*time.Millisecond,
			"retry should respect the Retry-After header")
	})

	t.Run("retries on 5xx", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := fastClient(3)
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("fails after max retries exhausted", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := fastClient(2)
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		_, err = client.Do(req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max retries exhausted")
		assert.Contains(t, err.Error(), "500")
		assert.Equal(t, int32(3), attempts.Load(), "initial attempt plus two retries")
	})

	t.Run("does not retry on 4xx other than 429", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := fastClient(3)
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("returns context error during retry wait", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewHTTPClient(HTTPClientConfig{
			RateLimit:  1000,
			BurstSize:  100,
			MaxRetries: 5,
			RetryDelay: time.Second,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		_, err = client.Do(req)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("returns error for canceled context before request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := fastClient(0)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		_, err = client.Do(req)
		assert.Error(t, err)
	})

	t.Run("rate limits successive requests", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		// 10 req/sec with burst 1: the second request waits ~100ms.
		client := NewHTTPClient(HTTPClientConfig{RateLimit: 10, BurstSize: 1})

		start := time.Now()
		for i := 0; i < 2; i++ {
			req, err := http.NewRequest(http.MethodGet, server.URL, nil)
			require.NoError(t, err)
			resp, err := client.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
		}

		assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	})
}

func TestHTTPClient_shouldRetry(t *testing.T) {
	client := NewHTTPClient(HTTPClientConfig{})

	tests := []struct {
		statusCode int
		want       bool
	}{
		{http.StatusOK, false},
		{http.StatusNoContent, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.statusCode), func(t *testing.T) {
			assert.Equal(t, tt.want, client.shouldRetry(tt.statusCode))
		})
	}
}

func TestHTTPClient_getRetryDelay(t *testing.T) {
	client := NewHTTPClient(HTTPClientConfig{RetryDelay: 2 * time.Second})

	makeResp := func(retryAfter string) *http.Response {
		resp := &http.Response{Header: http.Header{}}
		if retryAfter != "" {
			resp.Header.Set("Retry-After", retryAfter)
		}
		return resp
	}

	t.Run("no header uses configured delay", func(t *testing.T) {
		assert.Equal(t, 2*time.Second, client.getRetryDelay(makeResp("")))
	})

	t.Run("seconds value", func(t *testing.T) {
		assert.Equal(t, 5*time.Second, client.getRetryDelay(makeResp("5")))
	})

	t.Run("zero seconds falls back to configured delay", func(t *testing.T) {
		assert.Equal(t, 2*time.Second, client.getRetryDelay(makeResp("0")))
	})

	t.Run("HTTP date in the future", func(t *testing.T) {
		future := time.Now().Add(3 * time.Second).UTC().Format(http.TimeFormat)
		delay := client.getRetryDelay(makeResp(future))
		assert.Greater(t, delay, time.Second)
		assert.LessOrEqual(t, delay, 3*time.Second)
	})

	t.Run("HTTP date in the past falls back to configured delay", func(t *testing.T) {
		past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
		assert.Equal(t, 2*time.Second, client.getRetryDelay(makeResp(past)))
	})

	t.Run("garbage header falls back to configured delay", func(t *testing.T) {
		assert.Equal(t, 2*time.Second, client.getRetryDelay(makeResp("soon")))
	})
}
