package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(t *testing.T, h http.Handler, remoteAddr string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimitAllowsBurstUpToMax(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute})(noopHandler())

	for i := range 5 {
		w := doRequest(t, h, "192.168.1.1:12345", nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}

	w := doRequest(t, h, "192.168.1.1:12345", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimitRejectionBody(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(noopHandler())

	require.Equal(t, http.StatusOK, doRequest(t, h, "10.0.0.1:9999", nil).Code)

	w := doRequest(t, h, "10.0.0.1:9999", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "Too many requests", body["message"])
}

func TestRateLimitIsolatesClients(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(noopHandler())

	assert.Equal(t, http.StatusOK, doRequest(t, h, "10.0.0.1:1234", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(t, h, "10.0.0.2:1234", nil).Code)
	// Same client IP on a new source port still shares the bucket.
	assert.Equal(t, http.StatusTooManyRequests, doRequest(t, h, "10.0.0.1:5678", nil).Code)
}

func TestRateLimitRefillsOverTime(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := RateLimitConfig{
		Max:    2,
		Window: time.Minute,
		now:    func() time.Time { return now },
	}
	h := RateLimit(cfg)(noopHandler())

	require.Equal(t, http.StatusOK, doRequest(t, h, "10.0.0.9:1", nil).Code)
	require.Equal(t, http.StatusOK, doRequest(t, h, "10.0.0.9:1", nil).Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(t, h, "10.0.0.9:1", nil).Code)

	// Half a window replenishes one token.
	now = now.Add(30 * time.Second)
	assert.Equal(t, http.StatusOK, doRequest(t, h, "10.0.0.9:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(t, h, "10.0.0.9:1", nil).Code)
}

func TestRateLimitCustomKeyFunc(t *testing.T) {
	cfg := RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-API-Key")
		},
	}
	h := RateLimit(cfg)(noopHandler())

	withKey := func(key string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("X-API-Key", key) }
	}
	assert.Equal(t, http.StatusOK, doRequest(t, h, "1.1.1.1:1", withKey("key-a")).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(t, h, "1.1.1.1:1", withKey("key-a")).Code)
	assert.Equal(t, http.StatusOK, doRequest(t, h, "1.1.1.1:1", withKey("key-b")).Code)
}

func TestRateLimitUsesForwardedForHeader(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(noopHandler())

	forwarded := func(r *http.Request) {
		r.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	}
	assert.Equal(t, http.StatusOK, doRequest(t, h, "192.168.1.1:4444", forwarded).Code)
	// Different RemoteAddr, same forwarded client IP: shared bucket.
	assert.Equal(t, http.StatusTooManyRequests, doRequest(t, h, "192.168.1.2:5555", forwarded).Code)
}
