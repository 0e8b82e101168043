package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRateLimitPerIP(t *testing.T) {
	limiter := NewIPRateLimiter(1, 2)
	handler := RateLimit(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/reports", nil)
		r.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec.Code
	}

	// The burst admits two immediate requests, the third is throttled.
	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Errorf("first request = %d, want 200", code)
	}
	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Errorf("second request = %d, want 200", code)
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", code)
	}

	// A different client has its own budget.
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other client = %d, want 200", code)
	}
}

func TestRateLimitFallsBackToRemoteAddr(t *testing.T) {
	limiter := NewIPRateLimiter(1, 1)
	handler := RateLimit(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodPost, "/api/v1/reports", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Errorf("first request = %d, want 200", rec.Code)
	}

	// Same RemoteAddr, budget exhausted.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reports", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", rec.Code)
	}
}

func TestRateLimitCountsThrottledRequests(t *testing.T) {
	throttled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "throttled_test_total",
		Help: "Throttled requests seen by the test.",
	})
	limiter := NewIPRateLimiter(1, 1)
	handler := RateLimit(limiter, throttled)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() int {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/reports", nil)
		r.Header.Set("X-Forwarded-For", "10.0.0.9")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec.Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", code)
	}
	if got := testutil.ToFloat64(throttled); got != 0 {
		t.Errorf("counter after admitted request = %v, want 0", got)
	}

	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", code)
	}
	if got := testutil.ToFloat64(throttled); got != 1 {
		t.Errorf("counter after throttled request = %v, want 1", got)
	}
}
