package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	l := newRateLimiter(2, time.Second)
	now := time.Now()
	if !l.Allow("10.0.0.1", now) {
		t.Fatalf("first should pass")
	}
	if !l.Allow("10.0.0.1", now.Add(100*time.Millisecond)) {
		t.Fatalf("second should pass")
	}
	if l.Allow("10.0.0.1", now.Add(200*time.Millisecond)) {
		t.Fatalf("third should be blocked")
	}
	if !l.Allow("10.0.0.2", now.Add(200*time.Millisecond)) {
		t.Fatalf("other client must have its own window")
	}
	if !l.Allow("10.0.0.1", now.Add(2*time.Second)) {
		t.Fatalf("should pass after window")
	}
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	l := newRateLimiter(5, time.Second)
	now := time.Now()
	l.Allow("10.0.0.1", now)
	l.Allow("10.0.0.2", now)
	if got := l.clients(); got != 2 {
		t.Fatalf("expected 2 tracked clients, got %d", got)
	}
	l.Allow("10.0.0.3", now.Add(3*time.Second))
	if got := l.clients(); got != 1 {
		t.Fatalf("idle clients must be dropped, tracking %d", got)
	}
}

func TestServerRateLimit(t *testing.T) {
	var recorded []int
	srv := NewServer(staticResponder("static", nil),
		Config{RateLimit: 1, RateWindow: time.Hour},
		WithRecorder(func(ctx context.Context, req *Request, res *Response) {
			recorded = append(recorded, res.Status())
		}),
	)
	h := srv.Handler()

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "http://example.com/", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "http://example.com/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", second.Code)
	}
	if len(recorded) != 2 || recorded[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected recorded statuses %v", recorded)
	}
}
