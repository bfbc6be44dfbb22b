package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2, time.Minute)
	start := time.Now()
	rl.now = func() time.Time { return start }

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("expected burst of 2 to be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("expected third request to be throttled")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("expected other IP to have its own bucket")
	}

	rl.now = func() time.Time { return start.Add(time.Second) }
	if !rl.Allow("10.0.0.1") {
		t.Error("expected token to be refilled after one second")
	}
}

func TestRateLimiter_ForgetsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	start := time.Now()
	rl.now = func() time.Time { return start }
	rl.Allow("10.0.0.1")

	rl.now = func() time.Time { return start.Add(2 * time.Minute) }
	rl.Allow("10.0.0.2")

	if _, ok := rl.visitors["10.0.0.1"]; ok {
		t.Error("expected idle visitor to be evicted")
	}
}

func TestRateLimiter_SweepsOncePerIdleInterval(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	start := time.Now()
	at := func(d time.Duration) { rl.now = func() time.Time { return start.Add(d) } }

	at(0)
	rl.Allow("10.0.0.1")
	at(30 * time.Second)
	rl.Allow("10.0.0.2")

	// 10.0.0.1 is idle past the limit, but the last sweep was under a minute ago
	at(90 * time.Second)
	rl.swept = start.Add(45 * time.Second)
	rl.Allow("10.0.0.3")
	if _, ok := rl.visitors["10.0.0.1"]; !ok {
		t.Fatal("expected no sweep before the idle interval elapsed")
	}

	at(106 * time.Second)
	rl.Allow("10.0.0.3")
	if _, ok := rl.visitors["10.0.0.1"]; ok {
		t.Error("expected idle visitor to be evicted by the next sweep")
	}
	if _, ok := rl.visitors["10.0.0.2"]; ok {
		t.Error("expected 10.0.0.2 (idle 76s) to be evicted")
	}
	if _, ok := rl.visitors["10.0.0.3"]; !ok {
		t.Error("expected active visitor to be kept")
	}
	if !rl.swept.Equal(start.Add(106 * time.Second)) {
		t.Errorf("expected sweep time to advance, got %v", rl.swept.Sub(start))
	}
}

func TestRateLimiter_Handler(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, time.Minute)
	dummy := &dummyHandler{}
	h := rl.Handler(dummy)

	req := httptest.NewRequest(http.MethodPost, "/api/user/login", nil)
	req.RemoteAddr = "192.0.2.7:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}

	req.RemoteAddr = "192.0.2.7:6666"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 for same IP on another port, got %d", rec.Code)
	}
}
