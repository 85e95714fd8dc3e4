package handlers

import (
	"testing"
	"time"
)

func TestSimpleRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := newSimpleRateLimiter(2, time.Minute, func() time.Time { return now })

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatal("expected first two requests to pass")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("expected third request to be limited")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("limits are per key")
	}

	now = now.Add(61 * time.Second)
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("expected window reset")
	}
	if newSimpleRateLimiter(0, time.Minute, nil) != nil {
		t.Fatal("zero limit disables limiting")
	}
}
