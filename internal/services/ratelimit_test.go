package services

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	limiter := NewRateLimiter(3, 10*time.Minute)
	for i := 0; i < 3; i++ {
		if !limiter.Allow("acct-1", "ingestion/upload") {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("acct-1", "ingestion/upload") {
		t.Error("Fourth request should be blocked")
	}
}

func TestRateLimiterIsolatesAccountsAndKeys(t *testing.T) {
	limiter := NewRateLimiter(1, 10*time.Minute)
	if !limiter.Allow("acct-1", "ingestion/upload") {
		t.Fatal("First request should be allowed")
	}
	if limiter.Allow("acct-1", "ingestion/upload") {
		t.Error("Second request on same bucket should be blocked")
	}
	if !limiter.Allow("acct-2", "ingestion/upload") {
		t.Error("Different account should have its own bucket")
	}
	if !limiter.Allow("acct-1", "insights/generate") {
		t.Error("Different operation should have its own bucket")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	current := time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(2, 10*time.Minute)
	limiter.now = func() time.Time { return current }

	if !limiter.Allow("acct-1", "op") || !limiter.Allow("acct-1", "op") {
		t.Fatal("First two requests should be allowed")
	}
	if limiter.Allow("acct-1", "op") {
		t.Fatal("Third request inside window should be blocked")
	}

	current = current.Add(11 * time.Minute)
	if !limiter.Allow("acct-1", "op") {
		t.Error("Request after the window elapsed should be allowed")
	}
}
