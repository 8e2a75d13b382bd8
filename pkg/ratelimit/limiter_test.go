package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterEnforcesBurst(t *testing.T) {
	now := time.Now()
	l := New(2, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow() || !l.Allow() {
		t.Fatal("first two calls must pass")
	}
	if l.Allow() {
		t.Fatal("third call within the window must be limited")
	}

	now = now.Add(61 * time.Second)
	if !l.Allow() {
		t.Fatal("call after the window must pass")
	}
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var l *Limiter
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatal("nil limiter must never block")
		}
	}
}
