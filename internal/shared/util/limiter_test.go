package util

import (
	"context"
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	// 10 tokens per second, burst of 2
	l := NewLimiter(10, 2)

	if !l.Allow(1) {
		t.Error("expected first token to be allowed")
	}
	if !l.Allow(1) {
		t.Error("expected second token to be allowed (burst)")
	}
	if l.Allow(1) {
		t.Error("expected third token to be rejected (burst exhausted)")
	}

	time.Sleep(150 * time.Millisecond)
	if !l.Allow(1) {
		t.Error("expected token to be refilled after wait")
	}
}

func TestPerSecondLimiterDisabled(t *testing.T) {
	l := NewPerSecondLimiter(0)
	if l != nil {
		t.Fatal("expected nil limiter for zero rate")
	}
	for i := 0; i < 10; i++ {
		if !l.Allow(1) {
			t.Fatal("nil limiter must never throttle")
		}
	}
	if err := l.Wait(context.Background(), 1); err != nil {
		t.Fatalf("nil limiter Wait: %v", err)
	}
}

func TestLimiterWaitCanceled(t *testing.T) {
	l := NewPerSecondLimiter(1)
	if !l.Allow(1) {
		t.Fatal("expected first refresh to be allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, 1); err == nil {
		t.Fatal("expected Wait to fail when the deadline is shorter than the refill")
	}
}
