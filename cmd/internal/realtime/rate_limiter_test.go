package realtime

import (
	"testing"
	"time"
)

func TestFrameBudget_AllowsUpToLimit(t *testing.T) {
	now := time.Now().UTC()
	b := NewFrameBudget(50, time.Minute)

	for i := 0; i < 50; i++ {
		if !b.Allow(now.Add(time.Duration(i) * time.Second / 10)) {
			t.Fatalf("frame %d unexpectedly denied", i+1)
		}
	}
	if b.Allow(now.Add(5 * time.Second)) {
		t.Fatalf("frame 51 allowed inside the window")
	}
}

func TestFrameBudget_ResetsWhenWindowElapses(t *testing.T) {
	now := time.Now().UTC()
	b := NewFrameBudget(2, time.Minute)

	if !b.Allow(now) || !b.Allow(now) {
		t.Fatalf("budget denied within limit")
	}
	if b.Allow(now) {
		t.Fatalf("budget allowed over limit")
	}

	later := now.Add(time.Minute)
	if !b.Allow(later) {
		t.Fatalf("budget did not reset after window elapsed")
	}
}

func TestFrameBudget_DefaultsOnInvalidInputs(t *testing.T) {
	b := NewFrameBudget(0, 0)
	if b.limit != frameLimit || b.window != frameWindow {
		t.Fatalf("defaults not applied: limit=%d window=%v", b.limit, b.window)
	}
}
