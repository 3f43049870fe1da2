package middleware

import (
	"runtime"
	"testing"
	"time"
)

func TestLimiterCapsRequestsInWindow(t *testing.T) {
	l := NewSlidingWindowLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d denied below the cap", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Error("request above the cap allowed")
	}
	if !l.Allow("5.6.7.8") {
		t.Error("unrelated client denied")
	}
}

func TestWindowSlides(t *testing.T) {
	l := NewSlidingWindowLimiter(1, 30*time.Millisecond)
	if !l.Allow("1.2.3.4") {
		t.Fatal("first request denied")
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("second request allowed inside the window")
	}
	time.Sleep(40 * time.Millisecond)
	if !l.Allow("1.2.3.4") {
		t.Error("request denied after the window passed")
	}
}

func TestStaleKeysSweptInline(t *testing.T) {
	l := NewSlidingWindowLimiter(5, 20*time.Millisecond)
	for i := 0; i < 50; i++ {
		l.Allow("client-" + string(rune('a'+i%26)))
	}
	time.Sleep(30 * time.Millisecond)
	l.Allow("fresh-client")

	l.mu.Lock()
	n := len(l.seen)
	l.mu.Unlock()
	if n != 1 {
		t.Errorf("seen map has %d keys after sweep, want 1", n)
	}
}

// The limiter must not spawn anything that outlives it.
func TestNoBackgroundGoroutine(t *testing.T) {
	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		l := NewSlidingWindowLimiter(10, time.Second)
		l.Allow("1.2.3.4")
	}
	runtime.GC()
	if after := runtime.NumGoroutine(); after > before {
		t.Errorf("goroutines grew from %d to %d after constructing limiters", before, after)
	}
}
