package poller

import (
	"testing"
	"time"
)

func TestExponentialBackoff_NoJitter(t *testing.T) {
	b := &ExponentialBackoff{
		Base:   100 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2.0,
		Jitter: 0,
	}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{10, 5 * time.Second}, // capped
	}

	for _, c := range cases {
		if got := b.Next(c.attempt); got != c.want {
			t.Errorf("Next(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestExponentialBackoff_NegativeAttempt(t *testing.T) {
	b := DefaultBackoff()
	if got := b.Next(-1); got != b.Base {
		t.Errorf("Next(-1) = %v, want base %v", got, b.Base)
	}
}

func TestExponentialBackoff_JitterBounds(t *testing.T) {
	b := &ExponentialBackoff{
		Base:   100 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2.0,
		Jitter: 0.2,
	}

	for i := 0; i < 100; i++ {
		got := b.Next(2)
		lo := time.Duration(float64(400*time.Millisecond) * 0.8)
		hi := time.Duration(float64(400*time.Millisecond) * 1.2)
		if got < lo || got > hi {
			t.Fatalf("Next(2) = %v, outside jitter bounds [%v, %v]", got, lo, hi)
		}
	}
}

func TestDefaultBackoff_StaysBelowMinInterval(t *testing.T) {
	b := DefaultBackoff()

	// The worst-case retry pass (2 sleeps at the cap, +jitter) must fit
	// inside the 10s interval floor alongside two 10s HTTP timeouts
	// never being exceeded simultaneously.
	worst := time.Duration(float64(b.Max) * (1 + b.Jitter) * 2)
	if worst >= 10*time.Second {
		t.Errorf("Worst-case backoff %v too close to the interval floor", worst)
	}
}
