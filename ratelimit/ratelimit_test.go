package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSchedulerWaitsFullIntervalEachTime(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	s := NewScheduler(2*time.Second, 0, clock)

	for i := 0; i < 3; i++ {
		if err := s.Wait(context.Background()); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}

	sleeps := clock.Sleeps()
	if len(sleeps) != 3 {
		t.Fatalf("sleeps=%v, want 3 entries", sleeps)
	}
	for _, d := range sleeps {
		if d != 2*time.Second {
			t.Fatalf("sleep=%s, want 2s", d)
		}
	}
}

func TestSchedulerCountsElapsedTime(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	s := NewScheduler(4*time.Second, 0, clock)

	if err := s.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	clock.Advance(3 * time.Second)
	if err := s.Wait(context.Background()); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	clock.Advance(10 * time.Second)
	if err := s.Wait(context.Background()); err != nil {
		t.Fatalf("third wait: %v", err)
	}

	sleeps := clock.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 4*time.Second || sleeps[1] != time.Second {
		t.Fatalf("sleeps=%v, want [4s 1s]", sleeps)
	}
}

func TestSchedulerPauseCountsTowardInterval(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	s := NewScheduler(2*time.Second, 0, clock)

	// send, back off 1s, resend, then send the next request
	steps := []func() error{
		func() error { return s.Wait(context.Background()) },
		func() error { return s.Pause(context.Background(), time.Second) },
		func() error { return s.Wait(context.Background()) },
		func() error { return s.Wait(context.Background()) },
	}
	var sends []time.Time
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if i != 1 {
			sends = append(sends, clock.Now())
		}
	}

	for i := 1; i < len(sends); i++ {
		if gap := sends[i].Sub(sends[i-1]); gap < 2*time.Second {
			t.Fatalf("send %d followed previous by %s, want at least 2s", i, gap)
		}
	}
}

func TestSchedulerZeroInterval(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	s := NewScheduler(0, 0, clock)
	for i := 0; i < 3; i++ {
		if err := s.Wait(context.Background()); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if len(clock.Sleeps()) != 0 {
		t.Fatalf("unexpected sleeps %v", clock.Sleeps())
	}
}

func TestSchedulerJitterBounded(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	s := NewScheduler(time.Second, 500*time.Millisecond, clock)

	for i := 0; i < 20; i++ {
		if err := s.Wait(context.Background()); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	for _, d := range clock.Sleeps() {
		if d < time.Second || d >= 1500*time.Millisecond {
			t.Fatalf("sleep %s outside [1s, 1.5s)", d)
		}
	}
}

func TestSchedulerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScheduler(time.Second, 0, NewFakeClock(time.Unix(0, 0)))
	if err := s.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSystemClockSleepZero(t *testing.T) {
	if err := (SystemClock{}).Sleep(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}
}
