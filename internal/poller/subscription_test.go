package poller

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestFirstTickWaitsForInterval(t *testing.T) {
	sub := New(50*time.Millisecond, nil)

	var ticks atomic.Int32
	if err := sub.Start("general", func(string) { ticks.Add(1) }); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sub.Stop()

	time.Sleep(15 * time.Millisecond)
	if n := ticks.Load(); n != 0 {
		t.Fatalf("no tick expected before the first interval, got %d", n)
	}

	deadline := time.After(time.Second)
	for ticks.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected repeated ticks, got %d", ticks.Load())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestTicksCarryRoom(t *testing.T) {
	sub := New(10*time.Millisecond, nil)

	rooms := make(chan string, 8)
	if err := sub.Start("random", func(room string) {
		select {
		case rooms <- room:
		default:
		}
	}); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sub.Stop()

	select {
	case got := <-rooms:
		if got != "random" {
			t.Fatalf("want room random, got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for tick")
	}
	if sub.Room() != "random" || !sub.Active() {
		t.Fatalf("subscription should report active room")
	}
}

func TestStartTwiceFails(t *testing.T) {
	sub := New(time.Hour, nil)
	if err := sub.Start("general", func(string) {}); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sub.Stop()

	if err := sub.Start("random", func(string) {}); !errors.Is(err, ErrActive) {
		t.Fatalf("expected ErrActive, got %v", err)
	}
	if sub.Room() != "general" {
		t.Fatalf("failed start must not rebind room, got %q", sub.Room())
	}
}

func TestStopIsIdempotentAndFinal(t *testing.T) {
	sub := New(5*time.Millisecond, nil)
	sub.Stop() // inactive: no-op

	var ticks atomic.Int32
	if err := sub.Start("general", func(string) { ticks.Add(1) }); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	sub.Stop()
	sub.Stop()

	after := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if n := ticks.Load(); n != after {
		t.Fatalf("ticks fired after Stop returned: %d -> %d", after, n)
	}
	if sub.Active() {
		t.Fatalf("subscription should be inactive")
	}

	// A stopped subscription can be started again for another room.
	if err := sub.Start("random", func(string) {}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	sub.Stop()
}
