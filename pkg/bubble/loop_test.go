package bubble

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/bubblemap/pkg/geom"
)

func TestLoopSerialisesUpdates(t *testing.T) {
	m := newFakeMap(1024, 768)
	m.set("a", 300, 300)
	m.set("b", 700, 300)

	frames := make(chan Frame, 16)
	e := New(m, DefaultConfig(), WithOnFrame(func(f Frame) { frames <- f }))
	loop := NewLoop(e, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	// Both tickets are taken before either runs; only the second commits.
	loop.Update([]Entry{{ID: "a"}})
	loop.Update([]Entry{{ID: "a"}, {ID: "b"}})

	select {
	case f := <-frames:
		if len(f.Bubbles) != 2 {
			t.Errorf("first committed frame has %d bubbles, want 2", len(f.Bubbles))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame committed")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if loop.Post(func(*Engine) {}) {
		t.Error("Post() succeeded after the loop stopped")
	}
}

func TestLoopDebouncesViewportEvents(t *testing.T) {
	m := newFakeMap(1024, 768)
	m.set("a", 500, 400)

	frames := make(chan Frame, 64)
	cfg := DefaultConfig()
	cfg.Debounce = 5 * time.Millisecond
	e := New(m, cfg, WithOnFrame(func(f Frame) { frames <- f }))
	loop := NewLoop(e, time.Millisecond)
	loop.Attach(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	loop.Update([]Entry{{ID: "a"}})
	first := <-frames
	start, _ := first.Bubble("a")

	for range 10 {
		m.pan(geom.V(-1, 0))
	}

	want := start.Position.Add(geom.V(-10, 0))
	coalesced := 0
	timeout := time.After(2 * time.Second)
	for {
		select {
		case f := <-frames:
			coalesced += f.Stats.Coalesced
			if v, _ := f.Bubble("a"); v.Position == want {
				if coalesced == 0 || coalesced > 10 {
					t.Errorf("coalesced %d events, want between 1 and 10", coalesced)
				}
				return
			}
		case <-timeout:
			t.Fatalf("bubble never reached %v", want)
		}
	}
}
