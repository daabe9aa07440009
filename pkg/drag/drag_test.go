package drag

import (
	"testing"

	"github.com/matzehuels/bubblemap/pkg/geom"
)

type lockSpy struct{ suspended, resumed int }

func (l *lockSpy) SuspendPan() { l.suspended++ }
func (l *lockSpy) ResumePan()  { l.resumed++ }

func TestClickWithinThreshold(t *testing.T) {
	lock := &lockSpy{}
	c := NewController(4, lock)

	out := c.Down(Idle{}, geom.V(110, 210), geom.V(100, 200))
	out = c.Move(out.State, geom.V(113, 210))
	if out.Effect != None {
		t.Fatalf("Move within threshold: Effect = %v, want none", out.Effect)
	}
	out = c.Move(out.State, geom.V(114, 210))
	if out.Effect != None {
		t.Fatalf("Move exactly at threshold: Effect = %v, want none", out.Effect)
	}
	out = c.Up(out.State, geom.V(114, 210), geom.V(0, 0))
	if out.Effect != Clicked {
		t.Errorf("Up: Effect = %v, want clicked", out.Effect)
	}
	if lock.suspended != 0 || lock.resumed != 0 {
		t.Errorf("pan lock touched by a click: %+v", lock)
	}
}

func TestDragLifecycle(t *testing.T) {
	lock := &lockSpy{}
	c := NewController(4, lock)
	anchor := geom.V(150, 260)

	out := c.Down(Idle{}, geom.V(110, 210), geom.V(100, 200))
	out = c.Move(out.State, geom.V(130, 210))
	if out.Effect != Started {
		t.Fatalf("Effect = %v, want started", out.Effect)
	}
	if want := geom.V(120, 200); out.Position != want {
		t.Errorf("start Position = %v, want %v", out.Position, want)
	}
	if !IsDragging(out.State) {
		t.Fatalf("State = %T, want Dragging", out.State)
	}
	if lock.suspended != 1 || c.Suspended() != 1 {
		t.Errorf("suspended = %d (holding %d), want 1", lock.suspended, c.Suspended())
	}

	out = c.Move(out.State, geom.V(150, 220))
	if out.Effect != Moved || out.Position != geom.V(140, 210) {
		t.Errorf("Move = %v %v, want moved (140,210)", out.Effect, out.Position)
	}

	out = c.Up(out.State, geom.V(150, 220), anchor)
	if out.Effect != Released {
		t.Fatalf("Effect = %v, want released", out.Effect)
	}
	if want := geom.V(-10, -50); out.Offset != want {
		t.Errorf("Offset = %v, want %v", out.Offset, want)
	}
	if lock.resumed != 1 || c.Suspended() != 0 {
		t.Errorf("resumed = %d (holding %d), want 1", lock.resumed, c.Suspended())
	}
	if IsDragging(out.State) {
		t.Error("still dragging after release")
	}
}

func TestCancel(t *testing.T) {
	lock := &lockSpy{}
	c := NewController(0, lock)
	if c.Threshold() != DefaultThreshold {
		t.Fatalf("Threshold() = %v, want default", c.Threshold())
	}

	out := c.Down(Idle{}, geom.V(0, 0), geom.V(10, 10))
	out = c.Move(out.State, geom.V(50, 0))
	out = c.Cancel(out.State)
	if out.Effect != Cancelled || out.Position != geom.V(10, 10) {
		t.Errorf("Cancel = %v %v, want cancelled (10,10)", out.Effect, out.Position)
	}
	if lock.suspended != 1 || lock.resumed != 1 {
		t.Errorf("lock = %+v, want balanced", lock)
	}

	// Cancelling an idle state must not resume anything.
	c.Cancel(Idle{})
	if lock.resumed != 1 {
		t.Errorf("resumed = %d after idle cancel, want 1", lock.resumed)
	}
}

func TestPanLockBalancedAcrossDrags(t *testing.T) {
	lock := &lockSpy{}
	c := NewController(1, lock)

	a := c.Move(c.Down(Idle{}, geom.V(0, 0), geom.V(0, 0)).State, geom.V(10, 0))
	b := c.Move(c.Down(Idle{}, geom.V(0, 0), geom.V(0, 0)).State, geom.V(10, 0))
	if lock.suspended != 1 {
		t.Errorf("suspended = %d with two drags, want 1", lock.suspended)
	}
	c.Up(a.State, geom.V(10, 0), geom.V(0, 0))
	if lock.resumed != 0 {
		t.Errorf("resumed while a drag is still active")
	}
	c.Up(b.State, geom.V(10, 0), geom.V(0, 0))
	if lock.resumed != 1 {
		t.Errorf("resumed = %d, want 1", lock.resumed)
	}
}

func TestEventsWithoutPress(t *testing.T) {
	c := NewController(4, nil)
	tests := []struct {
		name string
		out  Outcome
	}{
		{"move", c.Move(Idle{}, geom.V(100, 100))},
		{"up", c.Up(Idle{}, geom.V(100, 100), geom.V(0, 0))},
		{"nil state", c.Move(nil, geom.V(1, 1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.out.Effect != None {
				t.Errorf("Effect = %v, want none", tt.out.Effect)
			}
		})
	}
}
