package viewport

import (
	"testing"
	"time"

	"github.com/matzehuels/bubblemap/pkg/geom"
)

type fakeProjector struct {
	vp      geom.Rect
	anchors map[string]Anchor
}

func (f *fakeProjector) Anchor(id string) (Anchor, bool) {
	a, ok := f.anchors[id]
	return a, ok
}

func (f *fakeProjector) Viewport() geom.Rect { return f.vp }

func TestDebouncer(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(100 * time.Millisecond)

	if d.Due(t0) {
		t.Fatal("Due() with nothing pending")
	}
	for i := 0; i < 5; i++ {
		d.Trigger(t0.Add(time.Duration(i) * 30 * time.Millisecond))
	}
	last := t0.Add(120 * time.Millisecond)

	tests := []struct {
		at   time.Duration
		want bool
	}{
		{150 * time.Millisecond, false},
		{219 * time.Millisecond, false},
		{220 * time.Millisecond, true},
		{time.Second, true},
	}
	for _, tt := range tests {
		if got := d.Due(t0.Add(tt.at)); got != tt.want {
			t.Errorf("Due(+%v) = %v, want %v (last trigger at %v)", tt.at, got, tt.want, last.Sub(t0))
		}
	}
	if n := d.Flush(); n != 5 {
		t.Errorf("Flush() = %d, want 5", n)
	}
	if d.Pending() || d.Due(t0.Add(time.Hour)) {
		t.Error("still pending after Flush")
	}
}

func TestHysteresis(t *testing.T) {
	h := Hysteresis{Hide: 40, Show: 10}
	vp := geom.Rect{W: 800, H: 600}

	tests := []struct {
		name   string
		p      geom.Vec
		hidden bool
		want   bool
	}{
		{"inside visible", geom.V(400, 300), false, true},
		{"inside hidden", geom.V(400, 300), true, true},
		{"in band stays visible", geom.V(-30, 300), false, true},
		{"in band stays hidden", geom.V(-30, 300), true, false},
		{"beyond hide margin", geom.V(-50, 300), false, false},
		{"within show margin", geom.V(-5, 300), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Visible(vp, tt.p, tt.hidden); got != tt.want {
				t.Errorf("Visible(%v, hidden=%v) = %v, want %v", tt.p, tt.hidden, got, tt.want)
			}
		})
	}
}

func TestSynchronizerPlan(t *testing.T) {
	offset := geom.V(40, -60)
	proj := &fakeProjector{
		vp: geom.Rect{W: 800, H: 600},
		anchors: map[string]Anchor{
			"relayout":  {Center: geom.V(300, 300), Radius: 8},
			"translate": {Center: geom.V(200, 200), Radius: 8},
			"hold":      {Center: geom.V(500, 500), Radius: 8},
			"hide":      {Center: geom.V(-200, 300), Radius: 8},
			"unhide":    {Center: geom.V(400, 100), Radius: 8},
		},
	}
	s := NewSynchronizer(proj, Hysteresis{Hide: 48, Show: 16})

	tracked := []Tracked{
		{ID: "relayout", Position: geom.V(390, 250), Anchor: geom.V(400, 300)},
		{ID: "translate", Position: geom.V(340, 240), Anchor: geom.V(300, 300), Offset: &offset},
		{ID: "hold", Position: geom.V(10, 10), Anchor: geom.V(0, 0), Dragging: true},
		{ID: "hide", Position: geom.V(0, 250), Anchor: geom.V(10, 300)},
		{ID: "unhide", Position: geom.V(-50, 30), Anchor: geom.V(-40, 80), Hidden: true},
		{ID: "gone", Position: geom.V(1, 2)},
	}
	want := []struct {
		action Action
		seed   geom.Vec
	}{
		{Relayout, geom.V(290, 250)},
		{Translate, geom.V(240, 140)},
		{Hold, geom.V(10, 10)},
		{Hide, geom.V(-210, 250)},
		{Unhide, geom.V(390, 50)},
		{Orphan, geom.V(1, 2)},
	}

	got := s.Plan(tracked)
	if len(got) != len(want) {
		t.Fatalf("Plan() returned %d decisions, want %d", len(got), len(want))
	}
	for i, d := range got {
		if d.ID != tracked[i].ID {
			t.Errorf("[%d] ID = %s, want %s", i, d.ID, tracked[i].ID)
		}
		if d.Action != want[i].action || d.Seed != want[i].seed {
			t.Errorf("%s: got %v seed %v, want %v seed %v", d.ID, d.Action, d.Seed, want[i].action, want[i].seed)
		}
	}
}

func TestSynchronizerTranslatePreservesPanDelta(t *testing.T) {
	offset := geom.V(40, 0)
	proj := &fakeProjector{
		vp:      geom.Rect{W: 800, H: 600},
		anchors: map[string]Anchor{"a": {Center: geom.V(300, 300)}},
	}
	s := NewSynchronizer(proj, DefaultHysteresis())
	before := Tracked{ID: "a", Position: geom.V(440, 300), Anchor: geom.V(400, 300), Offset: &offset}

	d := s.Plan([]Tracked{before})[0]
	if want := before.Position.Add(geom.V(-100, 0)); d.Seed != want {
		t.Errorf("Seed = %v, want %v", d.Seed, want)
	}
}

func TestNewSynchronizerCapsShowMargin(t *testing.T) {
	s := NewSynchronizer(&fakeProjector{}, Hysteresis{Hide: 10, Show: 30})
	if h := s.Hysteresis(); h.Show != 10 {
		t.Errorf("Show = %v, want 10", h.Show)
	}
}
