package bubble

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/bubblemap/pkg/geom"
	"github.com/matzehuels/bubblemap/pkg/observability"
	"github.com/matzehuels/bubblemap/pkg/viewport"
)

// fakeMap is an in-memory map used as Projector, Source and PanLock.
type fakeMap struct {
	mu        sync.Mutex
	vp        geom.Rect
	anchors   map[string]viewport.Anchor
	subs      []func(viewport.Event)
	suspended int
	resumed   int
}

func newFakeMap(w, h float64) *fakeMap {
	return &fakeMap{vp: geom.Rect{W: w, H: h}, anchors: map[string]viewport.Anchor{}}
}

func (m *fakeMap) Anchor(id string) (viewport.Anchor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.anchors[id]
	return a, ok
}

func (m *fakeMap) Viewport() geom.Rect {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vp
}

func (m *fakeMap) Subscribe(fn func(viewport.Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
	return func() {}
}

func (m *fakeMap) SuspendPan() { m.suspended++ }
func (m *fakeMap) ResumePan()  { m.resumed++ }

func (m *fakeMap) set(id string, x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anchors[id] = viewport.Anchor{Center: geom.V(x, y), Radius: 10}
}

func (m *fakeMap) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.anchors, id)
}

// pan shifts every anchor by d and notifies subscribers.
func (m *fakeMap) pan(d geom.Vec) viewport.Event {
	m.mu.Lock()
	for id, a := range m.anchors {
		a.Center = a.Center.Add(d)
		m.anchors[id] = a
	}
	ev := viewport.Event{Kind: viewport.Pan, Viewport: m.vp}
	subs := m.subs
	m.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
	return ev
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time           { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine(m *fakeMap, opts ...Option) (*Engine, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clk.now), WithSession("test")}, opts...)
	return New(m, DefaultConfig(), opts...), clk
}

// cluster places n anchors within 50px of (cx, cy); priority grows with
// distance from the centre.
func cluster(m *fakeMap, n int, cx, cy float64) []Entry {
	entries := make([]Entry, n)
	for i := range n {
		r := 50 * math.Sqrt(float64(i)/float64(n))
		a := float64(i) * 2.39996
		id := fmt.Sprintf("poi-%02d", i+1)
		m.set(id, cx+r*math.Cos(a), cy+r*math.Sin(a))
		entries[i] = Entry{ID: id, Priority: i + 1}
	}
	return entries
}

func TestUpdateRetainsTopN(t *testing.T) {
	m := newFakeMap(1024, 768)
	e, _ := newTestEngine(m)
	entries := cluster(m, 25, 512, 384)

	// Reverse the input: the engine must re-sort.
	rev := make([]Entry, len(entries))
	for i := range entries {
		rev[len(entries)-1-i] = entries[i]
	}
	if !e.Update(rev) {
		t.Fatal("Update() was not committed")
	}

	f := e.Frame()
	if len(f.Bubbles) != DefaultMaxBubbles {
		t.Fatalf("bubbles = %d, want %d", len(f.Bubbles), DefaultMaxBubbles)
	}
	for i, v := range f.Bubbles {
		if want := fmt.Sprintf("poi-%02d", i+1); v.ID != want {
			t.Errorf("bubble[%d] = %s, want %s", i, v.ID, want)
		}
	}
	if !f.Stats.Converged {
		t.Errorf("layout did not converge in %d iterations", f.Stats.Iterations)
	}

	pad := e.Config().Solver.Padding
	for i := range f.Bubbles {
		for j := i + 1; j < len(f.Bubbles); j++ {
			a, b := f.Bubbles[i].Rect(), f.Bubbles[j].Rect()
			dx, dy := a.Overlap(b, 0)
			if math.Min(dx, dy) > pad {
				t.Errorf("%s and %s overlap by %v", f.Bubbles[i].ID, f.Bubbles[j].ID, math.Min(dx, dy))
			}
		}
	}

	bounds := m.Viewport().Inset(e.Config().Solver.Margin)
	for _, v := range f.Bubbles {
		if !bounds.ContainsRect(v.Rect()) {
			t.Errorf("%s at %v outside %v", v.ID, v.Rect(), bounds)
		}
	}
}

func TestUpdateCapRetiresLowestPriority(t *testing.T) {
	m := newFakeMap(1024, 768)
	e, _ := newTestEngine(m)
	entries := cluster(m, 20, 512, 384)
	e.Update(entries)

	// A more important entry arrives; the least important bubble goes.
	m.set("vip", 700, 500)
	e.Update(append(entries, Entry{ID: "vip", Priority: 0}))

	f := e.Frame()
	if len(f.Bubbles) != DefaultMaxBubbles {
		t.Fatalf("bubbles = %d, want %d", len(f.Bubbles), DefaultMaxBubbles)
	}
	if f.Bubbles[0].ID != "vip" {
		t.Errorf("first bubble = %s, want vip", f.Bubbles[0].ID)
	}
	want := []Retirement{{ID: "poi-20", Reason: ReasonCap}}
	if len(f.Retired) != 1 || f.Retired[0] != want[0] {
		t.Errorf("Retired = %v, want %v", f.Retired, want)
	}
}

func TestUpdateIdempotent(t *testing.T) {
	m := newFakeMap(1024, 768)
	e, _ := newTestEngine(m)
	entries := cluster(m, 25, 512, 384)

	e.Update(entries)
	first := e.Frame()
	e.Update(entries)
	second := e.Frame()

	if second.Generation != first.Generation+1 {
		t.Errorf("Generation = %d, want %d", second.Generation, first.Generation+1)
	}
	for i := range first.Bubbles {
		if first.Bubbles[i].Position != second.Bubbles[i].Position {
			t.Errorf("%s drifted: %v -> %v", first.Bubbles[i].ID, first.Bubbles[i].Position, second.Bubbles[i].Position)
		}
	}

	// A viewport sync without motion must not move anything either.
	e.Sync()
	for i, v := range e.Frame().Bubbles {
		if v.Position != first.Bubbles[i].Position {
			t.Errorf("%s moved on sync: %v -> %v", v.ID, first.Bubbles[i].Position, v.Position)
		}
	}
}

func TestSingleAnchorSeedsAbove(t *testing.T) {
	m := newFakeMap(1024, 768)
	m.set("only", 512, 384)
	e, _ := newTestEngine(m)
	e.Update([]Entry{{ID: "only", Priority: 1}})

	v, ok := e.Frame().Bubble("only")
	if !ok {
		t.Fatal("bubble missing")
	}
	// 168x60 size class, 24px spiral radius above the anchor.
	if want := geom.V(428, 300); v.Position != want {
		t.Errorf("Position = %v, want %v", v.Position, want)
	}
	if v.Connector.Left.P3 != v.Connector.Right.P3 {
		t.Errorf("connector tips differ: %v vs %v", v.Connector.Left.P3, v.Connector.Right.P3)
	}
	if want := geom.V(512, 368); v.Connector.Tip != want {
		t.Errorf("Tip = %v, want %v", v.Connector.Tip, want)
	}
	standoff := e.Config().Connector.Standoff
	if d := v.Connector.Tip.Dist(v.Anchor.Center); math.Abs(d-(v.Anchor.Radius+standoff)) > 1e-9 {
		t.Errorf("tip distance = %v, want %v", d, v.Anchor.Radius+standoff)
	}
}

func TestDragOffsetSurvivesPan(t *testing.T) {
	m := newFakeMap(1024, 768)
	m.set("poi", 512, 384)

	var ended []string
	var endOffset geom.Vec
	e, clk := newTestEngine(m, WithOnDragEnd(func(id string, off geom.Vec) {
		ended = append(ended, id)
		endOffset = off
	}))
	e.Update([]Entry{{ID: "poi", Priority: 1}})
	orig, _ := e.Frame().Bubble("poi")

	grab := orig.Position.Add(geom.V(10, 10))
	e.PointerDown("poi", grab)
	e.PointerMove("poi", grab.Add(geom.V(40, 0)))
	if !e.PanSuspended() || m.suspended != 1 {
		t.Fatalf("pan not suspended during drag (suspended=%d)", m.suspended)
	}
	e.PointerUp("poi", grab.Add(geom.V(40, 0)))
	if m.resumed != 1 {
		t.Errorf("resumed = %d, want 1", m.resumed)
	}
	if len(ended) != 1 || endOffset != geom.V(-44, -84) {
		t.Errorf("drag end = %v %v, want [poi] (-44,-84)", ended, endOffset)
	}

	e.ViewportChanged(m.pan(geom.V(-100, 0)))
	if e.Tick(clk.t) {
		t.Error("Tick() committed before the debounce window passed")
	}
	clk.advance(e.Config().Debounce)
	if !e.Tick(clk.t) {
		t.Fatal("Tick() did not run the debounced sync")
	}

	got, _ := e.Frame().Bubble("poi")
	want := orig.Position.Add(geom.V(40, 0)).Add(geom.V(-100, 0))
	if got.Position != want {
		t.Errorf("Position = %v, want %v", got.Position, want)
	}
	if got.UserOffset == nil || *got.UserOffset != geom.V(-44, -84) {
		t.Errorf("UserOffset = %v, want (-44,-84)", got.UserOffset)
	}
}

func TestClickIsNotDrag(t *testing.T) {
	m := newFakeMap(1024, 768)
	m.set("poi", 512, 384)
	var clicked []string
	e, _ := newTestEngine(m, WithOnClick(func(id string) { clicked = append(clicked, id) }))
	e.Update([]Entry{{ID: "poi", Priority: 1}})
	before, _ := e.Frame().Bubble("poi")

	p := before.Position.Add(geom.V(5, 5))
	e.PointerDown("poi", p)
	e.PointerMove("poi", p.Add(geom.V(2, 2)))
	e.PointerUp("poi", p.Add(geom.V(2, 2)))

	if len(clicked) != 1 || clicked[0] != "poi" {
		t.Errorf("clicked = %v, want [poi]", clicked)
	}
	after, _ := e.Frame().Bubble("poi")
	if after.Position != before.Position || after.UserOffset != nil {
		t.Errorf("click moved bubble: %v offset %v", after.Position, after.UserOffset)
	}
	if m.suspended != 0 {
		t.Errorf("suspended = %d, want 0", m.suspended)
	}
}

func TestPointerEventsForUnknownBubble(t *testing.T) {
	m := newFakeMap(800, 600)
	e, _ := newTestEngine(m)
	if e.PointerDown("ghost", geom.V(1, 1)) || e.PointerMove("ghost", geom.V(2, 2)) ||
		e.PointerUp("ghost", geom.V(2, 2)) || e.PointerCancel("ghost") {
		t.Error("pointer event on unknown bubble was handled")
	}
}

func TestSupersededUpdateDiscarded(t *testing.T) {
	m := newFakeMap(800, 600)
	m.set("a", 200, 300)
	m.set("b", 600, 300)

	var hooks recordingHooks
	e, _ := newTestEngine(m, WithHooks(&hooks))
	stale := e.Request()
	fresh := e.Request()

	if e.UpdateAt(stale, []Entry{{ID: "a"}}) {
		t.Error("stale update committed")
	}
	if n := len(e.Frame().Bubbles); n != 0 {
		t.Errorf("bubbles after stale update = %d, want 0", n)
	}
	if !e.UpdateAt(fresh, []Entry{{ID: "b"}}) {
		t.Fatal("fresh update not committed")
	}
	if e.UpdateAt(stale, []Entry{{ID: "a"}}) {
		t.Error("stale update committed after a newer one")
	}
	f := e.Frame()
	if len(f.Bubbles) != 1 || f.Bubbles[0].ID != "b" {
		t.Errorf("bubbles = %+v, want only b", f.Bubbles)
	}
	if hooks.superseded != 2 {
		t.Errorf("superseded = %d, want 2", hooks.superseded)
	}
}

func TestRemovedEntriesRetired(t *testing.T) {
	m := newFakeMap(800, 600)
	m.set("a", 150, 300)
	m.set("b", 400, 300)
	m.set("c", 650, 300)
	e, _ := newTestEngine(m)

	e.Update([]Entry{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "a", Priority: 9}})
	if n := len(e.Frame().Bubbles); n != 3 {
		t.Fatalf("bubbles = %d, want 3 (duplicates dropped)", n)
	}
	e.Update([]Entry{{ID: "a"}, {ID: "c"}})

	f := e.Frame()
	if len(f.Retired) != 1 || f.Retired[0] != (Retirement{ID: "b", Reason: ReasonRemoved}) {
		t.Errorf("Retired = %v, want [b removed]", f.Retired)
	}
	if _, ok := f.Bubble("b"); ok {
		t.Error("b still present")
	}
}

func TestOffscreenHideUnhideRetire(t *testing.T) {
	m := newFakeMap(700, 500)
	m.set("a", 350, 250)
	e, clk := newTestEngine(m)
	e.Update([]Entry{{ID: "a"}})

	// Past the hide margin: hidden, not retired.
	m.set("a", -100, 250)
	e.Sync()
	v, _ := e.Frame().Bubble("a")
	if !v.Hidden {
		t.Fatal("bubble not hidden with anchor off screen")
	}

	// Inside the hide margin but outside the show margin: stays hidden.
	m.set("a", -30, 250)
	e.Sync()
	if v, _ := e.Frame().Bubble("a"); !v.Hidden {
		t.Error("bubble reappeared inside the hysteresis band")
	}

	// Back on screen: shown at the anchor-relative position it had.
	m.set("a", 300, 250)
	e.Sync()
	v, _ = e.Frame().Bubble("a")
	if v.Hidden {
		t.Fatal("bubble still hidden with anchor on screen")
	}
	if want := geom.V(300-60, 250-24-44); v.Position != want {
		t.Errorf("Position = %v, want %v", v.Position, want)
	}

	// Off screen for longer than RetireAfter: retired.
	m.set("a", 2000, 250)
	e.Sync()
	clk.advance(e.Config().RetireAfter)
	if !e.Tick(clk.t) {
		t.Fatal("Tick() did not retire the hidden bubble")
	}
	f := e.Frame()
	if len(f.Bubbles) != 0 || len(f.Retired) != 1 || f.Retired[0].Reason != ReasonOffscreen {
		t.Errorf("frame = %+v, want a retired offscreen", f)
	}
}

func TestOrphanRetiredNextCycle(t *testing.T) {
	m := newFakeMap(800, 600)
	m.set("a", 300, 300)
	m.set("b", 500, 300)
	e, clk := newTestEngine(m)
	e.Update([]Entry{{ID: "a"}, {ID: "b"}})

	m.remove("a")
	e.Sync()
	v, ok := e.Frame().Bubble("a")
	if !ok || !v.Hidden {
		t.Fatalf("orphan should linger hidden for one cycle, got %+v ok=%v", v, ok)
	}

	e.Tick(clk.t)
	f := e.Frame()
	if _, ok := f.Bubble("a"); ok {
		t.Error("orphan not retired")
	}
	if len(f.Retired) != 1 || f.Retired[0] != (Retirement{ID: "a", Reason: ReasonOrphan}) {
		t.Errorf("Retired = %v", f.Retired)
	}
}

func TestRetiringDraggedBubbleReleasesPan(t *testing.T) {
	m := newFakeMap(800, 600)
	m.set("a", 400, 300)
	e, _ := newTestEngine(m)
	e.Update([]Entry{{ID: "a"}})
	v, _ := e.Frame().Bubble("a")

	e.PointerDown("a", v.Position)
	e.PointerMove("a", v.Position.Add(geom.V(30, 0)))
	e.Update(nil)

	if e.PanSuspended() || m.resumed != 1 {
		t.Errorf("pan lock not released (resumed=%d)", m.resumed)
	}
}

func TestResizeSwitchesSizeClass(t *testing.T) {
	m := newFakeMap(1024, 768)
	m.set("a", 300, 300)
	e, _ := newTestEngine(m)
	e.Update([]Entry{{ID: "a"}})
	if got := e.Frame().Bubbles[0].Size; got != (geom.Size{W: 168, H: 60}) {
		t.Fatalf("Size = %v, want 168x60", got)
	}

	e.Resize(600)
	if got := e.Frame().Bubbles[0].Size; got != (geom.Size{W: 120, H: 44}) {
		t.Errorf("Size after resize = %v, want 120x44", got)
	}
}

func TestDraggedBubbleHeldDuringSync(t *testing.T) {
	m := newFakeMap(800, 600)
	m.set("a", 400, 300)
	e, _ := newTestEngine(m)
	e.Update([]Entry{{ID: "a"}})
	v, _ := e.Frame().Bubble("a")

	e.PointerDown("a", v.Position)
	e.PointerMove("a", v.Position.Add(geom.V(0, 50)))
	held, _ := e.Frame().Bubble("a")
	if !held.Dragging {
		t.Fatal("bubble not dragging")
	}

	m.pan(geom.V(20, 20))
	e.Sync()
	after, _ := e.Frame().Bubble("a")
	if after.Position != held.Position {
		t.Errorf("dragged bubble moved by sync: %v -> %v", held.Position, after.Position)
	}
}

func TestSizeFor(t *testing.T) {
	bps := DefaultBreakpoints()
	tests := []struct {
		width float64
		want  geom.Size
	}{
		{320, geom.Size{W: 120, H: 44}},
		{767, geom.Size{W: 120, H: 44}},
		{768, geom.Size{W: 168, H: 60}},
		{1920, geom.Size{W: 168, H: 60}},
	}
	for _, tt := range tests {
		if got := SizeFor(bps, tt.width); got != tt.want {
			t.Errorf("SizeFor(%v) = %v, want %v", tt.width, got, tt.want)
		}
	}
	if got := SizeFor([]Breakpoint{{MinWidth: 500, Size: geom.Size{W: 1, H: 1}}}, 10); got != (geom.Size{W: 1, H: 1}) {
		t.Errorf("SizeFor below every breakpoint = %v", got)
	}
}

type recordingHooks struct {
	observability.NoopEngineHooks
	superseded int
}

func (h *recordingHooks) OnSuperseded(uint64, uint64) { h.superseded++ }
