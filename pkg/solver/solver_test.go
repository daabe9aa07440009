package solver

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/matzehuels/bubblemap/pkg/geom"
)

var viewport = geom.Rect{W: 800, H: 600}

func ptr(v geom.Vec) *geom.Vec { return &v }

func TestSolveSingleAnchorSeedsAbove(t *testing.T) {
	s := New(DefaultOptions())
	res := s.Solve(Frame{
		Viewport: viewport,
		Items:    []Item{{ID: "a", Anchor: geom.V(400, 300), Size: geom.Size{W: 100, H: 40}}},
	})

	if len(res.Placements) != 1 {
		t.Fatalf("Placements = %d, want 1", len(res.Placements))
	}
	p := res.Placements[0]
	if want := geom.V(350, 236); p.Position != want {
		t.Errorf("Position = %v, want %v", p.Position, want)
	}
	if !p.Seeded {
		t.Error("Seeded = false, want true")
	}
	if !res.Converged || res.Iterations != 0 {
		t.Errorf("Converged = %v, Iterations = %d, want true, 0", res.Converged, res.Iterations)
	}
}

func TestSpiralSeedKeepsAnchorOutside(t *testing.T) {
	s := New(DefaultOptions())
	anchor := geom.V(400, 300)
	size := geom.Size{W: 120, H: 44}

	var prev float64
	for k := 0; k < 12; k++ {
		pos := s.SpiralSeed(anchor, size, k)
		r := geom.RectAt(pos, size)
		if r.Contains(anchor) {
			t.Errorf("k=%d: seed rect %v contains anchor", k, r)
		}
		d := r.Center().Dist(anchor)
		if k > 0 && d <= prev-size.W {
			t.Errorf("k=%d: centre distance %v collapsed from %v", k, d, prev)
		}
		prev = d
	}
}

func TestSolveResolvesPairInOnePass(t *testing.T) {
	s := New(DefaultOptions())
	size := geom.Size{W: 100, H: 40}
	res := s.Solve(Frame{
		Viewport: viewport,
		Items: []Item{
			{ID: "a", Anchor: geom.V(150, 200), Size: size, Prior: ptr(geom.V(100, 100))},
			{ID: "b", Anchor: geom.V(200, 200), Size: size, Prior: ptr(geom.V(150, 110))},
		},
	})

	if !res.Converged {
		t.Fatalf("Converged = false, trace %v", res.Trace)
	}
	if res.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", res.Iterations)
	}
	a, _ := res.Position("a")
	b, _ := res.Position("b")
	if geom.RectAt(a, size).Overlaps(geom.RectAt(b, size), s.Options().Padding-1e-3) {
		t.Errorf("a=%v and b=%v still overlap", a, b)
	}
	if res.Overlap != 0 {
		t.Errorf("Overlap = %v, want 0", res.Overlap)
	}
}

func TestSolveIdempotent(t *testing.T) {
	s := New(DefaultOptions())
	size := geom.Size{W: 100, H: 40}
	frame := Frame{
		Viewport: viewport,
		Items: []Item{
			{ID: "a", Anchor: geom.V(150, 200), Size: size, Prior: ptr(geom.V(100, 100))},
			{ID: "b", Anchor: geom.V(200, 200), Size: size, Prior: ptr(geom.V(150, 110))},
			{ID: "c", Anchor: geom.V(600, 400), Size: size},
		},
	}
	first := s.Solve(frame)

	for i := range frame.Items {
		pos, ok := first.Position(frame.Items[i].ID)
		if !ok {
			t.Fatalf("missing placement for %s", frame.Items[i].ID)
		}
		frame.Items[i].Prior = ptr(pos)
	}
	second := s.Solve(frame)

	for _, p := range first.Placements {
		got, _ := second.Position(p.ID)
		if got != p.Position {
			t.Errorf("%s: re-solve moved %v -> %v", p.ID, p.Position, got)
		}
	}
	if second.Iterations != 0 {
		t.Errorf("re-solve Iterations = %d, want 0", second.Iterations)
	}
}

func TestSolveTraceNonIncreasing(t *testing.T) {
	s := New(DefaultOptions())
	var items []Item
	for i := 0; i < 20; i++ {
		items = append(items, Item{
			ID:       fmt.Sprintf("poi-%02d", i),
			Priority: i,
			Anchor:   geom.V(300+float64(i%5)*30, 250+float64(i/5)*25),
			Size:     geom.Size{W: 100, H: 32},
		})
	}
	res := s.Solve(Frame{Viewport: geom.Rect{W: 1024, H: 768}, Items: items})

	if len(res.Trace) == 0 {
		t.Fatal("empty trace")
	}
	for k := 1; k < len(res.Trace); k++ {
		if res.Trace[k] > res.Trace[k-1] {
			t.Fatalf("trace increased at pass %d: %v -> %v", k, res.Trace[k-1], res.Trace[k])
		}
	}
	if res.Iterations > s.Options().MaxIterations {
		t.Errorf("Iterations = %d exceeds cap %d", res.Iterations, s.Options().MaxIterations)
	}
	if len(res.Placements) != len(items) {
		t.Errorf("Placements = %d, want %d", len(res.Placements), len(items))
	}
}

func TestSolveClampsIntoViewport(t *testing.T) {
	s := New(DefaultOptions())
	bounds := viewport.Inset(s.Options().Margin)
	var items []Item
	for i := 0; i < 20; i++ {
		items = append(items, Item{
			ID:       fmt.Sprintf("edge-%02d", i),
			Priority: i,
			Anchor:   geom.V(float64(i)*40, 4),
			Size:     geom.Size{W: 120, H: 44},
		})
	}
	res := s.Solve(Frame{Viewport: viewport, Items: items})

	for _, p := range res.Placements {
		r := geom.RectAt(p.Position, geom.Size{W: 120, H: 44})
		if r.X < bounds.X || r.Y < bounds.Y || r.X+r.W > bounds.X+bounds.W+1e-9 || r.Y+r.H > bounds.Y+bounds.H+1e-9 {
			t.Errorf("%s at %v outside %v", p.ID, r, bounds)
		}
	}
}

func TestSolveDeterministic(t *testing.T) {
	s := New(DefaultOptions())
	var items []Item
	for i := 0; i < 12; i++ {
		items = append(items, Item{
			ID:     fmt.Sprintf("p%d", i),
			Anchor: geom.V(400, 300),
			Size:   geom.Size{W: 90, H: 30},
		})
	}
	frame := Frame{Viewport: viewport, Items: items}
	a := s.Solve(frame)

	// Same items, reversed input order.
	rev := make([]Item, len(items))
	for i := range items {
		rev[len(items)-1-i] = items[i]
	}
	b := s.Solve(Frame{Viewport: viewport, Items: rev})

	if !reflect.DeepEqual(a, b) {
		t.Errorf("results differ for permuted input")
	}
}

func TestSolveOrdersByPriorityThenID(t *testing.T) {
	s := New(DefaultOptions())
	size := geom.Size{W: 40, H: 20}
	res := s.Solve(Frame{
		Viewport: viewport,
		Items: []Item{
			{ID: "z", Priority: 1, Anchor: geom.V(100, 100), Size: size},
			{ID: "b", Priority: 0, Anchor: geom.V(500, 100), Size: size},
			{ID: "a", Priority: 1, Anchor: geom.V(300, 400), Size: size},
		},
	})

	var got []string
	for _, p := range res.Placements {
		got = append(got, p.ID)
	}
	if want := []string{"b", "a", "z"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestSolveOffsetItems(t *testing.T) {
	s := New(DefaultOptions())
	size := geom.Size{W: 100, H: 40}

	tests := []struct {
		name   string
		anchor geom.Vec
		offset geom.Vec
		want   geom.Vec
	}{
		{"inside", geom.V(300, 300), geom.V(40, -80), geom.V(340, 220)},
		{"clamped top left", geom.V(100, 100), geom.V(-300, -300), geom.V(8, 8)},
		{"clamped bottom right", geom.V(700, 500), geom.V(200, 200), geom.V(692, 552)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Solve(Frame{
				Viewport: viewport,
				Items:    []Item{{ID: "x", Anchor: tt.anchor, Size: size, Offset: ptr(tt.offset)}},
			})
			p := res.Placements[0]
			if p.Position != tt.want {
				t.Errorf("Position = %v, want %v", p.Position, tt.want)
			}
			if !p.Fixed {
				t.Error("Fixed = false, want true")
			}
		})
	}
}

func TestSolveFixedItemsPushOthers(t *testing.T) {
	s := New(DefaultOptions())
	size := geom.Size{W: 100, H: 40}
	pin := geom.V(350, 280)
	res := s.Solve(Frame{
		Viewport: viewport,
		Items: []Item{
			{ID: "dragged", Priority: 0, Anchor: geom.V(400, 400), Size: size, Pin: ptr(pin)},
			{ID: "other", Priority: 1, Anchor: geom.V(400, 400), Size: size, Prior: ptr(pin)},
		},
	})

	got, _ := res.Position("dragged")
	if got != pin {
		t.Errorf("pinned item moved to %v, want %v", got, pin)
	}
	other, _ := res.Position("other")
	if geom.RectAt(other, size).Overlaps(geom.RectAt(pin, size), s.Options().Padding-1e-3) {
		t.Errorf("other=%v still overlaps pinned item", other)
	}
}

func TestSolveObstacles(t *testing.T) {
	s := New(DefaultOptions())
	size := geom.Size{W: 100, H: 40}
	obstacle := geom.Rect{X: 300, Y: 200, W: 200, H: 60}
	res := s.Solve(Frame{
		Viewport:  viewport,
		Obstacles: []geom.Rect{obstacle},
		Items:     []Item{{ID: "a", Anchor: geom.V(400, 300), Size: size, Prior: ptr(geom.V(340, 210))}},
	})

	p := res.Placements[0]
	if geom.RectAt(p.Position, size).Overlaps(obstacle, s.Options().Padding-1e-3) {
		t.Errorf("bubble at %v overlaps obstacle %v", p.Position, obstacle)
	}
}

func TestSolveAnchorUnderObstacle(t *testing.T) {
	s := New(DefaultOptions())
	size := geom.Size{W: 100, H: 40}
	legend := geom.Rect{X: 0, Y: 500, W: 200, H: 100}
	res := s.Solve(Frame{
		Viewport:  viewport,
		Obstacles: []geom.Rect{legend},
		Items:     []Item{{ID: "a", Anchor: geom.V(100, 560), Size: size}},
	})

	p := res.Placements[0]
	if geom.RectAt(p.Position, size).Overlaps(legend, s.Options().Padding-1e-3) {
		t.Errorf("bubble at %v overlaps legend %v", p.Position, legend)
	}
	if res.Overlap > overlapEpsilon {
		t.Errorf("Overlap = %v, want 0", res.Overlap)
	}
}

func TestSolveEmpty(t *testing.T) {
	res := New(Options{}).Solve(Frame{Viewport: viewport})
	if len(res.Placements) != 0 || !res.Converged {
		t.Errorf("Solve(empty) = %+v", res)
	}
}

func ExampleSolver_Solve() {
	s := New(DefaultOptions())
	res := s.Solve(Frame{
		Viewport: geom.Rect{W: 800, H: 600},
		Items: []Item{
			{ID: "cafe", Anchor: geom.V(400, 300), Size: geom.Size{W: 100, H: 40}},
		},
	})
	fmt.Println(res.Placements[0].ID, res.Placements[0].Position)
	// Output: cafe {350 236}
}

func TestSolveCoincidentItems(t *testing.T) {
	s := New(DefaultOptions())
	size := geom.Size{W: 100, H: 40}
	frame := Frame{
		Viewport: viewport,
		Items: []Item{
			{ID: "a", Priority: 1, Anchor: geom.V(400, 300), Size: size, Prior: ptr(geom.V(350, 240))},
			{ID: "b", Priority: 2, Anchor: geom.V(400, 300), Size: size, Prior: ptr(geom.V(350, 240))},
		},
	}

	res := s.Solve(frame)
	a, _ := res.Position("a")
	b, _ := res.Position("b")
	if a == b {
		t.Fatalf("coincident items stayed at %v", a)
	}
	if geom.RectAt(a, size).Overlaps(geom.RectAt(b, size), 0) {
		t.Errorf("items still overlap: %v, %v", a, b)
	}

	again := s.Solve(frame)
	if !reflect.DeepEqual(res.Placements, again.Placements) {
		t.Errorf("jitter is not deterministic: %v vs %v", res.Placements, again.Placements)
	}
}
