package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bubblemap/pkg/cache"
	"github.com/matzehuels/bubblemap/pkg/geom"
	"github.com/matzehuels/bubblemap/pkg/scene"
)

func quietOpts() Options {
	return Options{Logger: log.New(io.Discard)}
}

func mustScene(t testing.TB, doc string) *scene.Scene {
	t.Helper()
	sc, err := scene.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("scene.Parse() error = %v", err)
	}
	return sc
}

const dragScene = `
name: drag
viewport: {width: 800, height: 600}
markers:
  - {id: cafe, priority: 1, at: {x: 400, y: 300}}
  - {id: bar, priority: 2, at: {x: 600, y: 420}}
script:
  - update: {}
  - drag: {id: cafe, by: {x: -40, y: -60}}
  - pan: {x: -10, y: 0}
  - click: bar
  - update: {only: [bar]}
  - drag: {id: cafe, by: {x: 5, y: 5}}
`

func TestValidateForRender(t *testing.T) {
	tests := []struct {
		formats []string
		wantErr bool
	}{
		{[]string{"svg"}, false},
		{[]string{"json", "png", "dot", "debug"}, false},
		{nil, false},
		{[]string{"pdf"}, true},
		{[]string{"svg", "SVG"}, true},
	}

	for _, tt := range tests {
		opts := Options{Formats: tt.formats}
		err := opts.ValidateForRender()
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateForRender(%v) error = %v, wantErr %v", tt.formats, err, tt.wantErr)
		}
	}
}

func TestSetDefaults(t *testing.T) {
	opts := Options{}
	opts.SetDefaults()

	if len(opts.Formats) != 1 || opts.Formats[0] != "svg" {
		t.Errorf("Formats should be [svg], got %v", opts.Formats)
	}
	if opts.Scale != DefaultScale {
		t.Errorf("Scale should be %v, got %v", DefaultScale, opts.Scale)
	}
	if opts.Labels == nil || !*opts.Labels {
		t.Error("Labels should default to true")
	}
}

func TestSimulateScript(t *testing.T) {
	sc := mustScene(t, dragScene)
	sim, err := Simulate(context.Background(), sc, "test", quietOpts())
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	if len(sim.Frames) != len(sc.Script) {
		t.Fatalf("len(Frames) = %d, want %d", len(sim.Frames), len(sc.Script))
	}

	initial, _ := sim.Frames[0].Frame.Bubble("cafe")
	if initial.Position != (geom.Vec{X: 316, Y: 216}) {
		t.Errorf("initial cafe position = %v, want {316 216}", initial.Position)
	}

	dragged, _ := sim.Frames[1].Frame.Bubble("cafe")
	if want := initial.Position.Add(geom.Vec{X: -40, Y: -60}); dragged.Position != want {
		t.Errorf("dragged position = %v, want %v", dragged.Position, want)
	}
	if dragged.UserOffset == nil {
		t.Fatal("drag should record a user offset")
	}

	panned, _ := sim.Frames[2].Frame.Bubble("cafe")
	if want := dragged.Position.Add(geom.Vec{X: -10}); panned.Position != want {
		t.Errorf("after pan position = %v, want %v", panned.Position, want)
	}

	if !reflect.DeepEqual(sim.Clicks, []string{"bar"}) {
		t.Errorf("Clicks = %v, want [bar]", sim.Clicks)
	}

	last := sim.Frames[5]
	if last.Note != "no visible bubble" {
		t.Errorf("drag on retired bubble note = %q", last.Note)
	}
	if _, ok := last.Frame.Bubble("cafe"); ok {
		t.Error("cafe should be retired after update {only: [bar]}")
	}
	if sim.Stats.Retired != 1 {
		t.Errorf("Stats.Retired = %d, want 1", sim.Stats.Retired)
	}
}

func TestSimulateDeterministic(t *testing.T) {
	sc := mustScene(t, dragScene)
	a, err := Simulate(context.Background(), sc, "s", quietOpts())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Simulate(context.Background(), sc, "s", quietOpts())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("Simulate() is not deterministic")
	}
}

func TestSimulateInitialLoadWithoutScript(t *testing.T) {
	sc := mustScene(t, `
viewport: {width: 800, height: 600}
markers:
  - {id: a, priority: 1, at: {x: 100, y: 300}}
  - {id: b, priority: 2, at: {x: 500, y: 300}}
`)
	sim, err := Simulate(context.Background(), sc, "s", quietOpts())
	if err != nil {
		t.Fatal(err)
	}
	if len(sim.Frames) != 1 || sim.Frames[0].Step != 0 {
		t.Fatalf("Frames = %+v, want one initial frame", sim.Frames)
	}
	if n := len(sim.Final().Bubbles); n != 2 {
		t.Errorf("bubbles = %d, want 2", n)
	}
}

func TestSimulateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Simulate(ctx, mustScene(t, dragScene), "s", quietOpts()); err != context.Canceled {
		t.Errorf("Simulate() error = %v, want context.Canceled", err)
	}
}

func TestSimulateDeadlineStopsWait(t *testing.T) {
	// Built directly so the wait bypasses scene validation.
	long := 2000 * time.Hour
	sc := &scene.Scene{
		Name:     "wait",
		Viewport: scene.Viewport{Width: 800, Height: 600},
		Markers:  []scene.Marker{{ID: "a", At: geom.V(400, 300)}},
		Script:   []scene.Step{{Wait: &long}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Simulate(ctx, sc, "s", quietOpts())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Simulate() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Simulate() returned after %v, want shortly after the deadline", elapsed)
	}
}

func TestRunnerSimulateCaches(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, log.New(io.Discard))
	sc := mustScene(t, dragScene)

	first, err := r.Simulate(ctx, sc, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit {
		t.Error("first Simulate() should miss")
	}
	second, err := r.Simulate(ctx, sc, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Error("second Simulate() should hit")
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Error("cached simulation differs from computed one")
	}

	third, err := r.Simulate(ctx, sc, Options{Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHit {
		t.Error("Refresh should bypass the cache")
	}
}

func TestRunnerLayout(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	sc := mustScene(t, dragScene)

	f, hit, err := r.Layout(context.Background(), sc, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("NullCache should never hit")
	}
	if len(f.Bubbles) != 2 {
		t.Errorf("bubbles = %d, want 2", len(f.Bubbles))
	}
	if len(sc.Script) == 0 {
		t.Error("Layout() must not modify the scene")
	}
}

func TestRunnerRender(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, log.New(io.Discard))
	sc := mustScene(t, dragScene)
	sim, err := r.Simulate(ctx, sc, Options{})
	if err != nil {
		t.Fatal(err)
	}

	opts := Options{Formats: []string{"json", "svg", "png", "dot"}}
	artifacts, err := r.Render(ctx, sc, sim.Final(), opts)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, f := range opts.Formats {
		if len(artifacts[f]) == 0 {
			t.Errorf("artifact %s is empty", f)
		}
	}
	if !bytes.HasPrefix(artifacts["png"], []byte("\x89PNG")) {
		t.Error("png artifact lacks PNG signature")
	}

	again, err := r.Render(ctx, sc, sim.Final(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again["svg"], artifacts["svg"]) {
		t.Error("cached svg differs")
	}

	if _, err := r.Render(ctx, sc, sim.Final(), Options{Formats: []string{"gif"}}); err == nil {
		t.Error("Render(gif) should fail")
	}
}

func ExampleSimulate() {
	sc, _ := scene.Parse([]byte(`
viewport: {width: 800, height: 600}
markers:
  - {id: cafe, priority: 1, at: {x: 400, y: 300}}
`))
	sim, _ := Simulate(context.Background(), sc, "example", Options{Logger: log.New(io.Discard)})
	v, _ := sim.Final().Bubble("cafe")
	fmt.Println(v.ID, v.Position, v.Size)
	// Output: cafe {316 216} {168 60}
}
