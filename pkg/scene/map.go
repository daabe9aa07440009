package scene

import (
	"maps"
	"slices"
	"sync"

	"github.com/matzehuels/bubblemap/pkg/geom"
	"github.com/matzehuels/bubblemap/pkg/viewport"
)

// Map is an in-memory map component driven by a scene. It is safe for
// concurrent use; subscribers are notified outside the internal lock.
type Map struct {
	mu        sync.Mutex
	size      Viewport
	cam       Camera
	radius    float64
	markers   map[string]Marker
	subs      map[int]func(viewport.Event)
	nextSub   int
	suspended int
}

// Ensure Map satisfies the engine's map interface.
var _ viewport.Map = (*Map)(nil)

// NewMap creates a map showing the scene's markers through its camera.
func NewMap(s *Scene) *Map {
	m := &Map{
		size:    s.Viewport,
		cam:     s.Camera,
		radius:  s.MarkerRadius,
		markers: make(map[string]Marker, len(s.Markers)),
		subs:    make(map[int]func(viewport.Event)),
	}
	if m.cam.Zoom <= 0 {
		m.cam.Zoom = 1
	}
	if m.radius <= 0 {
		m.radius = DefaultMarkerRadius
	}
	for _, mk := range s.Markers {
		m.markers[mk.ID] = mk
	}
	return m
}

// Anchor returns the screen position of marker id.
func (m *Map) Anchor(id string) (viewport.Anchor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.markers[id]
	if !ok {
		return viewport.Anchor{}, false
	}
	r := mk.Radius
	if r <= 0 {
		r = m.radius
	}
	return viewport.Anchor{Center: m.cam.Project(mk.At), Radius: r}, true
}

// Viewport returns the visible screen rectangle.
func (m *Map) Viewport() geom.Rect {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size.Rect()
}

// Camera returns the current camera.
func (m *Map) Camera() Camera {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cam
}

// Subscribe registers fn for motion notifications.
func (m *Map) Subscribe(fn func(viewport.Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// SuspendPan blocks pan and zoom gestures until the matching ResumePan.
func (m *Map) SuspendPan() {
	m.mu.Lock()
	m.suspended++
	m.mu.Unlock()
}

// ResumePan releases one SuspendPan.
func (m *Map) ResumePan() {
	m.mu.Lock()
	if m.suspended > 0 {
		m.suspended--
	}
	m.mu.Unlock()
}

// PanSuspended reports whether a drag currently holds the pan lock.
func (m *Map) PanSuspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended > 0
}

// Pan moves the map content by d screen pixels. It reports false and
// does nothing while panning is suspended.
func (m *Map) Pan(d geom.Vec) bool {
	m.mu.Lock()
	if m.suspended > 0 {
		m.mu.Unlock()
		return false
	}
	m.cam.X -= d.X / m.cam.Zoom
	m.cam.Y -= d.Y / m.cam.Zoom
	ev := m.event(viewport.Pan)
	m.mu.Unlock()
	m.notify(ev)
	return true
}

// Zoom scales the map by factor keeping the screen point at fixed. It
// reports false while panning is suspended.
func (m *Map) Zoom(factor float64, at geom.Vec) bool {
	if factor <= 0 {
		return false
	}
	m.mu.Lock()
	if m.suspended > 0 {
		m.mu.Unlock()
		return false
	}
	w := m.cam.Unproject(at)
	m.cam.Zoom *= factor
	m.cam.X = w.X - at.X/m.cam.Zoom
	m.cam.Y = w.Y - at.Y/m.cam.Zoom
	ev := m.event(viewport.Zoom)
	m.mu.Unlock()
	m.notify(ev)
	return true
}

// Resize changes the visible area. The camera origin stays put.
func (m *Map) Resize(width, height float64) {
	m.mu.Lock()
	m.size = Viewport{Width: width, Height: height}
	ev := m.event(viewport.Resize)
	m.mu.Unlock()
	m.notify(ev)
}

// Move relocates marker id in world space.
func (m *Map) Move(id string, to geom.Vec) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.markers[id]
	if !ok {
		return false
	}
	mk.At = to
	m.markers[id] = mk
	return true
}

// Reload replaces the marker set with the markers of s. Camera and
// viewport are kept, so a reloaded scene file does not jump the view.
func (m *Map) Reload(s *Scene) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.radius = s.MarkerRadius
	if m.radius <= 0 {
		m.radius = DefaultMarkerRadius
	}
	clear(m.markers)
	for _, mk := range s.Markers {
		m.markers[mk.ID] = mk
	}
}

func (m *Map) event(k viewport.EventKind) viewport.Event {
	return viewport.Event{Kind: k, Viewport: m.size.Rect()}
}

func (m *Map) notify(ev viewport.Event) {
	m.mu.Lock()
	ids := slices.Sorted(maps.Keys(m.subs))
	fns := make([]func(viewport.Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.subs[id])
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
