// Package viewport keeps bubbles in step with a panning and zooming map.
//
// The map is reached only through the small interfaces defined here:
// [Projector] answers where an anchor currently is on screen, [Source]
// delivers motion notifications and [drag.PanLock] lets a drag suspend the
// map's own gestures. Motion bursts are coalesced by a [Debouncer]; once it
// fires, a [Synchronizer] decides per bubble whether it is re-laid out,
// rigidly translated, held, hidden, shown again or orphaned.
package viewport

import (
	"github.com/matzehuels/bubblemap/pkg/drag"
	"github.com/matzehuels/bubblemap/pkg/geom"
)

// Anchor is the screen-space position and visual radius of a map marker.
type Anchor struct {
	Center geom.Vec `json:"center" bson:"center" yaml:"center"`
	Radius float64  `json:"radius" bson:"radius" yaml:"radius"`
}

// Projector looks up anchors by their stable key. Anchors are never held
// across cycles; callers ask again every time.
type Projector interface {
	Anchor(id string) (Anchor, bool)
	Viewport() geom.Rect
}

// EventKind classifies a map notification.
type EventKind int

const (
	Pan EventKind = iota
	Zoom
	Resize
)

func (k EventKind) String() string {
	switch k {
	case Zoom:
		return "zoom"
	case Resize:
		return "resize"
	default:
		return "pan"
	}
}

// Event is a map motion notification.
type Event struct {
	Kind     EventKind
	Viewport geom.Rect
}

// Source delivers map motion notifications. The returned function cancels
// the subscription.
type Source interface {
	Subscribe(fn func(Event)) (cancel func())
}

// Map is everything the engine needs from the host map component.
type Map interface {
	Projector
	Source
	drag.PanLock
}
