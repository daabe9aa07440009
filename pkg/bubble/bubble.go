package bubble

import (
	"time"

	"github.com/matzehuels/bubblemap/pkg/connector"
	"github.com/matzehuels/bubblemap/pkg/drag"
	"github.com/matzehuels/bubblemap/pkg/geom"
	"github.com/matzehuels/bubblemap/pkg/viewport"
)

// Entry is one item of the ordered data set. ID must match the key the
// map uses for the item's anchor.
type Entry struct {
	ID       string `json:"id" yaml:"id"`
	Priority int    `json:"priority" yaml:"priority"`
	Payload  any    `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Bubble is one annotation card.
type Bubble struct {
	ID       string
	Priority int
	Payload  any
	Size     geom.Size

	// Position is the top-left corner in screen space.
	Position geom.Vec

	// UserOffset is set once the user has dragged the bubble. It is
	// relative to the anchor centre.
	UserOffset *geom.Vec

	Drag      drag.State
	Connector connector.Path
	Hidden    bool

	// Anchor is the anchor this bubble was last laid out against.
	Anchor viewport.Anchor

	fresh       bool
	orphan      bool
	hiddenSince time.Time
}

// Dragging reports whether the bubble is being dragged.
func (b *Bubble) Dragging() bool { return drag.IsDragging(b.Drag) }

// Rect returns the bubble's screen rectangle.
func (b *Bubble) Rect() geom.Rect { return geom.RectAt(b.Position, b.Size) }

func (b *Bubble) clone() *Bubble {
	c := *b
	if b.UserOffset != nil {
		off := *b.UserOffset
		c.UserOffset = &off
	}
	return &c
}

// Reason says why a bubble was retired.
type Reason string

const (
	ReasonRemoved   Reason = "removed"
	ReasonCap       Reason = "cap"
	ReasonOffscreen Reason = "offscreen"
	ReasonOrphan    Reason = "orphan"
)

// Retirement records a bubble leaving the active set.
type Retirement struct {
	ID     string `json:"id"`
	Reason Reason `json:"reason"`
}

// View is the render model of one bubble.
type View struct {
	ID         string          `json:"id"`
	Priority   int             `json:"priority"`
	Position   geom.Vec        `json:"position"`
	Size       geom.Size       `json:"size"`
	Anchor     viewport.Anchor `json:"anchor"`
	Connector  connector.Path  `json:"connector"`
	Hidden     bool            `json:"hidden"`
	Dragging   bool            `json:"dragging,omitempty"`
	UserOffset *geom.Vec       `json:"user_offset,omitempty"`
	Payload    any             `json:"payload,omitempty"`
}

// Rect returns the view's screen rectangle.
func (v View) Rect() geom.Rect { return geom.RectAt(v.Position, v.Size) }

// Stats describes the cycle that produced a frame.
type Stats struct {
	Iterations int           `json:"iterations"`
	Converged  bool          `json:"converged"`
	Overlap    float64       `json:"overlap"`
	Coalesced  int           `json:"coalesced,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Frame is the render model handed to the host after every committed
// change.
type Frame struct {
	Generation uint64       `json:"generation"`
	Session    string       `json:"session"`
	Viewport   geom.Rect    `json:"viewport"`
	Bubbles    []View       `json:"bubbles"`
	Retired    []Retirement `json:"retired,omitempty"`
	Stats      Stats        `json:"stats"`
}

// Visible returns the views that are not hidden.
func (f Frame) Visible() []View {
	out := make([]View, 0, len(f.Bubbles))
	for _, v := range f.Bubbles {
		if !v.Hidden {
			out = append(out, v)
		}
	}
	return out
}

// Bubble returns the view with the given id.
func (f Frame) Bubble(id string) (View, bool) {
	for _, v := range f.Bubbles {
		if v.ID == id {
			return v, true
		}
	}
	return View{}, false
}
