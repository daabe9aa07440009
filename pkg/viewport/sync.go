package viewport

import "github.com/matzehuels/bubblemap/pkg/geom"

// Default hysteresis margins, in pixels.
const (
	DefaultHideMargin = 48.0
	DefaultShowMargin = 16.0
)

// Hysteresis decides anchor visibility with separate thresholds for hiding
// and showing, so a marker sitting on the viewport edge does not flicker.
type Hysteresis struct {
	// Hide: a visible bubble hides once its anchor is outside the viewport
	// grown by Hide.
	Hide float64
	// Show: a hidden bubble reappears once its anchor is inside the
	// viewport grown by Show. Show must not exceed Hide.
	Show float64
}

// DefaultHysteresis returns the default margins.
func DefaultHysteresis() Hysteresis {
	return Hysteresis{Hide: DefaultHideMargin, Show: DefaultShowMargin}
}

// Visible reports whether a bubble whose anchor is at p should be visible,
// given whether it is currently hidden.
func (h Hysteresis) Visible(vp geom.Rect, p geom.Vec, hidden bool) bool {
	if hidden {
		return vp.Expand(h.Show).Contains(p)
	}
	return vp.Expand(h.Hide).Contains(p)
}

// Action is what a synchronisation pass does with one bubble.
type Action int

const (
	// Relayout re-seeds the bubble at its previous anchor-relative
	// position and sends it through the solver.
	Relayout Action = iota
	// Translate moves a user-offset bubble rigidly with its anchor.
	Translate
	// Hold leaves a bubble that is being dragged where the pointer is.
	Hold
	// Unhide shows a hidden bubble again without relaxation.
	Unhide
	// Hide hides (or keeps hidden) a bubble whose anchor is off screen.
	Hide
	// Orphan marks a bubble whose anchor no longer exists.
	Orphan
)

func (a Action) String() string {
	return [...]string{"relayout", "translate", "hold", "unhide", "hide", "orphan"}[a]
}

// Tracked is the synchroniser's view of one bubble.
type Tracked struct {
	ID       string
	Position geom.Vec
	// Anchor is the anchor centre the bubble was last laid out against.
	Anchor   geom.Vec
	Offset   *geom.Vec
	Dragging bool
	Hidden   bool
}

// Decision is the plan for one bubble.
type Decision struct {
	ID     string
	Action Action
	Anchor Anchor
	// Seed is the bubble's proposed top-left before any layout.
	Seed geom.Vec
}

// Synchronizer plans how bubbles follow their anchors after map motion.
type Synchronizer struct {
	proj Projector
	hyst Hysteresis
}

// NewSynchronizer creates a synchroniser reading anchors from proj. Show
// margins larger than the hide margin are lowered to it.
func NewSynchronizer(proj Projector, h Hysteresis) *Synchronizer {
	if h.Show > h.Hide {
		h.Show = h.Hide
	}
	return &Synchronizer{proj: proj, hyst: h}
}

// Hysteresis returns the effective margins.
func (s *Synchronizer) Hysteresis() Hysteresis { return s.hyst }

// Plan returns one decision per tracked bubble, in input order.
func (s *Synchronizer) Plan(tracked []Tracked) []Decision {
	vp := s.proj.Viewport()
	out := make([]Decision, 0, len(tracked))
	for _, t := range tracked {
		out = append(out, s.decide(vp, t))
	}
	return out
}

func (s *Synchronizer) decide(vp geom.Rect, t Tracked) Decision {
	a, ok := s.proj.Anchor(t.ID)
	if !ok {
		return Decision{ID: t.ID, Action: Orphan, Seed: t.Position}
	}
	d := Decision{ID: t.ID, Anchor: a}

	// Rigid follow keeps the placement relative to the anchor.
	follow := t.Position
	switch {
	case t.Offset != nil:
		follow = a.Center.Add(*t.Offset)
	case a.Center != t.Anchor:
		follow = a.Center.Add(t.Position.Sub(t.Anchor))
	}

	switch {
	case t.Dragging:
		d.Action, d.Seed = Hold, t.Position
	case !s.hyst.Visible(vp, a.Center, t.Hidden):
		d.Action, d.Seed = Hide, follow
	case t.Hidden:
		d.Action, d.Seed = Unhide, follow
	case t.Offset != nil:
		d.Action, d.Seed = Translate, follow
	default:
		d.Action, d.Seed = Relayout, follow
	}
	return d
}
