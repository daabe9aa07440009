// Package drag implements the per-bubble pointer state machine that turns
// press/move/release events into clicks or drags.
//
// A press only becomes a drag once the pointer has moved more than
// Threshold pixels from where it went down; a release before that is a
// click. While a drag is in progress the host map must not pan, so the
// controller suspends panning through a [PanLock] when a drag starts and
// resumes it when the drag ends or is cancelled.
//
// The controller is pure with respect to bubbles: it reads and returns
// [State] values and never mutates a bubble. The caller stores the returned
// state and applies the outcome.
package drag

import (
	"sync"

	"github.com/matzehuels/bubblemap/pkg/geom"
)

// DefaultThreshold is the dead zone, in pixels, before a press becomes a
// drag.
const DefaultThreshold = 4.0

// State is the drag state of one bubble: either [Idle] or [Dragging].
type State interface {
	isState()
}

// Press records a pointer that went down on a bubble but has not moved
// far enough to start a drag.
type Press struct {
	Pointer geom.Vec
	Origin  geom.Vec // bubble position at press time
}

// Idle is the resting state. Press is non-nil between a pointer-down and
// the matching up or threshold crossing.
type Idle struct {
	Press *Press
}

// Dragging is the state while the user moves a bubble.
type Dragging struct {
	// Grab is the pointer position relative to the bubble's top-left at
	// press time. It stays constant for the whole drag.
	Grab geom.Vec

	// Origin is the bubble position when the press happened.
	Origin geom.Vec
}

func (Idle) isState()     {}
func (Dragging) isState() {}

// IsDragging reports whether s is a [Dragging] state.
func IsDragging(s State) bool {
	_, ok := s.(Dragging)
	return ok
}

// Effect tells the caller what an event did.
type Effect int

const (
	None Effect = iota
	Started
	Moved
	Released
	Clicked
	Cancelled
)

func (e Effect) String() string {
	switch e {
	case Started:
		return "started"
	case Moved:
		return "moved"
	case Released:
		return "released"
	case Clicked:
		return "clicked"
	case Cancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// Outcome is the result of feeding one event to the controller.
type Outcome struct {
	State  State
	Effect Effect

	// Position is the bubble's new top-left for Started, Moved and
	// Released.
	Position geom.Vec

	// Offset is the anchor-relative user offset recorded on Released.
	Offset geom.Vec
}

// PanLock is implemented by maps whose panning can be suspended while a
// bubble is dragged.
type PanLock interface {
	SuspendPan()
	ResumePan()
}

// Controller applies pointer events to drag states.
type Controller struct {
	threshold float64
	lock      PanLock

	mu      sync.Mutex
	holding int
}

// NewController creates a controller. A non-positive threshold uses
// [DefaultThreshold]; lock may be nil.
func NewController(threshold float64, lock PanLock) *Controller {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Controller{threshold: threshold, lock: lock}
}

// Threshold returns the drag dead zone.
func (c *Controller) Threshold() float64 { return c.threshold }

// Suspended reports how many drags currently hold the pan lock.
func (c *Controller) Suspended() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holding
}

// Down registers a press at pointer on a bubble currently at position.
// A press on a bubble that is already dragging is ignored.
func (c *Controller) Down(s State, pointer, position geom.Vec) Outcome {
	if IsDragging(s) {
		return Outcome{State: s}
	}
	return Outcome{State: Idle{Press: &Press{Pointer: pointer, Origin: position}}}
}

// Move feeds a pointer move. It starts a drag once the pointer is more than
// the threshold away from the press, and moves the bubble while dragging.
func (c *Controller) Move(s State, pointer geom.Vec) Outcome {
	switch st := s.(type) {
	case Dragging:
		return Outcome{State: st, Effect: Moved, Position: pointer.Sub(st.Grab)}
	case Idle:
		if st.Press == nil || pointer.Dist(st.Press.Pointer) <= c.threshold {
			return Outcome{State: s}
		}
		d := Dragging{Grab: st.Press.Pointer.Sub(st.Press.Origin), Origin: st.Press.Origin}
		c.suspend()
		return Outcome{State: d, Effect: Started, Position: pointer.Sub(d.Grab)}
	}
	return Outcome{State: Idle{}}
}

// Up feeds a release. A drag in progress ends with the bubble at the
// release position and an offset relative to anchor; a press that never
// crossed the threshold is a click.
func (c *Controller) Up(s State, pointer, anchor geom.Vec) Outcome {
	switch st := s.(type) {
	case Dragging:
		pos := pointer.Sub(st.Grab)
		c.resume()
		return Outcome{State: Idle{}, Effect: Released, Position: pos, Offset: pos.Sub(anchor)}
	case Idle:
		if st.Press != nil {
			return Outcome{State: Idle{}, Effect: Clicked, Position: st.Press.Origin}
		}
	}
	return Outcome{State: Idle{}}
}

// Cancel aborts a press or drag, returning the bubble to where the press
// started and releasing the pan lock.
func (c *Controller) Cancel(s State) Outcome {
	if st, ok := s.(Dragging); ok {
		c.resume()
		return Outcome{State: Idle{}, Effect: Cancelled, Position: st.Origin}
	}
	return Outcome{State: Idle{}}
}

func (c *Controller) suspend() {
	c.mu.Lock()
	c.holding++
	first := c.holding == 1
	c.mu.Unlock()
	if first && c.lock != nil {
		c.lock.SuspendPan()
	}
}

func (c *Controller) resume() {
	c.mu.Lock()
	if c.holding == 0 {
		c.mu.Unlock()
		return
	}
	c.holding--
	last := c.holding == 0
	c.mu.Unlock()
	if last && c.lock != nil {
		c.lock.ResumePan()
	}
}
