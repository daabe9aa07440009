package scene

import (
	"fmt"
	"time"

	"github.com/matzehuels/bubblemap/pkg/geom"
)

// Step kinds.
const (
	KindUpdate = "update"
	KindPan    = "pan"
	KindZoom   = "zoom"
	KindResize = "resize"
	KindDrag   = "drag"
	KindClick  = "click"
	KindMove   = "move"
	KindWait   = "wait"
)

// Step is one scripted action. Exactly one field is set.
type Step struct {
	Update *UpdateStep    `yaml:"update,omitempty" json:"update,omitempty"`
	Pan    *geom.Vec      `yaml:"pan,omitempty" json:"pan,omitempty"`
	Zoom   *ZoomStep      `yaml:"zoom,omitempty" json:"zoom,omitempty"`
	Resize *Viewport      `yaml:"resize,omitempty" json:"resize,omitempty"`
	Drag   *DragStep      `yaml:"drag,omitempty" json:"drag,omitempty"`
	Click  string         `yaml:"click,omitempty" json:"click,omitempty"`
	Move   *MoveStep      `yaml:"move,omitempty" json:"move,omitempty"`
	Wait   *time.Duration `yaml:"wait,omitempty" json:"wait,omitempty"`
}

// UpdateStep replaces the data set. An empty update selects every marker.
type UpdateStep struct {
	Only []string `yaml:"only,omitempty" json:"only,omitempty"`
	Drop []string `yaml:"drop,omitempty" json:"drop,omitempty"`
}

// ZoomStep scales the map by Factor around a screen point, the viewport
// centre by default.
type ZoomStep struct {
	Factor float64   `yaml:"factor" json:"factor"`
	At     *geom.Vec `yaml:"at,omitempty" json:"at,omitempty"`
}

// DragStep drags a bubble by a screen-space delta in Steps pointer moves.
type DragStep struct {
	ID    string   `yaml:"id" json:"id"`
	By    geom.Vec `yaml:"by" json:"by"`
	Steps int      `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// MoveStep relocates a marker in world space.
type MoveStep struct {
	ID string   `yaml:"id" json:"id"`
	To geom.Vec `yaml:"to" json:"to"`
}

// Kind returns the name of the action the step performs.
func (s Step) Kind() string {
	switch {
	case s.Update != nil:
		return KindUpdate
	case s.Pan != nil:
		return KindPan
	case s.Zoom != nil:
		return KindZoom
	case s.Resize != nil:
		return KindResize
	case s.Drag != nil:
		return KindDrag
	case s.Click != "":
		return KindClick
	case s.Move != nil:
		return KindMove
	case s.Wait != nil:
		return KindWait
	}
	return ""
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{
		s.Update != nil, s.Pan != nil, s.Zoom != nil, s.Resize != nil,
		s.Drag != nil, s.Click != "", s.Move != nil, s.Wait != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func (s Step) validate(markers map[string]bool) error {
	if n := s.actions(); n != 1 {
		return fmt.Errorf("want exactly one action, got %d", n)
	}
	known := func(id string) error {
		if !markers[id] {
			return fmt.Errorf("unknown marker %q", id)
		}
		return nil
	}
	switch {
	case s.Zoom != nil:
		if s.Zoom.Factor <= 0 {
			return fmt.Errorf("zoom factor must be positive")
		}
	case s.Resize != nil:
		if s.Resize.Width <= 0 || s.Resize.Height <= 0 {
			return fmt.Errorf("resize needs a positive size")
		}
	case s.Drag != nil:
		if s.Drag.Steps < 0 || s.Drag.Steps > MaxDragSteps {
			return fmt.Errorf("drag steps must be between 0 and %d", MaxDragSteps)
		}
		return known(s.Drag.ID)
	case s.Click != "":
		return known(s.Click)
	case s.Move != nil:
		return known(s.Move.ID)
	case s.Wait != nil:
		if *s.Wait < 0 || *s.Wait > MaxWait {
			return fmt.Errorf("wait must be between 0 and %s", MaxWait)
		}
	}
	return nil
}
