package bubble

import (
	"github.com/matzehuels/bubblemap/pkg/connector"
	"github.com/matzehuels/bubblemap/pkg/drag"
	"github.com/matzehuels/bubblemap/pkg/geom"
)

// Pointer events are routed to one bubble by id. Events for unknown,
// hidden or retiring bubbles are ignored and report false.

// PointerDown records a press on bubble id.
func (e *Engine) PointerDown(id string, p geom.Vec) bool {
	b := e.find(id)
	if b == nil || b.Hidden || b.orphan {
		return false
	}
	b.Drag = e.drag.Down(b.Drag, p, b.Position).State
	return true
}

// PointerMove feeds a pointer move. Once a drag is active the bubble
// follows the pointer directly; only its connector is rebuilt.
func (e *Engine) PointerMove(id string, p geom.Vec) bool {
	b := e.find(id)
	if b == nil || b.orphan {
		return false
	}
	out := e.drag.Move(b.Drag, p)
	b.Drag = out.State
	switch out.Effect {
	case drag.Started:
		e.logger.Debug("drag started", "id", id)
		e.hooks.OnDrag(id, out.Effect.String())
	case drag.Moved:
	default:
		return false
	}
	e.moveTo(b, out.Position)
	e.publish(nil)
	return true
}

// PointerUp ends a press. A drag stores the bubble's new anchor-relative
// offset and fires the drag-end callback; a press that never moved past
// the threshold fires the click callback.
func (e *Engine) PointerUp(id string, p geom.Vec) bool {
	b := e.find(id)
	if b == nil || b.orphan {
		return false
	}
	if a, ok := e.proj.Anchor(id); ok {
		b.Anchor = a
	}
	out := e.drag.Up(b.Drag, p, b.Anchor.Center)
	b.Drag = out.State

	switch out.Effect {
	case drag.Released:
		e.moveTo(b, out.Position)
		off := b.Position.Sub(b.Anchor.Center)
		b.UserOffset = &off
		e.logger.Debug("drag released", "id", id, "offset", off)
		e.hooks.OnDrag(id, out.Effect.String())
		e.publish(nil)
		if e.onDragEnd != nil {
			e.onDragEnd(id, off)
		}
	case drag.Clicked:
		if e.onClick != nil {
			e.onClick(id)
		}
	default:
		return false
	}
	return true
}

// PointerCancel aborts a press or drag on bubble id, putting a dragged
// bubble back where the drag started.
func (e *Engine) PointerCancel(id string) bool {
	b := e.find(id)
	if b == nil {
		return false
	}
	out := e.drag.Cancel(b.Drag)
	b.Drag = out.State
	if out.Effect != drag.Cancelled {
		return false
	}
	e.hooks.OnDrag(id, out.Effect.String())
	e.moveTo(b, out.Position)
	e.publish(nil)
	return true
}

// ResetOffset forgets a user offset so the bubble rejoins relaxation on
// the next cycle.
func (e *Engine) ResetOffset(id string) bool {
	b := e.find(id)
	if b == nil || b.UserOffset == nil {
		return false
	}
	b.UserOffset = nil
	return true
}

// HitTest returns the topmost visible bubble containing p. Later bubbles
// are drawn above earlier ones.
func (e *Engine) HitTest(p geom.Vec) (string, bool) {
	for i := len(e.bubbles) - 1; i >= 0; i-- {
		b := e.bubbles[i]
		if !b.Hidden && b.Rect().Contains(p) {
			return b.ID, true
		}
	}
	return "", false
}

// moveTo places b at pos clamped into the viewport and rebuilds its
// connector, bypassing the solver.
func (e *Engine) moveTo(b *Bubble, pos geom.Vec) {
	if a, ok := e.proj.Anchor(b.ID); ok {
		b.Anchor = a
	}
	bounds := e.proj.Viewport().Inset(e.solver.Options().Margin)
	b.Position = bounds.Clamp(pos, b.Size)
	b.Connector = connector.Build(b.Anchor.Center, b.Anchor.Radius, b.Rect(), e.cfg.Connector)
}
