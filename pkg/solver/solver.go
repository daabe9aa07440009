package solver

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/bubblemap/pkg/geom"
)

// GoldenAngle is 180*(3-sqrt(5)) degrees, in radians (about 137.508°).
var GoldenAngle = math.Pi * (3 - math.Sqrt(5))

// overlapEpsilon is the penetration depth below which two boxes count as
// separated. It keeps a converged layout exactly stable under re-solving.
const overlapEpsilon = 1e-6

// minScale bounds how often a rejected pass may halve the step.
const minScale = 1.0 / 64

// Defaults for [Options].
const (
	DefaultMargin        = 8.0
	DefaultPadding       = 6.0
	DefaultMaxIterations = 50
	DefaultThreshold     = 0.25
	DefaultStiffness     = 1.0
	DefaultSpiralRadius  = 24.0
	DefaultSpiralStep    = 48.0
	DefaultCrowdRadius   = 160.0
)

// Options configures the solver.
type Options struct {
	// Margin keeps bubbles this far inside the viewport edges.
	Margin float64

	// Padding is the minimum gap between two bubbles (and between a bubble
	// and an obstacle) before they count as overlapping.
	Padding float64

	// MaxIterations caps the number of relaxation passes.
	MaxIterations int

	// Threshold ends relaxation once the largest displacement of a pass
	// is smaller than this many pixels.
	Threshold float64

	// Stiffness scales the linear repulsion: 1 resolves an isolated pair
	// in a single pass, smaller values move more cautiously.
	Stiffness float64

	// SpiralRadius is the gap between an anchor and the nearest edge of a
	// bubble seeded at spiral index 0.
	SpiralRadius float64

	// SpiralStep grows the spiral gap by SpiralStep*sqrt(k) at index k.
	SpiralStep float64

	// CrowdRadius is the anchor distance within which earlier items count
	// towards an item's spiral index.
	CrowdRadius float64
}

// DefaultOptions returns the default solver options.
func DefaultOptions() Options {
	return Options{
		Margin:        DefaultMargin,
		Padding:       DefaultPadding,
		MaxIterations: DefaultMaxIterations,
		Threshold:     DefaultThreshold,
		Stiffness:     DefaultStiffness,
		SpiralRadius:  DefaultSpiralRadius,
		SpiralStep:    DefaultSpiralStep,
		CrowdRadius:   DefaultCrowdRadius,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.Threshold <= 0 {
		o.Threshold = d.Threshold
	}
	if o.Stiffness <= 0 || o.Stiffness > 1 {
		o.Stiffness = d.Stiffness
	}
	if o.SpiralStep < 0 {
		o.SpiralStep = d.SpiralStep
	}
	return o
}

// Item is one bubble to place.
type Item struct {
	ID       string
	Priority int
	Anchor   geom.Vec
	Size     geom.Size

	// Prior is the position carried over from the previous frame. Nil
	// means the item is new and gets a spiral seed.
	Prior *geom.Vec

	// Offset is a user-chosen anchor-relative position. Offset items are
	// placed at Anchor+Offset and excluded from relaxation.
	Offset *geom.Vec

	// Pin fixes the item at this position, excluding it from relaxation.
	Pin *geom.Vec
}

// Frame is the input to one layout pass.
type Frame struct {
	Viewport  geom.Rect
	Obstacles []geom.Rect
	Items     []Item
}

// Placement is the solved position of one item.
type Placement struct {
	ID       string   `json:"id"`
	Position geom.Vec `json:"position"`
	Seeded   bool     `json:"seeded,omitempty"`
	Fixed    bool     `json:"fixed,omitempty"`
}

// Result is the output of [Solver.Solve].
type Result struct {
	// Placements are ordered by (Priority, ID).
	Placements []Placement `json:"placements"`

	// Iterations is the number of relaxation passes run.
	Iterations int `json:"iterations"`

	// Converged is false when relaxation stopped at the iteration cap or
	// could no longer make progress.
	Converged bool `json:"converged"`

	// Trace holds the overlap energy before the first pass followed by
	// the energy after every pass. It never increases.
	Trace []float64 `json:"trace,omitempty"`

	// Overlap is the residual overlap energy after clamping.
	Overlap float64 `json:"overlap"`
}

// Position returns the placement of id.
func (r Result) Position(id string) (geom.Vec, bool) {
	for _, p := range r.Placements {
		if p.ID == id {
			return p.Position, true
		}
	}
	return geom.Vec{}, false
}

// Solver places bubbles. A Solver holds only configuration and is safe for
// concurrent use.
type Solver struct {
	opts Options
}

// New creates a solver. Zero-valued iteration, threshold and stiffness
// options fall back to their defaults.
func New(opts Options) *Solver {
	return &Solver{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (s *Solver) Options() Options { return s.opts }

// body is the working state of one item during a solve.
type body struct {
	item   Item
	pos    geom.Vec
	fixed  bool
	seeded bool
}

func (b *body) rect(pos geom.Vec) geom.Rect { return geom.RectAt(pos, b.item.Size) }

// Solve places every item of f.
func (s *Solver) Solve(f Frame) Result {
	items := slices.Clone(f.Items)
	slices.SortStableFunc(items, func(a, b Item) int {
		return cmp.Or(cmp.Compare(a.Priority, b.Priority), cmp.Compare(a.ID, b.ID))
	})

	bounds := f.Viewport.Inset(s.opts.Margin)
	bodies := s.seed(items)

	res := s.relax(bodies, bounds, f.Obstacles)

	res.Placements = make([]Placement, len(bodies))
	for i := range bodies {
		b := &bodies[i]
		b.pos = bounds.Clamp(b.pos, b.item.Size)
		res.Placements[i] = Placement{ID: b.item.ID, Position: b.pos, Seeded: b.seeded, Fixed: b.fixed}
	}
	res.Overlap = s.energy(bodies, positions(bodies), bounds, f.Obstacles)
	return res
}

// seed assigns the starting position of every item.
func (s *Solver) seed(items []Item) []body {
	bodies := make([]body, len(items))
	for i, it := range items {
		b := body{item: it}
		switch {
		case it.Offset != nil:
			b.pos, b.fixed = it.Anchor.Add(*it.Offset), true
		case it.Pin != nil:
			b.pos, b.fixed = *it.Pin, true
		case it.Prior != nil:
			b.pos = *it.Prior
		default:
			k := 0
			for _, prev := range items[:i] {
				if prev.Anchor.Dist(it.Anchor) <= s.opts.CrowdRadius {
					k++
				}
			}
			b.pos, b.seeded = s.SpiralSeed(it.Anchor, it.Size, k), true
		}
		bodies[i] = b
	}
	return bodies
}

// SpiralSeed returns the top-left position of a bubble of size sz placed at
// spiral index k around anchor. Index 0 is directly above the anchor with a
// gap of SpiralRadius between anchor and bubble.
func (s *Solver) SpiralSeed(anchor geom.Vec, sz geom.Size, k int) geom.Vec {
	dir := geom.Up
	if k > 0 {
		dir = geom.Polar(-math.Pi/2 + float64(k)*GoldenAngle)
	}
	gap := s.opts.SpiralRadius + s.opts.SpiralStep*math.Sqrt(float64(k))
	center := anchor.Add(dir.Scale(gap + sz.Support(dir)))
	return center.Sub(sz.Half())
}

func positions(bodies []body) []geom.Vec {
	out := make([]geom.Vec, len(bodies))
	for i := range bodies {
		out[i] = bodies[i].pos
	}
	return out
}

// relax runs the relaxation passes and writes the accepted positions back
// into bodies.
func (s *Solver) relax(bodies []body, bounds geom.Rect, obstacles []geom.Rect) Result {
	pos := positions(bodies)
	e := s.energy(bodies, pos, bounds, obstacles)
	res := Result{Trace: []float64{e}, Converged: true}

	movable := slices.ContainsFunc(bodies, func(b body) bool { return !b.fixed })
	if e == 0 || !movable {
		return res
	}

	scale := 1.0
	cand := make([]geom.Vec, len(pos))
	res.Converged = false
	for res.Iterations < s.opts.MaxIterations {
		res.Iterations++
		copy(cand, pos)
		moved := s.pass(bodies, cand, bounds, obstacles, scale)
		next := s.energy(bodies, cand, bounds, obstacles)

		switch {
		case next == 0:
			pos, cand = cand, pos
			e = next
			res.Converged = true
		case moved < s.opts.Threshold:
			// A pass this small is dropped, so the current layout is a
			// fixed point and re-solving it leaves it untouched.
			res.Converged = true
		case next > e:
			scale /= 2
		default:
			pos, cand = cand, pos
			e = next
		}
		res.Trace = append(res.Trace, e)
		if res.Converged || scale < minScale {
			break
		}
	}

	for i := range bodies {
		bodies[i].pos = pos[i]
	}
	return res
}

// pass performs one Gauss-Seidel sweep over pos and returns the largest
// single displacement.
func (s *Solver) pass(bodies []body, pos []geom.Vec, bounds geom.Rect, obstacles []geom.Rect, scale float64) float64 {
	k := s.opts.Stiffness * scale
	var moved float64

	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			fi, fj := bodies[i].fixed, bodies[j].fixed
			if fi && fj {
				continue
			}
			a, b := bodies[i].rect(pos[i]), bodies[j].rect(pos[j])
			dx, dy := a.Overlap(b, s.opts.Padding)
			if dx <= overlapEpsilon || dy <= overlapEpsilon {
				continue
			}
			u := a.Center().Sub(b.Center())
			if u.IsZero() {
				u = jitter(i, j, bodies[i].item.Priority, bodies[j].item.Priority)
			}
			u = u.Normalize()
			step := k * (depthAlong(u, dx, dy) + overlapEpsilon)
			switch {
			case fi:
				pos[j] = pos[j].Sub(u.Scale(step))
			case fj:
				pos[i] = pos[i].Add(u.Scale(step))
			default:
				step /= 2
				pos[i] = pos[i].Add(u.Scale(step))
				pos[j] = pos[j].Sub(u.Scale(step))
			}
			moved = math.Max(moved, step)
		}
	}

	for i := range bodies {
		if bodies[i].fixed {
			continue
		}
		for _, o := range obstacles {
			a := bodies[i].rect(pos[i])
			dx, dy := a.Overlap(o, s.opts.Padding)
			if dx <= overlapEpsilon || dy <= overlapEpsilon {
				continue
			}
			u := a.Center().Sub(o.Center()).Normalize()
			step := k * (depthAlong(u, dx, dy) + overlapEpsilon)
			pos[i] = pos[i].Add(u.Scale(step))
			moved = math.Max(moved, step)
		}

		inside := bounds.Clamp(pos[i], bodies[i].item.Size)
		if d := inside.Sub(pos[i]); !d.IsZero() {
			moved = math.Max(moved, d.Len()*k)
			if k >= 1 {
				pos[i] = inside
			} else {
				pos[i] = pos[i].Add(d.Scale(k))
			}
		}
	}
	return moved
}

// depthAlong converts per-axis penetration into the distance two boxes
// must separate along unit direction u to stop overlapping.
func depthAlong(u geom.Vec, dx, dy float64) float64 {
	d := math.Inf(1)
	if ax := math.Abs(u.X); ax > 0 {
		d = dx / ax
	}
	if ay := math.Abs(u.Y); ay > 0 {
		d = math.Min(d, dy/ay)
	}
	return d
}

// jitter returns a deterministic separation direction for two exactly
// coincident bubbles, derived from their priorities (or their order when
// priorities tie).
func jitter(i, j, pi, pj int) geom.Vec {
	n := pi - pj
	if n == 0 {
		n = i - j
	}
	return geom.Polar(float64(n) * GoldenAngle)
}

// energy is the layout's overlap metric: padded pairwise overlap involving
// at least one movable bubble, overlap with obstacles, and area outside the
// bounds.
func (s *Solver) energy(bodies []body, pos []geom.Vec, bounds geom.Rect, obstacles []geom.Rect) float64 {
	var e float64
	for i := range bodies {
		a := bodies[i].rect(pos[i])
		for j := i + 1; j < len(bodies); j++ {
			if bodies[i].fixed && bodies[j].fixed {
				continue
			}
			e += overlapArea(a, bodies[j].rect(pos[j]), s.opts.Padding)
		}
		if bodies[i].fixed {
			continue
		}
		for _, o := range obstacles {
			e += overlapArea(a, o, s.opts.Padding)
		}
		if a.W <= bounds.W && a.H <= bounds.H && !bounds.ContainsRect(a) {
			e += bounds.OutsideArea(a)
		}
	}
	return e
}

func overlapArea(a, b geom.Rect, pad float64) float64 {
	dx, dy := a.Overlap(b, pad)
	if dx <= overlapEpsilon || dy <= overlapEpsilon {
		return 0
	}
	return a.OverlapArea(b, pad)
}
