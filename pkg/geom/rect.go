package geom

import "math"

// Size is a width/height pair.
type Size struct {
	W float64 `json:"w" bson:"w" yaml:"w" toml:"w"`
	H float64 `json:"h" bson:"h" yaml:"h" toml:"h"`
}

// Half returns the vector from a box's top-left corner to its centre.
func (s Size) Half() Vec { return Vec{s.W / 2, s.H / 2} }

// Area returns W*H.
func (s Size) Area() float64 { return s.W * s.H }

// Rect is an axis-aligned rectangle given by its top-left corner and size.
type Rect struct {
	X float64 `json:"x" bson:"x" yaml:"x"`
	Y float64 `json:"y" bson:"y" yaml:"y"`
	W float64 `json:"w" bson:"w" yaml:"w"`
	H float64 `json:"h" bson:"h" yaml:"h"`
}

// RectAt builds the rectangle with top-left corner pos and size s.
func RectAt(pos Vec, s Size) Rect { return Rect{pos.X, pos.Y, s.W, s.H} }

func (r Rect) Min() Vec { return Vec{r.X, r.Y} }

func (r Rect) Max() Vec { return Vec{r.X + r.W, r.Y + r.H} }

func (r Rect) Size() Size { return Size{r.W, r.H} }

func (r Rect) Center() Vec { return Vec{r.X + r.W/2, r.Y + r.H/2} }

// Contains reports whether p lies inside r (edges inclusive).
func (r Rect) Contains(p Vec) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// ContainsRect reports whether o lies fully inside r (edges inclusive).
func (r Rect) ContainsRect(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.X+o.W <= r.X+r.W && o.Y+o.H <= r.Y+r.H
}

// Inset shrinks r by m on every side. The result never has negative size;
// an over-inset rectangle collapses onto r's centre.
func (r Rect) Inset(m float64) Rect {
	out := Rect{r.X + m, r.Y + m, r.W - 2*m, r.H - 2*m}
	if out.W < 0 {
		out.X, out.W = r.X+r.W/2, 0
	}
	if out.H < 0 {
		out.Y, out.H = r.Y+r.H/2, 0
	}
	return out
}

// Expand grows r by m on every side.
func (r Rect) Expand(m float64) Rect { return r.Inset(-m) }

// Translate moves r by d.
func (r Rect) Translate(d Vec) Rect { return Rect{r.X + d.X, r.Y + d.Y, r.W, r.H} }

// Clamp returns the top-left position closest to pos such that a box of
// size s lies inside r. A box larger than r along an axis is aligned with
// r's minimum edge on that axis.
func (r Rect) Clamp(pos Vec, s Size) Vec {
	return Vec{clampAxis(pos.X, s.W, r.X, r.W), clampAxis(pos.Y, s.H, r.Y, r.H)}
}

func clampAxis(p, extent, lo, span float64) float64 {
	if extent >= span {
		return lo
	}
	return math.Max(lo, math.Min(p, lo+span-extent))
}

// ClampPoint returns the point of r closest to p.
func (r Rect) ClampPoint(p Vec) Vec {
	return Vec{
		math.Max(r.X, math.Min(p.X, r.X+r.W)),
		math.Max(r.Y, math.Min(p.Y, r.Y+r.H)),
	}
}

// Overlap returns the penetration depth of r and o along each axis after
// requiring a gap of pad between them. A positive value on both axes means
// the boxes collide; the smaller of the two is the minimum translation
// needed along that axis.
func (r Rect) Overlap(o Rect, pad float64) (dx, dy float64) {
	dx = math.Min(r.X+r.W+pad-o.X, o.X+o.W+pad-r.X)
	dy = math.Min(r.Y+r.H+pad-o.Y, o.Y+o.H+pad-r.Y)
	return dx, dy
}

// Overlaps reports whether r and o are closer than pad on both axes.
func (r Rect) Overlaps(o Rect, pad float64) bool {
	dx, dy := r.Overlap(o, pad)
	return dx > 0 && dy > 0
}

// OverlapArea returns the area of the padded overlap region, or 0.
func (r Rect) OverlapArea(o Rect, pad float64) float64 {
	dx, dy := r.Overlap(o, pad)
	if dx <= 0 || dy <= 0 {
		return 0
	}
	return math.Min(dx, math.Min(r.W, o.W)+pad) * math.Min(dy, math.Min(r.H, o.H)+pad)
}

// OutsideArea returns the area of o lying outside r.
func (r Rect) OutsideArea(o Rect) float64 {
	ix := math.Max(0, math.Min(r.X+r.W, o.X+o.W)-math.Max(r.X, o.X))
	iy := math.Max(0, math.Min(r.Y+r.H, o.Y+o.H)-math.Max(r.Y, o.Y))
	return o.W*o.H - ix*iy
}

// Exit returns the point where the ray from r's centre in direction dir
// leaves r. dir need not be normalised; a zero dir returns the centre.
func (r Rect) Exit(dir Vec) Vec {
	c := r.Center()
	t := math.Inf(1)
	if dir.X != 0 {
		t = math.Min(t, (r.W/2)/math.Abs(dir.X))
	}
	if dir.Y != 0 {
		t = math.Min(t, (r.H/2)/math.Abs(dir.Y))
	}
	if math.IsInf(t, 1) {
		return c
	}
	return c.Add(dir.Scale(t))
}

// Support returns the half-extent of a box of size s measured along the
// unit direction dir, i.e. the distance from the box centre to its edge
// plane orthogonal to dir.
func (s Size) Support(dir Vec) float64 {
	return math.Abs(dir.X)*s.W/2 + math.Abs(dir.Y)*s.H/2
}
